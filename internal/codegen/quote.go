package codegen

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// quote renders s as a single-quoted JavaScript string literal. Every quote
// character, the template delimiters ` and $, line terminators and control
// characters are escaped, so the literal survives being embedded inside an
// outer template literal and parses back to s.
func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	writeEscaped(&b, s)
	b.WriteByte('\'')
	return b.String()
}

func writeEscaped(b *strings.Builder, s string) {
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size

		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		case '"':
			b.WriteString(`\"`)
		case '`':
			b.WriteString("\\`")
		case '$':
			b.WriteString(`\$`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		case '\v':
			b.WriteString(`\v`)
		case '\u2028', '\u2029':
			fmt.Fprintf(b, `\u%04x`, r)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(b, `\x%02x`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
}

// comment renders s as a block comment body safe for embedding: it is
// escaped like a string literal and cannot terminate the comment early.
func comment(s string) string {
	var b strings.Builder
	writeEscaped(&b, s)
	return strings.ReplaceAll(b.String(), "*/", `*\/`)
}
