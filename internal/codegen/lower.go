package codegen

import (
	"fmt"
	"strings"

	"github.com/wolfeidau/dynentry/internal/entry"
)

// writer accumulates indented lines of generated source.
type writer struct {
	indent string
	lines  []string
}

func (w *writer) line(level int, format string, args ...any) {
	w.lines = append(w.lines, strings.Repeat(w.indent, level)+fmt.Sprintf(format, args...))
}

func (w *writer) String() string {
	return strings.Join(w.lines, "\n")
}

// lowerSequence emits the promise chain equivalent of
//
//	(async () => {
//		await import(preload[0]);
//		...
//		return import(primary);
//	})()
//
// Each preload becomes one nested then continuation so imports run strictly
// in order. The try/catch turns a synchronous throw while starting an import
// into a rejected promise, and rejections propagate through the chain.
func (g *Generator) lowerSequence(s entry.Sequence) string {
	w := &writer{indent: g.indent}

	w.line(0, "(function () {")
	w.line(1, "try {")

	level := 2
	for _, p := range s.Preload() {
		w.line(level, "return Promise.resolve(%s).then(function () {", g.importExpr(p, ""))
		level++
	}
	w.line(level, "return %s;", g.importExpr(s.Primary(), s.ChunkName))
	for level > 2 {
		level--
		w.line(level, "});")
	}

	w.line(1, "} catch (e) {")
	w.line(2, "return Promise.reject(e);")
	w.line(1, "}")
	w.line(0, "})()")

	return w.String()
}
