// Package loader encodes entry values into loader requests and decodes them
// back. A loader request is a module specifier of the form
//
//	<loaderPath>?id=<id>&exportable=<bool>&entry=<URI encoded JSON>!
//
// which the build integration installs as the tool's entry point and which is
// later turned into generated code by Load.
package loader

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultID identifies requests created by this package
	DefaultID = "dynamic-entry"
	// DefaultPath is the loader path used when none is configured
	DefaultPath = "dynamic-entry"

	entryParam = "entry="
)

var (
	// ErrMissingEntry indicates the query has no entry parameter
	ErrMissingEntry = errors.New("loader query has no entry parameter")
	// ErrInvalidEntryJSON indicates the entry parameter failed to decode
	ErrInvalidEntryJSON = errors.New("loader entry is not valid JSON")
	// ErrInvalidExportable indicates the exportable flag is not a boolean
	ErrInvalidExportable = errors.New("loader exportable flag is not a boolean")
)

// Request is a decoded loader request.
type Request struct {
	ID string
	// Entry holds the JSON decoded entry value: a string, []any or
	// map[string]any.
	Entry      any
	Exportable bool
	// ChunkName is applied to a Single or Sequence entry that has none.
	ChunkName string
}

// Encode builds the loader request for r. Entry must be JSON serializable.
func Encode(loaderPath string, r Request) (string, error) {
	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r.Entry); err != nil {
		return "", fmt.Errorf("failed to encode entry: %w", err)
	}

	id := r.ID
	if id == "" {
		id = DefaultID
	}

	var b strings.Builder
	b.WriteString(loaderPath)
	b.WriteString("?id=")
	b.WriteString(encodeURIComponent(id))
	b.WriteString("&exportable=")
	b.WriteString(strconv.FormatBool(r.Exportable))
	if r.ChunkName != "" {
		b.WriteString("&chunkName=")
		b.WriteString(encodeURIComponent(r.ChunkName))
	}
	b.WriteString("&")
	b.WriteString(entryParam)
	b.WriteString(encodeURIComponent(strings.TrimSuffix(buf.String(), "\n")))
	b.WriteString("!")
	return b.String(), nil
}

// encodeURIComponent escapes s so it contains no query delimiters and no "!".
func encodeURIComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// ParseQuery decodes a loader query such as "?id=x&entry=%22.%2Fa%22&exportable=false".
// The leading "?" and a trailing "!" are optional. Exportable defaults to true.
func ParseQuery(query string) (Request, error) {
	params := parseParams(query)

	raw, ok := params["entry"]
	if !ok {
		return Request{}, ErrMissingEntry
	}

	req := Request{
		ID:         params["id"],
		Exportable: true,
		ChunkName:  params["chunkName"],
	}

	if v, ok := params["exportable"]; ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Request{}, fmt.Errorf("%w: %q", ErrInvalidExportable, v)
		}
		req.Exportable = b
	}

	if err := json.Unmarshal([]byte(raw), &req.Entry); err != nil {
		return Request{}, fmt.Errorf("%w: %w", ErrInvalidEntryJSON, err)
	}

	return req, nil
}

// ParseRequest decodes a full loader request, "<loaderPath>?<query>".
func ParseRequest(s string) (Request, error) {
	_, query, ok := strings.Cut(s, "?")
	if !ok {
		return Request{}, ErrMissingEntry
	}
	return ParseQuery(query)
}

// IsRequest reports whether s is a loader request carrying an entry.
func IsRequest(s string) bool {
	_, query, ok := strings.Cut(s, "?")
	if !ok {
		return false
	}
	return entryIndex(query) >= 0
}

// EntryFromRequest unwraps the entry of a loader request. Values that are not
// loader requests are returned unchanged, and an empty string yields "".
func EntryFromRequest(s string) (any, error) {
	if s == "" || !IsRequest(s) {
		return s, nil
	}
	req, err := ParseRequest(s)
	if err != nil {
		return nil, err
	}
	return req.Entry, nil
}

// parseParams splits a query into parameters. The entry parameter may hold
// raw JSON, so it runs up to the last "!" terminator (or the next "&" when
// there is none) rather than the next "&".
func parseParams(query string) map[string]string {
	query = strings.TrimPrefix(query, "?")
	params := map[string]string{}

	if idx := entryIndex(query); idx >= 0 {
		before := query[:idx]
		after := query[idx+len(entryParam):]

		var raw, tail string
		if bang := strings.LastIndexByte(after, '!'); bang >= 0 {
			raw, tail = after[:bang], after[bang+1:]
		} else if amp := strings.IndexByte(after, '&'); amp >= 0 {
			raw, tail = after[:amp], after[amp+1:]
		} else {
			raw = after
		}

		// raw JSON may legitimately contain a bare "%"
		if v, err := url.PathUnescape(raw); err == nil {
			raw = v
		}
		params["entry"] = raw
		query = before + "&" + tail
	}

	for _, part := range strings.Split(query, "&") {
		part = strings.TrimSuffix(part, "!")
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		if _, seen := params[k]; seen && k == "entry" {
			continue
		}
		if uv, err := url.QueryUnescape(v); err == nil {
			v = uv
		}
		params[k] = v
	}

	return params
}

// entryIndex finds the entry parameter, which must start the query or follow
// an "&".
func entryIndex(query string) int {
	query = strings.TrimPrefix(query, "?")
	offset := 0
	for {
		idx := strings.Index(query[offset:], entryParam)
		if idx < 0 {
			return -1
		}
		idx += offset
		if idx == 0 || query[idx-1] == '&' {
			return idx
		}
		offset = idx + len(entryParam)
	}
}
