// Package html extracts visible text from HTML pages.
package html

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// skipped elements contribute no text.
var skipped = map[atom.Atom]bool{
	atom.Head:     true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Svg:      true,
	atom.Template: true,
}

// block elements start a new line.
var block = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Hr: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Li: true, atom.Tr: true, atom.Blockquote: true, atom.Pre: true, atom.Table: true,
	atom.Section: true, atom.Article: true, atom.Header: true, atom.Footer: true,
	atom.Ul: true, atom.Ol: true, atom.Dt: true, atom.Dd: true,
}

// Extractor handles .html and .htm documents.
type Extractor struct{}

// New creates a new HTML extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extensions returns the extensions this extractor handles.
func (e *Extractor) Extensions() []string {
	return []string{".html", ".htm"}
}

// Extract decodes the page using its declared charset and returns the text
// of the body, one line per block element.
func (e *Extractor) Extract(_ context.Context, r io.ReaderAt, size int64) (string, error) {
	data, err := io.ReadAll(io.NewSectionReader(r, 0, size))
	if err != nil {
		return "", fmt.Errorf("%w: read: %w", domain.ErrExtraction, err)
	}

	if !utf8.Valid(data) {
		enc, name, _ := charset.DetermineEncoding(data, "text/html")
		data, err = io.ReadAll(transform.NewReader(bytes.NewReader(data), enc.NewDecoder()))
		if err != nil {
			return "", fmt.Errorf("%w: transcode from %s: %w", domain.ErrExtraction, name, err)
		}
	}

	text, err := visibleText(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: parse: %w", domain.ErrExtraction, err)
	}
	return text, nil
}

func visibleText(r io.Reader) (string, error) {
	var (
		b     strings.Builder
		depth int
		z     = html.NewTokenizer(r)
	)

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return tidy(b.String()), nil
			}
			return "", z.Err()

		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if skipped[a] && tt == html.StartTagToken {
				depth++
			}
			if block[a] {
				b.WriteByte('\n')
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if skipped[a] && depth > 0 {
				depth--
			}
			if block[a] {
				b.WriteByte('\n')
			}

		case html.TextToken:
			if depth == 0 {
				b.WriteString(collapse(string(z.Text())))
			}
		}
	}
}

// collapse turns every whitespace run in a text node, newlines included,
// into one space. A node that starts or ends with whitespace keeps a single
// space there so it stays apart from its inline neighbours.
func collapse(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		if text == "" {
			return ""
		}
		return " "
	}
	out := strings.Join(fields, " ")
	if r, _ := utf8.DecodeRuneInString(text); unicode.IsSpace(r) {
		out = " " + out
	}
	if r, _ := utf8.DecodeLastRuneInString(text); unicode.IsSpace(r) {
		out += " "
	}
	return out
}

// tidy collapses whitespace within lines and drops empty lines.
func tidy(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
