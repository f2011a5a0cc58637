// Package markdown extracts readable text from Markdown files.
package markdown

import (
	"context"
	"io"
	"regexp"
	"strings"

	"github.com/custodia-labs/kbase/internal/core/ports/driven"
	"github.com/custodia-labs/kbase/internal/extractors/plaintext"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

var (
	fenceLine    = regexp.MustCompile("(?m)^[ \\t]*(```|~~~).*$")
	inlineCode   = regexp.MustCompile("`([^`\n]+)`")
	image        = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	link         = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	heading      = regexp.MustCompile(`(?m)^ {0,3}#{1,6}[ \t]+`)
	blockquote   = regexp.MustCompile(`(?m)^[ \t]*> ?`)
	rule         = regexp.MustCompile(`(?m)^[ \t]*([-*_][ \t]*){3,}$`)
	bullet       = regexp.MustCompile(`(?m)^([ \t]*)[-*+][ \t]+`)
	numbered     = regexp.MustCompile(`(?m)^([ \t]*)\d+[.)][ \t]+`)
	emphasis     = regexp.MustCompile(`(\*\*|__|\*|~~)([^*~\n]+)(\*\*|__|\*|~~)`)
	blankRunLine = regexp.MustCompile(`\n{3,}`)
)

// Extractor handles .md and .markdown documents.
type Extractor struct {
	text *plaintext.Extractor
}

// New creates a new Markdown extractor.
func New() *Extractor {
	return &Extractor{text: plaintext.New()}
}

// Extensions returns the extensions this extractor handles.
func (e *Extractor) Extensions() []string {
	return []string{".md", ".markdown"}
}

// Extract decodes the file as UTF-8 text and strips Markdown syntax.
// Code block contents are kept; only the fences go.
func (e *Extractor) Extract(ctx context.Context, r io.ReaderAt, size int64) (string, error) {
	raw, err := e.text.Extract(ctx, r, size)
	if err != nil {
		return "", err
	}
	return Strip(raw), nil
}

// Strip removes Markdown formatting and returns plain text.
func Strip(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = fenceLine.ReplaceAllString(content, "")
	content = image.ReplaceAllString(content, "$1")
	content = link.ReplaceAllString(content, "$1")
	content = inlineCode.ReplaceAllString(content, "$1")
	content = rule.ReplaceAllString(content, "")
	content = heading.ReplaceAllString(content, "")
	content = blockquote.ReplaceAllString(content, "")
	content = bullet.ReplaceAllString(content, "$1")
	content = numbered.ReplaceAllString(content, "$1")
	content = emphasis.ReplaceAllString(content, "$2")
	content = blankRunLine.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
