// Package docx extracts paragraph text from Word documents.
package docx

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

const bodyPart = "word/document.xml"

// Extractor handles .docx documents.
type Extractor struct{}

// New creates a new DOCX extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extensions returns the extensions this extractor handles.
func (e *Extractor) Extensions() []string {
	return []string{".docx"}
}

// Extract returns one line per paragraph of the main document part.
func (e *Extractor) Extract(_ context.Context, r io.ReaderAt, size int64) (string, error) {
	archive, err := zip.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("%w: not a docx archive: %w", domain.ErrExtraction, err)
	}

	part, err := archive.Open(bodyPart)
	if err != nil {
		return "", fmt.Errorf("%w: missing %s", domain.ErrExtraction, bodyPart)
	}
	defer part.Close()

	text, err := paragraphs(part)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", domain.ErrExtraction, bodyPart, err)
	}
	return text, nil
}

// paragraphs walks the WordprocessingML token stream. Text runs are
// concatenated; tabs and breaks become whitespace.
func paragraphs(r io.Reader) (string, error) {
	var (
		out    []string
		line   strings.Builder
		inText bool
	)

	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				line.WriteByte('\t')
			case "br", "cr":
				line.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if s := strings.TrimSpace(line.String()); s != "" {
					out = append(out, s)
				}
				line.Reset()
			}
		case xml.CharData:
			if inText {
				line.Write(t)
			}
		}
	}

	return strings.Join(out, "\n"), nil
}
