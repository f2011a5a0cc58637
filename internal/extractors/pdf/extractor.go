// Package pdf extracts text from PDF documents page by page.
package pdf

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
	"github.com/custodia-labs/kbase/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// pageSeparator joins the text of consecutive pages.
const pageSeparator = "\n\n"

// Extractor handles .pdf documents.
type Extractor struct{}

// New creates a new PDF extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extensions returns the extensions this extractor handles.
func (e *Extractor) Extensions() []string {
	return []string{".pdf"}
}

// Extract returns the text of every page that yields any, separated by a
// blank line. Pages without text are skipped. Only a document that cannot be
// opened at all is an error.
func (e *Extractor) Extract(_ context.Context, r io.ReaderAt, size int64) (text string, err error) {
	// The parser panics on some malformed input.
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
			err = fmt.Errorf("%w: malformed pdf: %v", domain.ErrExtraction, rec)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("%w: open pdf: %w", domain.ErrExtraction, err)
	}

	total := reader.NumPage()
	pages := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		pageText, ok := pageText(reader, i)
		if !ok {
			continue
		}
		pages = append(pages, pageText)
	}

	logger.Debug("pdf: extracted %d of %d pages", len(pages), total)
	return strings.Join(pages, pageSeparator), nil
}

// pageText returns the trimmed text of page i, or false when it has none.
func pageText(reader *pdf.Reader, i int) (text string, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Debug("pdf: skipping page %d: %v", i, rec)
			text, ok = "", false
		}
	}()

	page := reader.Page(i)
	if page.V.IsNull() {
		return "", false
	}

	raw, err := page.GetPlainText(nil)
	if err != nil {
		logger.Debug("pdf: skipping page %d: %v", i, err)
		return "", false
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	return raw, true
}
