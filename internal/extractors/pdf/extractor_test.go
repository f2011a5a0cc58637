package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbase/internal/core/domain"
)

// buildPDF writes a minimal single-font PDF with one page per entry.
// An empty entry produces a page with an empty content stream.
func buildPDF(pages ...string) []byte {
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}

	objs := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}
	for i, text := range pages {
		content := 5 + 2*i
		objs = append(objs, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
				"/Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", content))

		stream := ""
		if text != "" {
			stream = fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
		}
		objs = append(objs, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, obj := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objs)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

func TestNew(t *testing.T) {
	extractor := New()
	require.NotNil(t, extractor)
	assert.Equal(t, []string{".pdf"}, extractor.Extensions())
}

func TestExtract_Pages(t *testing.T) {
	data := buildPDF("Quarterly revenue grew", "Operating costs fell")

	text, err := New().Extract(context.Background(), bytes.NewReader(data), int64(len(data)))

	require.NoError(t, err)
	assert.Contains(t, text, "Quarterly revenue grew")
	assert.Contains(t, text, "Operating costs fell")
	assert.Contains(t, text, pageSeparator)
	assert.Less(t, strings.Index(text, "Quarterly"), strings.Index(text, "Operating"))
}

func TestExtract_SkipsEmptyPages(t *testing.T) {
	data := buildPDF("first", "", "third")

	text, err := New().Extract(context.Background(), bytes.NewReader(data), int64(len(data)))

	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(text, pageSeparator))
	assert.Contains(t, text, "first")
	assert.Contains(t, text, "third")
}

func TestExtract_AllPagesEmpty(t *testing.T) {
	data := buildPDF("", "")

	text, err := New().Extract(context.Background(), bytes.NewReader(data), int64(len(data)))

	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestExtract_Corrupt(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"not a pdf", []byte("this is plain text, not a pdf")},
		{"empty", []byte{}},
		{"truncated", buildPDF("hello")[:40]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Extract(context.Background(), bytes.NewReader(tt.data), int64(len(tt.data)))
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrExtraction)
		})
	}
}
