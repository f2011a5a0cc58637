package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbase/internal/core/domain"
)

const wordNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

// buildDocx returns a zip archive with the given parts.
func buildDocx(t *testing.T, parts map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range parts {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestNew(t *testing.T) {
	e := New()
	require.NotNil(t, e)
	assert.Equal(t, []string{".docx"}, e.Extensions())
}

func TestExtract(t *testing.T) {
	body := `<?xml version="1.0" encoding="UTF-8"?>
<w:document ` + wordNS + `><w:body>
<w:p><w:r><w:t>Hello</w:t></w:r><w:r><w:t xml:space="preserve"> world</w:t></w:r></w:p>
<w:p></w:p>
<w:p><w:r><w:t>a</w:t><w:tab/><w:t>b</w:t></w:r></w:p>
</w:body></w:document>`
	data := buildDocx(t, map[string]string{"word/document.xml": body})

	text, err := New().Extract(context.Background(), bytes.NewReader(data), int64(len(data)))

	require.NoError(t, err)
	assert.Equal(t, "Hello world\na\tb", text)
}

func TestExtract_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"not a zip", []byte("plain text")},
		{"missing body part", buildDocx(t, map[string]string{"docProps/core.xml": "<x/>"})},
		{"malformed xml", buildDocx(t, map[string]string{"word/document.xml": "<w:document><w:body>"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Extract(context.Background(), bytes.NewReader(tt.data), int64(len(tt.data)))
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrExtraction))
		})
	}
}
