package plaintext

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbase/internal/core/domain"
)

func TestNew(t *testing.T) {
	extractor := New()
	require.NotNil(t, extractor)
	assert.Equal(t, []string{".txt"}, extractor.Extensions())
}

func TestExtract(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		input   []byte
		want    string
		wantErr bool
	}{
		{"simple text", []byte("hello world"), "hello world", false},
		{"multi line", []byte("line one\n\nline two\n"), "line one\n\nline two\n", false},
		{"unicode", []byte("naïve café 日本語"), "naïve café 日本語", false},
		{"empty file", []byte{}, "", false},
		{"byte order mark dropped", append([]byte{0xEF, 0xBB, 0xBF}, []byte("bom")...), "bom", false},
		{"invalid utf8", []byte{0xff, 0xfe, 0x00, 'a'}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := New().Extract(ctx, bytes.NewReader(tt.input), int64(len(tt.input)))
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrExtraction)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, text)
		})
	}
}
