package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbase/internal/core/domain"
)

var (
	errNoQuestion = errors.New("question must not be empty")
	errNoFilename = errors.New("filename must not be empty")
)

// hints maps domain failures to what the user can do about them.
var hints = []struct {
	err  error
	hint string
}{
	{domain.ErrNotFound, "run 'kbase list' to see registered documents"},
	{domain.ErrUnsupportedType, "supported file types are .txt, .md, .html, .docx and .pdf"},
	{domain.ErrEmbeddingUnavailable, "check embedding.provider and embedding.base_url with 'kbase config list'"},
	{domain.ErrModelMismatch, "set storage.reembed_on_model_change to true to rebuild the index for the new model"},
	{domain.ErrDimensionMismatch, "set storage.reembed_on_model_change to true to rebuild the index for the new model"},
	{domain.ErrInvalidConfig, "run 'kbase config list' to review the configuration"},
	{domain.ErrPersistence, "check free space and permissions on storage.data_dir"},
	{domain.ErrNotReady, "the knowledge base is still loading; try again"},
}

// hintFor returns advice for err, or "" when there is none.
func hintFor(err error) string {
	for _, h := range hints {
		if errors.Is(err, h.err) {
			return h.hint
		}
	}
	return ""
}

func printError(cmd *cobra.Command, err error) {
	cmd.PrintErrln("Error:", err)
	if hint := hintFor(err); hint != "" {
		cmd.PrintErrln("Hint:", hint)
	}
}
