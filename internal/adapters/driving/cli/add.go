package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbase/internal/core/ports/driving"
)

var (
	addName         string
	addChunkSize    int
	addChunkOverlap int
)

var addCmd = &cobra.Command{
	Use:   "add <file>",
	Short: "Add a document to the knowledge base",
	Long: `Copies the file into the documents directory, extracts its text, splits it
into chunks, embeds them and saves the knowledge base.

Adding a file whose name is already registered replaces the earlier version.`,
	Example: `  kbase add ./handbook.pdf
  kbase add notes.txt --name meeting-notes.txt --chunk-size 800 --chunk-overlap 80`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addName, "name", "", "register the document under this filename (default: base name of <file>)")
	addCmd.Flags().IntVar(&addChunkSize, "chunk-size", 0, "chunk size in characters (default: chunking.size)")
	addCmd.Flags().IntVar(&addChunkOverlap, "chunk-overlap", 0, "chunk overlap in characters (default: chunking.overlap)")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	src := args[0]
	name := addName
	if name == "" {
		name = filepath.Base(src)
	}

	kb, err := getKnowledgeBase(cmd.Context())
	if err != nil {
		return err
	}

	// Only flags given on the command line override settings, so an explicit
	// --chunk-overlap 0 is kept.
	var opts driving.IngestOptions
	if cmd.Flags().Changed("chunk-size") {
		size := addChunkSize
		opts.ChunkSize = &size
	}
	if cmd.Flags().Changed("chunk-overlap") {
		overlap := addChunkOverlap
		opts.ChunkOverlap = &overlap
	}

	ingestion, err := kb.IngestFile(cmd.Context(), name, src, opts)
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}

	doc := ingestion.Document
	cmd.Printf("Added %s: %d chunks from %d characters\n", doc.Filename, doc.ChunkCount, len([]rune(ingestion.Text)))
	return nil
}
