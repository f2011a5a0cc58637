package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbase/internal/core/domain"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List registered documents",
	Args:    cobra.NoArgs,
	RunE:    runList,
}

var deleteCmd = &cobra.Command{
	Use:     "delete <filename>",
	Aliases: []string{"rm"},
	Short:   "Delete a document and rebuild the index without it",
	Long: `Removes the document's chunks, its registry record and its retained copy,
then rebuilds the index from the remaining chunks and saves.`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output documents as JSON")
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(deleteCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	kb, err := getKnowledgeBase(cmd.Context())
	if err != nil {
		return err
	}

	docs, err := kb.ListDocuments(cmd.Context())
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	if listJSON {
		if docs == nil {
			docs = []domain.Document{}
		}
		data, err := json.MarshalIndent(docs, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal documents: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(docs) == 0 {
		cmd.Println("No documents.")
		return nil
	}
	printDocuments(cmd, docs)
	return nil
}

func printDocuments(cmd *cobra.Command, docs []domain.Document) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FILENAME\tCHUNKS\tUPLOADED")
	total := 0
	for _, doc := range docs {
		fmt.Fprintf(w, "%s\t%d\t%s\n", doc.Filename, doc.ChunkCount, doc.UploadDate.Local().Format("2006-01-02 15:04:05"))
		total += doc.ChunkCount
	}
	w.Flush()
	cmd.Printf("\n%d documents, %d chunks\n", len(docs), total)
}

func runDelete(cmd *cobra.Command, args []string) error {
	filename := strings.TrimSpace(args[0])
	if filename == "" {
		return errNoFilename
	}

	kb, err := getKnowledgeBase(cmd.Context())
	if err != nil {
		return err
	}

	deleted, err := kb.DeleteDocument(cmd.Context(), filename)
	if err != nil {
		return fmt.Errorf("delete %s: %w", filename, err)
	}
	if !deleted {
		return fmt.Errorf("%w: no document named %q", domain.ErrNotFound, filename)
	}

	cmd.Printf("Deleted %s\n", filename)
	return nil
}
