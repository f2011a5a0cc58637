package cli

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbase/internal/bootstrap"
	"github.com/custodia-labs/kbase/internal/core/domain"
)

// openSnapshotStore is replaced in tests.
var openSnapshotStore = bootstrap.NewSnapshotStore

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Persist the knowledge base to disk",
	Long: `Writes the index, chunk store and registry as one unit. Every change is
saved automatically; use this to retry after a failed save.`,
	Args: cobra.NoArgs,
	RunE: runSave,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Ingest new and changed files from the documents directory",
	Long: `Scans the documents directory and ingests every supported file that is not
registered yet or has changed since it was last ingested.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show knowledge base statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the saved snapshot without loading an embedding model",
	Long: `Reads the registry and index straight from storage. Nothing is embedded
and nothing is written, so this works when the embedding provider is
unavailable or the snapshot was produced by a different model.`,
	Args: cobra.NoArgs,
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(inspectCmd)
}

func runSave(cmd *cobra.Command, _ []string) error {
	kb, err := getKnowledgeBase(cmd.Context())
	if err != nil {
		return err
	}
	if err := kb.SaveToDisk(cmd.Context()); err != nil {
		return fmt.Errorf("save failed: %w", err)
	}
	cmd.Println("Saved.")
	return nil
}

func runSync(cmd *cobra.Command, _ []string) error {
	kb, err := getKnowledgeBase(cmd.Context())
	if err != nil {
		return err
	}

	report, err := kb.SyncDirectory(cmd.Context())
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	for _, name := range report.Ingested {
		cmd.Printf("  ingested   %s\n", name)
	}
	failed := make([]string, 0, len(report.Failed))
	for name := range report.Failed {
		failed = append(failed, name)
	}
	slices.Sort(failed)
	for _, name := range failed {
		cmd.Printf("  failed     %s: %v\n", name, report.Failed[name])
	}
	cmd.Printf("%d ingested, %d unchanged, %d failed\n", len(report.Ingested), len(report.Unchanged), len(failed))

	if len(failed) > 0 {
		return fmt.Errorf("%w: %d files could not be ingested", domain.ErrIngestion, len(failed))
	}
	return nil
}

func runStats(cmd *cobra.Command, _ []string) error {
	kb, err := getKnowledgeBase(cmd.Context())
	if err != nil {
		return err
	}
	stats, err := kb.Stats(cmd.Context())
	if err != nil {
		return err
	}

	cmd.Printf("State:      %s\n", stats.State)
	cmd.Printf("Documents:  %d\n", stats.Documents)
	cmd.Printf("Chunks:     %d\n", stats.Chunks)
	cmd.Printf("Model:      %s\n", stats.Model)
	cmd.Printf("Dimensions: %d\n", stats.Dimensions)
	cmd.Printf("Chunker:    %s\n", stats.Chunker)
	return nil
}

func runInspect(cmd *cobra.Command, _ []string) error {
	svc, err := getSettingsService()
	if err != nil {
		return err
	}
	settings, err := svc.Get()
	if err != nil {
		return err
	}

	store, err := openSnapshotStore(settings.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	cmd.Printf("Storage: %s (%s)\n\n", store.Location(), settings.Storage.Backend)

	docs, err := store.LoadDocuments(cmd.Context())
	switch {
	case errors.Is(err, domain.ErrNotFound):
		cmd.Println("Nothing saved yet.")
		return nil
	case err != nil:
		return fmt.Errorf("read registry: %w", err)
	}
	if len(docs) == 0 {
		cmd.Println("No documents.")
	} else {
		printDocuments(cmd, docs)
	}

	snap, err := store.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("read index: %w", err)
	}
	cmd.Println()
	cmd.Printf("Model:      %s\n", snap.Model)
	cmd.Printf("Dimensions: %d\n", snap.Dimension)
	cmd.Printf("Vectors:    %d\n", len(snap.Vectors))
	cmd.Printf("Chunks:     %d\n", len(snap.Chunks))
	if err := snap.Validate(); err != nil {
		cmd.Printf("Consistency: FAILED (%v)\n", err)
	} else {
		cmd.Println("Consistency: ok")
	}
	return nil
}
