package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbase/internal/adapters/driving/watcher"
	"github.com/custodia-labs/kbase/internal/extractors"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the knowledge base in step with the documents directory",
	Long: `Watches the documents directory and applies changes as they happen:
new and modified files are ingested, removed files are deleted from the
index. Changes are debounced and ingestion is rate limited by
watch.rate_per_second. Stop with Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	svc, err := getSettingsService()
	if err != nil {
		return err
	}
	settings, err := svc.Get()
	if err != nil {
		return err
	}

	kb, err := getKnowledgeBase(cmd.Context())
	if err != nil {
		return err
	}

	w, err := watcher.New(kb, watcher.Config{
		Dir:           settings.Storage.DocumentsDir,
		RatePerSecond: settings.WatchRatePerSecond,
		Supports:      extractors.NewDefaultRegistry().Supports,
		OnEvent: func(ev watcher.Event) {
			switch {
			case ev.Err != nil:
				cmd.PrintErrf("%s %s: %v\n", ev.Action, ev.Filename, ev.Err)
			case ev.Action == watcher.ActionIngest:
				cmd.Printf("ingested %s (%d chunks)\n", ev.Filename, ev.Chunks)
			case ev.Action == watcher.ActionDelete:
				cmd.Printf("deleted %s\n", ev.Filename)
			}
		},
	})
	if err != nil {
		return err
	}
	defer w.Close()

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", settings.Storage.DocumentsDir)
	if err := w.Run(cmd.Context()); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	return nil
}
