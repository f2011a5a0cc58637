package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/kbase/internal/adapters/driving/tui"
)

var errNotTerminal = errors.New("the TUI needs an interactive terminal; use 'kbase query' instead")

// isTerminal reports whether stdin and stdout are a terminal. Replaced in tests.
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// runApp runs the TUI program. Replaced in tests.
var runApp = func(app *tui.App) error {
	return app.Run()
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal user interface.

Ask questions, browse the ranked passages, read a passage in full, and list
or delete documents.

Controls:
  ↑/k, ↓/j - Navigate
  Enter    - Ask / Read
  n        - New question
  d        - Delete document
  Esc      - Back
  q        - Quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in TUI: %v\n%s", r, debug.Stack())
		}
	}()

	if !isTerminal() {
		return errNotTerminal
	}

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

	app, err := tui.NewApp(tui.NewPorts(kb, settings.TopK))
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(cmd.Context())

	if err := runApp(app); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
