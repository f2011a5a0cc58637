// Package cli implements the kbase command line as a driving adapter.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbase/internal/adapters/driven/config/file"
	"github.com/custodia-labs/kbase/internal/bootstrap"
	"github.com/custodia-labs/kbase/internal/core/ports/driving"
	"github.com/custodia-labs/kbase/internal/core/services"
	"github.com/custodia-labs/kbase/internal/logger"
)

// version is set at build time with -ldflags "-X ...cli.version=v1.2.3".
var version = "dev"

var (
	verbose   bool
	logFormat string
	logLevel  string
	configDir string
)

var (
	// settingsService is built on first use unless injected.
	settingsService driving.SettingsService

	// openKnowledgeBase returns the knowledge base commands act on. It is
	// built on first use from settingsService unless injected.
	openKnowledgeBase func(ctx context.Context) (driving.KnowledgeBase, error)

	// closeKnowledgeBase releases whatever openKnowledgeBase opened.
	closeKnowledgeBase func() error
)

var rootCmd = &cobra.Command{
	Use:   "kbase",
	Short: "Local document knowledge base",
	Long: `kbase keeps a local, persistent knowledge base of your documents.

Text and PDF files are split into overlapping chunks, embedded, and stored
in an exact nearest-neighbour index. Questions return the most relevant
passages with their source file and position.

Files dropped into the documents directory are picked up on the next start,
by 'kbase sync', or continuously by 'kbase watch'.`,
	SilenceErrors:      true,
	SilenceUsage:       true,
	PersistentPreRunE:  setupLogging,
	PersistentPostRunE: func(*cobra.Command, []string) error { return releaseKnowledgeBase() },
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&logFormat, "log-format", "text", "log format (text or json)")
	flags.StringVar(&logLevel, "log-level", "", "pin the log level (debug, info, warn, error)")
	flags.StringVar(&configDir, "config-dir", "", "configuration directory (default $"+file.HomeEnv+" or ~/.kbase)")
}

// Execute runs the root command until it finishes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	err = errors.Join(err, releaseKnowledgeBase())
	if err != nil {
		printError(rootCmd, err)
	}
	return err
}

func setupLogging(*cobra.Command, []string) error {
	format, err := logger.ParseFormat(logFormat)
	if err != nil {
		return err
	}
	logger.SetFormat(format)
	logger.SetVerbose(verbose)
	return logger.SetLevel(logLevel)
}

// home resolves the configuration directory.
func home() (string, error) {
	if configDir != "" {
		return configDir, nil
	}
	return file.DefaultHome()
}

// getSettingsService returns the injected settings service or builds one on
// the TOML store in the configuration directory.
func getSettingsService() (driving.SettingsService, error) {
	if settingsService != nil {
		return settingsService, nil
	}
	dir, err := home()
	if err != nil {
		return nil, fmt.Errorf("resolve config directory: %w", err)
	}
	store, err := file.NewConfigStore(dir)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	settingsService = services.NewSettingsService(store, dir)
	return settingsService, nil
}

// getKnowledgeBase opens the knowledge base on first use. The instance is
// shared by everything a command does and closed when the command ends.
func getKnowledgeBase(ctx context.Context) (driving.KnowledgeBase, error) {
	if openKnowledgeBase == nil {
		svc, err := getSettingsService()
		if err != nil {
			return nil, err
		}
		handle := bootstrap.NewHandle(svc.Get)
		openKnowledgeBase = func(ctx context.Context) (driving.KnowledgeBase, error) {
			kb, err := handle.Get(ctx)
			if err != nil {
				return nil, err
			}
			return kb, nil
		}
		closeKnowledgeBase = handle.Close
	}
	return openKnowledgeBase(ctx)
}

// releaseKnowledgeBase closes a knowledge base opened by getKnowledgeBase.
// Injected openers are left alone.
func releaseKnowledgeBase() error {
	if closeKnowledgeBase == nil {
		return nil
	}
	err := closeKnowledgeBase()
	openKnowledgeBase = nil
	closeKnowledgeBase = nil
	return err
}
