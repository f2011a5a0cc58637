package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/kbase/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/kbase/internal/core/domain"
)

var (
	queryK    int
	queryJSON bool
	queryFull bool
)

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Ask the knowledge base a question",
	Long: `Returns the passages closest to the question, most relevant first.

The score is the squared L2 distance between the question and the passage
embeddings: lower is more relevant.`,
	Example: `  kbase query "what is the refund policy?"
  kbase query -k 5 --json "onboarding checklist"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryK, "k", "k", 0, "number of passages (default: query.top_k)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output passages as JSON")
	queryCmd.Flags().BoolVar(&queryFull, "full", false, "print whole passages instead of previews")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return errNoQuestion
	}

	k := queryK
	if k <= 0 {
		svc, err := getSettingsService()
		if err != nil {
			return err
		}
		settings, err := svc.Get()
		if err != nil {
			return err
		}
		k = settings.TopK
	}

	kb, err := getKnowledgeBase(cmd.Context())
	if err != nil {
		return err
	}

	results, err := kb.Query(cmd.Context(), question, k)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		return outputQueryJSON(cmd, results)
	}
	outputQueryText(cmd, results, terminalWidth())
	return nil
}

func outputQueryJSON(cmd *cobra.Command, results []domain.QueryResult) error {
	if results == nil {
		results = []domain.QueryResult{}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputQueryText(cmd *cobra.Command, results []domain.QueryResult, width int) {
	if len(results) == 0 {
		cmd.Println("No passages found. Add documents with 'kbase add <file>'.")
		return
	}

	for i, r := range results {
		cmd.Printf("[%d] %s  chunk %d/%d  score %.4f\n",
			i+1, r.Metadata.Source, r.Metadata.ChunkID+1, r.Metadata.TotalChunks, r.RelevanceScore)
		if queryFull {
			for _, line := range strings.Split(strings.TrimSpace(r.Content), "\n") {
				cmd.Printf("    %s\n", line)
			}
		} else {
			cmd.Printf("    %s\n", list.Preview(r.Content, width-4))
		}
		cmd.Println()
	}
}

// terminalWidth returns the width of stdout, or 100 when it is not a terminal.
func terminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 100
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		return 100
	}
	return width
}
