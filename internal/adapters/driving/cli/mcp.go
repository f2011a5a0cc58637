package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbase/internal/adapters/driving/mcp"
)

// mcpServer is what runMCPServe needs from the MCP adapter.
type mcpServer interface {
	Run(ctx context.Context) error
	RunHTTP(ctx context.Context, addr string) error
}

// newMCPServer is replaced in tests.
var newMCPServer = func(ports *mcp.Ports) (mcpServer, error) {
	server, err := mcp.NewServer(ports)
	if err != nil {
		return nil, err
	}
	return server, nil
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can query the
knowledge base.

Tools: kb_query, kb_ingest, kb_list, kb_delete.
Resources: kbase://documents, kbase://documents/{filename}, kbase://stats.

By default the server speaks JSON-RPC over stdio. Use --port to serve
streamable HTTP instead, for example to try it with MCP Inspector.

Examples:
  # Stdio mode (for desktop assistants)
  kbase mcp serve

  # HTTP mode
  kbase mcp serve --port 8080

Assistant configuration:
  {
    "mcpServers": {
      "kbase": {
        "command": "/path/to/kbase",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
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

	server, err := newMCPServer(&mcp.Ports{KnowledgeBase: kb, DefaultTopK: settings.TopK})
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		// Stdout is free in HTTP mode; in stdio mode it carries the protocol.
		cmd.Printf("MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}
	return server.Run(cmd.Context())
}
