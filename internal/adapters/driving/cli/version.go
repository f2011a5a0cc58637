package cli

import (
	"encoding/json"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbase/internal/adapters/driving/mcp"
)

var versionJSON bool

// buildInfo describes the running binary.
type buildInfo struct {
	Version    string `json:"version"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
	MCPVersion string `json:"mcp_server_version"`
}

func currentBuild() buildInfo {
	return buildInfo{
		Version:    version,
		GoVersion:  runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
		MCPVersion: mcp.Version,
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		info := currentBuild()
		if versionJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		}
		cmd.Printf("kbase version %s (%s, %s)\n", info.Version, info.GoVersion, info.Platform)
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "print build details as JSON")
	rootCmd.AddCommand(versionCmd)
}
