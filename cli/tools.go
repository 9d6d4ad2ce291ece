package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fractalic-run/fractalic/config"
	"github.com/fractalic-run/fractalic/tool"
)

// NewToolsCmd creates the "tools" subcommand: rescans and lists the
// aggregated registry (local manifests, auto-discovered scripts, remote MCP
// servers), redacted.
func NewToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the aggregated tool registry",
		RunE:  runTools,
	}
	cmd.Flags().String("config", "", "Explicit config file path")
	return cmd
}

func runTools(cmd *cobra.Command, args []string) error {
	explicit, _ := cmd.Flags().GetString("config")
	path, found, err := config.Discover(explicit)
	if err != nil {
		return exitError(ExitRuntime, "discovering config: %v", err)
	}
	cfg := config.Default()
	if found {
		cfg, err = config.Load(path)
		if err != nil {
			return exitError(ExitRuntime, "loading config: %v", err)
		}
	}

	mcpServers := make([]tool.MCPServerConfig, 0, len(cfg.MCPServers))
	for _, s := range cfg.MCPServers {
		mcpServers = append(mcpServers, tool.MCPServerConfig{Name: s.Name, Endpoint: s.Endpoint})
	}
	registry := tool.New(cfg.ToolsDir, mcpServers)
	if err := registry.Rescan(cmd.Context()); err != nil {
		return exitError(ExitRuntime, "rescanning tool registry: %v", err)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tORIGIN\tUPDATED\tDESCRIPTION")
	for _, reg := range registry.List() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", reg.Name, reg.Origin, reg.UpdatedAt, reg.Description)
	}
	return w.Flush()
}
