package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/fractalic-run/fractalic/render"
	"github.com/fractalic-run/fractalic/session"
	"github.com/fractalic-run/fractalic/tree"
)

// NewRunCmd creates the "run" subcommand: the headless execution command
// described by the document surface — one positional document path, flags
// selecting config file, provider, output format and timeout, exit codes
// 0/1/2/3. There is no model flag: the model comes from the provider's
// config section or the operation's own params.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Execute a Fractalic document",
		Args:  cobra.ExactArgs(1),
		RunE:  runRun,
	}
	cmd.Flags().String("config", "", "Explicit config file path")
	cmd.Flags().String("provider", "", "Override defaultProvider for this run")
	cmd.Flags().String("format", "pretty", "Output format: json | text | pretty")
	cmd.Flags().Duration("timeout", 10*time.Minute, "Execution timeout")
	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	docPath := args[0]

	rt, rec, shutdown, err := buildRuntime(cmd, docPath)
	if err != nil {
		return err
	}
	defer shutdown(context.Background())

	if provider, _ := cmd.Flags().GetString("provider"); provider != "" {
		rt.Svc.Config.DefaultProvider = provider
	}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	explicit, fragment, err := runDocument(ctx, rt, rec)
	if err != nil {
		return err
	}

	return writeRunOutput(cmd, explicit, fragment, rt.Tree, rec)
}

// runResult mirrors the HTTP façade's consumed-only response shape, so the
// CLI's json format and the façade agree on vocabulary.
type runResult struct {
	Success        bool   `json:"success"`
	ExplicitReturn bool   `json:"explicit_return"`
	ReturnContent  string `json:"return_content,omitempty"`
	Output         string `json:"output"`
	SnapshotLabel  string `json:"snapshot_label,omitempty"`
}

func writeRunOutput(cmd *cobra.Command, explicit bool, fragment []*tree.Node, tr *tree.Tree, rec *session.Recorder) error {
	var returnContent string
	if explicit {
		text, err := render.Render(fragment)
		if err != nil {
			return exitError(ExitRuntime, "rendering return fragment: %v", err)
		}
		returnContent = text
	}

	output, err := render.RenderTree(tr)
	if err != nil {
		return exitError(ExitRuntime, "rendering final document: %v", err)
	}

	result := runResult{
		Success:        true,
		ExplicitReturn: explicit,
		ReturnContent:  returnContent,
		Output:         output,
		SnapshotLabel:  rec.DoneSnapshotID,
	}

	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return exitError(ExitRuntime, "marshaling output: %v", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	case "text":
		fmt.Fprintln(cmd.OutOrStdout(), result.Output)
	default:
		fmt.Fprintln(cmd.OutOrStdout(), formatPretty(result))
	}
	return nil
}

var headerStyle = lipgloss.NewStyle().Bold(true)

func formatPretty(r runResult) string {
	var out string
	out += headerStyle.Render("=== Output ===") + "\n"
	out += r.Output + "\n"
	if r.ExplicitReturn {
		out += "\n" + headerStyle.Render("=== Return ===") + "\n"
		out += r.ReturnContent + "\n"
	}
	return out
}
