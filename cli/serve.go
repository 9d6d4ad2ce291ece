package cli

import (
	"context"
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/fractalic-run/fractalic/interp"
	"github.com/fractalic-run/fractalic/telemetry"
)

// NewServeCmd creates the "serve" subcommand: runs a document like "run"
// does, but streams newline-delimited progress events to stdout as it goes
// instead of printing only the final result. This is a local progress feed,
// not a network listener — there is no protocol of our own to serve over
// the wire, only this process's own stdout.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve <file>",
		Short: "Execute a document, streaming NDJSON progress events to stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  runServe,
	}
	cmd.Flags().String("config", "", "Explicit config file path")
	cmd.Flags().String("provider", "", "Override defaultProvider for this run")
	cmd.Flags().Duration("timeout", 10*time.Minute, "Execution timeout")
	return cmd
}

// progressLine is the NDJSON shape written per event, matching the
// progress-event vocabulary the HTTP façade would stream over the wire.
type progressLine struct {
	Stage     string  `json:"stage"`
	Progress  float64 `json:"progress"`
	Message   string  `json:"message,omitempty"`
	RunID     string  `json:"run_id,omitempty"`
	NodeKey   string  `json:"node_key,omitempty"`
	OpName    string  `json:"op_name,omitempty"`
	Timestamp string  `json:"timestamp"`
}

type streamEmitter struct {
	cmd *cobra.Command
}

func (s streamEmitter) Emit(e interp.Event) {
	line := progressLine{
		Stage:     string(e.Stage),
		Progress:  e.Progress,
		Message:   e.Message,
		RunID:     e.RunID,
		NodeKey:   e.NodeKey,
		OpName:    e.OpName,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
	data, err := json.Marshal(line)
	if err != nil {
		return
	}
	s.cmd.OutOrStdout().Write(append(data, '\n'))
}

func runServe(cmd *cobra.Command, args []string) error {
	docPath := args[0]

	rt, rec, shutdown, err := buildRuntime(cmd, docPath)
	if err != nil {
		return err
	}
	defer shutdown(context.Background())

	if provider, _ := cmd.Flags().GetString("provider"); provider != "" {
		rt.Svc.Config.DefaultProvider = provider
	}
	rt.Svc.Emitter = telemetry.Multi{rt.Svc.Emitter, streamEmitter{cmd: cmd}}

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	_, _, err = runDocument(ctx, rt, rec)
	return err
}
