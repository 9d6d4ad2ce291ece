package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/fractalic-run/fractalic/config"
	"github.com/fractalic-run/fractalic/ferrors"
	"github.com/fractalic-run/fractalic/interp"
	_ "github.com/fractalic-run/fractalic/ops" // registers the six operation handlers
	"github.com/fractalic-run/fractalic/parser"
	"github.com/fractalic-run/fractalic/session"
	"github.com/fractalic-run/fractalic/telemetry"
	"github.com/fractalic-run/fractalic/tool"
	"github.com/fractalic-run/fractalic/tree"
)

// loadConfig resolves and loads the configuration surface, honoring an
// explicit --config flag if set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	explicit, _ := cmd.Flags().GetString("config")
	path, found, err := config.Discover(explicit)
	if err != nil {
		return nil, err
	}
	if !found {
		return config.Default(), nil
	}
	return config.Load(path)
}

// buildRuntime parses docPath and wires a Runtime ready to drive, the
// session recorder the caller should Finalize after Run returns, and a
// shutdown func that flushes telemetry and must be called (typically via
// defer) once the run completes.
func buildRuntime(cmd *cobra.Command, docPath string) (*interp.Runtime, *session.Recorder, func(context.Context) error, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, exitError(ExitRuntime, "loading config: %v", err)
	}

	// #nosec G304 -- docPath is the CLI's required positional document argument.
	data, err := os.ReadFile(docPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil, exitError(ExitValidation, "file not found: %s", docPath)
		}
		return nil, nil, nil, exitError(ExitRuntime, "reading %s: %v", docPath, err)
	}

	tr, err := parser.Parse(data)
	if err != nil {
		return nil, nil, nil, exitError(ExitValidation, "%v", err)
	}

	mcpServers := make([]tool.MCPServerConfig, 0, len(cfg.MCPServers))
	for _, s := range cfg.MCPServers {
		mcpServers = append(mcpServers, tool.MCPServerConfig{Name: s.Name, Endpoint: s.Endpoint})
	}
	registry := tool.New(cfg.ToolsDir, mcpServers)
	if err := registry.Rescan(cmd.Context()); err != nil {
		interp.LoggerFromContext(cmd.Context()).Warn("tool registry rescan failed", "error", err)
	}

	baseDir := filepath.Dir(docPath)
	runID := session.NewRunID()
	label := session.NewLabel(time.Now(), filepath.Base(docPath))

	rec, err := session.NewRecorder(filepath.Join(baseDir, ".fractalic"), label, cfg.ShellEnv, []string{docPath})
	if err != nil {
		return nil, nil, nil, exitError(ExitRuntime, "opening session recorder: %v", err)
	}

	providers, err := telemetry.Setup(cmd.Context(), cfg.OTLPEndpoint)
	if err != nil {
		return nil, nil, nil, exitError(ExitRuntime, "setting up telemetry: %v", err)
	}
	metricsHandler, err := telemetry.NewMetricsHandler(providers.Meter)
	if err != nil {
		return nil, nil, nil, exitError(ExitRuntime, "setting up metrics: %v", err)
	}

	emitter := telemetry.Multi{rec, telemetry.NewTracingHandler(providers.Tracer), metricsHandler}

	svc := &interp.Services{Config: cfg, Tools: registry, Emitter: emitter}
	frame := &interp.CallFrame{File: docPath, ChildRunID: runID}
	rt := interp.NewRuntime(tr, baseDir, runID, frame, svc)
	return rt, rec, providers.Shutdown, nil
}

func runDocument(ctx context.Context, rt *interp.Runtime, rec *session.Recorder) (bool, []*tree.Node, error) {
	explicit, fragment, err := interp.Run(ctx, rt)
	if finalizeErr := rec.Finalize(rt.Tree); finalizeErr != nil && err == nil {
		err = finalizeErr
	}
	if err != nil {
		return explicit, fragment, classifyRunErr(err)
	}
	return explicit, fragment, nil
}

func classifyRunErr(err error) error {
	switch {
	case ferrorsIsCancelled(err):
		return exitError(ExitCancelled, "%v", err)
	default:
		return exitError(ExitRuntime, "%v", err)
	}
}

func ferrorsIsCancelled(err error) bool {
	return errors.Is(err, ferrors.ErrCancelled)
}
