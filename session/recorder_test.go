package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fractalic-run/fractalic/interp"
	"github.com/fractalic-run/fractalic/parser"
)

func TestRecorderRedactsSecretEnvValues(t *testing.T) {
	dir := t.TempDir()
	docPath := filepath.Join(dir, "doc.md")
	require.NoError(t, os.WriteFile(docPath, []byte("# Hello\nbody\n"), 0o644))

	rec, err := NewRecorder(dir, "label", map[string]string{
		"API_KEY": "sk-supersecret",
		"PATH":    "/usr/bin",
	}, []string{docPath})
	require.NoError(t, err)
	require.Equal(t, "label.start", rec.StartSnapshotID)

	rec.Emit(interp.Event{Stage: interp.EventNodeDone, RunID: "r1", Message: "token was sk-supersecret in output"})

	tr, err := parser.Parse([]byte("# Hello\nbody\n"))
	require.NoError(t, err)
	require.NoError(t, rec.Finalize(tr))
	require.Equal(t, "label.done", rec.DoneSnapshotID)

	trc, err := os.ReadFile(filepath.Join(dir, "label.trc"))
	require.NoError(t, err)
	require.NotContains(t, string(trc), "sk-supersecret")
	require.Contains(t, string(trc), "***redacted***")

	ctx, err := os.ReadFile(filepath.Join(dir, "label.ctx"))
	require.NoError(t, err)
	require.Contains(t, string(ctx), "Hello")

	snap, err := os.ReadFile(filepath.Join(dir, "label.done.snapshot"))
	require.NoError(t, err)
	require.Contains(t, string(snap), "Hello")
}
