package tool

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, dir, name string, m Manifest) {
	t.Helper()
	data, err := json.Marshal(m)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".tool.json"), data, 0o644))
}

func TestDiscoverManifests(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "echo", Manifest{
		Name: "echo", Description: "echoes input", Exec: ExecSimpleJSON, Entry: "echo.sh",
	})

	regs, err := discoverManifests(dir)
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, "echo", regs[0].Name)
	assert.Equal(t, OriginManifest, regs[0].Origin)
}

func TestDiscoverManifestsMissingDirIsNotError(t *testing.T) {
	regs, err := discoverManifests(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Nil(t, regs)
}

type fakeAdapter struct {
	calls int
}

func (f *fakeAdapter) Call(context.Context, json.RawMessage) (json.RawMessage, error) {
	f.calls++
	return json.RawMessage(`{"ok":true}`), nil
}

func TestRegistryCallUnknownTool(t *testing.T) {
	r := New(t.TempDir(), nil)
	_, err := r.Call(context.Background(), "missing", nil)
	assert.Error(t, err)
}

func TestRegistryManifestPrecedenceOverAuto(t *testing.T) {
	r := New(t.TempDir(), nil)
	adapter := &fakeAdapter{}
	r.byName = map[string]*Registration{
		"dup": {Name: "dup", Origin: OriginAuto, adapter: &fakeAdapter{}},
	}
	// simulate what Rescan's merge does: manifest overwrites auto
	r.byName["dup"] = &Registration{Name: "dup", Origin: OriginManifest, adapter: adapter}

	_, err := r.Call(context.Background(), "dup", json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.Equal(t, 1, adapter.calls)
}

func TestRegistrySchemasSortedByName(t *testing.T) {
	r := New(t.TempDir(), nil)
	r.byName = map[string]*Registration{
		"zeta":  {Name: "zeta", adapter: &fakeAdapter{}},
		"alpha": {Name: "alpha", adapter: &fakeAdapter{}},
	}
	schemas := r.Schemas()
	require.Len(t, schemas, 2)
	assert.Equal(t, "alpha", schemas[0].Name)
	assert.Equal(t, "zeta", schemas[1].Name)
}

func TestRegistryListRedactsSecretParameters(t *testing.T) {
	r := New(t.TempDir(), nil)
	r.byName = map[string]*Registration{
		"svc": {
			Name:       "svc",
			Parameters: map[string]any{"api_key": "sk-live-123", "city": "string"},
			adapter:    &fakeAdapter{},
		},
	}
	list := r.List()
	require.Len(t, list, 1)
	assert.Equal(t, "***redacted***", list[0].Parameters["api_key"])
	assert.Equal(t, "string", list[0].Parameters["city"])
}
