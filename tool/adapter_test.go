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

func TestSimpleJSONAdapterCall(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "echo.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\necho \"$1\"\n"), 0o755))

	a := &simpleJSONAdapter{entry: path}
	out, err := a.Call(context.Background(), json.RawMessage(`{"x":1}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":1}`, string(out))
}

func TestSimpleJSONAdapterRejectsNonJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "noisy.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\necho not-json\n"), 0o755))

	a := &simpleJSONAdapter{entry: path}
	_, err := a.Call(context.Background(), json.RawMessage(`{}`))
	assert.Error(t, err)
}

func TestCLIAdapterBuildsFlagsFromArgs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cli.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\necho \"$@\"\n"), 0o755))

	a := &cliAdapter{interpreter: path, entry: ""}
	out, err := a.Call(context.Background(), json.RawMessage(`{"query":"go lang"}`))
	require.NoError(t, err)
	assert.Contains(t, string(out), "--query")
}

func TestCLIAdapterWrapsNonJSONOutput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "text.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\necho plain text\n"), 0o755))

	a := &cliAdapter{interpreter: path, entry: ""}
	out, err := a.Call(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, "plain text", decoded["output"])
}
