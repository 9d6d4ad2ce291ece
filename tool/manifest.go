package tool

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ExecKind is the declared execution strategy for a manifest-backed tool.
type ExecKind string

const (
	ExecPythonCLI  ExecKind = "python-cli"
	ExecBashCLI    ExecKind = "bash-cli"
	ExecSimpleJSON ExecKind = "simple-json"
)

// Manifest is the declarative file adjacent to a tool stating its name,
// description, parameter schema, executable kind, and entry path.
type Manifest struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
	Exec        ExecKind       `json:"exec"`
	Entry       string         `json:"entry"`
}

const manifestSuffix = ".tool.json"

// discoverManifests loads every *.tool.json file directly under dir.
func discoverManifests(dir string) ([]*Registration, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out []*Registration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), manifestSuffix) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		// #nosec G304 -- path is a directory entry under the configured tools directory.
		data, err := os.ReadFile(path)
		if err != nil {
			continue // a broken manifest is skipped, not fatal to the whole registry
		}
		var m Manifest
		if err := json.Unmarshal(data, &m); err != nil {
			continue
		}
		entryPath := m.Entry
		if !filepath.IsAbs(entryPath) {
			entryPath = filepath.Join(dir, entryPath)
		}
		out = append(out, &Registration{
			Name:        m.Name,
			Description: m.Description,
			Parameters:  m.Parameters,
			Origin:      OriginManifest,
			UpdatedAt:   time.Now().UTC().Format(time.RFC3339),
			adapter:     adapterForManifest(m.Exec, entryPath),
		})
	}
	return out, nil
}

func adapterForManifest(kind ExecKind, entry string) Adapter {
	switch kind {
	case ExecSimpleJSON:
		return &simpleJSONAdapter{entry: entry}
	case ExecPythonCLI:
		return &cliAdapter{interpreter: "python3", entry: entry}
	case ExecBashCLI:
		return &cliAdapter{interpreter: "bash", entry: entry}
	default:
		return &simpleJSONAdapter{entry: entry}
	}
}
