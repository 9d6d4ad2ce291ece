package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fractalic-run/fractalic/interp"
	"github.com/fractalic-run/fractalic/render"
	"github.com/fractalic-run/fractalic/tree"
)

// Snapshotter is the abstract snapshot(paths, label) -> id seam a run
// consumes to capture its inputs at a point in time, matching the
// façade's notion of an opaque, storage-agnostic snapshot identifier.
type Snapshotter interface {
	Snapshot(paths []string, label string) (id string, err error)
}

// fileSnapshotter is the default Snapshotter: it concatenates the named
// paths into a single <dir>/<label>.snapshot file and uses the label
// itself as the id, the way the recorder already names its .trc/.ctx
// artifacts by label.
type fileSnapshotter struct {
	dir string
}

// NewFileSnapshotter returns the default Snapshotter, writing snapshot
// artifacts alongside the .trc/.ctx files in dir.
func NewFileSnapshotter(dir string) Snapshotter {
	return fileSnapshotter{dir: dir}
}

func (s fileSnapshotter) Snapshot(paths []string, label string) (string, error) {
	var sb strings.Builder
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return "", fmt.Errorf("session: snapshot %s: %w", p, err)
		}
		fmt.Fprintf(&sb, "--- %s ---\n%s\n", p, data)
	}
	path := filepath.Join(s.dir, label+".snapshot")
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return "", fmt.Errorf("session: write snapshot %s: %w", path, err)
	}
	return label, nil
}

// traceRecord is one line of a .trc file.
type traceRecord struct {
	Time    time.Time        `json:"time"`
	Stage   interp.EventKind `json:"stage"`
	RunID   string           `json:"run_id"`
	NodeKey string           `json:"node_key,omitempty"`
	OpName  string           `json:"op_name,omitempty"`
	Message string           `json:"message,omitempty"`
}

// Recorder writes one run's progress trace to <dir>/<label>.trc as it
// happens, and its final document state to <dir>/<label>.ctx on Finalize.
// It implements interp.Emitter so it can be composed via telemetry.Multi
// alongside the tracing/metrics handlers.
type Recorder struct {
	dir   string
	label string

	trcFile *os.File
	trc     *bufio.Writer
	enc     *json.Encoder

	secretValues []string

	snapshotter Snapshotter
	paths       []string

	// StartSnapshotID and DoneSnapshotID are the ids returned by the
	// snapshotter at run start and at Finalize, surfaced to callers as
	// the run's snapshot_label.
	StartSnapshotID string
	DoneSnapshotID  string
}

// NewRecorder opens <dir>/<label>.trc for append and takes a labelled
// start-of-run snapshot of paths via the default Snapshotter. shellEnv is
// the configuration's @shell environment map; values behind secret-looking
// keys are masked out of every recorded message.
func NewRecorder(dir, label string, shellEnv map[string]string, paths []string) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("session: create %s: %w", dir, err)
	}
	path := filepath.Join(dir, label+".trc")
	// #nosec G304 -- dir/label are caller-controlled run artifacts, not request input.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("session: open %s: %w", path, err)
	}

	snapshotter := NewFileSnapshotter(dir)
	startID, err := snapshotter.Snapshot(paths, label+".start")
	if err != nil {
		return nil, fmt.Errorf("session: start snapshot: %w", err)
	}

	w := bufio.NewWriter(f)
	return &Recorder{
		dir:             dir,
		label:           label,
		trcFile:         f,
		trc:             w,
		enc:             json.NewEncoder(w),
		secretValues:    secretShellValues(shellEnv),
		snapshotter:     snapshotter,
		paths:           paths,
		StartSnapshotID: startID,
	}, nil
}

func secretShellValues(env map[string]string) []string {
	var out []string
	for k, v := range env {
		if v == "" {
			continue
		}
		lower := strings.ToLower(k)
		for _, hint := range []string{"key", "token", "secret", "password", "credential"} {
			if strings.Contains(lower, hint) {
				out = append(out, v)
				break
			}
		}
	}
	return out
}

func (r *Recorder) redact(msg string) string {
	for _, v := range r.secretValues {
		msg = strings.ReplaceAll(msg, v, "***redacted***")
	}
	return msg
}

// Emit implements interp.Emitter.
func (r *Recorder) Emit(e interp.Event) {
	rec := traceRecord{
		Time:    time.Now().UTC(),
		Stage:   e.Stage,
		RunID:   e.RunID,
		NodeKey: e.NodeKey,
		OpName:  e.OpName,
		Message: r.redact(e.Message),
	}
	_ = r.enc.Encode(rec) // a dropped trace line never aborts the run it's observing
}

// Finalize flushes the trace file and writes the final tree state to
// <dir>/<label>.ctx.
func (r *Recorder) Finalize(tr *tree.Tree) error {
	if err := r.trc.Flush(); err != nil {
		return err
	}
	if err := r.trcFile.Close(); err != nil {
		return err
	}

	text, err := render.RenderTree(tr)
	if err != nil {
		return err
	}
	ctxPath := filepath.Join(r.dir, r.label+".ctx")
	if err := os.WriteFile(ctxPath, []byte(text), 0o644); err != nil {
		return err
	}

	doneID, err := r.snapshotter.Snapshot(r.paths, r.label+".done")
	if err != nil {
		return err
	}
	r.DoneSnapshotID = doneID
	return nil
}

var _ interp.Emitter = (*Recorder)(nil)
