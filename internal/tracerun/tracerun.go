// Package tracerun owns the on-disk lifetime of one trace: its
// directory layout, its stream files' names, and writing the TSDL
// metadata file once, when the run is finalized.
package tracerun

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/ctftrace/fs-sink/internal/ctfir"
	"github.com/ctftrace/fs-sink/internal/tsdl"
)

// metadataFileName is the one filename CTF 1.8 reserves for the TSDL
// metadata file. A stream whose generated name would collide with it is
// renamed instead of being allowed to overwrite it.
const metadataFileName = "metadata"

// ErrSingleTraceModeCollision is returned by Open when single-trace mode
// targets an output directory that already exists.
var ErrSingleTraceModeCollision = errors.New("tracerun: single-trace-mode output directory already exists")

// Run manages one trace's output directory.
type Run struct {
	baseDir         string
	singleTraceMode bool
	trace           *ctfir.Trace
	metadataWritten bool
	usedStreamNames map[string]bool
}

// Open picks the trace's directory, creates it, assigns a UUID if the
// trace doesn't already carry one, and returns the Run that owns it.
//
// In single-trace mode the output directory is used as-is; it is a fatal
// ErrSingleTraceModeCollision for it to already exist. Otherwise a
// relative path is derived per derivePath and appended to baseDir,
// appending a numeric suffix if the result already exists.
func Open(baseDir string, singleTraceMode bool, trace *ctfir.Trace) (*Run, error) {
	if trace.UUID == ([16]byte{}) {
		trace.UUID = [16]byte(uuid.New())
	}

	dir := baseDir
	if singleTraceMode {
		if _, err := os.Stat(dir); err == nil {
			return nil, fmt.Errorf("tracerun: output directory %s already exists: %w", dir, ErrSingleTraceModeCollision)
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("tracerun: stat %s: %w", dir, err)
		}
	} else {
		rel := sanitizePath(derivePath(trace))
		dir = filepath.Join(baseDir, rel)
		for n := 0; ; n++ {
			candidate := dir
			if n > 0 {
				candidate = fmt.Sprintf("%s_%d", dir, n)
			}
			if _, err := os.Stat(candidate); os.IsNotExist(err) {
				dir = candidate
				break
			}
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("tracerun: create directory %s: %w", dir, err)
	}

	trace.Dir = dir
	trace.MetadataPath = filepath.Join(dir, metadataFileName)

	return &Run{
		baseDir:         baseDir,
		singleTraceMode: singleTraceMode,
		trace:           trace,
		usedStreamNames: map[string]bool{},
	}, nil
}

// derivePath derives the multi-trace-mode relative directory for trace,
// preferring the LTTng >= 2.11 environment contract when the trace's
// environment carries it in full, then the trace's own name, then the
// literal "trace".
func derivePath(trace *ctfir.Trace) string {
	if p, ok := lttngPath(trace); ok {
		return p
	}
	if name, ok := envString(trace, "trace_name"); ok && name != "" {
		return name
	}
	return "trace"
}

// lttngPath builds the LTTng >= 2.11 contract path
// "<hostname>/<trace_name>-<datetime>/<domain>[/<buffering_scheme>/<id>]"
// when the trace's environment carries every field the contract
// requires, reporting ok=false otherwise.
func lttngPath(trace *ctfir.Trace) (string, bool) {
	tracerName, ok := envString(trace, "tracer_name")
	if !ok || (tracerName != "lttng-ust" && tracerName != "lttng-modules") {
		return "", false
	}
	major, ok := envInt(trace, "tracer_major")
	if !ok || major < 2 {
		return "", false
	}
	minor, ok := envInt(trace, "tracer_minor")
	if !ok || (major == 2 && minor < 11) {
		return "", false
	}
	hostname, ok := envString(trace, "hostname")
	if !ok {
		return "", false
	}
	traceName, ok := envString(trace, "trace_name")
	if !ok {
		return "", false
	}
	datetime, ok := envString(trace, "trace_creation_datetime")
	if !ok {
		return "", false
	}
	domain, ok := envString(trace, "domain")
	if !ok {
		return "", false
	}

	path := fmt.Sprintf("%s/%s-%s/%s", hostname, traceName, datetime, domain)
	if domain != "ust" {
		return path, true
	}

	scheme, ok := envString(trace, "tracer_buffering_scheme")
	if !ok {
		return "", false
	}
	switch scheme {
	case "uid":
		uid, ok := envInt(trace, "tracer_buffering_id")
		if !ok {
			return "", false
		}
		return fmt.Sprintf("%s/uid/%d", path, uid), true
	case "pid":
		procname, ok := envString(trace, "procname")
		if !ok {
			return "", false
		}
		vpid, ok := envInt(trace, "vpid")
		if !ok {
			return "", false
		}
		vpidDatetime, ok := envString(trace, "vpid_datetime")
		if !ok {
			return "", false
		}
		return fmt.Sprintf("%s/pid/%s-%d-%s", path, procname, vpid, vpidDatetime), true
	default:
		return "", false
	}
}

func envString(trace *ctfir.Trace, name string) (string, bool) {
	for _, e := range trace.Environment {
		if e.Name != name {
			continue
		}
		if s, ok := e.Value.(string); ok {
			return s, true
		}
		return "", false
	}
	return "", false
}

func envInt(trace *ctfir.Trace, name string) (int64, bool) {
	for _, e := range trace.Environment {
		if e.Name != name {
			continue
		}
		if i, ok := e.Value.(int64); ok {
			return i, true
		}
		return 0, false
	}
	return 0, false
}

// sanitizePath replaces every "."-only path segment with "_" and every
// ".."-only segment with "__", strips a trailing slash, and falls back to
// "trace" if nothing is left.
func sanitizePath(p string) string {
	p = strings.TrimSuffix(p, "/")
	segs := strings.Split(p, "/")
	for i, s := range segs {
		switch s {
		case ".":
			segs[i] = "_"
		case "..":
			segs[i] = "__"
		}
	}
	out := strings.Join(segs, "/")
	out = strings.Trim(out, "/")
	if out == "" {
		return "trace"
	}
	return out
}

// Dir returns the trace's output directory, final once Open has returned.
func (r *Run) Dir() string {
	return r.trace.Dir
}

// StreamFilePath returns the path a stream instance's packets should be
// appended to, reserving the metadata filename for the metadata file and
// appending -0, -1, ... while the name is already taken.
func (r *Run) StreamFilePath(sc *ctfir.StreamClass, instanceID uint64) string {
	base := fmt.Sprintf("stream_%d_%d", sc.ID, instanceID)
	name := base
	for n := 0; name == metadataFileName || r.usedStreamNames[name]; n++ {
		name = fmt.Sprintf("%s-%d", base, n)
	}
	r.usedStreamNames[name] = true
	return filepath.Join(r.trace.Dir, name)
}

// WriteMetadata renders and writes the TSDL metadata file. It is a
// no-op on a second call: metadata is written exactly once per run, when
// the schema is known to be final (triggered by Close, but
// exposed separately for callers that need the file to exist earlier,
// e.g. an LTTng-live-style reader attaching mid-run).
func (r *Run) WriteMetadata() error {
	if r.metadataWritten {
		return nil
	}
	text, err := tsdl.Render(r.trace)
	if err != nil {
		return fmt.Errorf("tracerun: render metadata: %w", err)
	}
	if err := os.WriteFile(r.trace.MetadataPath, []byte(text), 0o644); err != nil {
		return fmt.Errorf("tracerun: write metadata: %w", err)
	}
	r.metadataWritten = true
	return nil
}

// Close finalizes the run, writing the metadata file if it hasn't been
// written yet.
func (r *Run) Close() error {
	return r.WriteMetadata()
}
