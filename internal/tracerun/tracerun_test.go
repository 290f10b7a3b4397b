package tracerun

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ctftrace/fs-sink/internal/ctfir"
	"github.com/stretchr/testify/require"
)

func TestOpenSingleTraceModeUsesPathDirectly(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	trace := &ctfir.Trace{}
	run, err := Open(dir, true, trace)
	require.NoError(t, err)
	require.Equal(t, dir, trace.Dir)
	require.Equal(t, filepath.Join(dir, "metadata"), trace.MetadataPath)
	require.NotEqual(t, [16]byte{}, trace.UUID)
	require.NoError(t, run.Close())

	content, err := os.ReadFile(trace.MetadataPath)
	require.NoError(t, err)
	require.Contains(t, string(content), "trace {")
}

func TestOpenSingleTraceModeRejectsExistingPath(t *testing.T) {
	dir := t.TempDir()
	trace := &ctfir.Trace{}
	_, err := Open(dir, true, trace)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrSingleTraceModeCollision))
}

func TestOpenMultiTraceModeFallsBackToLiteralTraceName(t *testing.T) {
	dir := t.TempDir()
	trace := &ctfir.Trace{}
	_, err := Open(dir, false, trace)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "trace"), trace.Dir)
	require.DirExists(t, trace.Dir)
}

func TestOpenMultiTraceModeAppendsNumericSuffixOnCollision(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "trace"), 0o755))

	trace := &ctfir.Trace{}
	_, err := Open(dir, false, trace)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "trace_1"), trace.Dir)
}

func TestOpenMultiTraceModeUsesSourceTraceName(t *testing.T) {
	dir := t.TempDir()
	trace := &ctfir.Trace{Environment: []ctfir.EnvEntry{{Name: "trace_name", Value: "my-app"}}}
	_, err := Open(dir, false, trace)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "my-app"), trace.Dir)
}

func TestOpenMultiTraceModeDerivesLTTngPath(t *testing.T) {
	dir := t.TempDir()
	trace := &ctfir.Trace{Environment: []ctfir.EnvEntry{
		{Name: "tracer_name", Value: "lttng-ust"},
		{Name: "tracer_major", Value: int64(2)},
		{Name: "tracer_minor", Value: int64(12)},
		{Name: "hostname", Value: "host-a"},
		{Name: "trace_name", Value: "my-trace"},
		{Name: "trace_creation_datetime", Value: "2024-01-02T03:04:05Z"},
		{Name: "domain", Value: "ust"},
		{Name: "tracer_buffering_scheme", Value: "pid"},
		{Name: "procname", Value: "app"},
		{Name: "vpid", Value: int64(4242)},
		{Name: "vpid_datetime", Value: "2024-01-02T03:04:05Z"},
	}}
	_, err := Open(dir, false, trace)
	require.NoError(t, err)
	want := filepath.Join(dir, "host-a", "my-trace-2024-01-02T03:04:05Z", "ust", "pid", "app-4242-2024-01-02T03:04:05Z")
	require.Equal(t, want, trace.Dir)
}

func TestOpenMultiTraceModeIgnoresIncompleteLTTngContract(t *testing.T) {
	dir := t.TempDir()
	trace := &ctfir.Trace{Environment: []ctfir.EnvEntry{
		{Name: "tracer_name", Value: "lttng-ust"},
		{Name: "tracer_major", Value: int64(2)},
		{Name: "tracer_minor", Value: int64(10)},
		{Name: "trace_name", Value: "my-trace"},
	}}
	_, err := Open(dir, false, trace)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "my-trace"), trace.Dir)
}

func TestSanitizePathHandlesDotSegments(t *testing.T) {
	require.Equal(t, "_", sanitizePath("."))
	require.Equal(t, "__", sanitizePath(".."))
	require.Equal(t, "trace", sanitizePath(""))
	require.Equal(t, "a/_/b", sanitizePath("a/./b"))
}

func TestStreamFilePathAvoidsMetadataCollision(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	trace := &ctfir.Trace{}
	run, err := Open(dir, true, trace)
	require.NoError(t, err)
	sc := &ctfir.StreamClass{ID: 0}
	path := run.StreamFilePath(sc, 0)
	require.NotEqual(t, filepath.Join(dir, "metadata"), path)
}

func TestWriteMetadataIsIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	trace := &ctfir.Trace{}
	run, err := Open(dir, true, trace)
	require.NoError(t, err)
	require.NoError(t, run.WriteMetadata())
	require.NoError(t, run.WriteMetadata())
}
