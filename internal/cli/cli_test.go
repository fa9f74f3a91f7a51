package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/SteelMorgan/logdoc/internal/checkpoint"
	"github.com/SteelMorgan/logdoc/internal/config"
	"github.com/SteelMorgan/logdoc/internal/writer"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chatLog = "[12.03.2015 10:00:00] alice: hi\n" +
	"[12.03.2015 10:00:01] bob: hello\n" +
	"[12.03.2015 11:30:00] bob: back now\n"

type memBackend struct {
	backend string
	index   string
	ids     []string
}

func (b *memBackend) Name() string { return "memory" }

func (b *memBackend) Bulk(ctx context.Context, index string, items []writer.BulkItem) (*writer.BulkResult, error) {
	b.index = index
	for _, item := range items {
		b.ids = append(b.ids, item.ID)
	}
	return &writer.BulkResult{Items: len(items)}, nil
}

type harness struct {
	app     *App
	stdout  *bytes.Buffer
	stderr  *bytes.Buffer
	backend *memBackend
	logFile string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)

	logFile := filepath.Join(t.TempDir(), "chat.log")
	require.NoError(t, os.WriteFile(logFile, []byte(chatLog), 0o600))

	h := &harness{
		stdout:  &bytes.Buffer{},
		stderr:  &bytes.Buffer{},
		backend: &memBackend{},
		logFile: logFile,
	}
	h.app = &App{
		Config: cfg,
		Logger: zerolog.Nop(),
		Backends: func(ctx context.Context, name string) (writer.Backend, func() error, error) {
			h.backend.backend = name
			return h.backend, nil, nil
		},
		Stdout: h.stdout,
		Stderr: h.stderr,
	}
	return h
}

func (h *harness) run(args ...string) int {
	return Execute(context.Background(), h.app, args)
}

func TestExecute_PrintsUsage(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "no arguments", args: nil},
		{name: "unknown command", args: []string{"export", "a.log"}},
		{name: "save with too few params", args: []string{"save", "a.log", "60"}},
		{name: "save with too many params", args: []string{"save", "a.log", "60", "out", "doc", "extra"}},
		{name: "index with one param", args: []string{"index", "a.log"}},
		{name: "help flag", args: []string{"--help"}},
		{name: "help for a command", args: []string{"save", "--help"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)

			code := h.run(tt.args...)

			assert.Equal(t, ExitOK, code)
			assert.True(t, strings.HasPrefix(h.stdout.String(), "usage: logdoc [command] [params]"))
			assert.Contains(t, h.stdout.String(), "Params for save:")
			assert.Empty(t, h.backend.ids)
		})
	}
}

func TestExecute_NonNumericGap(t *testing.T) {
	h := newHarness(t)
	out := filepath.Join(t.TempDir(), "out")

	code := h.run("save", h.logFile, "sixty", out, "doc")

	assert.Equal(t, ExitUsage, code)
	assert.Contains(t, h.stderr.String(), `max gap "sixty" is not a whole number`)
	assert.Contains(t, h.stderr.String(), "usage: logdoc")
	assert.NoDirExists(t, out)
}

func TestExecute_UnknownFlag(t *testing.T) {
	h := newHarness(t)

	code := h.run("index", h.logFile, "60", "--bogus")

	assert.Equal(t, ExitUsage, code)
	assert.Contains(t, h.stderr.String(), "unknown flag: --bogus")
	assert.Empty(t, h.backend.ids)
}

func TestExecute_Save(t *testing.T) {
	h := newHarness(t)
	out := t.TempDir()

	code := h.run("save", h.logFile, "60", out, "doc")

	require.Equal(t, ExitOK, code, h.stderr.String())
	assert.FileExists(t, filepath.Join(out, "doc1"))
	assert.FileExists(t, filepath.Join(out, "doc2"))
	assert.NoFileExists(t, filepath.Join(out, "doc3"))
	assert.Empty(t, h.stdout.String())
}

func TestExecute_SaveWithSummary(t *testing.T) {
	h := newHarness(t)

	code := h.run("save", "--summary", "--max-docs", "1", h.logFile, "60", t.TempDir(), "doc")

	require.Equal(t, ExitOK, code, h.stderr.String())
	assert.Contains(t, h.stdout.String(), "Documents written")
	assert.Contains(t, h.stdout.String(), "logdoc save")
}

func TestExecute_Index(t *testing.T) {
	h := newHarness(t)

	code := h.run("index", h.logFile, "0", "--index", "chats", "--backend", "clickhouse")

	require.Equal(t, ExitOK, code, h.stderr.String())
	assert.Equal(t, "clickhouse", h.backend.backend)
	assert.Equal(t, "chats", h.backend.index)
	assert.Equal(t, []string{"0", "1", "2"}, h.backend.ids)
}

func TestExecute_IndexWithPatternOverride(t *testing.T) {
	h := newHarness(t)
	logFile := filepath.Join(t.TempDir(), "iso.log")
	require.NoError(t, os.WriteFile(logFile, []byte("2015-03-12T10:00:00 a\n2015-03-12T12:00:00 b\n"), 0o600))

	code := h.run("index", "--pattern", "yyyy-MM-dd'T'HH:mm:ss", logFile, "60")

	require.Equal(t, ExitOK, code, h.stderr.String())
	assert.Equal(t, []string{"0", "1"}, h.backend.ids)
}

func TestExecute_MissingLogFile(t *testing.T) {
	h := newHarness(t)

	code := h.run("index", filepath.Join(t.TempDir(), "missing.log"), "60")

	assert.Equal(t, ExitError, code)
	assert.Contains(t, h.stderr.String(), "failed to open log file")
}

func TestExecute_ResumeWithoutCheckpointStore(t *testing.T) {
	h := newHarness(t)

	code := h.run("save", "--resume", h.logFile, "60", t.TempDir(), "doc")

	assert.Equal(t, ExitUsage, code)
	assert.Contains(t, h.stderr.String(), "CHECKPOINT_DB")
}

func TestExecute_Resume(t *testing.T) {
	h := newHarness(t)
	store, err := checkpoint.NewBoltDBStore(filepath.Join(t.TempDir(), "cp.db"), zerolog.Nop())
	require.NoError(t, err)
	defer store.Close()
	h.app.Checkpoints = store

	require.Equal(t, ExitOK, h.run("index", "--max-docs", "1", h.logFile, "60"))
	require.Equal(t, ExitOK, h.run("index", "--resume", h.logFile, "60"))

	assert.Equal(t, []string{"0", "1"}, h.backend.ids)
}
