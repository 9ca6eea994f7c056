package builtins

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/skosovsky/toolbridge"
	"github.com/skosovsky/toolbridge/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type harness struct {
	dir string
	out *bytes.Buffer
	reg *toolbridge.Registry
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	h := &harness{dir: t.TempDir(), out: &bytes.Buffer{}}
	if opts.Dir == "" {
		opts.Dir = h.dir
	}
	if opts.Output == nil {
		opts.Output = h.out
	}
	tools, err := Tools(opts)
	require.NoError(t, err)
	h.reg = testutil.NewTestRegistry(t, tools...)
	return h
}

func (h *harness) call(t *testing.T, name, args string) toolbridge.ToolResult {
	t.Helper()
	return h.reg.Execute(context.Background(), toolbridge.ToolCall{ID: "call_1", ToolName: name, Args: args})
}

func (h *harness) write(t *testing.T, rel, content string) {
	t.Helper()
	path := filepath.Join(h.dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestTools_Names(t *testing.T) {
	tools, err := Tools(Options{})
	require.NoError(t, err)
	names := make([]string, len(tools))
	for i, tool := range tools {
		names[i] = tool.Name()
		assert.Empty(t, tool.Descriptor().Warnings, tool.Name())
	}
	assert.Equal(t, []string{
		"get_current_datetime", "get_current_directory", "get_system_info",
		"list_dir", "read_file", "write_files", "create_directory", "find_files",
		"run_shell_command", "get_website_text_content",
	}, names)
}

func TestSystemTools(t *testing.T) {
	now := time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)
	h := newHarness(t, Options{Now: func() time.Time { return now }})

	res := h.call(t, "get_current_datetime", "")
	require.NoError(t, res.Err)
	assert.Equal(t, "2024-03-09 14:05:07", res.Content)

	res = h.call(t, "get_current_directory", "{}")
	require.NoError(t, res.Err)
	assert.Equal(t, h.dir, res.Content)

	res = h.call(t, "get_system_info", "")
	require.NoError(t, res.Err)
	var info systemInfo
	require.NoError(t, json.Unmarshal([]byte(res.Content), &info))
	assert.Equal(t, runtime.GOOS, info.System)
	assert.Equal(t, runtime.GOARCH, info.Machine)
	assert.Positive(t, info.CPUs)
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", formatSize(512))
	assert.Equal(t, "1.50 KB", formatSize(1536))
	assert.Equal(t, "2.00 MB", formatSize(2<<20))
}
