// Package builtins provides the assistant's default tool set.
package builtins

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/skosovsky/toolbridge"
)

// Options configures the builtin tools. The zero value is usable.
type Options struct {
	// Dir resolves relative paths; empty means the process working directory.
	Dir string
	// HTTPClient fetches web pages; nil means a client with a 30s timeout.
	HTTPClient *http.Client
	// Now is the clock; nil means time.Now.
	Now func() time.Time
	// Output receives command output when a call sets print_output.
	Output io.Writer
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Output == nil {
		o.Output = os.Stdout
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

func (o Options) resolve(path string) string {
	if path == "" {
		path = "."
	}
	if filepath.IsAbs(path) || o.Dir == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(o.Dir, path)
}

// Tools builds every builtin tool.
func Tools(opts Options) ([]toolbridge.Tool, error) {
	opts = opts.withDefaults()
	ctors := []func(Options) (toolbridge.Tool, error){
		newDatetimeTool,
		newCurrentDirectoryTool,
		newSystemInfoTool,
		newListDirTool,
		newReadFileTool,
		newWriteFilesTool,
		newCreateDirectoryTool,
		newFindFilesTool,
		newShellTool,
		newWebsiteTextTool,
	}
	tools := make([]toolbridge.Tool, 0, len(ctors))
	for _, ctor := range ctors {
		t, err := ctor(opts)
		if err != nil {
			return nil, fmt.Errorf("builtin tool: %w", err)
		}
		tools = append(tools, t)
	}
	return tools, nil
}
