package builtins

import (
	"context"
	"os"
	"runtime"

	"github.com/skosovsky/toolbridge"
)

type noArgs struct{}

func newDatetimeTool(o Options) (toolbridge.Tool, error) {
	return toolbridge.NewTool("get_current_datetime", `Get the current time and date.

Returns:
    The local date and time as YYYY-MM-DD HH:MM:SS.
`, func(_ context.Context, _ noArgs) (string, error) {
		return o.Now().Format("2006-01-02 15:04:05"), nil
	}, toolbridge.WithTags("system"))
}

func newCurrentDirectoryTool(o Options) (toolbridge.Tool, error) {
	return toolbridge.NewTool("get_current_directory", `Get the current working directory.

Returns:
    The absolute path of the working directory.
`, func(_ context.Context, _ noArgs) (string, error) {
		if o.Dir != "" {
			return o.Dir, nil
		}
		return os.Getwd()
	}, toolbridge.WithTags("system", "fs"))
}

type systemInfo struct {
	System    string `json:"system"`
	NodeName  string `json:"node_name"`
	Machine   string `json:"machine"`
	CPUs      int    `json:"cpus"`
	GoVersion string `json:"go_version"`
}

func newSystemInfoTool(_ Options) (toolbridge.Tool, error) {
	return toolbridge.NewTool("get_system_info", `Get basic system information.

Returns:
    Operating system, host name, architecture and CPU count.
`, func(_ context.Context, _ noArgs) (systemInfo, error) {
		host, err := os.Hostname()
		if err != nil {
			host = "unknown"
		}
		return systemInfo{
			System:    runtime.GOOS,
			NodeName:  host,
			Machine:   runtime.GOARCH,
			CPUs:      runtime.NumCPU(),
			GoVersion: runtime.Version(),
		}, nil
	}, toolbridge.WithTags("system"))
}
