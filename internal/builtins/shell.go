package builtins

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/skosovsky/toolbridge"
)

const (
	shellTimeout   = 2 * time.Minute
	maxShellOutput = 10000
	backgroundNote = "Command started in the background."
)

type shellArgs struct {
	Command     string `json:"command"`
	Blocking    bool   `json:"blocking" default:"true"`
	PrintOutput bool   `json:"print_output" default:"false"`
}

func newShellTool(o Options) (toolbridge.Tool, error) {
	return toolbridge.NewTool("run_shell_command", `Run a shell command. Use with caution as this can be dangerous.
Can be used for command line programs, opening files with other programs, etc.

Args:
    command: The shell command to execute.
    blocking: Wait for the command to finish. When false it runs in the background.
    print_output: Also print the output for the user to see.

Returns:
    The command output when blocking, otherwise a note that it started.
`, func(ctx context.Context, a shellArgs) (string, error) {
		if strings.TrimSpace(a.Command) == "" {
			return "", &toolbridge.ClientError{Reason: "command must not be empty", Err: toolbridge.ErrInvalidArguments}
		}
		if !a.Blocking {
			err := toolbridge.Detach(ctx, func(bg context.Context) {
				out, err := runShell(bg, o.Dir, a.Command)
				if err != nil {
					o.Logger.WarnContext(bg, "background command failed", "command", a.Command, "error", err)
					return
				}
				if a.PrintOutput && out != "" {
					fmt.Fprintln(o.Output, out)
				}
			})
			if err != nil {
				return "", err
			}
			return backgroundNote, nil
		}
		out, err := runShell(ctx, o.Dir, a.Command)
		if err != nil {
			return "", err
		}
		if a.PrintOutput && out != "" {
			fmt.Fprintln(o.Output, out)
		}
		return out, nil
	}, toolbridge.WithDangerous(), toolbridge.WithTimeout(shellTimeout), toolbridge.WithTags("shell"))
}

// runShell runs command through the platform shell and returns trimmed stdout.
// A non-zero exit is an error carrying stderr.
func runShell(ctx context.Context, dir, command string) (string, error) {
	name, flag := "sh", "-c"
	if runtime.GOOS == "windows" {
		name, flag = "cmd", "/C"
	}
	cmd := exec.CommandContext(ctx, name, flag, command)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", fmt.Errorf("command interrupted: %w", ctxErr)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("command exited with code %d: %s", exitErr.ExitCode(), truncateOutput(strings.TrimSpace(stderr.String())))
		}
		return "", fmt.Errorf("run command: %w", err)
	}
	return truncateOutput(strings.TrimSpace(stdout.String())), nil
}

func truncateOutput(s string) string {
	if len(s) <= maxShellOutput {
		return s
	}
	return s[:maxShellOutput] + fmt.Sprintf("\n... (truncated, %d more bytes)", len(s)-maxShellOutput)
}
