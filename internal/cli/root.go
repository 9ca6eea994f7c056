// Package cli implements the assist command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/skosovsky/toolbridge"
	"github.com/skosovsky/toolbridge/internal/app"
	"github.com/skosovsky/toolbridge/internal/config"
)

const shutdownTimeout = 10 * time.Second

var exitWords = []string{"/exit", "/quit", "/bye"}

// errTurnFailed reports a one-shot message whose failure was already rendered.
var errTurnFailed = errors.New("turn failed")

// Options are the process streams and test seams for the command tree.
type Options struct {
	Version string
	// In is read line by line when set; nil means an interactive readline prompt on stdin.
	In  io.Reader
	Out io.Writer
	Err io.Writer
	// Model replaces the configured provider.
	Model toolbridge.Model
}

type rootFlags struct {
	configPath string
	message    string
	session    string
	model      string
	verbose    bool
	yes        bool
}

// NewRootCommand builds the assist command tree.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	var f rootFlags
	cmd := &cobra.Command{
		Use:   "assist",
		Short: "Personal assistant that can call local tools",
		Long: `assist is a terminal chat assistant. The model can call builtin tools to
read and write files, run shell commands and fetch web pages.

Without -m it starts an interactive session; type /exit, /quit or /bye to leave.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd.Context(), opts, f)
		},
	}
	cmd.SetOut(opts.Out)
	cmd.SetErr(opts.Err)

	pf := cmd.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	fl := cmd.Flags()
	fl.StringVarP(&f.message, "message", "m", "", "send one message and exit")
	fl.StringVar(&f.session, "session", "", "session file to resume and auto-save")
	fl.StringVar(&f.model, "model", "", "model name, overrides the config file")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "log debug output to stderr")
	fl.BoolVarP(&f.yes, "yes", "y", false, "run dangerous tools without asking")

	cmd.AddCommand(
		newToolsCommand(),
		newConfigCommand(&f.configPath),
		newVersionCommand(opts.Version),
	)
	return cmd
}

// Execute runs the command tree with args and returns the process exit code.
func Execute(ctx context.Context, opts Options, args []string) int {
	cmd := NewRootCommand(opts)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errTurnFailed) {
			fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
		}
		return 1
	}
	return 0
}

func loadConfig(path string, f rootFlags) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if f.model != "" {
		cfg.Model = f.model
	}
	if f.session != "" {
		cfg.SessionFile = f.session
	}
	return cfg, nil
}

func newLogger(w io.Writer, cfg config.Config, verbose bool) (*slog.Logger, error) {
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

func newPrompter(opts Options) (prompter, error) {
	if opts.In != nil {
		return newLinePrompter(opts.In, opts.Out), nil
	}
	history := ""
	if dir, err := os.UserCacheDir(); err == nil {
		history = filepath.Join(dir, "assist", "history")
		_ = os.MkdirAll(filepath.Dir(history), 0o755)
	}
	return newReadlinePrompter(history)
}

func runChat(ctx context.Context, opts Options, f rootFlags) error {
	cfg, err := loadConfig(f.configPath, f)
	if err != nil {
		return err
	}
	logger, err := newLogger(opts.Err, cfg, f.verbose)
	if err != nil {
		return err
	}
	p, err := newPrompter(opts)
	if err != nil {
		return err
	}
	defer p.Close()

	params := app.Params{Config: cfg, Model: opts.Model, Output: opts.Out, Logger: logger}
	if !f.yes {
		params.Confirm = confirmWith(p)
	}
	c, err := app.New(params)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := c.Close(sctx); err != nil {
			logger.Warn("background tools did not finish", "error", err)
		}
	}()

	s := &session{c: c, name: cfg.Name}
	if last, ok := c.Loop().Conversation().Last(); ok && last.Role == toolbridge.RoleUser {
		// A saved session that ends on an unanswered message.
		s.turn(ctx, func(ctx context.Context) (toolbridge.Message, error) {
			return c.Loop().Complete(ctx)
		})
	}
	if f.message != "" {
		if !s.send(ctx, f.message) {
			return errTurnFailed
		}
		return nil
	}

	c.Renderer().Info("Chatting with %s (%s). Type /exit to quit.", cfg.Name, cfg.Model)
	for {
		line, err := p.Prompt("You: ")
		switch {
		case errors.Is(err, errInterrupt):
			if strings.TrimSpace(line) == "" {
				return nil
			}
			continue
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return fmt.Errorf("read input: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if slices.Contains(exitWords, strings.ToLower(line)) {
			return nil
		}
		s.send(ctx, line)
	}
}

type session struct {
	c    *app.Container
	name string
}

func (s *session) send(ctx context.Context, text string) bool {
	return s.turn(ctx, func(ctx context.Context) (toolbridge.Message, error) {
		return s.c.Loop().Send(ctx, text)
	})
}

// turn runs fn with Ctrl-C bound to cancel it, renders the outcome and saves the session.
func (s *session) turn(ctx context.Context, fn func(context.Context) (toolbridge.Message, error)) bool {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	reply, err := fn(ctx)
	if err != nil {
		s.c.Renderer().Error(err)
		return false
	}
	s.c.Renderer().Assistant(s.name, reply.Content)
	if err := s.c.SaveSession(); err != nil {
		s.c.Renderer().Error(err)
	}
	return true
}

func confirmWith(p prompter) app.ConfirmFunc {
	return func(_ context.Context, call toolbridge.ToolCall) bool {
		answer, err := p.Prompt(fmt.Sprintf("Allow %s? [y/N] ", call.ToolName))
		if err != nil {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
			return true
		}
		return false
	}
}
