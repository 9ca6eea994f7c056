// Package app wires configuration, tools, model and loop into one container.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/dig"

	"github.com/skosovsky/toolbridge"
	"github.com/skosovsky/toolbridge/ext/toolotel"
	"github.com/skosovsky/toolbridge/internal/builtins"
	"github.com/skosovsky/toolbridge/internal/config"
	"github.com/skosovsky/toolbridge/internal/render"
	"github.com/skosovsky/toolbridge/models"
)

const renderWidth = 100

// ConfirmFunc asks the operator before a dangerous tool runs.
type ConfirmFunc func(context.Context, toolbridge.ToolCall) bool

// Params are the inputs to New. Only Config is required.
type Params struct {
	Config config.Config
	// Model replaces the configured provider, e.g. a scripted model in tests.
	Model toolbridge.Model
	// Output receives rendered conversation; nil means stdout.
	Output io.Writer
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Confirm is consulted for dangerous tools; nil runs them without asking.
	Confirm ConfirmFunc
	// WorkDir resolves relative paths in file tools; empty means the process directory.
	WorkDir string
}

// Container holds the resolved services.
type Container struct {
	cfg      config.Config
	logger   *slog.Logger
	renderer *render.Renderer
	registry *toolbridge.Registry
	loop     *toolbridge.Loop
}

func (c *Container) Config() config.Config          { return c.cfg }
func (c *Container) Logger() *slog.Logger           { return c.logger }
func (c *Container) Renderer() *render.Renderer     { return c.renderer }
func (c *Container) Registry() *toolbridge.Registry { return c.registry }
func (c *Container) Loop() *toolbridge.Loop         { return c.loop }

// New builds and wires all services from p.
func New(p Params) (*Container, error) {
	if p.Output == nil {
		p.Output = os.Stdout
	}
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	d := dig.New()
	providers := []any{
		func() Params { return p },
		func() config.Config { return p.Config },
		func() *slog.Logger { return p.Logger },
		newRenderer,
		newRegistry,
		newModel,
		newConversation,
		newLoop,
	}
	for _, fn := range providers {
		if err := d.Provide(fn); err != nil {
			return nil, err
		}
	}

	var result *Container
	err := d.Invoke(func(
		cfg config.Config,
		logger *slog.Logger,
		renderer *render.Renderer,
		registry *toolbridge.Registry,
		loop *toolbridge.Loop,
	) {
		result = &Container{cfg: cfg, logger: logger, renderer: renderer, registry: registry, loop: loop}
	})
	if err != nil {
		return nil, dig.RootCause(err)
	}
	return result, nil
}

// SaveSession writes the conversation to the configured session file, if any.
func (c *Container) SaveSession() error {
	if c.cfg.SessionFile == "" {
		return nil
	}
	if err := c.loop.Conversation().SaveFile(c.cfg.SessionFile); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Close waits for background tool work.
func (c *Container) Close(ctx context.Context) error {
	return c.registry.Shutdown(ctx)
}

func newRenderer(cfg config.Config, p Params) (*render.Renderer, error) {
	return render.New(p.Output, cfg.Style, renderWidth)
}

func newRegistry(cfg config.Config, p Params, logger *slog.Logger, r *render.Renderer) (*toolbridge.Registry, error) {
	opts := []toolbridge.RegistryOption{
		toolbridge.WithDefaultTimeout(cfg.ToolTimeout),
		toolbridge.WithOnBeforeExecute(func(_ context.Context, call toolbridge.ToolCall) {
			r.ToolCall(call)
		}),
		toolbridge.WithOnAfterExecute(func(_ context.Context, _ toolbridge.ToolCall, res toolbridge.ToolResult, _ time.Duration) {
			r.ToolError(res)
		}),
	}
	if p.Confirm != nil {
		opts = append(opts, toolbridge.WithConfirm(p.Confirm))
	}
	reg := toolbridge.NewRegistry(opts...)
	reg.Use(toolotel.Middleware(nil), toolbridge.WithLogging(logger))

	tools, err := builtins.Tools(builtins.Options{Dir: p.WorkDir, Output: p.Output, Logger: logger})
	if err != nil {
		return nil, err
	}
	if err := reg.Register(tools...); err != nil {
		return nil, err
	}
	return reg, nil
}

// ErrNoAPIKey is returned when no model is injected and no API key is configured.
var ErrNoAPIKey = errors.New("no API key configured: set api_key in the config file or " + config.EnvAPIKey)

func newModel(cfg config.Config, p Params) (toolbridge.Model, error) {
	if p.Model != nil {
		return toolotel.WrapModel(p.Model, nil), nil
	}
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	opts := []openai.Option{openai.WithToken(cfg.APIKey), openai.WithModel(cfg.Model)}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create model client: %w", err)
	}
	callOpts := []llms.CallOption{llms.WithTemperature(cfg.Temperature)}
	if cfg.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(cfg.MaxTokens))
	}
	return toolotel.WrapModel(models.NewLCG(llm, callOpts...), nil), nil
}

// newConversation resumes the session file when it exists.
func newConversation(cfg config.Config) (*toolbridge.Conversation, error) {
	if cfg.SessionFile == "" {
		return toolbridge.NewConversation(cfg.SystemPrompt), nil
	}
	conv, err := toolbridge.LoadConversationFile(cfg.SessionFile)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return toolbridge.NewConversation(cfg.SystemPrompt), nil
	case err != nil:
		return nil, fmt.Errorf("load session: %w", err)
	}
	return conv, nil
}

func newLoop(cfg config.Config, model toolbridge.Model, reg *toolbridge.Registry, conv *toolbridge.Conversation, logger *slog.Logger) *toolbridge.Loop {
	return toolbridge.NewLoop(model, reg,
		toolbridge.WithConversation(conv),
		toolbridge.WithMaxIterations(cfg.MaxIterations),
		toolbridge.WithRequestTimeout(cfg.RequestTimeout),
		toolbridge.WithLogger(logger),
	)
}
