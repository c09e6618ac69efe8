package app

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/thushan/striker/internal/config"
	"github.com/thushan/striker/internal/environment"
	"github.com/thushan/striker/internal/util"
)

var ErrNoSuchExtra = errors.New("no such extra")

// Context carries what a striker run needs: the workspace, configuration,
// logger and run mode, plus arbitrary named extras.
type Context struct {
	Config    *config.Config
	Logger    *slog.Logger
	extras    *xsync.Map[string, any]
	environ   *environment.Environment
	envErr    error
	stdout    io.Writer
	stderr    io.Writer
	Workspace string
	envOnce   sync.Once
	Debug     bool
	DryRun    bool
}

type ContextOption func(*Context)

func WithDebug(debug bool) ContextOption {
	return func(c *Context) {
		c.Debug = debug
	}
}

func WithDryRun(dryRun bool) ContextOption {
	return func(c *Context) {
		c.DryRun = dryRun
	}
}

// WithOutput sets where uncaptured command output from Environ goes
func WithOutput(stdout, stderr io.Writer) ContextOption {
	return func(c *Context) {
		c.stdout = stdout
		c.stderr = stderr
	}
}

// WithExtra seeds a named extra value
func WithExtra(name string, value any) ContextOption {
	return func(c *Context) {
		c.extras.Store(name, value)
	}
}

// NewContext builds a Context. Debug and DryRun default to the config values
// and can be overridden with options. A nil config means the defaults.
func NewContext(workspace string, cfg *config.Config, logger *slog.Logger, opts ...ContextOption) *Context {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Context{
		Workspace: workspace,
		Config:    cfg,
		Logger:    logger,
		Debug:     cfg.Debug,
		DryRun:    cfg.DryRun,
		extras:    xsync.NewMap[string, any](),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Extra returns the named extra, or ErrNoSuchExtra
func (c *Context) Extra(name string) (any, error) {
	if v, ok := c.extras.Load(name); ok {
		return v, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNoSuchExtra, name)
}

func (c *Context) SetExtra(name string, value any) {
	c.extras.Store(name, value)
}

// Environ returns the Environment for this context, building it on first use
// from the process environment, the workspace and the configured overrides.
// The same Environment (or error) is returned on every call.
func (c *Context) Environ() (*environment.Environment, error) {
	c.envOnce.Do(func() {
		opts := []environment.Option{
			environment.WithBackoff(
				util.WithInitialDelay(c.Config.Retry.InitialDelay),
				util.WithMaxDelay(c.Config.Retry.MaxDelay),
			),
		}
		if c.Workspace != "" {
			opts = append(opts, environment.WithCwd(c.Workspace))
		}
		if c.stdout != nil {
			opts = append(opts, environment.WithStdout(c.stdout))
		}
		if c.stderr != nil {
			opts = append(opts, environment.WithStderr(c.stderr))
		}

		env, err := environment.New(c.Logger, opts...)
		if err != nil {
			c.envErr = fmt.Errorf("creating environment: %w", err)
			return
		}
		for k, v := range c.Config.Environment {
			env.Set(k, v)
		}
		c.environ = env
	})
	return c.environ, c.envErr
}
