package environment

import (
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/thushan/striker/internal/util"
)

// Environment is a set of environment variables plus a working directory, used
// to run subprocesses. It is not safe for concurrent mutation.
type Environment struct {
	logger   *slog.Logger
	vars     map[string]string
	stdout   io.Writer
	stderr   io.Writer
	sleep    util.Sleeper
	backoff  []util.BackoffOption
	cwd      string
	venvHome string
}

type Option func(*Environment)

// WithEnviron uses a copy of vars instead of the process environment.
func WithEnviron(vars map[string]string) Option {
	return func(e *Environment) {
		e.vars = maps.Clone(vars)
		if e.vars == nil {
			e.vars = make(map[string]string)
		}
	}
}

// WithCwd changes to path, interpreted relative to the process working directory.
func WithCwd(path string) Option {
	return func(e *Environment) {
		if path != "" {
			e.Chdir(path)
		}
	}
}

func WithVenvHome(path string) Option {
	return func(e *Environment) {
		e.venvHome = path
	}
}

// WithStdout sets where uncaptured command output goes (default os.Stdout).
func WithStdout(w io.Writer) Option {
	return func(e *Environment) {
		e.stdout = w
	}
}

// WithStderr sets where uncaptured command errors go (default os.Stderr).
func WithStderr(w io.Writer) Option {
	return func(e *Environment) {
		e.stderr = w
	}
}

// WithSleeper replaces the retry backoff sleep, mostly for tests.
func WithSleeper(s util.Sleeper) Option {
	return func(e *Environment) {
		e.sleep = s
	}
}

// WithBackoff tunes the delays between retried commands.
func WithBackoff(opts ...util.BackoffOption) Option {
	return func(e *Environment) {
		e.backoff = append(e.backoff, opts...)
	}
}

// New creates an Environment starting from the process environment and
// working directory.
func New(logger *slog.Logger, opts ...Option) (*Environment, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("determining working directory: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	e := &Environment{
		logger: logger,
		cwd:    wd,
		stdout: os.Stdout,
		stderr: os.Stderr,
		sleep:  util.SleepWithContext,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.vars == nil {
		e.vars = parseEnviron(os.Environ())
	}

	return e, nil
}

// Clone returns an independent copy sharing the logger and output writers.
func (e *Environment) Clone() *Environment {
	c := *e
	c.vars = maps.Clone(e.vars)
	c.backoff = slices.Clone(e.backoff)
	return &c
}

func (e *Environment) Get(key string) string {
	return e.vars[key]
}

func (e *Environment) Lookup(key string) (string, bool) {
	v, ok := e.vars[key]
	return v, ok
}

func (e *Environment) Set(key, value string) {
	e.vars[key] = value
}

func (e *Environment) Unset(key string) {
	delete(e.vars, key)
}

// Environ returns the variables as sorted KEY=VALUE pairs, the form exec.Cmd wants.
func (e *Environment) Environ() []string {
	out := make([]string, 0, len(e.vars))
	for _, k := range slices.Sorted(maps.Keys(e.vars)) {
		out = append(out, k+"="+e.vars[k])
	}
	return out
}

func (e *Environment) Cwd() string {
	return e.cwd
}

// VenvHome is the virtual environment this Environment was created for, if any.
func (e *Environment) VenvHome() string {
	return e.venvHome
}

// Chdir changes the working directory, resolving path against the current one,
// and returns the new directory. The directory is not required to exist.
func (e *Environment) Chdir(path string) string {
	e.cwd = util.CanonicalizePath(e.cwd, path)
	return e.cwd
}

func parseEnviron(environ []string) map[string]string {
	vars := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		// windows carries per-drive entries like "=C:=C:\", skip them
		if !ok || k == "" {
			continue
		}
		vars[k] = v
	}
	return vars
}
