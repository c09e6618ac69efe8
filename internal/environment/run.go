package environment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"github.com/docker/go-units"
	"github.com/google/shlex"

	"github.com/thushan/striker/internal/core/constants"
	"github.com/thushan/striker/internal/util"
	"github.com/thushan/striker/internal/util/pattern"
)

var ErrEmptyCommand = errors.New("empty command")

// RetryFunc decides whether a failed execution should be tried again.
type RetryFunc func(*ExecResult) bool

type runConfig struct {
	retry    RetryFunc
	dir      string
	maxTries int
	capture  bool
	noRaise  bool
}

type RunOption func(*runConfig)

// CaptureOutput collects stdout and stderr into the ExecResult instead of
// passing them through. Retrying with more than one try implies it.
func CaptureOutput() RunOption {
	return func(c *runConfig) {
		c.capture = true
	}
}

// InDir runs the command in dir, resolved against the environment's cwd.
func InDir(dir string) RunOption {
	return func(c *runConfig) {
		c.dir = dir
	}
}

// NoRaise returns failed results without an error.
func NoRaise() RunOption {
	return func(c *runConfig) {
		c.noRaise = true
	}
}

// RetryIf retries failed executions for which fn returns true.
func RetryIf(fn RetryFunc) RunOption {
	return func(c *runConfig) {
		c.retry = fn
	}
}

// MaxTries bounds the number of executions when RetryIf is set (default 5).
// The first try is immediate; later tries follow util.Backoff (1s, 2s, 4s...).
func MaxTries(n int) RunOption {
	return func(c *runConfig) {
		c.maxTries = n
	}
}

// RetryOnReturnCodes retries when the command exits with one of codes, or with
// any non-zero code if none are given.
func RetryOnReturnCodes(codes ...int) RetryFunc {
	return func(r *ExecResult) bool {
		if len(codes) == 0 {
			return !r.Success()
		}
		for _, c := range codes {
			if r.ReturnCode == c {
				return true
			}
		}
		return false
	}
}

// RetryOnOutput retries when any captured stdout or stderr line matches one of
// the glob patterns (case-insensitive, '*' wildcards).
func RetryOnOutput(patterns ...string) RetryFunc {
	return func(r *ExecResult) bool {
		return pattern.MatchesAnyLine(string(r.Stderr), patterns) ||
			pattern.MatchesAnyLine(string(r.Stdout), patterns)
	}
}

// Run executes argv in the environment.
//
// A failed execution (non-zero exit) is returned as both the result and the
// error unless NoRaise is given. Failures to start the command, and context
// cancellation, are returned as plain errors.
func (e *Environment) Run(ctx context.Context, argv []string, opts ...RunOption) (*ExecResult, error) {
	if len(argv) == 0 {
		return nil, ErrEmptyCommand
	}

	cfg := runConfig{maxTries: constants.DefaultMaxTries}
	for _, opt := range opts {
		opt(&cfg)
	}

	maxTries := cfg.maxTries
	if cfg.retry == nil || maxTries < 1 {
		maxTries = 1
	}

	dir := e.cwd
	if cfg.dir != "" {
		dir = util.CanonicalizePath(e.cwd, cfg.dir)
	}

	capture := cfg.capture || (cfg.retry != nil && maxTries > 1)

	e.logger.Debug("Executing command", "cmd", FormatCommand(argv), "cwd", dir)

	var result *ExecResult
	exhausted := true
	backoffOpts := append(slices.Clone(e.backoff), util.WithSleeper(e.sleep))
	tries := util.NewBackoff(maxTries, backoffOpts...)

	for tries.HasNext() {
		if result != nil {
			e.logger.Debug("Backing off before retry", "delay", units.HumanDuration(tries.Delay()))
		}

		trial, err := tries.Next(ctx)
		if err != nil {
			return result, fmt.Errorf("retrying %s: %w", argv[0], err)
		}
		if trial > 0 {
			e.logger.Warn("Failure caught; retrying command", "try", trial+1, "cmd", FormatCommand(argv))
		}

		result, err = e.execute(ctx, argv, dir, capture)
		if err != nil {
			return nil, err
		}

		if cfg.retry != nil && !result.Success() && cfg.retry(result) {
			continue
		}

		exhausted = false
		break
	}

	if exhausted {
		e.logger.Warn("Unable to retry: too many attempts", "cmd", result.CmdText, "tries", maxTries)
	}

	if !result.Success() && !cfg.noRaise {
		return result, result
	}
	return result, nil
}

// RunCommandLine splits line with shell quoting rules and runs it. Prefer Run
// with an explicit argv.
func (e *Environment) RunCommandLine(ctx context.Context, line string, opts ...RunOption) (*ExecResult, error) {
	e.logger.Debug("Notice: splitting command string", "line", line)

	argv, err := shlex.Split(line)
	if err != nil {
		return nil, fmt.Errorf("splitting command %q: %w", line, err)
	}
	return e.Run(ctx, argv, opts...)
}

func (e *Environment) execute(ctx context.Context, argv []string, dir string, capture bool) (*ExecResult, error) {
	path, err := e.lookPath(argv[0], dir)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, path, argv[1:]...)
	cmd.Args[0] = argv[0]
	cmd.Env = e.Environ()
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	if capture {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	} else {
		cmd.Stdout = e.stdout
		cmd.Stderr = e.stderr
	}

	returnCode := 0
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("running %s: %w", argv[0], ctxErr)
		}
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("starting %s: %w", argv[0], err)
		}
		returnCode = exitErr.ExitCode()
	}

	var out, errOut []byte
	if capture {
		out, errOut = stdout.Bytes(), stderr.Bytes()
	}
	return newExecResult(argv, out, errOut, returnCode), nil
}

// lookPath resolves name against this environment's PATH rather than the
// process one, so virtualenv bin directories are honoured. Names containing a
// separator are taken relative to dir.
func (e *Environment) lookPath(name, dir string) (string, error) {
	if strings.ContainsRune(name, filepath.Separator) || strings.ContainsRune(name, '/') {
		if filepath.IsAbs(name) {
			return name, nil
		}
		return util.CanonicalizePath(dir, name), nil
	}

	for _, entry := range filepath.SplitList(e.Get(constants.EnvPath)) {
		if entry == "" {
			continue
		}
		candidate := filepath.Join(util.CanonicalizePath(e.cwd, entry), name)
		if resolved, err := exec.LookPath(candidate); err == nil {
			return resolved, nil
		}
	}

	return "", fmt.Errorf("starting %s: %w", name, &exec.Error{Name: name, Err: exec.ErrNotFound})
}
