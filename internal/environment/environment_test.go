package environment

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thushan/striker/internal/util"
)

type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a posix shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func newTestEnv(t *testing.T, opts ...Option) (*Environment, *sleepRecorder, *bytes.Buffer) {
	t.Helper()

	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	rec := &sleepRecorder{}

	base := []Option{
		WithEnviron(map[string]string{"PATH": os.Getenv("PATH")}),
		WithCwd(t.TempDir()),
		WithSleeper(rec.sleep),
		WithStdout(&bytes.Buffer{}),
		WithStderr(&bytes.Buffer{}),
	}
	env, err := New(logger, append(base, opts...)...)
	require.NoError(t, err)
	return env, rec, logs
}

func TestExecResult_Error(t *testing.T) {
	tests := []struct {
		name     string
		result   *ExecResult
		expected string
	}{
		{
			name:     "failure reports return code",
			result:   newExecResult([]string{"false"}, []byte("out"), []byte("err"), 2),
			expected: "'false' failed with return code 2",
		},
		{
			name:     "stderr wins over stdout",
			result:   newExecResult([]string{"tool", "-v"}, []byte("out"), []byte("warning"), 0),
			expected: "'tool -v' said: warning",
		},
		{
			name:     "stdout when no stderr",
			result:   newExecResult([]string{"echo", "hi"}, []byte("hi"), nil, 0),
			expected: "'echo hi' said: hi",
		},
		{
			name:     "silent success",
			result:   newExecResult([]string{"true"}, nil, nil, 0),
			expected: "'true' succeeded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.result.Error())
		})
	}
}

func TestFormatCommand(t *testing.T) {
	assert.Equal(t, "ls -l", FormatCommand([]string{"ls", "-l"}))
	assert.Equal(t, `echo "hello world"`, FormatCommand([]string{"echo", "hello world"}))
	assert.Equal(t, `echo "say \"hi\""`, FormatCommand([]string{"echo", `say "hi"`}))
	assert.Equal(t, `echo "it's"`, FormatCommand([]string{"echo", "it's"}))
}

func TestExecResult_HasUniqueID(t *testing.T) {
	a := newExecResult([]string{"true"}, nil, nil, 0)
	b := newExecResult([]string{"true"}, nil, nil, 0)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestNew_Defaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	env, err := New(nil)
	require.NoError(t, err)

	assert.Equal(t, wd, env.Cwd())
	assert.Empty(t, env.VenvHome())
	assert.Equal(t, os.Getenv("PATH"), env.Get("PATH"))
}

func TestEnvironment_Vars(t *testing.T) {
	src := map[string]string{"A": "1"}
	env, err := New(nil, WithEnviron(src))
	require.NoError(t, err)

	env.Set("B", "2")
	assert.Equal(t, []string{"A=1", "B=2"}, env.Environ())
	assert.NotContains(t, src, "B", "source map must not be mutated")

	_, ok := env.Lookup("C")
	assert.False(t, ok)

	env.Unset("A")
	assert.Equal(t, []string{"B=2"}, env.Environ())

	clone := env.Clone()
	clone.Set("B", "changed")
	assert.Equal(t, "2", env.Get("B"))
}

func TestEnvironment_Chdir(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix paths")
	}

	env, err := New(nil, WithCwd("/srv/app"))
	require.NoError(t, err)

	assert.Equal(t, "/srv/app/sub", env.Chdir("sub"))
	assert.Equal(t, "/srv/other", env.Chdir("../../other"))
	assert.Equal(t, "/abs", env.Chdir("/abs"))
	assert.Equal(t, "/abs", env.Cwd())
}

func TestParseEnviron(t *testing.T) {
	vars := parseEnviron([]string{"A=1", "B=x=y", "=C:=C:\\", "NOVALUE", "EMPTY="})
	assert.Equal(t, map[string]string{"A": "1", "B": "x=y", "EMPTY": ""}, vars)
}

func TestRun_CapturesOutput(t *testing.T) {
	skipWithoutShell(t)
	env, _, _ := newTestEnv(t)

	result, err := env.Run(context.Background(), []string{"sh", "-c", "echo out; echo err >&2"}, CaptureOutput())
	require.NoError(t, err)

	assert.True(t, result.Success())
	assert.Equal(t, "out\n", string(result.Stdout))
	assert.Equal(t, "err\n", string(result.Stderr))
	assert.Equal(t, []string{"sh", "-c", "echo out; echo err >&2"}, result.Cmd)
}

func TestRun_PassesThroughWithoutCapture(t *testing.T) {
	skipWithoutShell(t)
	stdout := &bytes.Buffer{}
	env, _, _ := newTestEnv(t, WithStdout(stdout))

	result, err := env.Run(context.Background(), []string{"sh", "-c", "echo hello"})
	require.NoError(t, err)

	assert.Nil(t, result.Stdout)
	assert.Equal(t, "hello\n", stdout.String())
}

func TestRun_FailureRaisesResult(t *testing.T) {
	skipWithoutShell(t)
	env, _, _ := newTestEnv(t)

	result, err := env.Run(context.Background(), []string{"sh", "-c", "exit 3"})
	require.Error(t, err)

	var execErr *ExecResult
	require.True(t, errors.As(err, &execErr))
	assert.Same(t, result, execErr)
	assert.Equal(t, 3, execErr.ReturnCode)
	assert.Contains(t, err.Error(), "failed with return code 3")
}

func TestRun_NoRaise(t *testing.T) {
	skipWithoutShell(t)
	env, _, _ := newTestEnv(t)

	result, err := env.Run(context.Background(), []string{"sh", "-c", "exit 1"}, NoRaise())
	require.NoError(t, err)
	assert.False(t, result.Success())
	assert.Equal(t, 1, result.ReturnCode)
}

func TestRun_UsesEnvironmentVarsAndCwd(t *testing.T) {
	skipWithoutShell(t)
	env, _, _ := newTestEnv(t)
	env.Set("STRIKER_TEST_VAR", "value")

	sub := filepath.Join(env.Cwd(), "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))

	result, err := env.Run(context.Background(),
		[]string{"sh", "-c", `echo "$STRIKER_TEST_VAR"; pwd`},
		CaptureOutput(), InDir("sub"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(result.Stdout)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "value", lines[0])

	want, err := filepath.EvalSymlinks(sub)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(lines[1])
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRun_RetriesUntilSuccess(t *testing.T) {
	skipWithoutShell(t)
	env, rec, logs := newTestEnv(t)

	// fails on the first two calls, succeeds on the third
	script := `n=$(cat count 2>/dev/null || echo 0); n=$((n+1)); echo $n > count; echo "try $n"; [ $n -ge 3 ]`

	result, err := env.Run(context.Background(), []string{"sh", "-c", script},
		RetryIf(RetryOnReturnCodes()), MaxTries(5))
	require.NoError(t, err)

	assert.True(t, result.Success())
	assert.Equal(t, "try 3\n", string(result.Stdout), "retrying implies capture")
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.delays)
	assert.Contains(t, logs.String(), "Failure caught; retrying command")
	assert.NotContains(t, logs.String(), "too many attempts")
}

func TestRun_RetriesExhausted(t *testing.T) {
	skipWithoutShell(t)
	env, rec, logs := newTestEnv(t)

	calls := 0
	result, err := env.Run(context.Background(), []string{"sh", "-c", "exit 7"},
		RetryIf(func(r *ExecResult) bool {
			calls++
			return true
		}), MaxTries(3))
	require.Error(t, err)

	assert.Equal(t, 7, result.ReturnCode)
	assert.Equal(t, 3, calls)
	assert.Len(t, rec.delays, 2, "no sleep after the final try")
	assert.Contains(t, logs.String(), "Unable to retry: too many attempts")
}

func TestRun_RetryPredicateDeclines(t *testing.T) {
	skipWithoutShell(t)
	env, rec, logs := newTestEnv(t)

	result, err := env.Run(context.Background(), []string{"sh", "-c", "exit 2"},
		RetryIf(RetryOnReturnCodes(75)), NoRaise())
	require.NoError(t, err)

	assert.Equal(t, 2, result.ReturnCode)
	assert.Empty(t, rec.delays)
	assert.NotContains(t, logs.String(), "too many attempts")
}

func TestRun_NoRetryPredicateRunsOnce(t *testing.T) {
	skipWithoutShell(t)
	env, rec, _ := newTestEnv(t)

	result, err := env.Run(context.Background(), []string{"sh", "-c", "exit 1"}, MaxTries(10), NoRaise())
	require.NoError(t, err)
	assert.Equal(t, 1, result.ReturnCode)
	assert.Empty(t, rec.delays)
}

func TestRun_RetryOnOutput(t *testing.T) {
	skipWithoutShell(t)
	env, rec, _ := newTestEnv(t)

	result, err := env.Run(context.Background(), []string{"sh", "-c", "echo 'Connection RESET by peer' >&2; exit 1"},
		RetryIf(RetryOnOutput("*connection reset*")), MaxTries(2), NoRaise())
	require.NoError(t, err)

	assert.False(t, result.Success())
	assert.Len(t, rec.delays, 1)
}

func TestRun_Errors(t *testing.T) {
	skipWithoutShell(t)
	env, _, _ := newTestEnv(t)

	_, err := env.Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyCommand)

	_, err = env.Run(context.Background(), []string{"striker-no-such-command"})
	assert.ErrorIs(t, err, exec.ErrNotFound)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = env.Run(ctx, []string{"sh", "-c", "sleep 5"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_ResolvesAgainstEnvironmentPath(t *testing.T) {
	skipWithoutShell(t)
	env, _, _ := newTestEnv(t)

	bin := filepath.Join(env.Cwd(), "bin")
	require.NoError(t, os.Mkdir(bin, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(bin, "striker-hello"), []byte("#!/bin/sh\necho from-path\n"), 0o755))

	env.Set("PATH", "bin"+string(os.PathListSeparator)+env.Get("PATH"))

	result, err := env.Run(context.Background(), []string{"striker-hello"}, CaptureOutput())
	require.NoError(t, err)
	assert.Equal(t, "from-path\n", string(result.Stdout))
}

func TestRunCommandLine(t *testing.T) {
	skipWithoutShell(t)
	env, _, logs := newTestEnv(t)

	result, err := env.RunCommandLine(context.Background(), `sh -c 'echo "a b"'`, CaptureOutput())
	require.NoError(t, err)

	assert.Equal(t, []string{"sh", "-c", `echo "a b"`}, result.Cmd)
	assert.Equal(t, "a b\n", string(result.Stdout))
	assert.Contains(t, logs.String(), "splitting command string")
}

func TestRunCommandLine_Empty(t *testing.T) {
	env, _, _ := newTestEnv(t)

	_, err := env.RunCommandLine(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyCommand)
}

func TestRun_BackoffOptions(t *testing.T) {
	skipWithoutShell(t)
	env, rec, _ := newTestEnv(t, WithBackoff(util.WithInitialDelay(100*time.Millisecond), util.WithMaxDelay(150*time.Millisecond)))

	_, err := env.Run(context.Background(), []string{"sh", "-c", "exit 1"},
		RetryIf(RetryOnReturnCodes(1)), MaxTries(4), NoRaise())
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{100 * time.Millisecond, 150 * time.Millisecond, 150 * time.Millisecond}, rec.delays)
}

func TestRunCommandLine_UnbalancedQuote(t *testing.T) {
	env, _, _ := newTestEnv(t)

	_, err := env.RunCommandLine(context.Background(), `echo "unterminated`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "splitting command")
}

func TestRun_CancelledDuringBackoff(t *testing.T) {
	skipWithoutShell(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancelling := func(ctx context.Context, _ time.Duration) error {
		cancel()
		return util.SleepWithContext(ctx, time.Hour)
	}
	env, _, _ := newTestEnv(t, WithSleeper(cancelling))

	result, err := env.Run(ctx, []string{"sh", "-c", "exit 1"}, RetryIf(RetryOnReturnCodes()), MaxTries(3))
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result, "the last result is kept")
	assert.Equal(t, 1, result.ReturnCode)
}
