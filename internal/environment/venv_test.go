package environment

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// installFakeVirtualenv puts a virtualenv stand-in on env's PATH that creates
// <dir>/bin and records each invocation in <dir>/created.
func installFakeVirtualenv(t *testing.T, env *Environment) string {
	t.Helper()

	tools := t.TempDir()
	script := "#!/bin/sh\nmkdir -p \"$1/bin\" && echo x >> \"$1/created\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(tools, "virtualenv"), []byte(script), 0o755))

	env.Set("PATH", tools+string(os.PathListSeparator)+env.Get("PATH"))
	return tools
}

func TestCreateVirtualEnv(t *testing.T) {
	skipWithoutShell(t)
	env, _, logs := newTestEnv(t)
	installFakeVirtualenv(t, env)
	basePath := env.Get("PATH")

	venv, err := env.CreateVirtualEnv(context.Background(), "venv", false, nil)
	require.NoError(t, err)

	home := filepath.Join(env.Cwd(), "venv")
	assert.Equal(t, home, venv.VenvHome())
	assert.Equal(t, home, venv.Cwd())
	assert.Equal(t, home, venv.Get("VIRTUAL_ENV"))
	assert.Equal(t, filepath.Join(home, "bin")+string(os.PathListSeparator)+basePath, venv.Get("PATH"))
	assert.FileExists(t, filepath.Join(home, "created"))
	assert.Contains(t, logs.String(), "Creating virtual environment")

	// the parent environment is untouched
	assert.Empty(t, env.VenvHome())
	assert.Equal(t, basePath, env.Get("PATH"))
	_, ok := env.Lookup("VIRTUAL_ENV")
	assert.False(t, ok)
}

func TestCreateVirtualEnv_ReusesExisting(t *testing.T) {
	skipWithoutShell(t)
	env, _, logs := newTestEnv(t)
	installFakeVirtualenv(t, env)

	home := filepath.Join(env.Cwd(), "venv")
	require.NoError(t, os.MkdirAll(filepath.Join(home, "bin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(home, "keep"), nil, 0o644))

	venv, err := env.CreateVirtualEnv(context.Background(), "venv", false, nil)
	require.NoError(t, err)

	assert.Equal(t, home, venv.VenvHome())
	assert.FileExists(t, filepath.Join(home, "keep"))
	assert.NoFileExists(t, filepath.Join(home, "created"))
	assert.Contains(t, logs.String(), "Using existing virtual environment")
}

func TestCreateVirtualEnv_Rebuild(t *testing.T) {
	skipWithoutShell(t)
	env, _, logs := newTestEnv(t)
	installFakeVirtualenv(t, env)

	home := filepath.Join(env.Cwd(), "venv")
	require.NoError(t, os.MkdirAll(home, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(home, "stale"), nil, 0o644))

	_, err := env.CreateVirtualEnv(context.Background(), home, true, nil)
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(home, "stale"))
	assert.FileExists(t, filepath.Join(home, "created"))
	assert.Contains(t, logs.String(), "Destroying old virtual environment")
}

func TestCreateVirtualEnv_WithoutParentPath(t *testing.T) {
	env, _, _ := newTestEnv(t)
	env.Unset("PATH")

	home := filepath.Join(env.Cwd(), "venv")
	require.NoError(t, os.MkdirAll(filepath.Join(home, "bin"), 0o755))

	venv, err := env.CreateVirtualEnv(context.Background(), "venv", false, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "bin"), venv.Get("PATH"))
}

func TestCreateVirtualEnv_OverridesWin(t *testing.T) {
	skipWithoutShell(t)
	env, _, _ := newTestEnv(t)
	installFakeVirtualenv(t, env)

	venv, err := env.CreateVirtualEnv(context.Background(), "venv", false, map[string]string{
		"PATH":  "/custom/bin",
		"EXTRA": "1",
	})
	require.NoError(t, err)

	assert.Equal(t, "/custom/bin", venv.Get("PATH"))
	assert.Equal(t, "1", venv.Get("EXTRA"))
	assert.Equal(t, filepath.Join(env.Cwd(), "venv"), venv.Get("VIRTUAL_ENV"))
}

func TestCreateVirtualEnv_CommandFails(t *testing.T) {
	skipWithoutShell(t)
	env, _, _ := newTestEnv(t)

	tools := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tools, "virtualenv"), []byte("#!/bin/sh\nexit 4\n"), 0o755))
	env.Set("PATH", tools+string(os.PathListSeparator)+env.Get("PATH"))

	_, err := env.CreateVirtualEnv(context.Background(), "venv", false, nil)
	require.Error(t, err)

	var result *ExecResult
	require.ErrorAs(t, err, &result)
	assert.Equal(t, 4, result.ReturnCode)
}
