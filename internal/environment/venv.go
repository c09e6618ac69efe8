package environment

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/thushan/striker/internal/core/constants"
	"github.com/thushan/striker/internal/util"
)

// CreateVirtualEnv prepares a bare virtualenv at path (relative to the current
// working directory) and returns a new Environment for it. An existing
// directory is reused unless rebuild is set, in which case it is removed and
// created again.
//
// The new Environment has VIRTUAL_ENV set to the venv, its bin directory at the
// front of PATH and its cwd inside the venv. overrides are applied last and win
// over both.
func (e *Environment) CreateVirtualEnv(ctx context.Context, path string, rebuild bool, overrides map[string]string) (*Environment, error) {
	path = util.CanonicalizePath(e.cwd, path)

	e.logger.Debug("Preparing virtual environment", "path", path)

	_, err := os.Stat(path)
	switch {
	case err == nil && rebuild:
		e.logger.Info("Destroying old virtual environment", "path", path)
		if err := os.RemoveAll(path); err != nil {
			return nil, fmt.Errorf("removing virtual environment %s: %w", path, err)
		}
	case err == nil:
		e.logger.Info("Using existing virtual environment", "path", path)
	case errors.Is(err, fs.ErrNotExist):
		rebuild = true
	default:
		return nil, fmt.Errorf("checking virtual environment %s: %w", path, err)
	}

	if rebuild {
		e.logger.Info("Creating virtual environment", "path", path)
		if _, err := e.Run(ctx, []string{constants.VirtualEnvCommand, path}); err != nil {
			return nil, fmt.Errorf("creating virtual environment %s: %w", path, err)
		}
	}

	venv := e.Clone()
	venv.venvHome = path
	venv.cwd = path

	binDir := filepath.Join(path, constants.VirtualEnvBinDir)
	venv.Set(constants.EnvVirtualEnv, path)
	// an empty PATH entry would mean the cwd
	searchPath := binDir
	if old := e.Get(constants.EnvPath); old != "" {
		searchPath += string(os.PathListSeparator) + old
	}
	venv.Set(constants.EnvPath, searchPath)

	for k, v := range overrides {
		venv.Set(k, v)
	}

	return venv, nil
}
