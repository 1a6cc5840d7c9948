package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/reglet-dev/hookguard/domain/pathvars"
	"github.com/reglet-dev/hookguard/domain/policy"
	"github.com/reglet-dev/hookguard/infrastructure/configstore"
	"github.com/reglet-dev/hookguard/internal/env"
	"github.com/reglet-dev/hookguard/log"
)

// runtime bundles the pieces every command needs.
type runtime struct {
	settings *env.Settings
	logger   *slog.Logger
	vars     *pathvars.Table
	store    *configstore.FileStore
	cwd      string
}

// usageError marks bad command-line input.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }
func (e *usageError) ExitCode() int { return 2 }

// newRuntime loads the environment settings and prepares the logger and the
// store. Flags win over the environment.
func newRuntime(path, level string, logOut io.Writer) (*runtime, error) {
	settings, err := env.Load()
	if err != nil {
		return nil, &usageError{err: err}
	}
	if level != "" {
		settings.LogLevel = level
	}
	if path != "" {
		settings.Config = path
	}
	if settings.Config == "" {
		settings.Config = configstore.DefaultFileName
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	logger := log.Setup(settings.SlogLevel(), logOut)
	vars := pathvars.New(append(settings.PathVarOptions(), pathvars.WithWorkingDirectory(cwd))...)
	store := configstore.NewFileStore(
		configstore.WithPath(settings.Config),
		configstore.WithLogger(logger),
	)

	return &runtime{
		settings: settings,
		logger:   logger,
		vars:     vars,
		store:    store,
		cwd:      cwd,
	}, nil
}

// engine loads the policy document and compiles it.
func (rt *runtime) engine(opts ...policy.EngineOption) (*policy.Engine, error) {
	cfg, err := rt.store.Load()
	if err != nil {
		return nil, err
	}
	base := []policy.EngineOption{
		policy.WithWorkingDirectory(rt.cwd),
		policy.WithPathVars(rt.vars),
		policy.WithLogger(rt.logger),
	}
	return policy.NewEngine(cfg, append(base, opts...)...), nil
}
