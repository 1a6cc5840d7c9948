// Package env reads process settings from HOOKGUARD_* environment variables.
package env

import (
	"fmt"
	"log/slog"

	"github.com/kelseyhightower/envconfig"
	"github.com/reglet-dev/hookguard/domain/pathvars"
)

const namespace = "HOOKGUARD"

// Settings are the environment-level knobs. The policy itself lives in the
// config document.
type Settings struct {
	Enabled  bool   `envconfig:"ENABLED" default:"true"`
	Mode     string `envconfig:"MODE" default:"run"`
	Config   string `envconfig:"CONFIG"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"warn"`

	// Interpreter roots reported by the host runtime, used for the
	// $PYTHON_* placeholders.
	PythonPrefix       string `envconfig:"PYTHON_PREFIX"`
	PythonStdlib       string `envconfig:"PYTHON_STDLIB"`
	PythonSitePackages string `envconfig:"PYTHON_SITE_PACKAGES"`
	PythonPlatlib      string `envconfig:"PYTHON_PLATLIB"`
}

// Load reads Settings from the environment.
func Load() (*Settings, error) {
	var s Settings
	if err := envconfig.Process(namespace, &s); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	return &s, nil
}

// SlogLevel parses LogLevel, defaulting to warn.
func (s *Settings) SlogLevel() slog.Level {
	if s == nil {
		return slog.LevelWarn
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return slog.LevelWarn
	}
	return level
}

// PathVarOptions returns the placeholder roots configured here.
func (s *Settings) PathVarOptions() []pathvars.Option {
	if s == nil {
		return nil
	}
	return []pathvars.Option{
		pathvars.WithPythonRoots(s.PythonPrefix, s.PythonStdlib, s.PythonSitePackages, s.PythonPlatlib),
	}
}
