package ports

import "github.com/reglet-dev/hookguard/domain/entities"

// ConfigStore provides persistence for the policy document.
type ConfigStore interface {
	// Load returns the defaults-merged policy. A missing or unparsable
	// document yields the compiled-in defaults, never an error; errors are
	// reserved for I/O failures other than absence.
	Load() (*entities.PermissionConfig, error)

	// Save persists the policy, preserving keys it does not understand.
	Save(cfg *entities.PermissionConfig) error

	// ConfigPath returns the path to the backing store (for user messaging).
	ConfigPath() string
}
