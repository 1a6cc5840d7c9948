package ports

import "github.com/reglet-dev/hookguard/domain/entities"

// Policy evaluates intercepted events against the loaded policy document.
type Policy interface {
	// Check reports whether the typed event is allowed.
	Check(ev entities.Event) bool

	// CheckPermission decodes a raw (event, args) tuple and checks it.
	// Event names outside the modeled set are allowed.
	CheckPermission(event string, args []any) bool

	// Reload swaps the policy document used for later checks.
	Reload(cfg *entities.PermissionConfig)
}
