package coordinator

import (
	"fmt"
	"strings"
)

// Mode selects what happens when the engine denies an event.
type Mode int

const (
	// ModeEnforce stops the program at the first denial.
	ModeEnforce Mode = iota
	// ModeLogOnly reports denials and lets the program continue.
	ModeLogOnly
	// ModeInteractive asks the operator.
	ModeInteractive
)

// String returns the canonical command-line name of m.
func (m Mode) String() string {
	switch m {
	case ModeLogOnly:
		return "force"
	case ModeInteractive:
		return "review"
	default:
		return "run"
	}
}

// ParseMode accepts run/enforce, force/log and review/interactive.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "run", "enforce":
		return ModeEnforce, nil
	case "force", "log", "log-only":
		return ModeLogOnly, nil
	case "review", "interactive":
		return ModeInteractive, nil
	}
	return ModeEnforce, fmt.Errorf("unknown mode %q", s)
}
