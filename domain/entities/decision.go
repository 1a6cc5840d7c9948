package entities

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// DecisionDetails is the canonical record extracted from an approved event.
// Category names the policy list the approval is saved into; Value is the
// entry to add (a resolved path, command line, variable name, domain or URL).
type DecisionDetails struct {
	Category  string `json:"category"`
	Value     string `json:"value"`
	Path      string `json:"path,omitempty"`
	Mode      string `json:"mode,omitempty"`
	IsNewFile bool   `json:"is_new_file,omitempty"`
	Command   string `json:"command,omitempty"`
	Key       string `json:"key,omitempty"`
	Domain    string `json:"domain,omitempty"`
	Port      int    `json:"port,omitempty"`
	URL       string `json:"url,omitempty"`
}

// Decision records a human approval made during a run.
type Decision struct {
	ID      string
	Event   string
	RawArgs []any
	Allowed bool
	Details DecisionDetails
	At      time.Time
}

// NewDecision stamps a decision with a sortable unique ID.
func NewDecision(event string, args []any, allowed bool, details DecisionDetails) Decision {
	now := time.Now()
	return Decision{
		ID:      ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Event:   event,
		RawArgs: args,
		Allowed: allowed,
		Details: details,
		At:      now,
	}
}

// SessionKey identifies an (event, args) pair for the session approval cache.
// Args are serialized canonically so identical repeated calls collide.
func SessionKey(event string, args []any) string {
	b, err := json.Marshal(args)
	if err != nil {
		return event + "\x00" + fmt.Sprintf("%#v", args)
	}
	return event + "\x00" + string(b)
}
