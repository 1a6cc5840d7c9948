package ports

import (
	"context"

	"github.com/reglet-dev/hookguard/domain/entities"
)

// Answer is the operator's response to a review prompt.
type Answer int

const (
	AnswerDeny    Answer = iota // reject and stop the program
	AnswerOnce                  // allow this occurrence only
	AnswerSession               // allow identical calls until the process exits
	AnswerPersist               // allow and save into the policy document
)

// String returns the answer name used in logs.
func (a Answer) String() string {
	switch a {
	case AnswerOnce:
		return "once"
	case AnswerSession:
		return "session"
	case AnswerPersist:
		return "persist"
	default:
		return "deny"
	}
}

// ReviewRequest is what the operator is asked about.
type ReviewRequest struct {
	Event     entities.Event
	Summary   string
	RiskLevel entities.RiskLevel
	Stack     []string // caller frames reported by the event source, innermost last
}

// Prompter handles interactive authorization on a channel independent of the
// monitored program's own standard streams.
type Prompter interface {
	// IsInteractive returns true if running in an interactive terminal.
	IsInteractive() bool

	// PromptForEvent asks the operator about one denied action.
	// io.EOF, an interrupt or a cancelled ctx is returned as an error.
	PromptForEvent(ctx context.Context, req ReviewRequest) (Answer, error)
}
