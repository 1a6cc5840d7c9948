// Package errors provides domain-specific error types.
// All error types support error unwrapping via errors.As() and errors.Is().
package errors

import (
	stdErrors "errors"
	"fmt"
)

// Process exit statuses. They are stable so callers can tell policy
// violations apart from ordinary application failures.
const (
	ExitOK            = 0
	ExitUserDenied    = 1
	ExitUsage         = 2
	ExitPolicyBlocked = 78
	ExitInterrupted   = 130
)

// Terminal is implemented by errors that end the process with a specific status.
type Terminal interface {
	error
	ExitCode() int
}

// ExitCode returns the exit status for err: the status of the first Terminal
// error in the chain, ExitOK for nil, and 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var t Terminal
	if stdErrors.As(err, &t) {
		return t.ExitCode()
	}
	return 1
}

// PolicyViolation is raised in enforce mode when an action is denied.
type PolicyViolation struct {
	Event  string
	Detail string
}

func (e *PolicyViolation) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("blocked: %s %s", e.Event, e.Detail)
	}
	return fmt.Sprintf("blocked: %s", e.Event)
}

// ExitCode implements Terminal.
func (e *PolicyViolation) ExitCode() int { return ExitPolicyBlocked }

// UserDenied is raised when the operator rejects an action at the prompt.
type UserDenied struct {
	Event string
}

func (e *UserDenied) Error() string {
	return fmt.Sprintf("denied by user: %s", e.Event)
}

// ExitCode implements Terminal.
func (e *UserDenied) ExitCode() int { return ExitUserDenied }

// Interrupted is raised when the prompt is aborted (EOF or interrupt).
type Interrupted struct {
	Err error
}

func (e *Interrupted) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("review aborted: %v", e.Err)
	}
	return "review aborted"
}

func (e *Interrupted) Unwrap() error {
	return e.Err
}

// ExitCode implements Terminal.
func (e *Interrupted) ExitCode() int { return ExitInterrupted }

// ConfigError represents a policy document that could not be read or parsed.
type ConfigError struct {
	Err  error
	Path string
	Op   string // "read", "parse", "write"
}

func (e *ConfigError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("config %s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Op, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ExitCode implements Terminal.
func (e *ConfigError) ExitCode() int { return ExitUsage }

// HashError represents a failure to verify a pinned content hash.
// The engine treats it as a non-match; it surfaces only in debug logs.
type HashError struct {
	Err      error
	Path     string
	Expected string
	Actual   string
}

func (e *HashError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("hash verification of %s failed: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("hash mismatch for %s: expected %s, got sha256:%s", e.Path, e.Expected, e.Actual)
}

func (e *HashError) Unwrap() error {
	return e.Err
}

// PersistError represents a failure to write approved decisions back.
type PersistError struct {
	Err     error
	Pending int
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("failed to persist %d decision(s): %v", e.Pending, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}
