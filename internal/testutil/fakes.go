package testutil

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/reglet-dev/hookguard/domain/entities"
	"github.com/reglet-dev/hookguard/domain/ports"
)

var (
	_ ports.DNSResolver = StaticResolver(nil)
	_ ports.Prompter    = (*ScriptedPrompter)(nil)
	_ ports.Terminator  = (*RecordingTerminator)(nil)
	_ ports.ConfigStore = (*MemoryStore)(nil)
)

// StaticResolver answers lookups from a fixed table.
type StaticResolver map[string][]string

// LookupHost implements ports.DNSResolver.
func (r StaticResolver) LookupHost(_ context.Context, host string) ([]string, error) {
	addrs, ok := r[host]
	if !ok {
		return nil, fmt.Errorf("no such host: %s", host)
	}
	return addrs, nil
}

// ScriptedPrompter returns queued answers in order and records requests.
// When the queue is exhausted it reports io.EOF.
type ScriptedPrompter struct {
	mu       sync.Mutex
	Answers  []ports.Answer
	Requests []ports.ReviewRequest
	// OnPrompt runs before the answer is returned. It receives the ctx the
	// prompt was made with.
	OnPrompt func(ctx context.Context, req ports.ReviewRequest)
}

// NewScriptedPrompter creates a prompter answering with answers in order.
func NewScriptedPrompter(answers ...ports.Answer) *ScriptedPrompter {
	return &ScriptedPrompter{Answers: answers}
}

// IsInteractive implements ports.Prompter.
func (p *ScriptedPrompter) IsInteractive() bool { return true }

// PromptForEvent implements ports.Prompter.
func (p *ScriptedPrompter) PromptForEvent(ctx context.Context, req ports.ReviewRequest) (ports.Answer, error) {
	p.mu.Lock()
	p.Requests = append(p.Requests, req)
	hook := p.OnPrompt
	if len(p.Answers) == 0 {
		p.mu.Unlock()
		return ports.AnswerDeny, io.EOF
	}
	answer := p.Answers[0]
	p.Answers = p.Answers[1:]
	p.mu.Unlock()

	if hook != nil {
		hook(ctx, req)
	}
	return answer, nil
}

// Prompts returns how many requests were made.
func (p *ScriptedPrompter) Prompts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Requests)
}

// RecordingTerminator records exit codes instead of exiting.
type RecordingTerminator struct {
	mu    sync.Mutex
	Codes []int
}

// Exit implements ports.Terminator.
func (t *RecordingTerminator) Exit(code int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Codes = append(t.Codes, code)
}

// Last returns the most recent exit code, or -1.
func (t *RecordingTerminator) Last() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.Codes) == 0 {
		return -1
	}
	return t.Codes[len(t.Codes)-1]
}

// MemoryStore keeps the policy document in memory.
type MemoryStore struct {
	mu      sync.Mutex
	Config  *entities.PermissionConfig
	Saves   int
	SaveErr error
	LoadErr error
}

// Load implements ports.ConfigStore.
func (s *MemoryStore) Load() (*entities.PermissionConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LoadErr != nil {
		return nil, s.LoadErr
	}
	if s.Config == nil {
		return entities.DefaultConfig(), nil
	}
	return s.Config.Clone(), nil
}

// Save implements ports.ConfigStore.
func (s *MemoryStore) Save(cfg *entities.PermissionConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.Config = cfg.Clone()
	s.Saves++
	return nil
}

// ConfigPath implements ports.ConfigStore.
func (s *MemoryStore) ConfigPath() string { return "memory" }
