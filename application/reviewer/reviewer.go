// Package reviewer asks the operator about denied events.
package reviewer

import (
	"context"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/reglet-dev/hookguard/domain/entities"
	domainerrors "github.com/reglet-dev/hookguard/domain/errors"
	"github.com/reglet-dev/hookguard/domain/policy"
	"github.com/reglet-dev/hookguard/domain/ports"
)

// Outcome is the result of a review.
type Outcome int

const (
	OutcomeDeny      Outcome = iota // stop the program
	OutcomeOnce                     // allow this occurrence
	OutcomeSession                  // allow identical events until exit
	OutcomePersist                  // allow and save to the policy document
	OutcomeInterrupt                // prompt aborted
)

// String returns the outcome name used in logs.
func (o Outcome) String() string {
	switch o {
	case OutcomeOnce:
		return "once"
	case OutcomeSession:
		return "session"
	case OutcomePersist:
		return "persist"
	case OutcomeInterrupt:
		return "interrupt"
	default:
		return "deny"
	}
}

// Allowed reports whether the outcome lets the event proceed.
func (o Outcome) Allowed() bool {
	return o == OutcomeOnce || o == OutcomeSession || o == OutcomePersist
}

type reviewerConfig struct {
	logger    *slog.Logger
	risk      *entities.RiskAssessor
	resolver  ports.DNSResolver
	addresses *policy.AddressBook
}

func defaultReviewerConfig() reviewerConfig {
	return reviewerConfig{
		logger:   slog.Default(),
		resolver: net.DefaultResolver,
	}
}

// ReviewerOption configures a Reviewer.
type ReviewerOption func(*reviewerConfig)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ReviewerOption {
	return func(c *reviewerConfig) {
		c.logger = l
	}
}

// WithRiskAssessor sets the assessor used to pick prompt colours.
func WithRiskAssessor(r *entities.RiskAssessor) ReviewerOption {
	return func(c *reviewerConfig) {
		c.risk = r
	}
}

// WithResolver sets the resolver used after DNS approvals. Nil disables
// address learning.
func WithResolver(r ports.DNSResolver) ReviewerOption {
	return func(c *reviewerConfig) {
		c.resolver = r
	}
}

// WithAddressBook shares the engine's address book so connects to approved
// hosts' addresses are recognised.
func WithAddressBook(b *policy.AddressBook) ReviewerOption {
	return func(c *reviewerConfig) {
		c.addresses = b
	}
}

// Reviewer prompts the operator about denied events.
type Reviewer struct {
	prompter ports.Prompter
	config   reviewerConfig

	mu       sync.Mutex
	approved map[string]struct{} // host or host:port approved at a DNS prompt
}

// New creates a Reviewer asking through p.
func New(p ports.Prompter, opts ...ReviewerOption) *Reviewer {
	cfg := defaultReviewerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.risk == nil {
		cfg.risk = entities.NewRiskAssessor()
	}
	if cfg.addresses == nil {
		cfg.addresses = policy.NewAddressBook()
	}
	return &Reviewer{prompter: p, config: cfg, approved: make(map[string]struct{})}
}

// Review renders ev and asks the operator. A prompter error or a cancelled
// ctx is returned as OutcomeInterrupt with an *errors.Interrupted; Review does
// not wait for a prompter that ignores cancellation.
func (r *Reviewer) Review(ctx context.Context, ev entities.Event, stack []string) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return OutcomeInterrupt, &domainerrors.Interrupted{Err: err}
	}

	level := r.config.risk.AssessEvent(ev)
	req := ports.ReviewRequest{
		Event:     ev,
		Summary:   Colorize(level, "[hookguard] "+Format(ev)),
		RiskLevel: level,
		Stack:     stack,
	}

	answer, err := r.prompt(ctx, req)
	if err != nil {
		return OutcomeInterrupt, &domainerrors.Interrupted{Err: err}
	}

	var outcome Outcome
	switch answer {
	case ports.AnswerOnce:
		outcome = OutcomeOnce
	case ports.AnswerSession:
		outcome = OutcomeSession
	case ports.AnswerPersist:
		outcome = OutcomePersist
	default:
		return OutcomeDeny, nil
	}

	if lookup, ok := ev.(entities.DNSLookup); ok {
		r.learn(ctx, lookup)
	}
	return outcome, nil
}

type promptResult struct {
	answer ports.Answer
	err    error
}

func (r *Reviewer) prompt(ctx context.Context, req ports.ReviewRequest) (ports.Answer, error) {
	done := make(chan promptResult, 1)
	go func() {
		answer, err := r.prompter.PromptForEvent(ctx, req)
		done <- promptResult{answer: answer, err: err}
	}()
	select {
	case res := <-done:
		return res.answer, res.err
	case <-ctx.Done():
		return ports.AnswerDeny, ctx.Err()
	}
}

func (r *Reviewer) learn(ctx context.Context, ev entities.DNSLookup) {
	if ev.Kind() == entities.KindGetHostByAddr || ev.Host == "" {
		return
	}
	r.mu.Lock()
	r.approved[approvalKey(ev.Host, ev.Port)] = struct{}{}
	r.mu.Unlock()

	if r.config.resolver == nil {
		return
	}
	if _, err := r.config.addresses.Learn(ctx, r.config.resolver, ev.Host); err != nil {
		r.config.logger.Debug("could not resolve approved host", "host", ev.Host, "error", err)
	}
}

// ResolvedAllowed reports whether addr is an address of a host approved at
// a DNS prompt for port (or for any port).
func (r *Reviewer) ResolvedAllowed(addr string, port int) bool {
	host, ok := r.config.addresses.Lookup(addr)
	if !ok {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.approved[approvalKey(host, 0)]; ok {
		return true
	}
	_, ok = r.approved[approvalKey(host, port)]
	return ok
}

// Addresses returns the address book the reviewer learns into.
func (r *Reviewer) Addresses() *policy.AddressBook {
	return r.config.addresses
}

func approvalKey(host string, port int) string {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	return host + "|" + strconv.Itoa(port)
}
