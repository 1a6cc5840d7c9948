// Package coordinator routes intercepted events through the policy engine
// and applies the run mode to denials.
package coordinator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"

	"github.com/fatih/color"
	"github.com/reglet-dev/hookguard/application/recorder"
	"github.com/reglet-dev/hookguard/application/reviewer"
	"github.com/reglet-dev/hookguard/domain/entities"
	domainerrors "github.com/reglet-dev/hookguard/domain/errors"
	"github.com/reglet-dev/hookguard/domain/policy"
	"github.com/reglet-dev/hookguard/domain/ports"
)

// guardState tracks what one call chain is doing. Events raised on a chain
// that is not idle come from the coordinator's own work and pass without
// evaluation.
type guardState int32

const (
	guardIdle guardState = iota
	guardEvaluating
	guardPrompting
)

type chainKey struct{}

// chain marks the contexts derived from one HandleWithStack call.
type chain struct {
	state atomic.Int32
}

func (ch *chain) set(s guardState) { ch.state.Store(int32(s)) }

func chainFrom(ctx context.Context) *chain {
	ch, _ := ctx.Value(chainKey{}).(*chain)
	return ch
}

// Verdict is the answer for one event.
type Verdict struct {
	Allowed   bool
	Reentrant bool
}

// ProcessTerminator ends the current process.
type ProcessTerminator struct{}

// Exit implements ports.Terminator.
func (ProcessTerminator) Exit(code int) { os.Exit(code) }

type coordinatorConfig struct {
	mode       Mode
	logger     *slog.Logger
	out        io.Writer
	terminator ports.Terminator
	reviewer   *reviewer.Reviewer
	prompter   ports.Prompter
	recorder   *recorder.Recorder
	risk       *entities.RiskAssessor
	resolver   ports.DNSResolver
}

func defaultCoordinatorConfig() coordinatorConfig {
	return coordinatorConfig{
		mode:       ModeEnforce,
		logger:     slog.Default(),
		out:        os.Stderr,
		terminator: ProcessTerminator{},
		resolver:   net.DefaultResolver,
	}
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*coordinatorConfig)

// WithMode sets the run mode.
func WithMode(m Mode) CoordinatorOption {
	return func(c *coordinatorConfig) {
		c.mode = m
	}
}

// WithLogger sets the logger for info events and persistence warnings.
func WithLogger(l *slog.Logger) CoordinatorOption {
	return func(c *coordinatorConfig) {
		c.logger = l
	}
}

// WithOutput sets where diagnostic lines are written. Defaults to stderr.
func WithOutput(w io.Writer) CoordinatorOption {
	return func(c *coordinatorConfig) {
		c.out = w
	}
}

// WithTerminator replaces process exit.
func WithTerminator(t ports.Terminator) CoordinatorOption {
	return func(c *coordinatorConfig) {
		c.terminator = t
	}
}

// WithReviewer sets the reviewer used in interactive mode.
func WithReviewer(r *reviewer.Reviewer) CoordinatorOption {
	return func(c *coordinatorConfig) {
		c.reviewer = r
	}
}

// WithPrompter builds a reviewer on p sharing the engine's address book.
// It is ignored when WithReviewer is also given.
func WithPrompter(p ports.Prompter) CoordinatorOption {
	return func(c *coordinatorConfig) {
		c.prompter = p
	}
}

// WithRecorder sets where permanent approvals are saved.
func WithRecorder(r *recorder.Recorder) CoordinatorOption {
	return func(c *coordinatorConfig) {
		c.recorder = r
	}
}

// WithRiskAssessor sets the assessor for diagnostics and prompts.
func WithRiskAssessor(r *entities.RiskAssessor) CoordinatorOption {
	return func(c *coordinatorConfig) {
		c.risk = r
	}
}

// WithResolver sets the resolver used to learn the addresses of allowed
// hosts. Nil disables learning.
func WithResolver(r ports.DNSResolver) CoordinatorOption {
	return func(c *coordinatorConfig) {
		c.resolver = r
	}
}

// Coordinator is the single entry point for intercepted events.
type Coordinator struct {
	engine *policy.Engine
	config coordinatorConfig

	// mu serializes evaluation; concurrent events wait for the one in
	// flight, including its prompt.
	mu      sync.Mutex
	session map[string]struct{}
}

// New creates a Coordinator around engine.
func New(engine *policy.Engine, opts ...CoordinatorOption) (*Coordinator, error) {
	cfg := defaultCoordinatorConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if engine == nil {
		return nil, errors.New("coordinator requires an engine")
	}
	if cfg.risk == nil {
		cfg.risk = entities.NewRiskAssessor()
	}
	if cfg.mode == ModeInteractive && cfg.reviewer == nil {
		if cfg.prompter == nil {
			return nil, errors.New("interactive mode requires a reviewer or prompter")
		}
		cfg.reviewer = reviewer.New(cfg.prompter,
			reviewer.WithLogger(cfg.logger),
			reviewer.WithRiskAssessor(cfg.risk),
			reviewer.WithResolver(cfg.resolver),
			reviewer.WithAddressBook(engine.Addresses()),
		)
	}
	return &Coordinator{
		engine:  engine,
		config:  cfg,
		session: make(map[string]struct{}),
	}, nil
}

// Mode returns the run mode.
func (c *Coordinator) Mode() Mode {
	return c.config.mode
}

// Handle evaluates one raw event.
func (c *Coordinator) Handle(ctx context.Context, name string, args []any) Verdict {
	return c.HandleWithStack(ctx, name, args, nil)
}

// HandleWithStack evaluates one raw event; stack is shown when the operator
// inspects a prompt. Events raised with a ctx derived from one that is being
// handled are re-entrant and allowed without evaluation; other callers wait
// their turn.
func (c *Coordinator) HandleWithStack(ctx context.Context, name string, args []any, stack []string) Verdict {
	if ch := chainFrom(ctx); ch != nil && guardState(ch.state.Load()) != guardIdle {
		return Verdict{Allowed: true, Reentrant: true}
	}
	ch := &chain{}
	ch.set(guardEvaluating)
	defer ch.set(guardIdle)
	ctx = context.WithValue(ctx, chainKey{}, ch)

	c.mu.Lock()
	defer c.mu.Unlock()

	ev := entities.DecodeEvent(name, args)
	key := entities.SessionKey(name, args)
	if c.inSession(key) {
		return Verdict{Allowed: true}
	}

	if c.engine.Check(ev) {
		c.allowed(ctx, name, ev)
		return Verdict{Allowed: true}
	}

	switch c.config.mode {
	case ModeLogOnly:
		c.line(color.FgYellow, reviewer.Format(ev))
		return Verdict{Allowed: true}
	case ModeInteractive:
		return c.review(ctx, ch, name, args, key, ev, stack)
	default:
		c.line(color.FgRed, "Blocked: "+reviewer.Format(ev))
		c.flush()
		c.config.terminator.Exit(domainerrors.ExitPolicyBlocked)
		return Verdict{}
	}
}

func (c *Coordinator) review(ctx context.Context, ch *chain, name string, args []any, key string, ev entities.Event, stack []string) Verdict {
	if conn, ok := ev.(entities.SocketConnect); ok && c.config.reviewer.ResolvedAllowed(conn.Host, conn.Port) {
		return Verdict{Allowed: true}
	}

	ch.set(guardPrompting)
	outcome, err := c.config.reviewer.Review(ctx, ev, stack)
	c.config.logger.Debug("event reviewed", "event", name, "outcome", outcome)

	switch outcome {
	case reviewer.OutcomeOnce:
	case reviewer.OutcomeSession:
		c.remember(key)
	case reviewer.OutcomePersist:
		c.remember(key)
		if c.config.recorder != nil {
			c.config.recorder.Record(entities.NewDecision(name, args, true, reviewer.ExtractDetails(ev, c.engine.WorkingDirectory())))
			c.flush()
		}
	case reviewer.OutcomeInterrupt:
		c.line(color.FgYellow, "Aborted")
		c.config.logger.Debug("review interrupted", "error", err)
		c.flush()
		c.config.terminator.Exit(domainerrors.ExitInterrupted)
		return Verdict{}
	default:
		c.line(color.FgYellow, "Denied")
		c.flush()
		c.config.terminator.Exit(domainerrors.ExitUserDenied)
		return Verdict{}
	}

	if ev.Kind().ReplacesProcess() {
		c.flush()
	}
	return Verdict{Allowed: true}
}

func (c *Coordinator) allowed(ctx context.Context, name string, ev entities.Event) {
	switch e := ev.(type) {
	case entities.DNSLookup:
		if e.Kind() != entities.KindGetHostByAddr && e.Host != "" && c.config.resolver != nil {
			if _, err := c.engine.Addresses().Learn(ctx, c.config.resolver, e.Host); err != nil {
				c.config.logger.Debug("could not resolve allowed host", "host", e.Host, "error", err)
			}
		}
	case entities.SocketCreate:
		c.info(name, ev, false)
	case entities.EnvRead:
		c.info(name, ev, c.config.risk.IsSensitiveEnv(e.Key))
	}
	if ev.Kind().ReplacesProcess() {
		c.flush()
	}
}

func (c *Coordinator) info(name string, ev entities.Event, sensitive bool) {
	if !c.engine.Config().LogInfoEvents {
		return
	}
	if sensitive {
		c.config.logger.Warn("sensitive event", "event", name, "detail", entities.Describe(ev))
		return
	}
	c.config.logger.Info("event", "event", name, "detail", entities.Describe(ev))
}

// Reload swaps the policy used for later events.
func (c *Coordinator) Reload(cfg *entities.PermissionConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.engine.Reload(cfg)
}

// Close saves pending approvals. It is called on normal exit.
func (c *Coordinator) Close() error {
	if c.config.recorder == nil {
		return nil
	}
	return c.config.recorder.Flush()
}

func (c *Coordinator) flush() {
	if c.config.recorder == nil {
		return
	}
	// Failures are logged by the recorder and retried on the next flush.
	_ = c.config.recorder.Flush()
}

// inSession and remember are called with mu held.
func (c *Coordinator) inSession(key string) bool {
	_, ok := c.session[key]
	return ok
}

func (c *Coordinator) remember(key string) {
	c.session[key] = struct{}{}
}

func (c *Coordinator) line(attr color.Attribute, msg string) {
	_, _ = color.New(attr).Fprintf(c.config.out, "[hookguard] %s\n", msg)
}
