package policy

import (
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/reglet-dev/hookguard/domain/entities"
	"github.com/reglet-dev/hookguard/domain/pathvars"
	"github.com/reglet-dev/hookguard/domain/ports"
)

// Ensure Engine satisfies the Policy port.
var _ ports.Policy = (*Engine)(nil)

// engineConfig holds configuration for the Engine.
type engineConfig struct {
	cwd             string              // Working directory for relative path resolution
	resolveSymlinks bool                // Whether to resolve symlinks (security feature)
	denialHandler   ports.DenialHandler // Handler invoked on policy denials
	logger          *slog.Logger
	vars            *pathvars.Table
	addresses       *AddressBook
	lookPath        func(string) (string, error)
}

func defaultEngineConfig() engineConfig {
	cwd, _ := os.Getwd()
	return engineConfig{
		cwd:             cwd,
		resolveSymlinks: true, // Secure default
		logger:          slog.Default(),
		lookPath:        exec.LookPath,
	}
}

// EngineOption configures the Engine.
type EngineOption func(*engineConfig)

// WithWorkingDirectory sets the working directory for relative path
// resolution and for $PWD. Defaults to the process working directory.
func WithWorkingDirectory(cwd string) EngineOption {
	return func(c *engineConfig) {
		c.cwd = cwd
	}
}

// WithSymlinkResolution enables/disables symlink resolution.
// Default is true (secure). Disable only for testing.
func WithSymlinkResolution(enabled bool) EngineOption {
	return func(c *engineConfig) {
		c.resolveSymlinks = enabled
	}
}

// WithDenialHandler sets the denial handler.
func WithDenialHandler(h ports.DenialHandler) EngineOption {
	return func(c *engineConfig) {
		c.denialHandler = h
	}
}

// WithLogger sets the logger used for rule compilation warnings and hash
// verification failures.
func WithLogger(l *slog.Logger) EngineOption {
	return func(c *engineConfig) {
		c.logger = l
	}
}

// WithPathVars sets the placeholder table used to expand entries.
// By default a table rooted at the working directory is built.
func WithPathVars(t *pathvars.Table) EngineOption {
	return func(c *engineConfig) {
		c.vars = t
	}
}

// WithAddressBook sets the cache of resolved addresses consulted for
// connects to literal IPs and for reverse lookups.
func WithAddressBook(b *AddressBook) EngineOption {
	return func(c *engineConfig) {
		c.addresses = b
	}
}

// WithLookPath sets the function used to find bare executable names.
func WithLookPath(fn func(string) (string, error)) EngineOption {
	return func(c *engineConfig) {
		c.lookPath = fn
	}
}

// Engine evaluates events against a PermissionConfig. Apart from path
// resolution and hash verification it performs no I/O.
type Engine struct {
	config engineConfig

	mu    sync.RWMutex
	doc   *entities.PermissionConfig
	rules *compiledRules
}

// NewEngine creates an Engine for cfg. A nil cfg uses the defaults.
func NewEngine(cfg *entities.PermissionConfig, opts ...EngineOption) *Engine {
	c := defaultEngineConfig()
	for _, opt := range opts {
		opt(&c)
	}
	if c.cwd != "" {
		c.cwd = filepath.Clean(c.cwd)
	}
	if c.vars == nil {
		c.vars = pathvars.New(pathvars.WithWorkingDirectory(c.cwd))
	}
	if c.denialHandler == nil {
		c.denialHandler = NewLogDenialHandler(c.logger)
	}
	if c.addresses == nil {
		c.addresses = NewAddressBook()
	}

	e := &Engine{config: c}
	e.Reload(cfg)
	return e
}

// Reload swaps the policy document used for later checks.
func (e *Engine) Reload(cfg *entities.PermissionConfig) {
	if cfg == nil {
		cfg = entities.DefaultConfig()
	}
	rules := e.compile(cfg)

	e.mu.Lock()
	e.doc = cfg
	e.rules = rules
	e.mu.Unlock()
}

// Config returns the policy document currently in force.
func (e *Engine) Config() *entities.PermissionConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.doc
}

// Addresses returns the resolved-address book the engine consults.
func (e *Engine) Addresses() *AddressBook {
	return e.config.addresses
}

// WorkingDirectory returns the directory relative paths resolve against.
func (e *Engine) WorkingDirectory() string {
	return e.config.cwd
}

// CheckPermission decodes a raw (event, args) tuple and checks it.
func (e *Engine) CheckPermission(event string, args []any) bool {
	return e.Check(entities.DecodeEvent(event, args))
}

// Check reports whether ev is allowed. Unmodeled events are allowed; every
// modeled family defaults to deny.
func (e *Engine) Check(ev entities.Event) bool {
	e.mu.RLock()
	r := e.rules
	e.mu.RUnlock()

	switch ev := ev.(type) {
	case entities.FileOpen:
		return e.checkOpen(r, ev)
	case entities.FileDelete:
		return e.checkDelete(r, ev)
	case entities.EnvWrite:
		return e.checkEnvWrite(r, ev)
	case entities.EnvRead:
		return e.checkEnvRead(r, ev)
	case entities.ShellCommand:
		return e.checkShell(r, ev)
	case entities.ProcessSpawn:
		return e.checkSpawn(r, ev)
	case entities.LibraryLoad:
		return e.checkLibrary(r, ev)
	case entities.DNSLookup:
		return e.checkLookup(r, ev)
	case entities.SocketConnect:
		return e.checkConnect(r, ev)
	case entities.HTTPRequest:
		return e.checkHTTP(r, ev)
	case entities.SocketCreate, entities.Unmodeled:
		return true
	case entities.Malformed:
		return e.deny(KindMalformed, ev, ev.Reason)
	}
	return true
}

// Denial kinds passed to the DenialHandler.
const (
	KindFS        = "fs"
	KindEnv       = "env"
	KindExec      = "exec"
	KindNetwork   = "network"
	KindHTTP      = "http"
	KindMalformed = "malformed"
)

func (e *Engine) deny(kind string, ev entities.Event, reason string) bool {
	e.config.denialHandler.OnDenial(kind, ev, reason)
	return false
}
