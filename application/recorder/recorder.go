// Package recorder buffers approvals made during a run and merges them into
// the policy document.
package recorder

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/reglet-dev/hookguard/domain/entities"
	domainerrors "github.com/reglet-dev/hookguard/domain/errors"
	"github.com/reglet-dev/hookguard/domain/pathvars"
	"github.com/reglet-dev/hookguard/domain/ports"
)

type recorderConfig struct {
	logger   *slog.Logger
	vars     *pathvars.Table
	defaults func() *entities.PermissionConfig
}

func defaultRecorderConfig() recorderConfig {
	return recorderConfig{
		logger:   slog.Default(),
		defaults: func() *entities.PermissionConfig { return entities.DefaultConfig() },
	}
}

// RecorderOption configures a Recorder.
type RecorderOption func(*recorderConfig)

// WithLogger sets the logger for persistence warnings and diffs.
func WithLogger(l *slog.Logger) RecorderOption {
	return func(c *recorderConfig) {
		c.logger = l
	}
}

// WithPathVars sets the placeholder table used to contract saved paths.
func WithPathVars(t *pathvars.Table) RecorderOption {
	return func(c *recorderConfig) {
		c.vars = t
	}
}

// WithDefaults sets the document used when the stored one cannot be read.
func WithDefaults(fn func() *entities.PermissionConfig) RecorderOption {
	return func(c *recorderConfig) {
		c.defaults = fn
	}
}

// Recorder collects approved decisions and writes them back on Flush.
type Recorder struct {
	store  ports.ConfigStore
	config recorderConfig

	mu      sync.Mutex
	pending []entities.Decision
}

// New creates a Recorder persisting into store.
func New(store ports.ConfigStore, opts ...RecorderOption) *Recorder {
	cfg := defaultRecorderConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.vars == nil {
		cfg.vars = pathvars.New()
	}
	return &Recorder{store: store, config: cfg}
}

// Record buffers d. Rejections and decisions without a category are dropped.
func (r *Recorder) Record(d entities.Decision) {
	if !d.Allowed || d.Details.Category == "" || d.Details.Value == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, d)
}

// Pending returns a copy of the unsaved decisions.
func (r *Recorder) Pending() []entities.Decision {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entities.Decision(nil), r.pending...)
}

// Flush merges pending decisions into the stored document. Entries already
// present are not duplicated. On failure the decisions stay pending and a
// *PersistError is returned; callers are expected to carry on.
func (r *Recorder) Flush() error {
	batch := r.Pending()
	if len(batch) == 0 {
		return nil
	}

	cfg, err := r.store.Load()
	if err != nil || cfg == nil {
		r.config.logger.Warn("could not read config before saving, starting from defaults",
			"path", r.store.ConfigPath(), "error", err)
		cfg = r.config.defaults()
	}
	before := snapshot(cfg)

	changed := false
	for _, d := range batch {
		if r.apply(cfg, d.Details) {
			changed = true
		}
	}

	if changed {
		if err := r.store.Save(cfg); err != nil {
			r.config.logger.Warn("could not save approvals", "path", r.store.ConfigPath(), "error", err)
			return &domainerrors.PersistError{Err: err, Pending: len(batch)}
		}
		r.logDiff(before, snapshot(cfg))
	}

	r.mu.Lock()
	// Decisions recorded while saving stay queued.
	r.pending = r.pending[min(len(batch), len(r.pending)):]
	r.mu.Unlock()
	return nil
}

func (r *Recorder) apply(cfg *entities.PermissionConfig, d entities.DecisionDetails) bool {
	switch d.Category {
	case entities.CategoryRead, entities.CategoryCreate, entities.CategoryModify,
		entities.CategoryDelete, entities.CategoryExecutables:
		return cfg.AddEntry(d.Category, entities.E(r.config.vars.Contract(d.Value)))
	case entities.CategoryHTTPURLs:
		// A first URL rule would narrow HTTP to that URL, so approve the host.
		if len(cfg.AllowHTTPURLs) == 0 && d.Domain != "" {
			return cfg.AddValue(entities.CategoryDomains, d.Domain)
		}
		return cfg.AddValue(d.Category, d.Value)
	default:
		return cfg.AddValue(d.Category, d.Value)
	}
}

func (r *Recorder) logDiff(before, after string) {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: r.store.ConfigPath(),
		ToFile:   r.store.ConfigPath(),
		Context:  1,
	})
	if err != nil {
		return
	}
	r.config.logger.Debug("saved approvals", "path", r.store.ConfigPath(), "diff", diff)
}

func snapshot(cfg *entities.PermissionConfig) string {
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return ""
	}
	return string(b) + "\n"
}
