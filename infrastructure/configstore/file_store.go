// Package configstore loads and persists the policy document.
package configstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/reglet-dev/hookguard/domain/entities"
	domainerrors "github.com/reglet-dev/hookguard/domain/errors"
	"github.com/reglet-dev/hookguard/domain/ports"
)

// DefaultFileName is the policy document looked up in the working directory.
const DefaultFileName = ".hookguard"

// Ensure FileStore satisfies the ConfigStore port.
var _ ports.ConfigStore = (*FileStore)(nil)

// fileStoreConfig holds configuration for the FileStore.
type fileStoreConfig struct {
	path     string      // Path to the policy document
	dirPerm  os.FileMode // Permission for created directories
	filePerm os.FileMode // Permission for the policy document
	logger   *slog.Logger
	defaults func() *entities.PermissionConfig
}

func defaultFileStoreConfig() fileStoreConfig {
	return fileStoreConfig{
		path:     DefaultFileName,
		dirPerm:  0o755,
		filePerm: 0o600, // User-only read/write (secure default)
		logger:   slog.Default(),
		defaults: func() *entities.PermissionConfig { return entities.DefaultConfig() },
	}
}

// FileStoreOption configures a FileStore instance.
type FileStoreOption func(*fileStoreConfig)

// WithPath sets the path to the policy document.
func WithPath(path string) FileStoreOption {
	return func(c *fileStoreConfig) {
		c.path = path
	}
}

// WithFilePermissions sets the file permissions for the policy document.
// Default is 0o600 (user-only). Use with caution.
func WithFilePermissions(perm os.FileMode) FileStoreOption {
	return func(c *fileStoreConfig) {
		c.filePerm = perm
	}
}

// WithDirPermissions sets the permissions for directories created on save.
// Default is 0o755.
func WithDirPermissions(perm os.FileMode) FileStoreOption {
	return func(c *fileStoreConfig) {
		c.dirPerm = perm
	}
}

// WithLogger sets the logger used for load warnings.
func WithLogger(l *slog.Logger) FileStoreOption {
	return func(c *fileStoreConfig) {
		c.logger = l
	}
}

// WithDefaults replaces the compiled-in policy used to back-fill documents.
func WithDefaults(fn func() *entities.PermissionConfig) FileStoreOption {
	return func(c *fileStoreConfig) {
		c.defaults = fn
	}
}

// FileStore provides file-based persistence for the policy document.
type FileStore struct {
	config fileStoreConfig
	format Format
}

// NewFileStore creates a new FileStore with the given options.
func NewFileStore(opts ...FileStoreOption) *FileStore {
	cfg := defaultFileStoreConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if abs, err := filepath.Abs(cfg.path); err == nil {
		cfg.path = abs
	}
	return &FileStore{config: cfg, format: FormatFor(cfg.path)}
}

// ConfigPath returns the path to the backing document.
func (s *FileStore) ConfigPath() string {
	return s.config.path
}

// Format returns the encoding used for the document.
func (s *FileStore) Format() Format {
	return s.format
}

// Defaults returns a fresh copy of the compiled-in policy.
func (s *FileStore) Defaults() *entities.PermissionConfig {
	return s.config.defaults()
}

// Load returns the policy document merged over the defaults. A missing
// document yields the defaults. A document that cannot be parsed is reported
// as a warning and also yields the defaults. Only read failures other than
// absence are returned as errors.
func (s *FileStore) Load() (*entities.PermissionConfig, error) {
	cfg, err := s.Read()
	if err == nil {
		return cfg, nil
	}

	var cfgErr *domainerrors.ConfigError
	if errors.As(err, &cfgErr) && cfgErr.Op == "parse" {
		s.config.logger.Warn("could not load config, using defaults", "path", s.config.path, "error", cfgErr.Err)
		return s.Defaults(), nil
	}
	return nil, err
}

// Read is Load without the parse-failure fallback.
func (s *FileStore) Read() (*entities.PermissionConfig, error) {
	doc, err := s.ReadDocument()
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return s.Defaults(), nil
	}

	cfg, err := s.merge(doc)
	if err != nil {
		return nil, &domainerrors.ConfigError{Err: err, Path: s.config.path, Op: "parse"}
	}
	return cfg, nil
}

// ReadDocument returns the raw document as parsed, or nil when the file
// does not exist.
func (s *FileStore) ReadDocument() (map[string]any, error) {
	data, err := os.ReadFile(s.config.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &domainerrors.ConfigError{Err: err, Path: s.config.path, Op: "read"}
	}

	doc, err := DecodeDocument(data, s.format)
	if err != nil {
		return nil, &domainerrors.ConfigError{Err: err, Path: s.config.path, Op: "parse"}
	}
	return doc, nil
}

// merge overlays the document's keys on the defaults. Keys the document
// sets to null keep their default. Unknown keys land in Extra.
func (s *FileStore) merge(doc map[string]any) (*entities.PermissionConfig, error) {
	base, err := ToDocument(s.Defaults())
	if err != nil {
		return nil, err
	}

	known := entities.KnownKeys()
	extra := map[string]any{}
	for k, v := range doc {
		if !slices.Contains(known, k) {
			extra[k] = v
			continue
		}
		if v != nil {
			base[k] = v
		}
	}

	data, err := json.Marshal(base)
	if err != nil {
		return nil, fmt.Errorf("failed to encode merged config: %w", err)
	}
	var cfg entities.PermissionConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config value: %w", err)
	}
	if len(extra) > 0 {
		cfg.Extra = extra
	}
	return &cfg, nil
}

// Save writes cfg in the document's format, keeping unknown keys. The file
// is replaced atomically.
func (s *FileStore) Save(cfg *entities.PermissionConfig) error {
	doc, err := ToDocument(cfg)
	if err != nil {
		return err
	}
	for k, v := range cfg.Extra {
		if _, exists := doc[k]; !exists {
			doc[k] = v
		}
	}

	data, err := EncodeDocument(doc, s.format)
	if err != nil {
		return &domainerrors.ConfigError{Err: err, Path: s.config.path, Op: "write"}
	}
	if err := s.writeAtomic(data); err != nil {
		return &domainerrors.ConfigError{Err: err, Path: s.config.path, Op: "write"}
	}
	return nil
}

// Create writes the default policy. An existing document is only replaced
// when force is set.
func (s *FileStore) Create(force bool) error {
	if !force {
		if _, err := os.Stat(s.config.path); err == nil {
			return &domainerrors.ConfigError{Err: fs.ErrExist, Path: s.config.path, Op: "create"}
		}
	}
	return s.Save(s.Defaults())
}

func (s *FileStore) writeAtomic(data []byte) error {
	dir := filepath.Dir(s.config.path)
	if err := os.MkdirAll(dir, s.config.dirPerm); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.config.path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op once the rename succeeded.
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := tmp.Chmod(s.config.filePerm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to set config permissions: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close config: %w", err)
	}
	if err := os.Rename(tmpName, s.config.path); err != nil {
		return fmt.Errorf("failed to replace config: %w", err)
	}
	return nil
}

// ToDocument converts cfg to its generic document form.
func ToDocument(cfg *entities.PermissionConfig) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	doc := map[string]any{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return doc, nil
}
