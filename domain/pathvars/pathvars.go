// Package pathvars expands and contracts the portable path placeholders used
// in policy documents ($PWD, $HOME, $ENV{NAME}, ...).
//
// Substitution is purely textual. Nothing is passed to a shell.
package pathvars

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
)

// Placeholder names.
const (
	PWD                = "$PWD"
	Home               = "$HOME"
	TmpDir             = "$TMPDIR"
	GoRoot             = "$GOROOT"
	GoPath             = "$GOPATH"
	PythonPrefix       = "$PYTHON_PREFIX"
	PythonStdlib       = "$PYTHON_STDLIB"
	PythonSitePackages = "$PYTHON_SITE_PACKAGES"
	PythonPlatlib      = "$PYTHON_PLATLIB"
)

const (
	envOpen  = "$ENV{"
	envClose = "}"
)

// Var pairs a placeholder with the absolute root it stands for.
type Var struct {
	Placeholder string
	Root        string
}

// tableConfig holds the roots used to build a Table.
type tableConfig struct {
	roots     map[string]string
	extra     []Var
	lookupEnv func(string) (string, bool)
}

func defaultTableConfig() tableConfig {
	roots := map[string]string{
		TmpDir: os.TempDir(),
	}
	if wd, err := os.Getwd(); err == nil {
		roots[PWD] = wd
	}
	if home, err := os.UserHomeDir(); err == nil {
		roots[Home] = home
	}
	if goroot := os.Getenv("GOROOT"); goroot != "" {
		roots[GoRoot] = goroot
	} else {
		roots[GoRoot] = runtime.GOROOT() //nolint:staticcheck // GOROOT env is checked first
	}
	if gopath := os.Getenv("GOPATH"); gopath != "" {
		roots[GoPath] = gopath
	} else if home := roots[Home]; home != "" {
		roots[GoPath] = filepath.Join(home, "go")
	}
	return tableConfig{roots: roots, lookupEnv: os.LookupEnv}
}

// Option configures a Table.
type Option func(*tableConfig)

// WithWorkingDirectory sets the root of $PWD.
func WithWorkingDirectory(dir string) Option {
	return func(c *tableConfig) { c.roots[PWD] = dir }
}

// WithHomeDir sets the root of $HOME.
func WithHomeDir(dir string) Option {
	return func(c *tableConfig) { c.roots[Home] = dir }
}

// WithTempDir sets the root of $TMPDIR.
func WithTempDir(dir string) Option {
	return func(c *tableConfig) { c.roots[TmpDir] = dir }
}

// WithGoRoots sets $GOROOT and $GOPATH. Empty values leave the default.
func WithGoRoots(goroot, gopath string) Option {
	return func(c *tableConfig) {
		if goroot != "" {
			c.roots[GoRoot] = goroot
		}
		if gopath != "" {
			c.roots[GoPath] = gopath
		}
	}
}

// WithPythonRoots sets the interpreter installation roots. Empty values are
// left unset and entries using them never match.
func WithPythonRoots(prefix, stdlib, sitePackages, platlib string) Option {
	return func(c *tableConfig) {
		c.roots[PythonPrefix] = prefix
		c.roots[PythonStdlib] = stdlib
		c.roots[PythonSitePackages] = sitePackages
		c.roots[PythonPlatlib] = platlib
	}
}

// WithVar adds a custom placeholder. It must start with "$".
func WithVar(placeholder, root string) Option {
	return func(c *tableConfig) {
		c.extra = append(c.extra, Var{Placeholder: placeholder, Root: root})
	}
}

// WithLookupEnv replaces the lookup used for $ENV{NAME}.
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(c *tableConfig) { c.lookupEnv = fn }
}

// Table is an ordered set of placeholders, most specific root first.
type Table struct {
	vars      []Var
	lookupEnv func(string) (string, bool)
}

// New builds a Table from the process environment and opts.
func New(opts ...Option) *Table {
	cfg := defaultTableConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	order := []string{PWD, Home, TmpDir, GoRoot, GoPath, PythonPrefix, PythonStdlib, PythonSitePackages, PythonPlatlib}
	vars := make([]Var, 0, len(order)+len(cfg.extra))
	for _, name := range order {
		vars = append(vars, Var{Placeholder: name, Root: cleanRoot(cfg.roots[name])})
	}
	for _, v := range cfg.extra {
		if strings.HasPrefix(v.Placeholder, "$") {
			vars = append(vars, Var{Placeholder: v.Placeholder, Root: cleanRoot(v.Root)})
		}
	}

	// Longest root first; ties keep declaration order.
	sort.SliceStable(vars, func(i, j int) bool {
		return len(vars[i].Root) > len(vars[j].Root)
	})

	return &Table{vars: vars, lookupEnv: cfg.lookupEnv}
}

func cleanRoot(root string) string {
	if root == "" {
		return ""
	}
	return filepath.Clean(root)
}

// Vars returns the table rows, most specific root first.
func (t *Table) Vars() []Var {
	return append([]Var(nil), t.vars...)
}

// Root returns the root bound to placeholder, or "" when unset.
func (t *Table) Root(placeholder string) string {
	for _, v := range t.vars {
		if v.Placeholder == placeholder {
			return v.Root
		}
	}
	return ""
}

// Expand replaces every $ENV{NAME} with the variable's value (empty when
// unset) and a leading placeholder with its root. A placeholder is only
// recognised as a whole path component. Placeholders without a root are left
// in place, so the result still starts with "$".
func (t *Table) Expand(s string) string {
	s = t.expandEnv(s)
	if !strings.HasPrefix(s, "$") {
		return s
	}

	var best *Var
	for i := range t.vars {
		v := &t.vars[i]
		if !hasComponentPrefix(s, v.Placeholder) {
			continue
		}
		if best == nil || len(v.Placeholder) > len(best.Placeholder) {
			best = v
		}
	}
	if best == nil || best.Root == "" {
		return s
	}
	return best.Root + s[len(best.Placeholder):]
}

func (t *Table) expandEnv(s string) string {
	for {
		start := strings.Index(s, envOpen)
		if start < 0 {
			return s
		}
		end := strings.Index(s[start+len(envOpen):], envClose)
		if end < 0 {
			return s
		}
		name := s[start+len(envOpen) : start+len(envOpen)+end]
		value, _ := t.lookupEnv(name)
		s = s[:start] + value + s[start+len(envOpen)+end+len(envClose):]
	}
}

// Contract rewrites an absolute path to use the most specific placeholder
// whose root contains it. Paths outside every root are returned unchanged.
func (t *Table) Contract(path string) string {
	if !filepath.IsAbs(path) {
		return path
	}
	path = filepath.Clean(path)
	for _, v := range t.vars {
		if v.Root == "" || v.Root == string(filepath.Separator) {
			continue
		}
		if hasComponentPrefix(path, v.Root) {
			return v.Placeholder + path[len(v.Root):]
		}
	}
	return path
}

// hasComponentPrefix reports whether prefix is s or a leading run of whole
// path components of s.
func hasComponentPrefix(s, prefix string) bool {
	if !strings.HasPrefix(s, prefix) {
		return false
	}
	rest := s[len(prefix):]
	return rest == "" || rest[0] == '/' || rest[0] == filepath.Separator
}
