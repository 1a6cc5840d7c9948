package policy

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gobwas/glob"
	"github.com/reglet-dev/hookguard/domain/entities"
)

// compiledRules is a PermissionConfig with placeholders expanded, paths
// resolved and globs compiled.
type compiledRules struct {
	read   []pathRule
	create []pathRule
	modify []pathRule
	delete []pathRule

	envReads     []nameRule
	envReadsOpen bool
	envWrites    []nameRule

	commands    []commandRule
	executables []pathRule
	anyExec     bool

	domains       []domainRule
	packageIndex  bool
	httpURLs      []string
	httpMethods   map[string]bool
	payloadHashes map[string]string
	payloadPinned map[string]bool
}

// pathRule is one resolved path entry.
type pathRule struct {
	source string // pattern as written in the document
	path   string // absolute, cleaned (and resolved unless glob)
	glob   bool
	pinned bool   // entry carried a hash of any scheme
	digest string // hex sha256, empty when the pin is unusable
}

// nameRule matches environment variable names.
type nameRule struct {
	source string
	g      glob.Glob
}

// commandRule matches normalized command lines. A pattern is compiled both
// normalized and as written, so a saved pattern matches the line it was made
// from even when normalizing its escapes would change it.
type commandRule struct {
	source string
	globs  []glob.Glob
}

func compileCommand(pattern string) (commandRule, error) {
	rule := commandRule{source: pattern}
	forms := []string{NormalizeCommand(pattern)}
	if raw := strings.TrimSpace(pattern); raw != forms[0] {
		forms = append(forms, raw)
	}
	for _, form := range forms {
		g, err := glob.Compile(form)
		if err != nil {
			return commandRule{}, err
		}
		rule.globs = append(rule.globs, g)
	}
	return rule, nil
}

// domainRule is a lowercased host with an optional port (0 = any).
type domainRule struct {
	host string
	port int
}

func (e *Engine) compile(cfg *entities.PermissionConfig) *compiledRules {
	r := &compiledRules{
		read:         e.compilePaths(entities.CategoryRead, cfg.AllowRead),
		create:       e.compilePaths(entities.CategoryCreate, cfg.AllowCreate),
		modify:       e.compilePaths(entities.CategoryModify, cfg.AllowModify),
		delete:       e.compilePaths(entities.CategoryDelete, cfg.AllowDelete),
		envReads:     e.compileNames(entities.CategoryEnvReads, cfg.AllowEnvVarReads),
		envReadsOpen: len(cfg.AllowEnvVarReads) == 0,
		envWrites:    e.compileNames(entities.CategoryEnvWrites, cfg.AllowEnvVarWrites),
		packageIndex: cfg.AllowPyPIRequests,
		httpMethods:  make(map[string]bool, len(cfg.AllowHTTPMethods)),
	}

	for _, pattern := range cfg.AllowSystemCommands {
		rule, err := compileCommand(pattern)
		if err != nil {
			e.config.logger.Warn("ignoring invalid command pattern", "pattern", pattern, "error", err)
			continue
		}
		r.commands = append(r.commands, rule)
	}

	for _, entry := range cfg.AllowExecutables {
		if strings.TrimSpace(entry.Pattern) == "*" && !entry.Pinned() {
			r.anyExec = true
		}
	}
	r.executables = e.compilePaths(entities.CategoryExecutables, cfg.AllowExecutables)

	for _, d := range cfg.AllowDomains {
		host, port, err := entities.SplitDomainEntry(d)
		if err != nil {
			e.config.logger.Warn("ignoring invalid domain entry", "entry", d, "error", err)
			continue
		}
		r.domains = append(r.domains, domainRule{host: host, port: port})
	}

	for _, u := range cfg.AllowHTTPURLs {
		pattern := stripScheme(strings.TrimSpace(u))
		if !doublestar.ValidatePattern(pattern) {
			e.config.logger.Warn("ignoring invalid url pattern", "pattern", u)
			continue
		}
		r.httpURLs = append(r.httpURLs, pattern)
	}
	for _, m := range cfg.AllowHTTPMethods {
		r.httpMethods[strings.ToUpper(strings.TrimSpace(m))] = true
	}

	if len(cfg.AllowHTTPPayloadHashes) > 0 {
		r.payloadHashes = make(map[string]string, len(cfg.AllowHTTPPayloadHashes))
		r.payloadPinned = make(map[string]bool, len(cfg.AllowHTTPPayloadHashes))
		for _, ph := range cfg.AllowHTTPPayloadHashes {
			key := stripScheme(ph.URL)
			r.payloadPinned[key] = true
			if digest, ok := ph.Digest(); ok {
				r.payloadHashes[key] = digest
			}
		}
	}

	return r
}

func (e *Engine) compilePaths(category string, entries []entities.Entry) []pathRule {
	rules := make([]pathRule, 0, len(entries))
	for _, entry := range entries {
		expanded := e.config.vars.Expand(strings.TrimSpace(entry.Pattern))
		if expanded == "" || strings.HasPrefix(expanded, "$") {
			e.config.logger.Debug("skipping unresolved entry", "category", category, "entry", entry.Pattern)
			continue
		}
		if category == entities.CategoryExecutables && expanded == "*" {
			// Handled by anyExec; a pinned "*" cannot be verified.
			continue
		}

		rule := pathRule{source: entry.Pattern, pinned: entry.Pinned()}
		if rule.pinned {
			rule.digest, _ = entry.Digest()
		}

		if isGlob(expanded) {
			if !doublestar.ValidatePattern(expanded) {
				e.config.logger.Warn("ignoring invalid path pattern", "category", category, "entry", entry.Pattern)
				continue
			}
			rule.glob = true
			rule.path = e.absolute(expanded)
		} else {
			rule.path = e.resolve(expanded)
		}
		rules = append(rules, rule)
	}
	return rules
}

func (e *Engine) compileNames(category string, names []string) []nameRule {
	rules := make([]nameRule, 0, len(names))
	for _, name := range names {
		g, err := glob.Compile(name)
		if err != nil {
			e.config.logger.Warn("ignoring invalid variable pattern", "category", category, "pattern", name, "error", err)
			continue
		}
		rules = append(rules, nameRule{source: name, g: g})
	}
	return rules
}

func isGlob(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}

// absolute makes p absolute against the working directory and cleans it.
func (e *Engine) absolute(p string) string {
	if !filepath.IsAbs(p) {
		p = filepath.Join(e.config.cwd, p)
	}
	return filepath.Clean(p)
}

// resolve returns the absolute, symlink-resolved form of p. Components that
// do not exist yet are appended to the deepest existing ancestor.
func (e *Engine) resolve(p string) string {
	p = e.absolute(p)
	if !e.config.resolveSymlinks {
		return p
	}
	rest := ""
	for cur := p; ; {
		if resolved, err := filepath.EvalSymlinks(cur); err == nil {
			return filepath.Join(resolved, rest)
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return p
		}
		rest = filepath.Join(filepath.Base(cur), rest)
		cur = parent
	}
}

func stripScheme(u string) string {
	if i := strings.Index(u, "://"); i >= 0 {
		return u[i+3:]
	}
	return u
}
