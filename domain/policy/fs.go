package policy

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/reglet-dev/hookguard/domain/entities"
)

func (e *Engine) checkOpen(r *compiledRules, ev entities.FileOpen) bool {
	if ev.Descriptor {
		return true
	}
	path := e.resolve(ev.Path)

	if !ev.IsWrite() {
		if e.matchPath(r.read, path) {
			return true
		}
		return e.deny(KindFS, ev, "read not allowed: "+path)
	}

	if _, err := os.Lstat(path); err != nil {
		if e.matchPath(r.create, path) {
			return true
		}
		return e.deny(KindFS, ev, "create not allowed: "+path)
	}
	if e.matchPath(r.modify, path) {
		return true
	}
	return e.deny(KindFS, ev, "modify not allowed: "+path)
}

func (e *Engine) checkDelete(r *compiledRules, ev entities.FileDelete) bool {
	path := e.resolve(ev.Path)
	if e.matchPath(r.delete, path) {
		return true
	}
	return e.deny(KindFS, ev, "delete not allowed: "+path)
}

// matchPath checks explicit entries first, then ancestor directories, then
// globs. A pinned entry that names path decides the result by its hash.
func (e *Engine) matchPath(rules []pathRule, path string) bool {
	for _, rule := range rules {
		if !rule.glob && rule.path == path {
			if rule.pinned {
				return e.verifyHash(path, rule)
			}
			return true
		}
	}
	for _, rule := range rules {
		if !rule.glob && !rule.pinned && within(path, rule.path) {
			return true
		}
	}
	for _, rule := range rules {
		if !rule.glob {
			continue
		}
		if matched, _ := doublestar.Match(rule.path, path); matched {
			if rule.pinned {
				return e.verifyHash(path, rule)
			}
			return true
		}
	}
	return false
}

// within reports whether path is dir or lies beneath it.
func within(path, dir string) bool {
	if path == dir {
		return true
	}
	if !strings.HasSuffix(dir, string(filepath.Separator)) {
		dir += string(filepath.Separator)
	}
	return strings.HasPrefix(path, dir)
}
