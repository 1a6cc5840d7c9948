package policy

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gobwas/glob"
	"github.com/reglet-dev/hookguard/domain/entities"
	"mvdan.cc/sh/v3/syntax"
)

// NormalizeCommand reformats a shell command line so that patterns and
// commands compare independently of incidental whitespace. Statements are
// joined with "; ". Input the shell parser rejects has its whitespace
// collapsed instead.
func NormalizeCommand(cmd string) string {
	cmd = strings.TrimSpace(cmd)
	if cmd == "" {
		return ""
	}

	file, err := syntax.NewParser().Parse(strings.NewReader(cmd), "")
	if err != nil || len(file.Stmts) == 0 {
		return collapseSpace(cmd)
	}

	printer := syntax.NewPrinter()
	parts := make([]string, 0, len(file.Stmts))
	for _, stmt := range file.Stmts {
		var b strings.Builder
		if err := printer.Print(&b, stmt); err != nil {
			return collapseSpace(cmd)
		}
		parts = append(parts, strings.TrimSpace(b.String()))
	}
	return strings.Join(parts, "; ")
}

// CommandPattern returns an allow_system_commands entry matching exactly the
// command line cmd: the normalized line with glob metacharacters escaped.
func CommandPattern(cmd string) string {
	return glob.QuoteMeta(NormalizeCommand(cmd))
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// matchCommand returns the first command pattern that matches line.
func matchCommand(rules []commandRule, line string) (string, bool) {
	for _, rule := range rules {
		for _, g := range rule.globs {
			if g.Match(line) {
				return rule.source, true
			}
		}
	}
	return "", false
}

func (e *Engine) checkShell(r *compiledRules, ev entities.ShellCommand) bool {
	if _, ok := matchCommand(r.commands, NormalizeCommand(ev.Command)); ok {
		return true
	}
	return e.deny(KindExec, ev, "command not allowed")
}

// checkSpawn allows a direct spawn when its command line matches a command
// pattern, or when its executable is an allowed executable. The command line
// is normalized like a shell command and tried as given and with the
// executable reduced to its base name.
func (e *Engine) checkSpawn(r *compiledRules, ev entities.ProcessSpawn) bool {
	line := NormalizeCommand(ev.CommandLine())
	if _, ok := matchCommand(r.commands, line); ok {
		return true
	}
	if base := filepath.Base(ev.Executable); base != ev.Executable && ev.Executable != "" {
		short := entities.ProcessSpawn{Executable: base, Argv: ev.Argv}
		if _, ok := matchCommand(r.commands, NormalizeCommand(short.CommandLine())); ok {
			return true
		}
	}
	if e.matchExecutable(r, ev.Executable, true) {
		return true
	}
	return e.deny(KindExec, ev, "executable not allowed: "+ev.Executable)
}

func (e *Engine) checkLibrary(r *compiledRules, ev entities.LibraryLoad) bool {
	if ev.Path == "" {
		return true
	}
	if e.matchExecutable(r, ev.Path, false) {
		return true
	}
	return e.deny(KindExec, ev, "library not allowed: "+ev.Path)
}

// matchExecutable checks allow_executables. Bare program names are looked up
// on PATH when search is set. Globs are tried against both the path as
// given and its symlink-resolved form.
func (e *Engine) matchExecutable(r *compiledRules, exe string, search bool) bool {
	if r.anyExec {
		return true
	}
	if exe == "" {
		return false
	}

	path := exe
	if search && !strings.ContainsRune(exe, filepath.Separator) {
		found, err := e.config.lookPath(exe)
		if err != nil {
			return false
		}
		path = found
	}

	abs := e.absolute(path)
	resolved := e.resolve(path)
	if e.matchPath(r.executables, resolved) {
		return true
	}
	if abs == resolved {
		return false
	}
	for _, rule := range r.executables {
		if !rule.glob {
			if rule.path == abs && !rule.pinned {
				return true
			}
			continue
		}
		if matched, _ := doublestar.Match(rule.path, abs); matched {
			if rule.pinned {
				return e.verifyHash(resolved, rule)
			}
			return true
		}
	}
	return false
}
