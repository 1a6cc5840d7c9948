package entities

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// RiskLevel represents how critical an intercepted action is. It drives the
// colour of prompts and diagnostics.
type RiskLevel int

const (
	RiskLevelLow    RiskLevel = iota // Reads and informational events
	RiskLevelMedium                  // File writes, env writes
	RiskLevelHigh                    // Network, process execution, secrets
)

// String returns the human-readable name of the risk level.
func (r RiskLevel) String() string {
	switch r {
	case RiskLevelLow:
		return "Low"
	case RiskLevelMedium:
		return "Medium"
	case RiskLevelHigh:
		return "High"
	default:
		return "Unknown"
	}
}

// Security domain knowledge.
var (
	// SensitivePaths hold credentials or system secrets. "~" is the home directory.
	SensitivePaths = []string{
		"~/.ssh/**",
		"~/.aws/**",
		"~/.azure/**",
		"~/.config/gcloud/**",
		"~/.kube/**",
		"~/.docker/config.json",
		"~/.gnupg/**",
		"~/.netrc",
		"~/.pypirc",
		"~/.npmrc",
		"~/.git-credentials",
		"/etc/shadow",
		"/etc/sudoers",
		"/etc/sudoers.d/**",
	}

	// SensitiveEnvPatterns name variables that usually carry secrets.
	SensitiveEnvPatterns = []string{
		"*TOKEN*", "*SECRET*", "*PASSWORD*", "*PASSWD*", "*API_KEY*", "*PRIVATE_KEY*",
		"AWS_*", "AZURE_*", "GCP_*", "GOOGLE_APPLICATION_CREDENTIALS",
	}

	// linkerEnvPrefixes are library injection vectors when written.
	linkerEnvPrefixes = []string{"LD_", "DYLD_"}

	// shellEnvExact alter how shells parse or start.
	shellEnvExact = []string{"IFS", "LOCPATH", "BASH_ENV", "ENV", "PS4"}
)

// riskAssessorConfig holds configuration for the RiskAssessor.
type riskAssessorConfig struct {
	home        string
	paths       []string
	envPatterns []string
}

func defaultRiskAssessorConfig() riskAssessorConfig {
	return riskAssessorConfig{
		paths:       slices.Clone(SensitivePaths),
		envPatterns: slices.Clone(SensitiveEnvPatterns),
	}
}

// RiskAssessorOption configures a RiskAssessor instance.
type RiskAssessorOption func(*riskAssessorConfig)

// WithHomeDir sets the directory "~" expands to.
func WithHomeDir(home string) RiskAssessorOption {
	return func(c *riskAssessorConfig) {
		c.home = home
	}
}

// WithSensitivePaths adds path globs considered sensitive.
func WithSensitivePaths(patterns ...string) RiskAssessorOption {
	return func(c *riskAssessorConfig) {
		c.paths = append(c.paths, patterns...)
	}
}

// WithSensitiveEnv adds variable name globs considered sensitive.
func WithSensitiveEnv(patterns ...string) RiskAssessorOption {
	return func(c *riskAssessorConfig) {
		c.envPatterns = append(c.envPatterns, patterns...)
	}
}

// RiskAssessor rates intercepted events.
type RiskAssessor struct {
	config riskAssessorConfig
	paths  []string
}

// NewRiskAssessor creates a new RiskAssessor with the given options.
func NewRiskAssessor(opts ...RiskAssessorOption) *RiskAssessor {
	cfg := defaultRiskAssessorConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	r := &RiskAssessor{config: cfg}
	for _, p := range cfg.paths {
		if strings.HasPrefix(p, "~/") {
			if cfg.home == "" {
				continue
			}
			p = filepath.Join(cfg.home, p[2:])
		}
		r.paths = append(r.paths, filepath.ToSlash(p))
	}
	return r
}

// AssessEvent returns the criticality of ev.
func (r *RiskAssessor) AssessEvent(ev Event) RiskLevel {
	switch e := ev.(type) {
	case FileOpen:
		if e.Descriptor {
			return RiskLevelLow
		}
		if r.IsSensitivePath(e.Path) {
			return RiskLevelHigh
		}
		if e.IsWrite() {
			return RiskLevelMedium
		}
		return RiskLevelLow
	case FileDelete:
		if r.IsSensitivePath(e.Path) {
			return RiskLevelHigh
		}
		return RiskLevelMedium
	case EnvRead:
		if r.IsSensitiveEnv(e.Key) {
			return RiskLevelHigh
		}
		return RiskLevelLow
	case EnvWrite:
		if IsInjectionEnv(e.Key) {
			return RiskLevelHigh
		}
		return RiskLevelMedium
	case ProcessSpawn, ShellCommand, LibraryLoad, DNSLookup, SocketConnect, SocketCreate, HTTPRequest, Malformed:
		return RiskLevelHigh
	}
	return RiskLevelLow
}

// IsSensitivePath reports whether p is a known credential or secret location.
func (r *RiskAssessor) IsSensitivePath(p string) bool {
	if p == "" {
		return false
	}
	p = filepath.ToSlash(filepath.Clean(p))
	for _, pattern := range r.paths {
		if ok, _ := doublestar.Match(pattern, p); ok {
			return true
		}
		// A directory pattern also covers the directory itself.
		if strings.HasSuffix(pattern, "/**") && p == strings.TrimSuffix(pattern, "/**") {
			return true
		}
	}
	return false
}

// IsSensitiveEnv reports whether a variable name looks like it holds a secret.
func (r *RiskAssessor) IsSensitiveEnv(name string) bool {
	if name == "" {
		return false
	}
	upper := strings.ToUpper(name)
	for _, pattern := range r.config.envPatterns {
		if ok, _ := doublestar.Match(pattern, upper); ok {
			return true
		}
	}
	return false
}

// IsInjectionEnv reports whether writing the variable can inject code into
// child processes (dynamic linker or shell startup variables).
func IsInjectionEnv(name string) bool {
	upper := strings.ToUpper(name)
	for _, prefix := range linkerEnvPrefixes {
		if strings.HasPrefix(upper, prefix) {
			return true
		}
	}
	return slices.Contains(shellEnvExact, upper)
}
