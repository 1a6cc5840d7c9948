package reviewer

import (
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/reglet-dev/hookguard/domain/entities"
	"github.com/reglet-dev/hookguard/domain/policy"
)

const (
	maxCommandDisplay = 80
	maxValueDisplay   = 50
)

// Format renders ev as a short human-readable action.
func Format(ev entities.Event) string {
	switch e := ev.(type) {
	case entities.FileOpen:
		if e.Descriptor {
			return "Open file descriptor"
		}
		if !e.IsWrite() {
			return "Read file: " + e.Path
		}
		if _, err := os.Lstat(e.Path); err != nil {
			return "Create file: " + e.Path
		}
		return "Modify file: " + e.Path
	case entities.FileDelete:
		return "Delete: " + e.Path
	case entities.EnvWrite:
		if e.Op == entities.KindUnsetenv {
			return "Unset env var: " + e.Key
		}
		return "Set env var: " + e.Key + "=" + truncate(e.Value, maxValueDisplay)
	case entities.EnvRead:
		return "Read env var: " + entities.Describe(e)
	case entities.ShellCommand:
		return "Run command: " + truncate(policy.NormalizeCommand(e.Command), maxCommandDisplay)
	case entities.ProcessSpawn:
		return "Run command: " + truncate(e.CommandLine(), maxCommandDisplay)
	case entities.LibraryLoad:
		return "Load library: " + entities.Describe(e)
	case entities.DNSLookup:
		return "DNS lookup: " + entities.Describe(e)
	case entities.SocketConnect:
		return "Connect: " + e.Address()
	case entities.HTTPRequest:
		return "HTTP request: " + entities.Describe(e)
	case entities.Malformed:
		return "Malformed " + e.Op.String() + " event: " + e.Reason
	}
	return entities.EventName(ev) + ": " + entities.Describe(ev)
}

// Colorize paints s by criticality: high red, medium magenta, low yellow.
func Colorize(level entities.RiskLevel, s string) string {
	return levelColor(level).Sprint(s)
}

func levelColor(level entities.RiskLevel) *color.Color {
	switch level {
	case entities.RiskLevelHigh:
		return color.New(color.FgRed)
	case entities.RiskLevelMedium:
		return color.New(color.FgMagenta)
	default:
		return color.New(color.FgYellow)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n-3]) + "..."
}
