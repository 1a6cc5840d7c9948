package entities

import (
	"fmt"
	"strconv"
)

// Describe renders the subject of ev on one line, without the event name.
func Describe(ev Event) string {
	switch e := ev.(type) {
	case FileOpen:
		if e.Descriptor {
			return "(descriptor)"
		}
		return fmt.Sprintf("%s (%s)", e.Path, e.Mode)
	case FileDelete:
		return e.Path
	case EnvWrite:
		if e.Op == KindUnsetenv {
			return e.Key
		}
		return e.Key + "=" + e.Value
	case EnvRead:
		if e.Key == "" {
			return "(unknown variable)"
		}
		return e.Key
	case ProcessSpawn:
		return e.CommandLine()
	case ShellCommand:
		return e.Command
	case LibraryLoad:
		if e.Path == "" {
			return "(self)"
		}
		return e.Path
	case DNSLookup:
		if e.Port > 0 {
			return e.Host + ":" + strconv.Itoa(e.Port)
		}
		return e.Host
	case SocketConnect:
		return e.Address()
	case SocketCreate:
		return fmt.Sprintf("family=%d type=%d", e.Family, e.Type)
	case HTTPRequest:
		return e.Method + " " + e.URL
	case Malformed:
		return e.Reason
	case Unmodeled:
		return fmt.Sprint(e.Args...)
	}
	return ""
}
