package reviewer

import (
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/reglet-dev/hookguard/domain/entities"
	"github.com/reglet-dev/hookguard/domain/policy"
)

// ExtractDetails returns the record saved when ev is approved permanently.
// Relative paths are resolved against cwd, the directory the policy was
// evaluated in. Command values are saved as patterns matching only the
// approved command line. Events that cannot be expressed as a policy entry
// get an empty Category.
func ExtractDetails(ev entities.Event, cwd string) entities.DecisionDetails {
	switch e := ev.(type) {
	case entities.FileOpen:
		if e.Descriptor || e.Path == "" {
			return entities.DecisionDetails{}
		}
		path := absPath(e.Path, cwd)
		d := entities.DecisionDetails{Value: path, Path: path, Mode: e.Mode}
		if !e.IsWrite() {
			d.Category = entities.CategoryRead
			return d
		}
		if _, err := os.Lstat(path); err != nil {
			d.IsNewFile = true
			d.Category = entities.CategoryCreate
		} else {
			d.Category = entities.CategoryModify
		}
		return d
	case entities.FileDelete:
		path := absPath(e.Path, cwd)
		return entities.DecisionDetails{Category: entities.CategoryDelete, Value: path, Path: path}
	case entities.EnvWrite:
		return entities.DecisionDetails{Category: entities.CategoryEnvWrites, Value: e.Key, Key: e.Key}
	case entities.EnvRead:
		if e.Key == "" {
			return entities.DecisionDetails{}
		}
		return entities.DecisionDetails{Category: entities.CategoryEnvReads, Value: e.Key, Key: e.Key}
	case entities.ShellCommand:
		return entities.DecisionDetails{
			Category: entities.CategorySystemCommands,
			Value:    policy.CommandPattern(e.Command),
			Command:  policy.NormalizeCommand(e.Command),
		}
	case entities.ProcessSpawn:
		cmd := e.CommandLine()
		return entities.DecisionDetails{
			Category: entities.CategorySystemCommands,
			Value:    policy.CommandPattern(cmd),
			Command:  cmd,
			Path:     e.Executable,
		}
	case entities.LibraryLoad:
		if e.Path == "" {
			return entities.DecisionDetails{}
		}
		path := absPath(e.Path, cwd)
		return entities.DecisionDetails{Category: entities.CategoryExecutables, Value: path, Path: path}
	case entities.DNSLookup:
		return domainDetails(e.Host, e.Port)
	case entities.SocketConnect:
		return domainDetails(e.Host, e.Port)
	case entities.HTTPRequest:
		u, err := url.Parse(e.URL)
		if err != nil || u.Hostname() == "" {
			return entities.DecisionDetails{}
		}
		return entities.DecisionDetails{
			Category: entities.CategoryHTTPURLs,
			Value:    u.Host + u.EscapedPath(),
			URL:      e.URL,
			Domain:   u.Hostname(),
		}
	}
	return entities.DecisionDetails{}
}

func domainDetails(host string, port int) entities.DecisionDetails {
	if host == "" {
		return entities.DecisionDetails{}
	}
	value := host
	if port > 0 {
		value = net.JoinHostPort(host, strconv.Itoa(port))
	}
	return entities.DecisionDetails{Category: entities.CategoryDomains, Value: value, Domain: host, Port: port}
}

func absPath(p, cwd string) string {
	if filepath.IsAbs(p) || cwd == "" {
		if abs, err := filepath.Abs(p); err == nil {
			return abs
		}
		return p
	}
	return filepath.Join(cwd, p)
}
