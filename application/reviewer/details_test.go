package reviewer_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/reglet-dev/hookguard/application/reviewer"
	"github.com/reglet-dev/hookguard/domain/entities"
	"github.com/reglet-dev/hookguard/domain/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractDetails(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "setup.cfg")
	missing := filepath.Join(dir, "new.txt")
	require.NoError(t, os.WriteFile(existing, nil, 0o600))

	tests := []struct {
		name string
		ev   entities.Event
		want entities.DecisionDetails
	}{
		{
			name: "read",
			ev:   entities.FileOpen{Path: existing, Mode: "r"},
			want: entities.DecisionDetails{Category: entities.CategoryRead, Value: existing, Path: existing, Mode: "r"},
		},
		{
			name: "modify",
			ev:   entities.FileOpen{Path: existing, Mode: "a"},
			want: entities.DecisionDetails{Category: entities.CategoryModify, Value: existing, Path: existing, Mode: "a"},
		},
		{
			name: "create",
			ev:   entities.FileOpen{Path: missing, Mode: "w"},
			want: entities.DecisionDetails{Category: entities.CategoryCreate, Value: missing, Path: missing, Mode: "w", IsNewFile: true},
		},
		{
			name: "descriptor",
			ev:   entities.FileOpen{Descriptor: true, Mode: "r"},
			want: entities.DecisionDetails{},
		},
		{
			name: "delete",
			ev:   entities.FileDelete{Op: entities.KindRemove, Path: existing},
			want: entities.DecisionDetails{Category: entities.CategoryDelete, Value: existing, Path: existing},
		},
		{
			name: "env write",
			ev:   entities.EnvWrite{Op: entities.KindPutenv, Key: "MY_FLAG", Value: "1"},
			want: entities.DecisionDetails{Category: entities.CategoryEnvWrites, Value: "MY_FLAG", Key: "MY_FLAG"},
		},
		{
			name: "shell command is normalized",
			ev:   entities.ShellCommand{Command: "git   status"},
			want: entities.DecisionDetails{Category: entities.CategorySystemCommands, Value: "git status", Command: "git status"},
		},
		{
			name: "spawn",
			ev:   entities.ProcessSpawn{Op: entities.KindPopen, Executable: "git", Argv: []string{"status"}},
			want: entities.DecisionDetails{Category: entities.CategorySystemCommands, Value: "git status", Command: "git status", Path: "git"},
		},
		{
			name: "library",
			ev:   entities.LibraryLoad{Path: "/usr/lib/libc.so.6"},
			want: entities.DecisionDetails{Category: entities.CategoryExecutables, Value: "/usr/lib/libc.so.6", Path: "/usr/lib/libc.so.6"},
		},
		{
			name: "lookup with port",
			ev:   entities.DNSLookup{Op: entities.KindGetAddrInfo, Host: "example.com", Port: 443},
			want: entities.DecisionDetails{Category: entities.CategoryDomains, Value: "example.com:443", Domain: "example.com", Port: 443},
		},
		{
			name: "lookup without port",
			ev:   entities.DNSLookup{Op: entities.KindGetHostByName, Host: "example.com"},
			want: entities.DecisionDetails{Category: entities.CategoryDomains, Value: "example.com", Domain: "example.com"},
		},
		{
			name: "ipv6 connect",
			ev:   entities.SocketConnect{Host: "::1", Port: 8080},
			want: entities.DecisionDetails{Category: entities.CategoryDomains, Value: "[::1]:8080", Domain: "::1", Port: 8080},
		},
		{
			name: "http",
			ev:   entities.HTTPRequest{Op: entities.KindHTTPRequest, URL: "https://httpbin.org/get?x=1", Method: "GET"},
			want: entities.DecisionDetails{Category: entities.CategoryHTTPURLs, Value: "httpbin.org/get", URL: "https://httpbin.org/get?x=1", Domain: "httpbin.org"},
		},
		{
			name: "socket creation",
			ev:   entities.SocketCreate{Family: 2, Type: 1},
			want: entities.DecisionDetails{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, reviewer.ExtractDetails(tt.ev, dir))
		})
	}
}

func TestExtractDetails_RelativeToWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "setup.cfg"), nil, 0o600))

	got := reviewer.ExtractDetails(entities.FileOpen{Path: "setup.cfg", Mode: "a"}, dir)
	assert.Equal(t, filepath.Join(dir, "setup.cfg"), got.Value)
	assert.Equal(t, entities.CategoryModify, got.Category, "existence is checked in the working directory")

	got = reviewer.ExtractDetails(entities.FileDelete{Path: "../out/x.txt"}, dir)
	assert.Equal(t, filepath.Join(filepath.Dir(dir), "out", "x.txt"), got.Value)
}

func TestExtractDetails_CommandsRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		event string
		args  []any
		other []any
	}{
		{
			name:  "spawn with statements",
			event: "subprocess.Popen",
			args:  []any{"/bin/sh", []any{"sh", "-c", "cd /tmp;ls"}},
			other: []any{"/bin/sh", []any{"sh", "-c", "cd /;ls"}},
		},
		{
			name:  "spawn with brackets",
			event: "subprocess.Popen",
			args:  []any{"python", []any{"python", "-c", "print(x[0])"}},
			other: []any{"python", []any{"python", "-c", "print(x0)"}},
		},
		{
			name:  "shell with wildcard",
			event: "os.system",
			args:  []any{"ls *.go"},
			other: []any{"ls secret.txt"},
		},
		{
			name:  "shell with braces",
			event: "os.system",
			args:  []any{"cp {a,b}.txt /tmp"},
			other: []any{"cp a.txt /tmp"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := reviewer.ExtractDetails(entities.DecodeEvent(tt.event, tt.args), "")
			require.Equal(t, entities.CategorySystemCommands, d.Category)

			cfg := entities.DefaultConfig()
			cfg.AllowSystemCommands = []string{d.Value}
			engine := policy.NewEngine(cfg,
				policy.WithDenialHandler(&policy.NopDenialHandler{}),
				policy.WithLookPath(func(name string) (string, error) {
					return "", errors.New("not found: " + name)
				}),
			)
			assert.True(t, engine.CheckPermission(tt.event, tt.args), "saved entry %q", d.Value)
			assert.False(t, engine.CheckPermission(tt.event, tt.other), "saved entry %q", d.Value)
		})
	}
}

func TestFormat(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(existing, nil, 0o600))

	assert.Equal(t, "Read file: "+existing, reviewer.Format(entities.FileOpen{Path: existing, Mode: "r"}))
	assert.Equal(t, "Modify file: "+existing, reviewer.Format(entities.FileOpen{Path: existing, Mode: "w"}))
	assert.Equal(t, "Create file: "+filepath.Join(dir, "b"), reviewer.Format(entities.FileOpen{Path: filepath.Join(dir, "b"), Mode: "x"}))
	assert.Equal(t, "Unset env var: HOME", reviewer.Format(entities.EnvWrite{Op: entities.KindUnsetenv, Key: "HOME"}))
	assert.Equal(t, "DNS lookup: pypi.org:443", reviewer.Format(entities.DNSLookup{Op: entities.KindGetAddrInfo, Host: "pypi.org", Port: 443}))

	long := reviewer.Format(entities.ShellCommand{Command: "echo " + strings.Repeat("a", 120)})
	assert.LessOrEqual(t, len(long), len("Run command: ")+80)
	assert.True(t, strings.HasSuffix(long, "..."))
}
