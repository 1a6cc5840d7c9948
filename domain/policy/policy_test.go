package policy_test

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/reglet-dev/hookguard/domain/entities"
	"github.com/reglet-dev/hookguard/domain/pathvars"
	"github.com/reglet-dev/hookguard/domain/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingHandler collects denial kinds.
type recordingHandler struct {
	mu    sync.Mutex
	kinds []string
}

func (h *recordingHandler) OnDenial(kind string, request interface{}, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.kinds = append(h.kinds, kind)
}

func (h *recordingHandler) last() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.kinds) == 0 {
		return ""
	}
	return h.kinds[len(h.kinds)-1]
}

// emptyConfig denies everything that can be denied.
func emptyConfig() *entities.PermissionConfig {
	cfg := entities.DefaultConfig()
	cfg.AllowRead = nil
	cfg.AllowCreate = nil
	cfg.AllowModify = nil
	cfg.AllowPyPIRequests = false
	return cfg
}

func newEngine(t *testing.T, cfg *entities.PermissionConfig, cwd string, opts ...policy.EngineOption) (*policy.Engine, *recordingHandler) {
	t.Helper()
	h := &recordingHandler{}
	base := []policy.EngineOption{
		policy.WithWorkingDirectory(cwd),
		policy.WithDenialHandler(h),
		policy.WithPathVars(pathvars.New(
			pathvars.WithWorkingDirectory(cwd),
			pathvars.WithHomeDir(filepath.Join(cwd, "home")),
		)),
		policy.WithLookPath(func(name string) (string, error) {
			return "", errors.New("not found: " + name)
		}),
	}
	return policy.NewEngine(cfg, append(base, opts...)...), h
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestEngine_Reads(t *testing.T) {
	dir := t.TempDir()
	other := t.TempDir()
	writeFile(t, filepath.Join(other, "single.txt"), "x")

	cfg := emptyConfig()
	cfg.AllowRead = []entities.Entry{
		entities.E("$PWD/data"),
		entities.E(filepath.Join(other, "single.txt")),
	}
	e, h := newEngine(t, cfg, dir)

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"directory itself", filepath.Join(dir, "data"), true},
		{"file under directory", filepath.Join(dir, "data", "a.csv"), true},
		{"nested under directory", filepath.Join(dir, "data", "x", "y", "z"), true},
		{"relative path", "data/rel.txt", true},
		{"listed file", filepath.Join(other, "single.txt"), true},
		{"sibling of listed file", filepath.Join(other, "other.txt"), false},
		{"prefix is not ancestor", filepath.Join(dir, "database"), false},
		{"traversal", filepath.Join(dir, "data", "..", "secret"), false},
		{"outside", "/etc/shadow", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.CheckPermission("open", []any{tt.path, "r"}))
		})
	}
	assert.Equal(t, policy.KindFS, h.last())
}

func TestEngine_CreateAndModifyAreIndependent(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "existing.txt")
	writeFile(t, existing, "old")
	fresh := filepath.Join(dir, "fresh.txt")

	createOnly := emptyConfig()
	createOnly.AllowCreate = []entities.Entry{entities.E("$PWD")}
	e, _ := newEngine(t, createOnly, dir)
	assert.True(t, e.CheckPermission("open", []any{fresh, "w"}))
	assert.False(t, e.CheckPermission("open", []any{existing, "w"}))
	assert.False(t, e.CheckPermission("open", []any{existing, "a"}))

	modifyOnly := emptyConfig()
	modifyOnly.AllowModify = []entities.Entry{entities.E("$PWD")}
	e, _ = newEngine(t, modifyOnly, dir)
	assert.False(t, e.CheckPermission("open", []any{fresh, "x"}))
	assert.True(t, e.CheckPermission("open", []any{existing, "r+"}))
}

func TestEngine_WriteModes(t *testing.T) {
	dir := t.TempDir()
	cfg := emptyConfig()
	cfg.AllowRead = []entities.Entry{entities.E("$PWD")}
	e, _ := newEngine(t, cfg, dir)

	target := filepath.Join(dir, "f.txt")
	for _, mode := range []string{"r", "rb", "rt"} {
		assert.True(t, e.CheckPermission("open", []any{target, mode}), mode)
	}
	for _, mode := range []string{"w", "wb", "a", "x", "r+", "rb+"} {
		assert.False(t, e.CheckPermission("open", []any{target, mode}), mode)
	}
}

func TestEngine_HashPinnedModify(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "setup.cfg")
	writeFile(t, target, "hello")

	digest, err := policy.FileDigest(target)
	require.NoError(t, err)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", digest)

	cfg := emptyConfig()
	cfg.AllowModify = []entities.Entry{
		entities.E("$PWD"),
		{Pattern: "$PWD/setup.cfg", Hash: policy.Pin(digest)},
	}
	e, h := newEngine(t, cfg, dir)

	assert.True(t, e.CheckPermission("open", []any{target, "w"}))

	writeFile(t, target, "tampered")
	assert.False(t, e.CheckPermission("open", []any{target, "w"}), "stale pin denies even inside an allowed directory")
	assert.Equal(t, policy.KindFS, h.last())

	other := filepath.Join(dir, "other.cfg")
	writeFile(t, other, "x")
	assert.True(t, e.CheckPermission("open", []any{other, "w"}))
}

func TestEngine_HashSchemes(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "bin.dat")
	writeFile(t, target, "hello")

	tests := []struct {
		name string
		hash string
		want bool
	}{
		{"sha256", "sha256:2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", true},
		{"uppercase hex", "sha256:2CF24DBA5FB0A30E26E83B2AC5B9E29E1B161E5C1FA7425E73043362938B9824", true},
		{"wrong digest", "sha256:0000000000000000000000000000000000000000000000000000000000000000", false},
		{"md5", "md5:5d41402abc4b2a76b9719d911017c592", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := emptyConfig()
			cfg.AllowModify = []entities.Entry{{Pattern: target, Hash: tt.hash}}
			e, _ := newEngine(t, cfg, dir)
			assert.Equal(t, tt.want, e.CheckPermission("open", []any{target, "w"}))
		})
	}
}

func TestEngine_HashPinOnMissingFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "gone.txt")

	cfg := emptyConfig()
	cfg.AllowRead = []entities.Entry{{Pattern: target, Hash: "sha256:2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"}}
	e, _ := newEngine(t, cfg, dir)

	assert.False(t, e.CheckPermission("open", []any{target, "r"}))
}

func TestEngine_DefaultConfigWrites(t *testing.T) {
	dir := t.TempDir()
	outside := t.TempDir()

	e, _ := newEngine(t, entities.DefaultConfig(), dir)

	assert.True(t, e.CheckPermission("open", []any{filepath.Join(dir, "new.txt"), "w"}))
	assert.False(t, e.CheckPermission("open", []any{filepath.Join(outside, "new.txt"), "w"}))
	assert.True(t, e.CheckPermission("open", []any{filepath.Join(dir, "new.txt"), "r"}))
	assert.False(t, e.CheckPermission("os.remove", []any{filepath.Join(dir, "new.txt")}))
}

func TestEngine_Deletes(t *testing.T) {
	dir := t.TempDir()
	cfg := emptyConfig()
	cfg.AllowDelete = []entities.Entry{entities.E("$PWD/build")}
	e, h := newEngine(t, cfg, dir)

	assert.True(t, e.CheckPermission("os.remove", []any{filepath.Join(dir, "build", "a.o")}))
	assert.True(t, e.CheckPermission("shutil.rmtree", []any{filepath.Join(dir, "build")}))
	assert.False(t, e.CheckPermission("os.rmdir", []any{filepath.Join(dir, "src")}))
	assert.Equal(t, policy.KindFS, h.last())
}

func TestEngine_Symlinks(t *testing.T) {
	dir := t.TempDir()
	outside := t.TempDir()
	writeFile(t, filepath.Join(outside, "secret"), "s")
	link := filepath.Join(dir, "link")
	if err := os.Symlink(filepath.Join(outside, "secret"), link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	cfg := emptyConfig()
	cfg.AllowRead = []entities.Entry{entities.E("$PWD")}

	e, _ := newEngine(t, cfg, dir)
	assert.False(t, e.CheckPermission("open", []any{link, "r"}), "link target is outside the allowed directory")

	e, _ = newEngine(t, cfg, dir, policy.WithSymlinkResolution(false))
	assert.True(t, e.CheckPermission("open", []any{link, "r"}))
}

func TestEngine_Environment(t *testing.T) {
	cfg := emptyConfig()
	cfg.AllowEnvVarWrites = []string{"PYTHONPATH", "MYAPP_*"}
	e, h := newEngine(t, cfg, t.TempDir())

	assert.True(t, e.CheckPermission("os.putenv", []any{"PYTHONPATH", "/x"}))
	assert.True(t, e.CheckPermission("os.unsetenv", []any{"MYAPP_DEBUG"}))
	assert.False(t, e.CheckPermission("os.putenv", []any{"LD_PRELOAD", "/tmp/x.so"}))
	assert.Equal(t, policy.KindEnv, h.last())

	// Reads are open while the read list is empty.
	assert.True(t, e.CheckPermission("os.getenv", []any{"AWS_SECRET_ACCESS_KEY"}))
	assert.True(t, e.CheckPermission("os.environ.get", nil))

	cfg.AllowEnvVarReads = []string{"HOME", "LANG"}
	e.Reload(cfg)
	assert.True(t, e.CheckPermission("os.getenv", []any{"HOME"}))
	assert.False(t, e.CheckPermission("os.getenv", []any{"AWS_SECRET_ACCESS_KEY"}))
	assert.False(t, e.CheckPermission("os.environ.get", nil), "nameless read is denied once reads are restricted")
}

func TestEngine_CommandGlobs(t *testing.T) {
	cfg := emptyConfig()
	cfg.AllowSystemCommands = []string{"git *", "ls", "make  build"}
	e, h := newEngine(t, cfg, t.TempDir())

	tests := []struct {
		cmd  string
		want bool
	}{
		{"git status", true},
		{"git push origin", true},
		{"git   log   --oneline", true},
		{"git log /tmp/x", true},
		{"gitstatus", false},
		{"rm -rf /", false},
		{"ls", true},
		{"ls -la", false},
		{"make build", true},
	}
	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			assert.Equal(t, tt.want, e.CheckPermission("os.system", []any{tt.cmd}))
		})
	}
	assert.Equal(t, policy.KindExec, h.last())
}

func TestCommandPattern(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"git   status", "git status"},
		{"ls *.go", `ls \*.go`},
		{"cat [ab].txt", `cat \[ab\].txt`},
		{"rm file?", `rm file\?`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.CommandPattern(tt.in))
		})
	}
}

func TestEngine_CommandPatternIsLiteral(t *testing.T) {
	cfg := emptyConfig()
	cfg.AllowSystemCommands = []string{policy.CommandPattern("ls *.go")}
	e, _ := newEngine(t, cfg, t.TempDir())

	assert.True(t, e.CheckPermission("os.system", []any{"ls *.go"}))
	assert.True(t, e.CheckPermission("os.system", []any{"ls   *.go"}))
	assert.False(t, e.CheckPermission("os.system", []any{"ls secret.txt"}))
}

func TestEngine_SpawnMatchesNormalizedPattern(t *testing.T) {
	cfg := emptyConfig()
	cfg.AllowSystemCommands = []string{"sh -c cd /tmp;ls"}
	e, _ := newEngine(t, cfg, t.TempDir())

	assert.True(t, e.CheckPermission("subprocess.Popen", []any{"/bin/sh", []any{"sh", "-c", "cd /tmp;ls"}}))
	assert.True(t, e.CheckPermission("os.system", []any{"sh -c cd /tmp; ls"}))
	assert.False(t, e.CheckPermission("subprocess.Popen", []any{"/bin/sh", []any{"sh", "-c", "cd /;ls"}}))
}

func TestEngine_DomainEntryWithRootDot(t *testing.T) {
	cfg := emptyConfig()
	cfg.AllowDomains = []string{"example.com.", "secure.org.:443"}
	e, _ := newEngine(t, cfg, t.TempDir())

	assert.True(t, e.CheckPermission("socket.getaddrinfo", []any{"api.example.com", 443}))
	assert.True(t, e.CheckPermission("socket.getaddrinfo", []any{"example.com.", nil}))
	assert.True(t, e.CheckPermission("socket.connect", []any{nil, []any{"secure.org", 443}}))
	assert.False(t, e.CheckPermission("socket.connect", []any{nil, []any{"secure.org", 80}}))
}

func TestEngine_ProcessSpawn(t *testing.T) {
	dir := t.TempDir()
	tool := filepath.Join(dir, "bin", "tool")
	writeFile(t, tool, "#!/bin/sh\n")

	cfg := emptyConfig()
	cfg.AllowSystemCommands = []string{"git *"}
	cfg.AllowExecutables = []entities.Entry{entities.E("$PWD/bin/*")}
	e, _ := newEngine(t, cfg, dir, policy.WithLookPath(func(name string) (string, error) {
		if name == "tool" {
			return tool, nil
		}
		return "", errors.New("not found")
	}))

	tests := []struct {
		name string
		args []any
		want bool
	}{
		{"command pattern", []any{"git", []any{"git", "status"}}, true},
		{"command pattern by base name", []any{"/usr/bin/git", []any{"git", "fetch"}}, true},
		{"argv only", []any{nil, []any{"git", "pull"}}, true},
		{"executable glob", []any{tool, []any{"tool", "--help"}}, true},
		{"bare name found on PATH", []any{"tool", nil}, true},
		{"not allowed", []any{"/usr/bin/curl", []any{"curl", "evil.sh"}}, false},
		{"unknown bare name", []any{"wget", nil}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.CheckPermission("subprocess.Popen", tt.args))
		})
	}

	assert.True(t, e.CheckPermission("os.exec", []any{tool, []any{tool}}))
	assert.True(t, e.CheckPermission("os.spawn", []any{0, tool, []any{tool}}))
	assert.False(t, e.CheckPermission("os.system", []any{tool}), "shell commands ignore allow_executables")
}

func TestEngine_ExecutableWildcardAndHash(t *testing.T) {
	dir := t.TempDir()
	tool := filepath.Join(dir, "tool")
	writeFile(t, tool, "hello")

	cfg := emptyConfig()
	cfg.AllowExecutables = []entities.Entry{entities.E("*")}
	e, _ := newEngine(t, cfg, dir)
	assert.True(t, e.CheckPermission("subprocess.Popen", []any{"/any/where", nil}))
	assert.True(t, e.CheckPermission("ctypes.dlopen", []any{"libssl.so.3"}))

	cfg.AllowExecutables = []entities.Entry{{Pattern: tool, Hash: "sha256:2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"}}
	e.Reload(cfg)
	assert.True(t, e.CheckPermission("os.posix_spawn", []any{tool, []any{tool}}))

	writeFile(t, tool, "patched")
	assert.False(t, e.CheckPermission("os.posix_spawn", []any{tool, []any{tool}}))
}

func TestEngine_LibraryLoad(t *testing.T) {
	dir := t.TempDir()
	cfg := emptyConfig()
	cfg.AllowExecutables = []entities.Entry{entities.E("/usr/lib/**/*.so*")}
	e, h := newEngine(t, cfg, dir, policy.WithSymlinkResolution(false))

	assert.True(t, e.CheckPermission("ctypes.dlopen", []any{nil}), "dlopen(NULL) loads nothing new")
	assert.True(t, e.CheckPermission("ctypes.dlopen", []any{"/usr/lib/x86_64-linux-gnu/libz.so.1"}))
	assert.False(t, e.CheckPermission("ctypes.dlopen", []any{"/tmp/evil.so"}))
	assert.Equal(t, policy.KindExec, h.last())
}

func TestEngine_Domains(t *testing.T) {
	cfg := emptyConfig()
	cfg.AllowDomains = []string{"example.com", "secure.org:443", "10.0.0.5"}
	e, h := newEngine(t, cfg, t.TempDir())

	tests := []struct {
		name  string
		event string
		args  []any
		want  bool
	}{
		{"exact", "socket.getaddrinfo", []any{"example.com", 80}, true},
		{"subdomain any port", "socket.connect", []any{nil, []any{"api.example.com", 8443}}, true},
		{"suffix without dot", "socket.getaddrinfo", []any{"badexample.com", 80}, false},
		{"port rule matches", "socket.connect", []any{nil, []any{"secure.org", 443}}, true},
		{"port rule subdomain", "socket.connect", []any{nil, []any{"www.secure.org", 443}}, true},
		{"port rule wrong port", "socket.connect", []any{nil, []any{"secure.org", 80}}, false},
		{"port-less lookup", "socket.gethostbyname", []any{"secure.org"}, true},
		{"lookup with other port", "socket.getaddrinfo", []any{"secure.org", 80}, false},
		{"lookup with service name", "socket.getaddrinfo", []any{"secure.org", "https"}, true},
		{"literal ip rule", "socket.connect", []any{nil, []any{"10.0.0.5", 22}}, true},
		{"ip suffix is not a subdomain", "socket.connect", []any{nil, []any{"110.0.0.5", 22}}, false},
		{"case insensitive", "socket.getaddrinfo", []any{"API.Example.COM.", nil}, true},
		{"package index off", "socket.getaddrinfo", []any{"pypi.org", 443}, false},
		{"unix socket", "socket.connect", []any{nil, "/run/docker.sock"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.CheckPermission(tt.event, tt.args))
		})
	}
	assert.Equal(t, policy.KindNetwork, h.last())
}

func TestEngine_HTTPBinScenario(t *testing.T) {
	cfg := entities.DefaultConfig()
	cfg.AllowDomains = []string{"httpbin.org"}
	e, _ := newEngine(t, cfg, t.TempDir())

	assert.True(t, e.CheckPermission("socket.getaddrinfo", []any{"httpbin.org", 443, 0, 1}))
	assert.False(t, e.CheckPermission("socket.getaddrinfo", []any{"evil.com", 80, 0, 1}))
	assert.True(t, e.CheckPermission("socket.getaddrinfo", []any{"files.pythonhosted.org", 443}), "package index allowed by default")
}

func TestEngine_ConnectByAddress(t *testing.T) {
	cfg := emptyConfig()
	cfg.AllowDomains = []string{"example.com:443"}
	book := policy.NewAddressBook()
	e, _ := newEngine(t, cfg, t.TempDir(), policy.WithAddressBook(book))

	assert.False(t, e.CheckPermission("socket.connect", []any{nil, []any{"93.184.216.34", 443}}))
	assert.False(t, e.CheckPermission("socket.gethostbyaddr", []any{"93.184.216.34"}))

	book.Remember("www.example.com", "93.184.216.34", "2606:2800:220:1:248:1893:25c8:1946")
	assert.True(t, e.CheckPermission("socket.connect", []any{nil, []any{"93.184.216.34", 443}}))
	assert.True(t, e.CheckPermission("socket.connect", []any{nil, []any{"2606:2800:220:1:248:1893:25c8:1946", 443}}))
	assert.False(t, e.CheckPermission("socket.connect", []any{nil, []any{"93.184.216.34", 80}}))
	assert.True(t, e.CheckPermission("socket.gethostbyaddr", []any{"93.184.216.34"}))
	assert.Same(t, book, e.Addresses())
}

func TestEngine_HTTPRules(t *testing.T) {
	payload := []byte("hello")
	cfg := emptyConfig()
	cfg.AllowDomains = []string{"httpbin.org"}
	cfg.AllowHTTPURLs = []string{"httpbin.org/get", "https://httpbin.org/bytes/*", "mirror.httpbin.org"}
	cfg.AllowHTTPMethods = []string{"get"}
	cfg.AllowHTTPPayloadHashes = []entities.PayloadHash{
		{URL: "httpbin.org/bytes/16", Hash: "sha256:2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"},
	}
	e, h := newEngine(t, cfg, t.TempDir())

	tests := []struct {
		name string
		args []any
		want bool
	}{
		{"allowed url", []any{"https://httpbin.org/get", "GET"}, true},
		{"query ignored", []any{"https://httpbin.org/get?x=1", "GET"}, true},
		{"glob url", []any{"https://httpbin.org/bytes/32", "GET"}, true},
		{"host-only pattern", []any{"http://mirror.httpbin.org/any/path", "GET"}, true},
		{"url not listed", []any{"https://httpbin.org/post", "GET"}, false},
		{"method not listed", []any{"https://httpbin.org/get", "POST"}, false},
		{"domain not allowed", []any{"https://evil.com/get", "GET"}, false},
		{"pinned payload matches", []any{"https://httpbin.org/bytes/16", "GET", payload}, true},
		{"pinned payload differs", []any{"https://httpbin.org/bytes/16", "GET", []byte("other")}, false},
		{"pinned payload missing", []any{"https://httpbin.org/bytes/16", "GET"}, false},
		{"not a url", []any{"::not a url", "GET"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.CheckPermission("http.request", tt.args))
		})
	}
	assert.Equal(t, policy.KindHTTP, h.last())

	assert.True(t, e.CheckPermission("urllib.Request", []any{"https://httpbin.org/get", nil, nil, "GET"}))
	assert.False(t, e.CheckPermission("urllib.Request", []any{"https://httpbin.org/get", []byte("data"), nil, nil}), "data implies POST")
}

func TestEngine_OpenWorldAndMalformed(t *testing.T) {
	e, h := newEngine(t, emptyConfig(), t.TempDir())

	assert.True(t, e.CheckPermission("import", []any{"json"}))
	assert.True(t, e.CheckPermission("sys._getframe", nil))
	assert.True(t, e.CheckPermission("socket.__new__", []any{nil, 2, 1}))
	assert.True(t, e.CheckPermission("open", []any{3, "r"}), "descriptor opens are allowed")

	assert.False(t, e.CheckPermission("open", nil))
	assert.Equal(t, policy.KindMalformed, h.last())
	assert.False(t, e.CheckPermission("os.putenv", []any{42}))
	assert.False(t, e.CheckPermission("socket.connect", []any{nil, 42}))
}

func TestEngine_Reload(t *testing.T) {
	dir := t.TempDir()
	e, _ := newEngine(t, emptyConfig(), dir)
	target := filepath.Join(dir, "x.txt")

	assert.False(t, e.CheckPermission("open", []any{target, "r"}))

	cfg := emptyConfig()
	cfg.AllowRead = []entities.Entry{entities.E("$PWD")}
	e.Reload(cfg)
	assert.True(t, e.CheckPermission("open", []any{target, "r"}))
	assert.Same(t, cfg, e.Config())

	e.Reload(nil)
	assert.True(t, e.CheckPermission("open", []any{target, "r"}), "nil reload falls back to defaults")
}

func TestEngine_UnresolvedPlaceholdersNeverMatch(t *testing.T) {
	dir := t.TempDir()
	cfg := emptyConfig()
	cfg.AllowRead = []entities.Entry{entities.E("$PYTHON_STDLIB"), entities.E("$ENV{HOOKGUARD_TEST_UNSET_DIR}")}
	e, _ := newEngine(t, cfg, dir)

	assert.False(t, e.CheckPermission("open", []any{"/usr/lib/python3/os.py", "r"}))
	assert.False(t, e.CheckPermission("open", []any{filepath.Join(dir, "x"), "r"}))
}

func TestNormalizeCommand(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"git   status", "git status"},
		{"  ls -la  ", "ls -la"},
		{"echo 'a  b'", "echo 'a  b'"},
		{"a&&b", "a && b"},
		{"make\nmake install", "make; make install"},
		{"echo $(", "echo $("},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.NormalizeCommand(tt.in))
		})
	}
}
