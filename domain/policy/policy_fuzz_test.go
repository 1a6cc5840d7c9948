package policy_test

import (
	"testing"

	"github.com/reglet-dev/hookguard/domain/entities"
)

func FuzzMatchHost(f *testing.F) {
	cfg := emptyConfig()
	cfg.AllowDomains = []string{"example.com", "internal:80"}
	e := newBenchEngine(cfg)

	f.Add("example.com", 80)
	f.Add("api.internal", 443)
	f.Add("[::1]", 0)
	f.Add("evil.com.", -1)

	f.Fuzz(func(t *testing.T, host string, port int) {
		// We just ensure it doesn't panic
		e.Check(entities.SocketConnect{Host: host, Port: port})
		e.Check(entities.DNSLookup{Op: entities.KindGetHostByAddr, Host: host})
	})
}

func FuzzMatchPath(f *testing.F) {
	cfg := emptyConfig()
	cfg.AllowRead = []entities.Entry{entities.E("/data/**"), entities.E("/etc/hosts")}
	e := newBenchEngine(cfg)

	f.Add("/data/file.txt", "r")
	f.Add("/etc/hosts", "rb")
	f.Add("../../etc/passwd", "w+")

	f.Fuzz(func(t *testing.T, path, mode string) {
		e.Check(entities.FileOpen{Path: path, Mode: mode})
	})
}

func FuzzCheckCommand(f *testing.F) {
	cfg := emptyConfig()
	cfg.AllowSystemCommands = []string{"git *", "echo [a-z]*"}
	e := newBenchEngine(cfg)

	f.Add("git status")
	f.Add("echo $(rm -rf /)")
	f.Add("'unterminated")

	f.Fuzz(func(t *testing.T, cmd string) {
		e.Check(entities.ShellCommand{Command: cmd})
	})
}

func FuzzCheckHTTP(f *testing.F) {
	cfg := emptyConfig()
	cfg.AllowDomains = []string{"httpbin.org"}
	cfg.AllowHTTPURLs = []string{"httpbin.org/get"}
	e := newBenchEngine(cfg)

	f.Add("https://httpbin.org/get", "GET")
	f.Add("%zz", "")

	f.Fuzz(func(t *testing.T, rawURL, method string) {
		e.Check(entities.HTTPRequest{Op: entities.KindHTTPRequest, URL: rawURL, Method: method})
	})
}
