package policy

import (
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/reglet-dev/hookguard/domain/entities"
)

func (e *Engine) checkLookup(r *compiledRules, ev entities.DNSLookup) bool {
	if ev.Op == entities.KindGetHostByAddr {
		if e.allowedTarget(r, ev.Host, 0) {
			return true
		}
		return e.deny(KindNetwork, ev, "reverse lookup not allowed: "+ev.Host)
	}
	if e.allowedTarget(r, ev.Host, ev.Port) {
		return true
	}
	return e.deny(KindNetwork, ev, "domain not allowed: "+ev.Host)
}

func (e *Engine) checkConnect(r *compiledRules, ev entities.SocketConnect) bool {
	if e.allowedTarget(r, ev.Host, ev.Port) {
		return true
	}
	return e.deny(KindNetwork, ev, "connection not allowed: "+ev.Address())
}

// allowedTarget checks host against the domain rules. A literal IP that no
// rule names is judged by the host name it was resolved from.
func (e *Engine) allowedTarget(r *compiledRules, host string, port int) bool {
	host = normalizeHost(host)
	if hostAllowed(r, host, port) {
		return true
	}
	if net.ParseIP(host) == nil {
		return false
	}
	name, ok := e.config.addresses.Lookup(host)
	return ok && hostAllowed(r, name, port)
}

// hostAllowed applies suffix matching: "example.com" covers "api.example.com".
// A rule with a port only admits events on that port or without one.
func hostAllowed(r *compiledRules, host string, port int) bool {
	if r.packageIndex && slices.Contains(entities.PackageIndexHosts, host) {
		return true
	}
	isIP := net.ParseIP(host) != nil
	for _, d := range r.domains {
		if host != d.host && (isIP || !strings.HasSuffix(host, "."+d.host)) {
			continue
		}
		if d.port == 0 || port == 0 || d.port == port {
			return true
		}
	}
	return false
}

func (e *Engine) checkHTTP(r *compiledRules, ev entities.HTTPRequest) bool {
	u, err := url.Parse(ev.URL)
	if err != nil || u.Hostname() == "" {
		return e.deny(KindHTTP, ev, "invalid url: "+ev.URL)
	}
	host := normalizeHost(u.Hostname())

	if !e.allowedTarget(r, host, urlPort(u)) {
		return e.deny(KindHTTP, ev, "domain not allowed: "+host)
	}

	target := host + u.Path
	if len(r.httpURLs) > 0 && !matchURL(r.httpURLs, host, target) {
		return e.deny(KindHTTP, ev, "url not allowed: "+target)
	}

	if len(r.httpMethods) > 0 && !r.httpMethods[strings.ToUpper(ev.Method)] {
		return e.deny(KindHTTP, ev, "method not allowed: "+ev.Method)
	}

	if r.payloadPinned[target] {
		digest := r.payloadHashes[target]
		switch {
		case digest == "":
			return e.deny(KindHTTP, ev, "unsupported payload hash scheme")
		case ev.Payload == nil:
			return e.deny(KindHTTP, ev, "payload not reported for pinned url")
		case PayloadDigest(ev.Payload) != digest:
			return e.deny(KindHTTP, ev, "payload hash mismatch")
		}
	}
	return true
}

// matchURL matches host/path patterns. A pattern naming only a host admits
// every path on it.
func matchURL(patterns []string, host, target string) bool {
	for _, p := range patterns {
		if strings.EqualFold(p, host) {
			return true
		}
		if matched, _ := doublestar.Match(p, target); matched {
			return true
		}
	}
	return false
}

func urlPort(u *url.URL) int {
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err == nil {
			return n
		}
	}
	switch u.Scheme {
	case "http":
		return 80
	case "https":
		return 443
	}
	return 0
}
