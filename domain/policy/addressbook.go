package policy

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/reglet-dev/hookguard/domain/ports"
)

// DefaultAddressTTL is how long a resolved address stays linked to its host.
const DefaultAddressTTL = 60 * time.Second

const defaultAddressBookSize = 1024

// addressBookConfig holds configuration for an AddressBook.
type addressBookConfig struct {
	size int
	ttl  time.Duration
}

// AddressBookOption configures an AddressBook.
type AddressBookOption func(*addressBookConfig)

// WithAddressTTL sets how long entries are kept.
func WithAddressTTL(ttl time.Duration) AddressBookOption {
	return func(c *addressBookConfig) {
		c.ttl = ttl
	}
}

// WithAddressCapacity bounds the number of addresses kept.
func WithAddressCapacity(n int) AddressBookOption {
	return func(c *addressBookConfig) {
		c.size = n
	}
}

// AddressBook links IP addresses to the host names they were resolved from,
// so a connect to an address can be judged by the name the program asked for.
// It is safe for concurrent use.
type AddressBook struct {
	cache *expirable.LRU[string, string]
}

// NewAddressBook creates an empty AddressBook.
func NewAddressBook(opts ...AddressBookOption) *AddressBook {
	cfg := addressBookConfig{size: defaultAddressBookSize, ttl: DefaultAddressTTL}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &AddressBook{cache: expirable.NewLRU[string, string](cfg.size, nil, cfg.ttl)}
}

// Remember records that host resolved to addrs. Non-IP values are ignored.
func (b *AddressBook) Remember(host string, addrs ...string) {
	host = normalizeHost(host)
	for _, a := range addrs {
		if key, ok := addressKey(a); ok {
			b.cache.Add(key, host)
		}
	}
}

// Lookup returns the host name addr was resolved from.
func (b *AddressBook) Lookup(addr string) (string, bool) {
	key, ok := addressKey(addr)
	if !ok {
		return "", false
	}
	return b.cache.Get(key)
}

// Learn resolves host and remembers the result.
func (b *AddressBook) Learn(ctx context.Context, resolver ports.DNSResolver, host string) ([]string, error) {
	addrs, err := resolver.LookupHost(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", host, err)
	}
	b.Remember(host, addrs...)
	return addrs, nil
}

// Len returns the number of live entries.
func (b *AddressBook) Len() int {
	return b.cache.Len()
}

func addressKey(addr string) (string, bool) {
	ip := net.ParseIP(strings.Trim(addr, "[]"))
	if ip == nil {
		return "", false
	}
	return ip.String(), true
}

func normalizeHost(host string) string {
	return strings.TrimSuffix(strings.ToLower(strings.Trim(host, "[]")), ".")
}
