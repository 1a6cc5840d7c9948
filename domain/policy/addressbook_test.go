package policy_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/reglet-dev/hookguard/domain/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticResolver map[string][]string

func (r staticResolver) LookupHost(_ context.Context, host string) ([]string, error) {
	if addrs, ok := r[host]; ok {
		return addrs, nil
	}
	return nil, errors.New("no such host")
}

func TestAddressBook_RememberAndLookup(t *testing.T) {
	book := policy.NewAddressBook()

	book.Remember("API.Example.com.", "93.184.216.34", "not-an-ip", "[::1]")

	host, ok := book.Lookup("93.184.216.34")
	require.True(t, ok)
	assert.Equal(t, "api.example.com", host)

	host, ok = book.Lookup("0:0:0:0:0:0:0:1")
	require.True(t, ok, "IPv6 addresses are stored in canonical form")
	assert.Equal(t, "api.example.com", host)

	_, ok = book.Lookup("not-an-ip")
	assert.False(t, ok)
	assert.Equal(t, 2, book.Len())
}

func TestAddressBook_Learn(t *testing.T) {
	book := policy.NewAddressBook()
	resolver := staticResolver{"httpbin.org": {"54.1.2.3", "54.1.2.4"}}

	addrs, err := book.Learn(context.Background(), resolver, "httpbin.org")
	require.NoError(t, err)
	assert.Len(t, addrs, 2)

	host, ok := book.Lookup("54.1.2.4")
	assert.True(t, ok)
	assert.Equal(t, "httpbin.org", host)

	_, err = book.Learn(context.Background(), resolver, "evil.com")
	assert.Error(t, err)
}

func TestAddressBook_Expiry(t *testing.T) {
	book := policy.NewAddressBook(policy.WithAddressTTL(10*time.Millisecond), policy.WithAddressCapacity(4))
	book.Remember("example.com", "10.0.0.1")

	assert.Eventually(t, func() bool {
		_, ok := book.Lookup("10.0.0.1")
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestAddressBook_Capacity(t *testing.T) {
	book := policy.NewAddressBook(policy.WithAddressCapacity(2))
	book.Remember("a.example", "10.0.0.1")
	book.Remember("b.example", "10.0.0.2")
	book.Remember("c.example", "10.0.0.3")

	_, ok := book.Lookup("10.0.0.1")
	assert.False(t, ok, "oldest entry is evicted")
	assert.Equal(t, 2, book.Len())
}
