package ports

import (
	"context"
)

// DNSResolver defines the interface for DNS resolution operations.
// It backs the resolved-address cache that lets a connect follow an
// approved lookup without a second prompt.
type DNSResolver interface {
	// LookupHost resolves IP addresses for a given hostname.
	// Returns A and AAAA records as string slices.
	LookupHost(ctx context.Context, host string) ([]string, error)
}
