// Package addisco resolves Active Directory style domains through DNS SRV
// records. It is the discovery collaborator the Samba and SSSD providers
// consume; LDAP root-DSE refinement stays with the external tooling.
package addisco

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/MalloZup/realmd/pkg/realm"
)

// Discoverer looks up Kerberos KDC SRV records for a domain.
type Discoverer struct {
	resolver *net.Resolver
}

// New creates a Discoverer using the system resolver.
func New() *Discoverer {
	return &Discoverer{resolver: net.DefaultResolver}
}

// NewWithResolver creates a Discoverer with a custom resolver, for tests.
func NewWithResolver(r *net.Resolver) *Discoverer {
	return &Discoverer{resolver: r}
}

// Discover resolves input into a discovery snapshot, or nil when the domain
// has no Kerberos SRV records. Lookup errors other than not-found are
// returned so the aggregator can surface them as the significant error.
func (d *Discoverer) Discover(ctx context.Context, input string) (realm.Discovery, error) {
	domain := realm.NormalizeName(input)
	if domain == "" {
		return nil, nil
	}

	_, addrs, err := d.resolver.LookupSRV(ctx, "kerberos", "udp", domain)
	if err != nil || len(addrs) == 0 {
		// Some domains only publish TCP records.
		_, addrs, err = d.resolver.LookupSRV(ctx, "kerberos", "tcp", domain)
	}
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("SRV lookup for %s failed: %w", domain, err)
	}
	if len(addrs) == 0 {
		return nil, nil
	}

	kdcs := make([]string, 0, len(addrs))
	for _, srv := range addrs {
		host := strings.TrimSuffix(srv.Target, ".")
		kdcs = append(kdcs, fmt.Sprintf("%s:%d", host, srv.Port))
	}

	return realm.Discovery{
		realm.DiscoveryType:   "kerberos",
		realm.DiscoveryDomain: domain,
		realm.DiscoveryRealm:  strings.ToUpper(domain),
		realm.DiscoveryKDCs:   strings.Join(kdcs, " "),
	}, nil
}
