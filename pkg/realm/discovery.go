package realm

// Discovery field keys produced by the discovery collaborators.
const (
	DiscoveryType   = "type"
	DiscoveryDomain = "domain"
	DiscoveryRealm  = "kerberos-realm"
	DiscoveryKDCs   = "kerberos-kdcs"
)

// Discovery is the immutable snapshot of key/value data a discovery
// collaborator produced for a domain. It seeds the Realm that owns it and
// is never mutated afterwards.
type Discovery map[string]string

// Get returns the value for key, or "" when absent.
func (d Discovery) Get(key string) string {
	if d == nil {
		return ""
	}
	return d[key]
}

// Clone returns an independent copy so callers cannot alias the snapshot
// held by a Realm.
func (d Discovery) Clone() Discovery {
	if d == nil {
		return nil
	}
	out := make(Discovery, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
