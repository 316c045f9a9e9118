package realm

import (
	"reflect"
	"testing"
)

func TestNewFromDiscovery(t *testing.T) {
	r := New("AD.Example.Com", Discovery{
		DiscoveryDomain: "Ad.Example.Com",
		DiscoveryRealm:  "AD.EXAMPLE.COM",
	})

	if r.Name() != "AD.Example.Com" {
		t.Errorf("Name() = %q", r.Name())
	}
	if r.DomainName() != "ad.example.com" {
		t.Errorf("DomainName() = %q, want lowercase", r.DomainName())
	}
	if r.RealmName() != "AD.EXAMPLE.COM" {
		t.Errorf("RealmName() = %q", r.RealmName())
	}
	if r.IsConfigured() {
		t.Error("fresh realm should not be configured")
	}
}

func TestNewWithoutDiscovery(t *testing.T) {
	r := New("example.com", nil)
	if r.DomainName() != "example.com" {
		t.Errorf("DomainName() = %q", r.DomainName())
	}
	if r.RealmName() != "EXAMPLE.COM" {
		t.Errorf("RealmName() = %q", r.RealmName())
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"AD.EXAMPLE.COM", "ad.example.com"},
		{" ad.example.com. ", "ad.example.com"},
		{"ad.example.com", "ad.example.com"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := NormalizeName(tc.input); got != tc.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestPermittedLogins(t *testing.T) {
	r := New("example.com", nil)

	r.AddPermittedLogins([]string{"alice", "bob"})
	r.AddPermittedLogins([]string{"bob", "carol"})
	if want := []string{"alice", "bob", "carol"}; !reflect.DeepEqual(r.PermittedLogins(), want) {
		t.Errorf("PermittedLogins() = %v, want %v", r.PermittedLogins(), want)
	}

	r.RemovePermittedLogins([]string{"bob", "unknown"})
	if want := []string{"alice", "carol"}; !reflect.DeepEqual(r.PermittedLogins(), want) {
		t.Errorf("PermittedLogins() = %v, want %v", r.PermittedLogins(), want)
	}
}

func TestDenyPolicyClearsPermittedLogins(t *testing.T) {
	r := New("example.com", nil)
	r.AddPermittedLogins([]string{"alice"})

	r.SetLoginPolicy(PolicyDenyAny)
	if len(r.PermittedLogins()) != 0 {
		t.Error("deny policy should clear the permitted-login list")
	}
}

func TestSetDiscoveryUpdatesNames(t *testing.T) {
	r := New("example.com", nil)
	r.SetDiscovery(Discovery{
		DiscoveryDomain: "Child.Example.Com",
		DiscoveryRealm:  "CHILD.EXAMPLE.COM",
	})
	if r.DomainName() != "child.example.com" {
		t.Errorf("DomainName() = %q", r.DomainName())
	}
	if r.RealmName() != "CHILD.EXAMPLE.COM" {
		t.Errorf("RealmName() = %q", r.RealmName())
	}
}

func TestDiscoverySnapshotIsIsolated(t *testing.T) {
	src := Discovery{DiscoveryDomain: "example.com"}
	r := New("example.com", src)

	// Mutating the caller's map or the returned copy must not reach the
	// realm's snapshot.
	src[DiscoveryDomain] = "tampered"
	got := r.Discovery()
	got[DiscoveryDomain] = "also tampered"

	if r.Discovery().Get(DiscoveryDomain) != "example.com" {
		t.Error("discovery snapshot was aliased")
	}
}

func TestConfiguredLifecycle(t *testing.T) {
	r := New("example.com", nil)
	r.SetConfigured("samba")
	if !r.IsConfigured() || r.Configured() != "samba" {
		t.Errorf("Configured() = %q", r.Configured())
	}
	r.SetConfigured("")
	if r.IsConfigured() {
		t.Error("realm should be unconfigured after clearing")
	}
}
