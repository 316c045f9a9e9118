package realm

import "testing"

func TestRegistryLookupOrRegister(t *testing.T) {
	g := NewRegistry()

	r, existed := g.LookupOrRegister("AD.EXAMPLE.COM", Discovery{DiscoveryDomain: "ad.example.com"})
	if existed {
		t.Fatal("first registration reported as existing")
	}

	// Same realm under a differently cased or dotted name.
	again, existed := g.LookupOrRegister("ad.example.com.", nil)
	if !existed {
		t.Fatal("second registration should find the existing realm")
	}
	if again != r {
		t.Error("LookupOrRegister returned a different realm for the same key")
	}

	if g.Lookup("Ad.Example.Com") != r {
		t.Error("Lookup should normalize the name")
	}
	if g.Lookup("other.example.com") != nil {
		t.Error("Lookup of unknown realm should be nil")
	}
}

func TestRegistryOrderAndConfigured(t *testing.T) {
	g := NewRegistry()
	first, _ := g.LookupOrRegister("b.example.com", nil)
	second, _ := g.LookupOrRegister("a.example.com", nil)

	all := g.All()
	if len(all) != 2 || all[0] != first || all[1] != second {
		t.Fatalf("All() should keep registration order, got %d realms", len(all))
	}

	if len(g.Configured()) != 0 {
		t.Error("no realm is configured yet")
	}
	second.SetConfigured("sssd-ad")
	configured := g.Configured()
	if len(configured) != 1 || configured[0] != second {
		t.Errorf("Configured() = %v", configured)
	}
}
