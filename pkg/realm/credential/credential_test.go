package credential

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/MalloZup/realmd/pkg/realm"
)

func TestParseVariants(t *testing.T) {
	tests := []struct {
		name    string
		in      Input
		want    Type
		wantErr bool
	}{
		{"automatic", Input{Kind: "automatic"}, Automatic, false},
		{"ccache", Input{Kind: "ccache", Path: "/tmp/cc"}, CCache, false},
		{"secret", Input{Kind: "secret", Secret: []byte("otp")}, Secret, false},
		{"password", Input{Kind: "password", Name: "admin", Secret: []byte("pw")}, Password, false},
		{"ccache without path", Input{Kind: "ccache"}, 0, true},
		{"secret without payload", Input{Kind: "secret"}, 0, true},
		{"password without name", Input{Kind: "password", Secret: []byte("pw")}, 0, true},
		{"password without secret", Input{Kind: "password", Name: "admin"}, 0, true},
		{"unknown kind", Input{Kind: "certificate"}, 0, true},
		{"empty kind", Input{}, 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cred, err := Parse(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatal("Parse() expected error")
				}
				if !realm.IsKind(err, realm.KindInvalidArgument) {
					t.Errorf("error kind = %v, want invalid-argument", realm.KindOf(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if cred.Type() != tc.want {
				t.Errorf("Type() = %v, want %v", cred.Type(), tc.want)
			}
		})
	}
}

func TestParseCopiesSecret(t *testing.T) {
	raw := []byte("super-secret")
	cred, err := Parse(Input{Kind: "secret", Secret: raw})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	raw[0] = 'X'
	if cred.Secret()[0] == 'X' {
		t.Error("credential aliased the caller's secret buffer")
	}
}

func TestReleaseZeroesSecret(t *testing.T) {
	cred, err := Parse(Input{Kind: "password", Name: "admin", Secret: []byte("hunter2")})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	secret := cred.Secret()
	cred.Release()

	if !bytes.Equal(secret, make([]byte, len(secret))) {
		t.Error("Release() did not zero the secret bytes")
	}
	if cred.Secret() != nil {
		t.Error("Secret() should be nil after release")
	}

	// Second release is a no-op.
	cred.Release()
}

func TestReleaseDeletesOwnedCCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cc")
	if err := os.WriteFile(path, []byte("ticket"), 0600); err != nil {
		t.Fatal(err)
	}

	cred, err := Parse(Input{Kind: "password", Name: "admin", Secret: []byte("pw")})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	cred.SetCCacheFile(path)
	cred.Release()

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("daemon-owned ticket cache should be deleted on release")
	}
}

func TestReleaseKeepsCallerCCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cc")
	if err := os.WriteFile(path, []byte("ticket"), 0600); err != nil {
		t.Fatal(err)
	}

	cred, err := Parse(Input{Kind: "ccache", Path: path})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	cred.Release()

	if _, err := os.Stat(path); err != nil {
		t.Error("caller-owned ticket cache must stay untouched on release")
	}
}

func TestSupportedSets(t *testing.T) {
	supported := []Supported{
		{Type: Password, Owner: "administrator"},
		{Type: Automatic, Owner: "none"},
	}

	if !TypeSupported(supported, Password) || !TypeSupported(supported, Automatic) {
		t.Error("TypeSupported should match listed types")
	}
	if TypeSupported(supported, CCache) {
		t.Error("TypeSupported should reject unlisted types")
	}

	descriptors := BuildSupported(supported)
	if len(descriptors) != 2 {
		t.Fatalf("BuildSupported() returned %d descriptors", len(descriptors))
	}
	if descriptors[0].Type != "password" || descriptors[0].Owner != "administrator" {
		t.Errorf("descriptor = %+v", descriptors[0])
	}
}

func TestTypeString(t *testing.T) {
	tests := []struct {
		typ  Type
		want string
	}{
		{Automatic, "automatic"},
		{CCache, "ccache"},
		{Secret, "secret"},
		{Password, "password"},
		{Type(0), "unknown"},
	}
	for _, tc := range tests {
		if got := tc.typ.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}
