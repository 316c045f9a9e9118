package realm

import (
	"reflect"
	"testing"
)

func TestFormatLogin(t *testing.T) {
	tests := []struct {
		format string
		user   string
		want   string
	}{
		{"%U@ad.example.com", "alice", "alice@ad.example.com"},
		{`AD\%U`, "alice", `AD\alice`},
		{"no placeholder", "alice", ""},
		{"%U", "alice", "alice"},
	}
	for _, tc := range tests {
		if got := FormatLogin(tc.format, tc.user); got != tc.want {
			t.Errorf("FormatLogin(%q, %q) = %q, want %q", tc.format, tc.user, got, tc.want)
		}
	}
}

func TestParseLogins(t *testing.T) {
	formats := []string{"%U@ad.example.com", `AD\%U`}

	users, err := ParseLogins(formats, false, []string{"Alice@ad.example.com", `AD\bob`})
	if err != nil {
		t.Fatalf("ParseLogins() error = %v", err)
	}
	if want := []string{"Alice", "bob"}; !reflect.DeepEqual(users, want) {
		t.Errorf("ParseLogins() = %v, want %v", users, want)
	}
}

func TestParseLoginsLowercases(t *testing.T) {
	users, err := ParseLogins([]string{"%U@d.example"}, true, []string{"ALICE@d.example"})
	if err != nil {
		t.Fatalf("ParseLogins() error = %v", err)
	}
	if users[0] != "alice" {
		t.Errorf("ParseLogins() = %q, want lowercased", users[0])
	}
}

func TestParseLoginsAllOrNothing(t *testing.T) {
	// The second login does not match; the first must not leak through.
	_, err := ParseLogins([]string{"%U@d.example"}, false, []string{"alice@d.example", "bob@other.example"})
	if err == nil {
		t.Fatal("ParseLogins() expected error for unmatched login")
	}
	if !IsKind(err, KindInvalidArgument) {
		t.Errorf("error kind = %v, want %v", KindOf(err), KindInvalidArgument)
	}
}

func TestParseLoginsNoFormats(t *testing.T) {
	_, err := ParseLogins(nil, false, []string{"alice"})
	if !IsKind(err, KindNotSupported) {
		t.Errorf("error kind = %v, want %v", KindOf(err), KindNotSupported)
	}
}

func TestParseLoginsEmptyUserRejected(t *testing.T) {
	_, err := ParseLogins([]string{"%U@d.example"}, false, []string{"@d.example"})
	if !IsKind(err, KindInvalidArgument) {
		t.Errorf("error kind = %v, want %v", KindOf(err), KindInvalidArgument)
	}
}
