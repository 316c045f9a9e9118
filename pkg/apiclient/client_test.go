package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MalloZup/realmd/pkg/api"
	"github.com/MalloZup/realmd/pkg/realm/credential"
)

func TestDiscoverDecodesRealms(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/discover" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req api.DiscoverRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Name != "ad.example.com" || !req.All {
			t.Errorf("request = %+v", req)
		}
		_ = json.NewEncoder(w).Encode(api.DiscoverResponse{
			Realms: []api.RealmInfo{{Name: "ad.example.com", RealmName: "AD.EXAMPLE.COM"}},
		})
	}))
	defer server.Close()

	realms, err := New(server.URL).Discover(context.Background(), "ad.example.com", true)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(realms) != 1 || realms[0].RealmName != "AD.EXAMPLE.COM" {
		t.Errorf("realms = %+v", realms)
	}
}

func TestListRealmsConfiguredQuery(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, "[]")
	}))
	defer server.Close()

	client := New(server.URL)
	if _, err := client.ListRealms(context.Background(), true); err != nil {
		t.Fatal(err)
	}
	if gotQuery != "configured=true" {
		t.Errorf("query = %q, want configured=true", gotQuery)
	}

	if _, err := client.ListRealms(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	if gotQuery != "" {
		t.Errorf("query = %q, want empty", gotQuery)
	}
}

func TestJoinSendsBearerToken(t *testing.T) {
	var gotAuth, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := New(server.URL).WithToken("sekrit")
	err := client.Join(context.Background(), "ad.example.com", api.JoinRequest{
		Credential: credential.Input{Kind: "automatic"},
	})
	if err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if gotAuth != "Bearer sekrit" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotPath != "/api/v1/realms/ad.example.com/join" {
		t.Errorf("path = %q", gotPath)
	}
}

func TestWithoutTokenNoAuthorizationHeader(t *testing.T) {
	var gotAuth string
	sawAuth := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, sawAuth = r.Header["Authorization"]
		fmt.Fprint(w, `{"status":"ok"}`)
	}))
	defer server.Close()

	if err := New(server.URL).Health(context.Background()); err != nil {
		t.Fatal(err)
	}
	if sawAuth {
		t.Errorf("Authorization header sent unexpectedly: %q", gotAuth)
	}
}

func TestProblemResponseBecomesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusConflict)
		fmt.Fprint(w, `{"type":"busy","title":"Busy","status":409,"detail":"Already running another action"}`)
	}))
	defer server.Close()

	err := New(server.URL).Join(context.Background(), "ad.example.com", api.JoinRequest{})
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T", err)
	}
	if !apiErr.IsBusy() {
		t.Error("IsBusy() = false")
	}
	if apiErr.Status != http.StatusConflict {
		t.Errorf("Status = %d", apiErr.Status)
	}
	if apiErr.Error() != "Already running another action" {
		t.Errorf("Error() = %q", apiErr.Error())
	}
	if KindOf(err) != "busy" {
		t.Errorf("KindOf() = %q", KindOf(err))
	}
}

func TestNonProblemErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream proxy exploded", http.StatusBadGateway)
	}))
	defer server.Close()

	err := New(server.URL).Health(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T", err)
	}
	if apiErr.Status != http.StatusBadGateway {
		t.Errorf("Status = %d", apiErr.Status)
	}
	if KindOf(err) != "" {
		t.Errorf("KindOf() = %q, transport errors carry no kind", KindOf(err))
	}
}

func TestAPIErrorClassifiers(t *testing.T) {
	tests := []struct {
		typ      string
		busy     bool
		auth     bool
		notFound bool
	}{
		{"busy", true, false, false},
		{"not-authorized", false, true, false},
		{"auth-failed", false, true, false},
		{"discovery-failed", false, false, true},
		{"internal", false, false, false},
	}

	for _, tc := range tests {
		e := &APIError{Type: tc.typ}
		if e.IsBusy() != tc.busy || e.IsAuthError() != tc.auth || e.IsNotFound() != tc.notFound {
			t.Errorf("%s: classifiers = %v/%v/%v", tc.typ, e.IsBusy(), e.IsAuthError(), e.IsNotFound())
		}
	}
}

func TestRealmPathEscaping(t *testing.T) {
	if got := realmPath("weird/name", "join"); got != "/api/v1/realms/weird%2Fname/join" {
		t.Errorf("realmPath() = %q", got)
	}
}

func TestKindOfForeignError(t *testing.T) {
	if got := KindOf(errors.New("dial tcp: connection refused")); got != "" {
		t.Errorf("KindOf() = %q, want empty", got)
	}
}
