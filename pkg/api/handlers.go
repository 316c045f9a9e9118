package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MalloZup/realmd/internal/cli/health"
	"github.com/MalloZup/realmd/pkg/diag"
	"github.com/MalloZup/realmd/pkg/enroll"
	"github.com/MalloZup/realmd/pkg/provider"
	"github.com/MalloZup/realmd/pkg/realm"
	"github.com/MalloZup/realmd/pkg/realm/credential"
)

// Handlers serves the enrollment control API.
type Handlers struct {
	service    *enroll.Service
	aggregator *provider.Aggregator
	providers  *provider.Registry
}

// NewHandlers creates the API handler set.
func NewHandlers(service *enroll.Service, aggregator *provider.Aggregator, providers *provider.Registry) *Handlers {
	return &Handlers{
		service:    service,
		aggregator: aggregator,
		providers:  providers,
	}
}

// RealmInfo is the wire representation of a known realm.
type RealmInfo struct {
	Name       string `json:"name"`
	DomainName string `json:"domain_name,omitempty"`
	RealmName  string `json:"realm_name,omitempty"`
	Type       string `json:"type,omitempty"`

	// Configured names the back-end that enrolled the machine, empty when
	// the realm is only discovered.
	Configured string `json:"configured,omitempty"`

	LoginPolicy     string   `json:"login_policy,omitempty"`
	PermittedLogins []string `json:"permitted_logins,omitempty"`
	LoginFormats    []string `json:"login_formats,omitempty"`
	SuggestedAdmin  string   `json:"suggested_admin,omitempty"`

	SupportedJoinCredentials  []credential.Descriptor `json:"supported_join_credentials,omitempty"`
	SupportedLeaveCredentials []credential.Descriptor `json:"supported_leave_credentials,omitempty"`

	Details []realm.Detail `json:"details,omitempty"`
}

func (h *Handlers) realmInfo(r *realm.Realm) RealmInfo {
	info := RealmInfo{
		Name:            r.Name(),
		DomainName:      r.DomainName(),
		RealmName:       r.RealmName(),
		Type:            r.Discovery().Get("type"),
		Configured:      r.Configured(),
		LoginPolicy:     r.LoginPolicy().String(),
		PermittedLogins: r.PermittedLogins(),
		LoginFormats:    r.LoginFormats(),
		SuggestedAdmin:  r.SuggestedAdmin(),
		Details:         r.Details(),
	}

	if p := h.providers.Lookup(r.Provider()); p != nil {
		capability := p.Capability()
		info.SupportedJoinCredentials = credential.BuildSupported(capability.JoinCredentials)
		info.SupportedLeaveCredentials = credential.BuildSupported(capability.LeaveCredentials)
	}

	return info
}

// DiscoverRequest asks the daemon to resolve a name against every provider.
type DiscoverRequest struct {
	// Name is a domain or realm name. Empty means the default domain.
	Name string `json:"name"`

	// All requests every matching realm instead of only the winners.
	All bool `json:"all"`
}

// DiscoverResponse lists the realms the request resolved to.
type DiscoverResponse struct {
	Realms []RealmInfo `json:"realms"`
}

// Discover handles POST /api/v1/discover.
func (h *Handlers) Discover(w http.ResponseWriter, r *http.Request) {
	var req DiscoverRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	op := diag.Op{Operation: "discover", Realm: req.Name, Invoker: invokerFrom(r)}
	matches, err := h.aggregator.Discover(r.Context(), op, req.Name, req.All)
	if err != nil {
		WriteError(w, err)
		return
	}

	resp := DiscoverResponse{Realms: make([]RealmInfo, 0, len(matches))}
	for _, match := range matches {
		resp.Realms = append(resp.Realms, h.realmInfo(match.Realm))
	}
	WriteJSON(w, http.StatusOK, resp)
}

// ListRealms handles GET /api/v1/realms. With ?configured=true only realms
// the machine is enrolled in are returned.
func (h *Handlers) ListRealms(w http.ResponseWriter, r *http.Request) {
	var realms []*realm.Realm
	if r.URL.Query().Get("configured") == "true" {
		realms = h.service.Realms().Configured()
	} else {
		realms = h.service.Realms().All()
	}

	infos := make([]RealmInfo, 0, len(realms))
	for _, known := range realms {
		infos = append(infos, h.realmInfo(known))
	}
	WriteJSON(w, http.StatusOK, infos)
}

// GetRealm handles GET /api/v1/realms/{name}.
func (h *Handlers) GetRealm(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	known := h.service.Realms().Lookup(name)
	if known == nil {
		WriteError(w, realm.NewError(realm.KindDiscoveryFailed, "No such realm found: %s", name))
		return
	}
	WriteJSON(w, http.StatusOK, h.realmInfo(known))
}

// JoinRequest enrolls the machine in a realm.
type JoinRequest struct {
	Credential credential.Input `json:"credential"`
	Options    provider.Options `json:"options,omitempty"`
}

// Join handles POST /api/v1/realms/{name}/join.
func (h *Handlers) Join(w http.ResponseWriter, r *http.Request) {
	var req JoinRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	name := chi.URLParam(r, "name")
	op := diag.Op{Operation: "join", Realm: name, Invoker: invokerFrom(r)}

	var flags provider.JoinFlags
	if req.Options[provider.OptionAssumePackages] == "true" {
		flags |= provider.FlagAssumePackages
	}

	if err := h.service.Join(r.Context(), op, name, req.Credential, flags, req.Options); err != nil {
		WriteError(w, err)
		return
	}
	WriteNoContent(w)
}

// LeaveRequest unenrolls the machine from a realm.
type LeaveRequest struct {
	Credential credential.Input `json:"credential"`
	Options    provider.Options `json:"options,omitempty"`
}

// Leave handles POST /api/v1/realms/{name}/leave.
func (h *Handlers) Leave(w http.ResponseWriter, r *http.Request) {
	var req LeaveRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	name := chi.URLParam(r, "name")
	op := diag.Op{Operation: "leave", Realm: name, Invoker: invokerFrom(r)}

	if err := h.service.Leave(r.Context(), op, name, req.Credential, req.Options); err != nil {
		WriteError(w, err)
		return
	}
	WriteNoContent(w)
}

// DeconfigureRequest removes local configuration without contacting the domain.
type DeconfigureRequest struct {
	Options provider.Options `json:"options,omitempty"`
}

// Deconfigure handles POST /api/v1/realms/{name}/deconfigure.
func (h *Handlers) Deconfigure(w http.ResponseWriter, r *http.Request) {
	var req DeconfigureRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	name := chi.URLParam(r, "name")
	op := diag.Op{Operation: "deconfigure", Realm: name, Invoker: invokerFrom(r)}

	if err := h.service.Deconfigure(r.Context(), op, name, req.Options); err != nil {
		WriteError(w, err)
		return
	}
	WriteNoContent(w)
}

// LoginPolicyRequest changes who may log in through a realm.
type LoginPolicyRequest struct {
	LoginPolicy string           `json:"login_policy"`
	Add         []string         `json:"add,omitempty"`
	Remove      []string         `json:"remove,omitempty"`
	Options     provider.Options `json:"options,omitempty"`
}

// ChangeLoginPolicy handles POST /api/v1/realms/{name}/login-policy.
func (h *Handlers) ChangeLoginPolicy(w http.ResponseWriter, r *http.Request) {
	var req LoginPolicyRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	name := chi.URLParam(r, "name")
	op := diag.Op{Operation: "login-policy", Realm: name, Invoker: invokerFrom(r)}

	if err := h.service.ChangeLoginPolicy(r.Context(), op, name, req.LoginPolicy, req.Add, req.Remove, req.Options); err != nil {
		WriteError(w, err)
		return
	}
	WriteNoContent(w)
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, health.Response{Status: "ok"})
}

func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return realm.NewError(realm.KindInvalidArgument, "Request body is required")
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return realm.WrapError(realm.KindInvalidArgument, err, "Malformed request body")
	}
	return nil
}
