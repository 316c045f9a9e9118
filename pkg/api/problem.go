package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MalloZup/realmd/pkg/realm"
)

// Problem represents an RFC 7807 "problem details" response.
// https://tools.ietf.org/html/rfc7807
type Problem struct {
	// Type identifies the problem class; for enrollment failures it
	// carries the error-taxonomy kind.
	Type string `json:"type,omitempty"`

	// Title is a short, human-readable summary of the problem type.
	Title string `json:"title"`

	// Status is the HTTP status code for this occurrence of the problem.
	Status int `json:"status"`

	// Detail is a human-readable explanation specific to this occurrence.
	Detail string `json:"detail,omitempty"`
}

// ContentTypeProblemJSON is the Content-Type for RFC 7807 problem responses.
const ContentTypeProblemJSON = "application/problem+json"

// WriteProblem writes an RFC 7807 problem response.
func WriteProblem(w http.ResponseWriter, problemType string, status int, title, detail string) {
	problem := &Problem{
		Type:   problemType,
		Title:  title,
		Status: status,
		Detail: detail,
	}
	w.Header().Set("Content-Type", ContentTypeProblemJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem)
}

// StatusClientClosedRequest mirrors the nginx convention for requests the
// client abandoned before the reply was produced.
const StatusClientClosedRequest = 499

// kindStatus maps the error taxonomy onto HTTP statuses.
func kindStatus(kind realm.Kind) (int, string) {
	switch kind {
	case realm.KindInvalidArgument:
		return http.StatusBadRequest, "Invalid Argument"
	case realm.KindNotAuthorized:
		return http.StatusForbidden, "Not Authorized"
	case realm.KindBusy:
		return http.StatusConflict, "Busy"
	case realm.KindNotSupported:
		return http.StatusUnprocessableEntity, "Not Supported"
	case realm.KindDiscoveryFailed:
		return http.StatusNotFound, "Discovery Failed"
	case realm.KindAuthFailed:
		return http.StatusForbidden, "Authentication Failed"
	case realm.KindCancelled:
		return StatusClientClosedRequest, "Cancelled"
	case realm.KindEnrollFailed:
		return http.StatusBadGateway, "Enroll Failed"
	case realm.KindUnenrollFailed:
		return http.StatusBadGateway, "Unenroll Failed"
	default:
		return http.StatusInternalServerError, "Internal Error"
	}
}

// WriteError maps an operation error onto a problem response. Callers never
// see back-end internals: only the coarse kind and its message.
func WriteError(w http.ResponseWriter, err error) {
	kind := realm.KindOf(err)
	status, title := kindStatus(kind)

	detail := ""
	var e *realm.Error
	if errors.As(err, &e) {
		detail = e.Message
	}
	WriteProblem(w, string(kind), status, title, detail)
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteNoContent writes a 204 No Content response.
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
