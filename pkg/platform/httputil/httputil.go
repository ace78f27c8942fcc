// Package httputil centralizes JSON response writing so every endpoint emits
// the same envelope: {"success":true,...} on success and
// {"success":false,"error":{"message":...,"code":...}} on failure.
package httputil

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	dErrors "portalx/pkg/domain-errors"
)

var includeDetails atomic.Bool

// IncludeDetails switches error responses to carry the full error chain in
// the details field. Call once at startup, and only in non-production
// configuration: the chain can name internal components.
func IncludeDetails(on bool) {
	includeDetails.Store(on)
}

// ErrorBody is the error payload nested inside the failure envelope.
type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

type errorEnvelope struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into the failure envelope. The message
// of unclassified errors is replaced with a generic one so internals never
// reach clients; with IncludeDetails enabled the full chain rides along in
// the details field.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := ErrorBody{
		Message: dErrors.MessageOf(err),
		Code:    string(code),
	}
	if includeDetails.Load() {
		body.Details = err.Error()
	}
	WriteJSON(w, dErrors.HTTPStatus(code), errorEnvelope{
		Success: false,
		Error:   body,
	})
}

// DecodeJSON decodes the request body into a value of type T, translating
// malformed payloads into a BAD_REQUEST domain error.
func DecodeJSON[T any](r *http.Request) (T, error) {
	var v T
	if r.Body == nil {
		return v, dErrors.New(dErrors.CodeBadRequest, "request body required")
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&v); err != nil {
		return v, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid JSON body")
	}
	return v, nil
}
