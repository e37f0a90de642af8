// Package httputil centralizes JSON response writing so every handler maps
// domain errors to HTTP statuses the same way.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "serenyx/pkg/domain-errors"
)

// errorBody is the wire shape of every error response. Details is only
// populated for validation errors.
type errorBody struct {
	Error       string                   `json:"error"`
	Description string                   `json:"error_description,omitempty"`
	Details     []dErrors.FieldViolation `json:"details,omitempty"`
}

func statusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeBadRequest, dErrors.CodeValidation:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	case dErrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteError renders err as JSON. Internal errors omit the description so
// infrastructure detail never leaks to clients; everything else carries the
// domain message and, for validation failures, one entry per violated field.
func WriteError(w http.ResponseWriter, err error) {
	var de *dErrors.Error
	if !errors.As(err, &de) {
		de = dErrors.New(dErrors.CodeInternal, "unexpected error")
	}

	body := errorBody{Error: string(de.Code())}
	if de.Code() != dErrors.CodeInternal {
		body.Description = de.Message()
		body.Details = dErrors.Load(de)
	}

	WriteJSON(w, statusFor(de.Code()), body)
}

// WriteJSON renders v with the given status. Encoding failures are ignored;
// headers are already written by then.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Validatable request types check themselves after decoding. Validate returns
// a CodeValidation error carrying one FieldViolation per invalid field.
type Validatable interface {
	Validate() error
}

// maxBodyBytes caps request bodies; nothing in the API legitimately needs
// more than 1 MiB.
const maxBodyBytes = 1 << 20

// DecodeAndPrepare decodes the request body into T and validates it. On any
// failure it writes the error response and returns false; the handler simply
// returns.
func DecodeAndPrepare[T Validatable](w http.ResponseWriter, r *http.Request) (T, bool) {
	var req T
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed request body"))
		return req, false
	}
	if err := req.Validate(); err != nil {
		WriteError(w, err)
		return req, false
	}
	return req, true
}
