// Package httputil renders JSON responses and domain errors for the local API.
package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	dErrors "clearcrew/pkg/domain-errors"
)

const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	Retryable        bool   `json:"retryable,omitempty"`
}

// WriteJSON writes v with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err's code to a status. Internal errors never carry a
// description.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	resp := ErrorResponse{Error: string(code), Retryable: dErrors.Retryable(err)}
	if code != dErrors.CodeInternal {
		resp.ErrorDescription = dErrors.Message(err)
	}
	WriteJSON(w, StatusFor(code), resp)
}

// StatusFor is the HTTP status a domain code is rendered with.
func StatusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeInvalidScalarEncoding, dErrors.CodeInvalidReport:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeNoIdentity:
		return http.StatusNotFound
	case dErrors.CodeConfirmationRequired, dErrors.CodeRegistryRejected, dErrors.CodeSubmissionInProgress:
		return http.StatusConflict
	case dErrors.CodeProofGenerationFailed:
		return http.StatusUnprocessableEntity
	case dErrors.CodeNetworkFailure, dErrors.CodeSealingFailed, dErrors.CodeUploadFailed, dErrors.CodeLedgerSubmissionFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// DecodeJSON reads one JSON object from r's body into v. Malformed bodies
// are reported as invalid input of kind code.
func DecodeJSON(r *http.Request, v any, code dErrors.Code) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return dErrors.New(code, "request body is empty")
		}
		return dErrors.Wrap(err, code, fmt.Sprintf("malformed request body: %v", err))
	}
	return nil
}
