// Package domainerrors defines the typed failure taxonomy returned by the
// identity and submission services. Callers branch on Code, never on message text.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code identifies a failure kind. Values are stable and safe to surface to
// presentation layers.
type Code string

const (
	// CodeInvalidScalarEncoding: a scalar was not valid hexadecimal. Local only,
	// never reaches the network.
	CodeInvalidScalarEncoding Code = "invalid_scalar_encoding"
	// CodeNoIdentity: no registered identity is resident on this device.
	CodeNoIdentity Code = "no_identity"
	// CodeNetworkFailure: a service was unreachable or answered non-2xx. Retryable.
	CodeNetworkFailure Code = "network_failure"
	// CodeSealingFailed: the public key could not be parsed or the encryption
	// primitive rejected it.
	CodeSealingFailed Code = "sealing_failed"
	// CodeProofGenerationFailed: the prover rejected the inputs. Not retried as-is.
	CodeProofGenerationFailed Code = "proof_generation_failed"
	// CodeUploadFailed: content-addressed storage did not accept the ciphertext.
	CodeUploadFailed Code = "upload_failed"
	// CodeLedgerSubmissionFailed: the transaction was rejected or timed out.
	// Ciphertext may already be stored.
	CodeLedgerSubmissionFailed Code = "ledger_submission_failed"

	CodeInvalidReport        Code = "invalid_report"
	CodeRegistryRejected     Code = "registry_rejected"
	CodeConfirmationRequired Code = "confirmation_required"
	CodeUnauthorized         Code = "unauthorized"
	// CodeSubmissionInProgress: another submission holds this device's identity.
	CodeSubmissionInProgress Code = "submission_in_progress"
	CodeInternal             Code = "internal_error"
)

// Error is a domain error carrying a Code, a human message, and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a domain error without an underlying cause.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf returns the code of the outermost domain error in err's chain, or
// CodeInternal when there is none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// Is reports whether the outermost domain error in err's chain has the given code.
func Is(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// HasCode reports whether any domain error in err's chain has the given code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.Err
	}
	return false
}

// Retryable reports whether the failure was caused by a transient condition a
// caller may retry without changing its inputs.
func Retryable(err error) bool {
	return Is(err, CodeNetworkFailure)
}

// Message returns the message of the outermost domain error, or err.Error().
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}
