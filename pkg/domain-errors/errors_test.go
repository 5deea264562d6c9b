package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	t.Run("domain error returns its code", func(t *testing.T) {
		err := New(CodeNoIdentity, "no identity registered")
		assert.Equal(t, CodeNoIdentity, CodeOf(err))
	})

	t.Run("wrapped by fmt keeps code", func(t *testing.T) {
		err := fmt.Errorf("submit: %w", New(CodeUploadFailed, "pin failed"))
		assert.Equal(t, CodeUploadFailed, CodeOf(err))
	})

	t.Run("plain error is internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	})
}

func TestHasCodeWalksChain(t *testing.T) {
	inner := New(CodeNetworkFailure, "registry unreachable")
	outer := Wrap(inner, CodeLedgerSubmissionFailed, "relay failed")

	assert.True(t, Is(outer, CodeLedgerSubmissionFailed))
	assert.False(t, Is(outer, CodeNetworkFailure))
	assert.True(t, HasCode(outer, CodeNetworkFailure))
	assert.False(t, HasCode(outer, CodeSealingFailed))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(New(CodeNetworkFailure, "timeout")))
	assert.False(t, Retryable(New(CodeProofGenerationFailed, "bad witness")))
	assert.False(t, Retryable(errors.New("boom")))
}

func TestErrorString(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeNetworkFailure, "fetch public key")

	assert.Equal(t, "network_failure: fetch public key: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "fetch public key", Message(err))
}
