package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clearcrew/internal/prover"
	"clearcrew/internal/zk/field"
	dErrors "clearcrew/pkg/domain-errors"
)

func sampleInputs() prover.Inputs {
	return prover.Inputs{
		CustomNullifier: field.FromUint64(0x1a),
		Secret:          field.FromUint64(0x2b),
		PathElements:    []field.Scalar{field.FromUint64(1)},
		PathIndices:     []uint8{1},
		ActiveBits:      []uint8{1},
		Root:            field.FromUint64(0xabc123),
	}
}

func TestProveSendsNamedInputs(t *testing.T) {
	var got proveRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/prove", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(proveResponse{Proof: "0xc0ffee"})
	}))
	defer srv.Close()

	b, err := New(srv.URL, "whistleblow")
	require.NoError(t, err)

	proof, err := b.Prove(context.Background(), sampleInputs())
	require.NoError(t, err)
	assert.Equal(t, prover.Proof{0xc0, 0xff, 0xee}, proof)
	assert.Equal(t, "whistleblow", got.Circuit)
	assert.Equal(t, "0x1a", got.Inputs[prover.InputCustomNullifier])
	assert.Equal(t, "0xabc123", got.Inputs[prover.InputRoot])
	assert.Equal(t, []any{"1"}, got.Inputs[prover.InputPathIndices])
}

func TestProveRejectionIsProofGenerationFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"root mismatch"}`))
	}))
	defer srv.Close()

	b, err := New(srv.URL, "whistleblow")
	require.NoError(t, err)

	_, err = b.Prove(context.Background(), sampleInputs())
	assert.True(t, dErrors.Is(err, dErrors.CodeProofGenerationFailed))
	assert.Equal(t, "root mismatch", dErrors.Message(err))
}

func TestProveServerErrorIsNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	b, err := New(srv.URL, "whistleblow")
	require.NoError(t, err)

	_, err = b.Prove(context.Background(), sampleInputs())
	assert.True(t, dErrors.Is(err, dErrors.CodeNetworkFailure))
}

func TestProveNonHexProof(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"proof":"0xnothex"}`))
	}))
	defer srv.Close()

	b, err := New(srv.URL, "whistleblow")
	require.NoError(t, err)

	_, err = b.Prove(context.Background(), sampleInputs())
	assert.True(t, dErrors.Is(err, dErrors.CodeProofGenerationFailed))
}

func TestNewValidates(t *testing.T) {
	_, err := New("not a url", "c")
	assert.Error(t, err)
	_, err = New("http://prover", "")
	assert.Error(t, err)
}
