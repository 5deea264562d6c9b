package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clearcrew/internal/identity/models"
	"clearcrew/internal/registry/registrytest"
	dErrors "clearcrew/pkg/domain-errors"
)

const (
	testSeed   = "0x1a2b"
	testSecret = "0x3c4d"
)

type result struct {
	code   int
	stdout string
	stderr string
}

func (r result) errorCode(t *testing.T) dErrors.Code {
	t.Helper()
	var body struct {
		Error dErrors.Code `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(r.stderr), &body), r.stderr)
	return body.Error
}

// setupEnv points the CLI at a fake registry and a fresh pebble directory.
func setupEnv(t *testing.T) *registrytest.Server {
	t.Helper()
	srv := registrytest.New(t)
	t.Setenv("REPORTER_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("REGISTRY_URL", srv.URL)
	t.Setenv("REGISTRY_EMAIL", "reporter@example.com")
	t.Setenv("REGISTRY_PASSWORD", "")
	t.Setenv("DEVICE_STORE", "pebble")
	t.Setenv("DEVICE_STORE_DIR", t.TempDir())
	t.Setenv("LOG_LEVEL", "error")
	return srv
}

func invoke(stdin string, args ...string) result {
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func TestUsage(t *testing.T) {
	res := invoke("")
	assert.Equal(t, exitUsage, res.code)
	assert.Contains(t, res.stderr, "usage: reporter")
	assert.Contains(t, res.stderr, "submit")

	res = invoke("", "frobnicate")
	assert.Equal(t, exitUsage, res.code)
	assert.Contains(t, res.stderr, "unknown command: frobnicate")
}

func TestMissingConfigurationIsUsageError(t *testing.T) {
	t.Setenv("REPORTER_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("REGISTRY_URL", "")

	res := invoke("", "status")
	assert.Equal(t, exitUsage, res.code)
	assert.Contains(t, res.stderr, "REGISTRY_URL is required")
}

func TestLoginRegisterStatusReset(t *testing.T) {
	srv := setupEnv(t)

	res := invoke("password\n", "login", "-password-stdin")
	require.Equal(t, exitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, `"logged in"`)
	assert.Equal(t, 1, srv.CallCount(registrytest.RouteLogin))

	res = invoke(testSeed+"\n"+testSecret+"\n", "register", "-secrets-stdin")
	require.Equal(t, exitOK, res.code, res.stderr)
	var ack models.RegistryAck
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &ack))

	id, err := models.New(testSeed, testSecret)
	require.NoError(t, err)
	scalars, err := id.Parse()
	require.NoError(t, err)
	leaf := scalars.Commitment().Hex()
	assert.Equal(t, leaf, ack.Leaf)
	assert.Equal(t, []string{leaf}, srv.Leaves())

	res = invoke("", "status")
	require.Equal(t, exitOK, res.code, res.stderr)
	var got statusOutput
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &got))
	want := statusOutput{LoggedIn: true, Identity: true, Commitment: leaf}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("status mismatch (-want +got):\n%s", diff)
	}

	res = invoke("", "reset")
	assert.Equal(t, exitFailure, res.code)
	assert.Equal(t, dErrors.CodeConfirmationRequired, res.errorCode(t))

	res = invoke("", "reset", "-confirm")
	require.Equal(t, exitOK, res.code, res.stderr)

	res = invoke("", "logout")
	require.Equal(t, exitOK, res.code, res.stderr)

	res = invoke("", "status")
	require.Equal(t, exitOK, res.code, res.stderr)
	got = statusOutput{}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &got))
	if diff := cmp.Diff(statusOutput{}, got); diff != "" {
		t.Errorf("status after reset mismatch (-want +got):\n%s", diff)
	}
}

func TestLoginWithWrongPassword(t *testing.T) {
	setupEnv(t)
	t.Setenv("REGISTRY_PASSWORD", "nope")

	res := invoke("", "login")
	assert.Equal(t, exitFailure, res.code)
	assert.Equal(t, dErrors.CodeUnauthorized, res.errorCode(t))
}

func TestRegisterRejectsMalformedScalars(t *testing.T) {
	srv := setupEnv(t)

	res := invoke("not-hex\n"+testSecret+"\n", "register", "-secrets-stdin")
	assert.Equal(t, exitFailure, res.code)
	assert.Equal(t, dErrors.CodeInvalidScalarEncoding, res.errorCode(t))
	assert.Zero(t, srv.TotalCalls())
}

func TestRegisterGenerateConflictsWithSecretsStdin(t *testing.T) {
	setupEnv(t)

	res := invoke(testSeed+"\n"+testSecret+"\n", "register", "-generate", "-secrets-stdin")
	assert.Equal(t, exitFailure, res.code)
	assert.Contains(t, res.stderr, "-generate cannot be combined")
}

func TestRegisterDoesNotAcceptSecretsAsFlags(t *testing.T) {
	srv := setupEnv(t)

	res := invoke("", "register", "-seed", testSeed, "-secret", testSecret)
	assert.Equal(t, exitUsage, res.code)
	assert.Contains(t, res.stderr, "flag provided but not defined: -seed")

	res = invoke("", "register")
	assert.Equal(t, exitFailure, res.code)
	assert.Contains(t, res.stderr, "-secrets-stdin or -generate")
	assert.Zero(t, srv.TotalCalls())
}

func TestRegisterSecretsStdinNeedsTwoLines(t *testing.T) {
	srv := setupEnv(t)

	res := invoke(testSeed+"\n", "register", "-secrets-stdin")
	assert.Equal(t, exitFailure, res.code)
	assert.Contains(t, res.stderr, "two lines")
	assert.Zero(t, srv.TotalCalls())
}

func TestReadSecretsTrimsLineEndings(t *testing.T) {
	seed, secret, err := readSecrets(strings.NewReader(" 0x1a2b\r\n0x3c4d\r\nignored\n"))
	require.NoError(t, err)
	assert.Equal(t, testSeed, seed)
	assert.Equal(t, testSecret, secret)
}

func TestUnreachableRedisDeviceStoreIsRetryable(t *testing.T) {
	setupEnv(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	t.Setenv("DEVICE_STORE", "redis")
	t.Setenv("REDIS_URL", "redis://"+addr)
	t.Setenv("REDIS_DIAL_TIMEOUT", "200ms")

	res := invoke("", "status")
	assert.Equal(t, exitRetryable, res.code)
	assert.Contains(t, res.stderr, string(dErrors.CodeNetworkFailure))
}

func TestRemoteRedisDeviceStoreIsRejected(t *testing.T) {
	setupEnv(t)
	t.Setenv("DEVICE_STORE", "redis")
	t.Setenv("REDIS_URL", "redis://203.0.113.10:6379")

	res := invoke("", "status")
	assert.Equal(t, exitUsage, res.code)
	assert.Contains(t, res.stderr, "loopback")
}

func TestSubmitValidatesBeforeAnyNetworkCall(t *testing.T) {
	srv := setupEnv(t)

	res := invoke("", "submit", "-category", "harassment", "-title", "   ", "-description", "x")
	assert.Equal(t, exitFailure, res.code)
	assert.Equal(t, dErrors.CodeInvalidReport, res.errorCode(t))
	assert.Zero(t, srv.TotalCalls())
}

func TestRandomScalarHexFitsTheField(t *testing.T) {
	s, err := randomScalarHex()
	require.NoError(t, err)
	assert.Len(t, s, 62)
	_, err = models.New(s, s)
	assert.NoError(t, err)
}

func TestBadFlagsAreUsageErrors(t *testing.T) {
	setupEnv(t)

	res := invoke("", "reset", "-force")
	assert.Equal(t, exitUsage, res.code)
	assert.Contains(t, res.stderr, "flag provided but not defined")

	res = invoke("", "reset", "extra")
	assert.Equal(t, exitUsage, res.code)
	assert.Contains(t, res.stderr, "unexpected arguments")
}
