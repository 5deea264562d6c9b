package pinata

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "clearcrew/pkg/domain-errors"
)

func TestUploadSendsMultipartFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pinning/pinFileToIPFS", r.URL.Path)
		assert.Equal(t, "Bearer jwt-123", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, []byte{0x01, 0x02}, data)
		assert.Equal(t, "report.bin", hdr.Filename)
		assert.JSONEq(t, `{"name":"report.bin"}`, r.FormValue("pinataMetadata"))

		_, _ = w.Write([]byte(`{"IpfsHash":"bafytest","PinSize":2,"Timestamp":"2025-01-01T00:00:00Z"}`))
	}))
	defer srv.Close()

	c, err := New("jwt-123", WithBaseURL(srv.URL))
	require.NoError(t, err)

	cid, err := c.Upload(context.Background(), "report.bin", []byte{0x01, 0x02})
	require.NoError(t, err)
	assert.Equal(t, "bafytest", cid)
}

func TestUploadFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"unauthorized": func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusUnauthorized) },
		"server error": func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
		"no hash":      func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(`{}`)) },
		"not json":     func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(`<html>`)) },
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()
			c, err := New("jwt", WithBaseURL(srv.URL))
			require.NoError(t, err)

			_, err = c.Upload(context.Background(), "r.bin", []byte{1})
			assert.True(t, dErrors.Is(err, dErrors.CodeUploadFailed))
		})
	}
}

func TestUploadUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New("jwt", WithBaseURL(url))
	require.NoError(t, err)
	_, err = c.Upload(context.Background(), "r.bin", []byte{1})
	assert.True(t, dErrors.Is(err, dErrors.CodeUploadFailed))
}

func TestUploadEmpty(t *testing.T) {
	c, err := New("jwt")
	require.NoError(t, err)
	_, err = c.Upload(context.Background(), "r.bin", nil)
	assert.True(t, dErrors.Is(err, dErrors.CodeUploadFailed))
}

func TestNewRequiresJWT(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}
