package forecast

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBareTransport_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, r.Close, "bare transport must not reuse connections")
		assert.Equal(t, "lat=1", r.URL.RawQuery)

		// Flushing forces a chunked body.
		_, _ = w.Write([]byte(`{"ok":`))
		w.(http.Flusher).Flush()
		_, _ = w.Write([]byte(`true}`))
	}))
	defer srv.Close()

	body, err := NewBareTransport(time.Second, "test").Get(context.Background(), srv.URL+"/v1/marine?lat=1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
}

func TestBareTransport_Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewBareTransport(time.Second, "").Get(context.Background(), srv.URL)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestBareTransport_TLS(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	tlsCfg := srv.Client().Transport.(*http.Transport).TLSClientConfig
	transport := NewBareTransport(time.Second, "").WithTLSConfig(tlsCfg)

	body, err := transport.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(body))
}

func TestBareTransport_RejectsUnknownScheme(t *testing.T) {
	_, err := NewBareTransport(time.Second, "").Get(context.Background(), "ftp://example.com/x")
	assert.Error(t, err)
}

func TestPooledTransport_Get(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "agent", r.UserAgent())
		_, _ = w.Write([]byte(`[1,2,3]`))
	}))
	defer srv.Close()

	body, err := NewPooledTransport(time.Second, "agent").Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "[1,2,3]", string(body))
}

func TestPooledTransport_StatusErrorKeepsSnippet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewPooledTransport(time.Second, "").Get(context.Background(), srv.URL)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "overloaded")
}
