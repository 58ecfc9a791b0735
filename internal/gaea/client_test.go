package gaea

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCreds() Credentials {
	return Credentials{
		UID:       "uid-1",
		BrowserID: "browser-1",
		Token:     "secret-token",
	}
}

func TestPingSendsAuthenticatedRequest(t *testing.T) {
	t.Parallel()

	var gotReq PingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/network/ping", r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":{"ip_score":90}}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(WithBaseURL(srv.URL), WithVersion("9.9.9"))
	require.NoError(t, client.Ping(context.Background(), testCreds()))

	assert.Equal(t, "uid-1", gotReq.UID)
	assert.Equal(t, "browser-1", gotReq.BrowserID)
	assert.Equal(t, "9.9.9", gotReq.Version)
	assert.InDelta(t, time.Now().Unix(), gotReq.Timestamp, 5)
}

func TestPingRemoteRejection(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"msg":"token expired"}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(WithBaseURL(srv.URL))
	err := client.Ping(context.Background(), testCreds())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRemoteRejected)
	assert.Contains(t, err.Error(), "token expired")
}

func TestPingHTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewHTTPClient(WithBaseURL(srv.URL))
	err := client.Ping(context.Background(), testCreds())
	require.Error(t, err)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.StatusCode)
}

func TestInfoReturnsEnvelopeData(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/earn/info", r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"success":true,"data":{"total":"123.4","uptime":42}}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(WithBaseURL(srv.URL))
	data, err := client.Info(context.Background(), testCreds())
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":"123.4","uptime":42}`, string(data))
}

func TestInfoMalformedEnvelope(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	client := NewHTTPClient(WithBaseURL(srv.URL))
	_, err := client.Info(context.Background(), testCreds())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "envelope")
}

func TestRequestHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer srv.Close()

	client := NewHTTPClient(WithBaseURL(srv.URL))
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	err := client.Ping(ctx, testCreds())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClientForCachesPerProxy(t *testing.T) {
	t.Parallel()

	client := NewHTTPClient()

	direct1, err := client.clientFor("")
	require.NoError(t, err)
	direct2, err := client.clientFor("")
	require.NoError(t, err)
	assert.Same(t, direct1, direct2)

	proxied, err := client.clientFor("http://127.0.0.1:8888")
	require.NoError(t, err)
	assert.NotSame(t, direct1, proxied)

	_, err = client.clientFor("://bad proxy")
	assert.Error(t, err)
}

func TestProxiedRequestsRouteThroughProxy(t *testing.T) {
	t.Parallel()

	var proxyHits atomic.Int64
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proxyHits.Add(1)
		// An HTTP proxy receives the absolute target URL.
		assert.True(t, r.URL.IsAbs() || r.Method == http.MethodConnect)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer proxy.Close()

	creds := testCreds()
	creds.Proxy = proxy.URL

	client := NewHTTPClient(WithBaseURL("http://fleet.invalid"))
	require.NoError(t, client.Ping(context.Background(), creds))
	assert.Equal(t, int64(1), proxyHits.Load())
}
