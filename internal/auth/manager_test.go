package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(handler)
}

func TestAuthHeadersAcquiresAndReusesToken(t *testing.T) {
	var requests int32
	srv := tokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
		fmt.Fprint(w, `{"access_token":"tok-1","expires_in":3600,"token_type":"bearer"}`)
	})
	defer srv.Close()

	m := NewManager(srv.URL, "client-id", "client-secret")

	headers, err := m.AuthHeaders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-1", headers["Authorization"])

	// Second call must not hit the endpoint again.
	headers, err = m.AuthHeaders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-1", headers["Authorization"])
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests))
}

func TestAuthHeadersRenewsAtExpiryMargin(t *testing.T) {
	var requests int32
	srv := tokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&requests, 1)
		fmt.Fprintf(w, `{"access_token":"tok-%d","expires_in":3600,"token_type":"bearer"}`, n)
	})
	defer srv.Close()

	current := time.Now()
	m := NewManager(srv.URL, "client-id", "client-secret")
	m.now = func() time.Time { return current }

	_, err := m.AuthHeaders(context.Background())
	require.NoError(t, err)

	// 3600s lifetime minus the 60s margin: still valid just before, expired at.
	current = current.Add(3600*time.Second - expiryMargin - time.Second)
	_, err = m.AuthHeaders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests))

	current = current.Add(2 * time.Second)
	headers, err := m.AuthHeaders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-2", headers["Authorization"])
	assert.Equal(t, int32(2), atomic.LoadInt32(&requests))
}

func TestAuthHeadersPrefersRefreshGrant(t *testing.T) {
	var grants []string
	srv := tokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		grants = append(grants, r.PostForm.Get("grant_type"))
		fmt.Fprint(w, `{"access_token":"tok","expires_in":3600,"token_type":"bearer","refresh_token":"refresh-1"}`)
	})
	defer srv.Close()

	current := time.Now()
	m := NewManager(srv.URL, "client-id", "client-secret")
	m.now = func() time.Time { return current }

	_, err := m.AuthHeaders(context.Background())
	require.NoError(t, err)

	current = current.Add(4000 * time.Second)
	_, err = m.AuthHeaders(context.Background())
	require.NoError(t, err)

	require.Len(t, grants, 2)
	assert.Equal(t, "client_credentials", grants[0])
	assert.Equal(t, "refresh_token", grants[1])
}

func TestRefreshFailureFallsBackToClientCredentials(t *testing.T) {
	var grants []string
	srv := tokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		grant := r.PostForm.Get("grant_type")
		grants = append(grants, grant)
		if grant == "refresh_token" {
			http.Error(w, "invalid refresh token", http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, `{"access_token":"tok-cc","expires_in":3600,"token_type":"bearer","refresh_token":"refresh-1"}`)
	})
	defer srv.Close()

	current := time.Now()
	m := NewManager(srv.URL, "client-id", "client-secret")
	m.now = func() time.Time { return current }

	_, err := m.AuthHeaders(context.Background())
	require.NoError(t, err)

	current = current.Add(4000 * time.Second)
	headers, err := m.AuthHeaders(context.Background())
	require.NoError(t, err, "refresh failure must not propagate to the caller")
	assert.Equal(t, "Bearer tok-cc", headers["Authorization"])
	assert.Equal(t, []string{"client_credentials", "refresh_token", "client_credentials"}, grants)
}

func TestAuthHeadersFailureClearsState(t *testing.T) {
	srv := tokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	})
	defer srv.Close()

	m := NewManager(srv.URL, "client-id", "client-secret")

	_, err := m.AuthHeaders(context.Background())
	require.ErrorIs(t, err, ErrAuthentication)
	assert.Empty(t, m.accessToken)
	assert.True(t, m.expiresAt.IsZero())
}

func TestConcurrentExpiryTriggersSingleRequest(t *testing.T) {
	var requests int32
	srv := tokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		time.Sleep(50 * time.Millisecond)
		fmt.Fprint(w, `{"access_token":"tok","expires_in":3600,"token_type":"bearer"}`)
	})
	defer srv.Close()

	m := NewManager(srv.URL, "client-id", "client-secret")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			headers, err := m.AuthHeaders(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "Bearer tok", headers["Authorization"])
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&requests))
}
