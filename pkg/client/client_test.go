package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAuthServer speaks just enough of the API for the client: login mints a
// token pair, /me accepts only the currently valid access token, refresh
// rotates the pair and counts how often it was called.
type fakeAuthServer struct {
	mu           sync.Mutex
	n            int
	validAccess  string
	validRefresh string
	refreshCalls atomic.Int64
	srv          *httptest.Server
}

func (f *fakeAuthServer) writeTokens(w http.ResponseWriter) {
	f.mu.Lock()
	f.n++
	f.validAccess = fmt.Sprintf("access-%d", f.n)
	f.validRefresh = fmt.Sprintf("refresh-%d", f.n)
	access, refresh := f.validAccess, f.validRefresh
	f.mu.Unlock()

	http.SetCookie(w, &http.Cookie{Name: "refreshToken", Value: refresh, Path: "/", HttpOnly: true})
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "success",
		"data":   map[string]string{"accessToken": access},
	})
}

// expireAccess invalidates the outstanding access token while keeping the
// refresh token alive, the normal expiry situation.
func (f *fakeAuthServer) expireAccess() {
	f.mu.Lock()
	f.validAccess = ""
	f.mu.Unlock()
}

// revokeAll kills both tokens, as a server-side logout would.
func (f *fakeAuthServer) revokeAll() {
	f.mu.Lock()
	f.validAccess = ""
	f.validRefresh = ""
	f.mu.Unlock()
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"status": "error", "message": msg})
}

func newFakeAuthServer(t *testing.T) *fakeAuthServer {
	t.Helper()
	f := &fakeAuthServer{}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /employer/login", func(w http.ResponseWriter, r *http.Request) {
		f.writeTokens(w)
	})
	mux.HandleFunc("POST /employer/refresh", func(w http.ResponseWriter, r *http.Request) {
		f.refreshCalls.Add(1)
		ck, err := r.Cookie("refreshToken")
		f.mu.Lock()
		valid := f.validRefresh
		f.mu.Unlock()
		if err != nil || valid == "" || ck.Value != valid {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		f.writeTokens(w)
	})
	mux.HandleFunc("GET /employer/me", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		valid := f.validAccess
		f.mu.Unlock()
		if valid == "" || r.Header.Get("Authorization") != "Bearer "+valid {
			writeError(w, http.StatusUnauthorized, "access token expired")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "success",
			"data":   map[string]string{"id": "e-1"},
		})
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func TestDoAttachesBearerToken(t *testing.T) {
	f := newFakeAuthServer(t)
	c := New(f.srv.URL, nil)

	require.NoError(t, c.Login(context.Background(), RoleEmployer, "a@acme.test", "pw"))

	req, _ := http.NewRequest(http.MethodGet, f.srv.URL+"/employer/me", nil)
	resp, err := c.Do(RoleEmployer, req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 0, f.refreshCalls.Load())
}

func TestDoWithoutSession(t *testing.T) {
	f := newFakeAuthServer(t)
	c := New(f.srv.URL, nil)

	req, _ := http.NewRequest(http.MethodGet, f.srv.URL+"/employer/me", nil)
	_, err := c.Do(RoleEmployer, req)
	assert.Error(t, err)
}

func TestExpiredTokenRefreshedTransparently(t *testing.T) {
	f := newFakeAuthServer(t)
	c := New(f.srv.URL, nil)

	require.NoError(t, c.Login(context.Background(), RoleEmployer, "a@acme.test", "pw"))
	f.expireAccess()

	req, _ := http.NewRequest(http.MethodGet, f.srv.URL+"/employer/me", nil)
	resp, err := c.Do(RoleEmployer, req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, f.refreshCalls.Load())
}

func TestConcurrent401sCauseExactlyOneRefresh(t *testing.T) {
	f := newFakeAuthServer(t)
	c := New(f.srv.URL, nil)

	require.NoError(t, c.Login(context.Background(), RoleEmployer, "a@acme.test", "pw"))
	f.expireAccess()

	const callers = 5
	var wg sync.WaitGroup
	errs := make([]error, callers)
	codes := make([]int, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req, _ := http.NewRequest(http.MethodGet, f.srv.URL+"/employer/me", nil)
			resp, err := c.Do(RoleEmployer, req)
			if err != nil {
				errs[i] = err
				return
			}
			codes[i] = resp.StatusCode
			resp.Body.Close()
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, http.StatusOK, codes[i])
	}
	assert.EqualValues(t, 1, f.refreshCalls.Load(), "expected the concurrent 401s to collapse into one refresh")
}

func TestDeadRefreshTokenClearsSession(t *testing.T) {
	f := newFakeAuthServer(t)
	c := New(f.srv.URL, nil)

	require.NoError(t, c.Login(context.Background(), RoleEmployer, "a@acme.test", "pw"))
	f.revokeAll()

	req, _ := http.NewRequest(http.MethodGet, f.srv.URL+"/employer/me", nil)
	_, err := c.Do(RoleEmployer, req)
	require.Error(t, err)

	assert.Empty(t, c.AccessToken(RoleEmployer))

	// Subsequent calls fail fast without touching the network.
	before := f.refreshCalls.Load()
	req, _ = http.NewRequest(http.MethodGet, f.srv.URL+"/employer/me", nil)
	_, err = c.Do(RoleEmployer, req)
	require.Error(t, err)
	assert.Equal(t, before, f.refreshCalls.Load())
}
