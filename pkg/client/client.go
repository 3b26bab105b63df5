// Package client is the Go consumer of the auth API. Its job beyond plain
// request plumbing is the refresh coordination: when several concurrent
// requests hit an expired access token, exactly one refresh call goes to the
// server and the rest reuse its result.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// Role selects which auth group the client talks to. Each role has its own
// independent session.
type Role string

const (
	RoleApplicant Role = "applicant"
	RoleEmployer  Role = "employer"
	RoleAdmin     Role = "admin"
)

type session struct {
	mu      sync.Mutex
	access  string
	refresh string
	// gen counts successful refreshes. A caller that observed gen N and
	// fails with a 401 only performs a refresh if gen is still N; otherwise
	// someone else already refreshed and it just retries with the new token.
	gen uint64
}

type Client struct {
	base     string
	http     *http.Client
	sessions map[Role]*session
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		base: baseURL,
		http: httpClient,
		sessions: map[Role]*session{
			RoleApplicant: {},
			RoleEmployer:  {},
			RoleAdmin:     {},
		},
	}
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type tokenData struct {
	AccessToken string `json:"accessToken"`
}

// Login authenticates the role's session with email and password.
func (c *Client) Login(ctx context.Context, role Role, email, password string) error {
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/%s/login", c.base, role), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	env, err := decodeEnvelope(resp)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login failed: %s", env.Message)
	}

	var td tokenData
	if err := json.Unmarshal(env.Data, &td); err != nil {
		return err
	}
	refresh := refreshCookie(resp)
	if td.AccessToken == "" || refresh == "" {
		return fmt.Errorf("login response missing tokens")
	}

	s := c.sessions[role]
	s.mu.Lock()
	s.access = td.AccessToken
	s.refresh = refresh
	s.gen++
	s.mu.Unlock()
	return nil
}

// Do sends the request with the role's bearer token. On a 401 it coordinates
// a refresh with any concurrent callers and retries once with the new token.
func (c *Client) Do(role Role, req *http.Request) (*http.Response, error) {
	s := c.sessions[role]

	s.mu.Lock()
	access, gen := s.access, s.gen
	s.mu.Unlock()
	if access == "" {
		return nil, fmt.Errorf("no active session for role %s", role)
	}

	var bodyCopy []byte
	if req.Body != nil {
		var err error
		bodyCopy, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body = io.NopCloser(bytes.NewReader(bodyCopy))
	}

	req.Header.Set("Authorization", "Bearer "+access)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	resp.Body.Close()

	access, err = c.reauth(req.Context(), role, gen)
	if err != nil {
		return nil, err
	}

	retry := req.Clone(req.Context())
	if bodyCopy != nil {
		retry.Body = io.NopCloser(bytes.NewReader(bodyCopy))
	}
	retry.Header.Set("Authorization", "Bearer "+access)
	return c.http.Do(retry)
}

// reauth refreshes the session unless another caller already did. The lock
// is held across the network call on purpose: that is what collapses N
// concurrent 401s into one refresh round trip.
func (c *Client) reauth(ctx context.Context, role Role, observedGen uint64) (string, error) {
	s := c.sessions[role]
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != observedGen {
		// Someone else refreshed while we waited for the lock.
		if s.access == "" {
			return "", fmt.Errorf("session for role %s was invalidated", role)
		}
		return s.access, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/%s/refresh", c.base, role), nil)
	if err != nil {
		return "", err
	}
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: s.refresh})

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	env, err := decodeEnvelope(resp)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		// The refresh token is dead. Drop the session so callers fail fast
		// instead of hammering the refresh endpoint.
		s.access, s.refresh = "", ""
		s.gen++
		return "", fmt.Errorf("refresh failed: %s", env.Message)
	}

	var td tokenData
	if err := json.Unmarshal(env.Data, &td); err != nil {
		return "", err
	}
	newRefresh := refreshCookie(resp)
	if td.AccessToken == "" || newRefresh == "" {
		return "", fmt.Errorf("refresh response missing tokens")
	}

	s.access = td.AccessToken
	s.refresh = newRefresh
	s.gen++
	return s.access, nil
}

// AccessToken returns the current access token, for callers that manage
// their own requests.
func (c *Client) AccessToken(role Role) string {
	s := c.sessions[role]
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access
}

func decodeEnvelope(resp *http.Response) (*envelope, error) {
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &env, nil
}

func refreshCookie(resp *http.Response) string {
	for _, ck := range resp.Cookies() {
		if ck.Name == "refreshToken" {
			return ck.Value
		}
	}
	return ""
}
