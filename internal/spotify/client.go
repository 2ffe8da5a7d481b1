// Package spotify implements the third-party side of the login flow: the
// OAuth authorization-code exchange and the Web API calls used to build a
// profile (current user + top artists). Endpoint URLs are overridable so
// tests can point the client at a local httptest server.
package spotify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultAuthURL       = "https://accounts.spotify.com/authorize"
	defaultTokenURL      = "https://accounts.spotify.com/api/token"
	defaultProfileURL    = "https://api.spotify.com/v1/me"
	defaultTopArtistsURL = "https://api.spotify.com/v1/me/top/artists"

	// Scopes required to read the private profile and top items.
	loginScope = "user-read-private user-top-read"

	// Top-artist fetch parameters, fixed by product behavior.
	topArtistsTimeRange = "medium_term"
	topArtistsLimit     = "20"
)

// Config holds the registered OAuth application and optional endpoint
// overrides for tests.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string

	AuthURL       string
	TokenURL      string
	ProfileURL    string
	TopArtistsURL string
}

// Client talks to the Spotify accounts service and Web API.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient constructs a Client, filling in default endpoint URLs and an
// HTTP client with a request timeout. Upstream calls are never retried;
// failures surface immediately to the caller.
func NewClient(cfg Config) *Client {
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.ProfileURL == "" {
		cfg.ProfileURL = defaultProfileURL
	}
	if cfg.TopArtistsURL == "" {
		cfg.TopArtistsURL = defaultTopArtistsURL
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

// LoginURL builds the authorization redirect target for GET /login.
func (c *Client) LoginURL() string {
	params := url.Values{
		"response_type": {"code"},
		"client_id":     {c.cfg.ClientID},
		"scope":         {loginScope},
		"redirect_uri":  {c.cfg.RedirectURI},
	}
	return c.cfg.AuthURL + "?" + params.Encode()
}

// TokenResponse is the accounts-service token endpoint response.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// UserProfile is the subset of /v1/me used by the application.
type UserProfile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// topArtistsResponse mirrors the /v1/me/top/artists envelope.
type topArtistsResponse struct {
	Items []struct {
		Name string `json:"name"`
	} `json:"items"`
}

// ExchangeCode swaps an authorization code for access/refresh credentials.
// Client credentials are sent via HTTP Basic auth, as the token endpoint
// expects.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	data := url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {c.cfg.RedirectURI},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("spotify: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	basic := base64.StdEncoding.EncodeToString([]byte(c.cfg.ClientID + ":" + c.cfg.ClientSecret))
	req.Header.Set("Authorization", "Basic "+basic)

	var tr TokenResponse
	if err := c.do(req, &tr); err != nil {
		return nil, err
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("spotify: empty access token in response")
	}
	return &tr, nil
}

// Profile fetches the authenticated user's profile.
func (c *Client) Profile(ctx context.Context, accessToken string) (*UserProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.ProfileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("spotify: build profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var p UserProfile
	if err := c.do(req, &p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, fmt.Errorf("spotify: profile response missing id")
	}
	return &p, nil
}

// TopArtists fetches the user's top artists (medium term, up to 20) and
// returns their names in rank order.
func (c *Client) TopArtists(ctx context.Context, accessToken string) ([]string, error) {
	u, err := url.Parse(c.cfg.TopArtistsURL)
	if err != nil {
		return nil, fmt.Errorf("spotify: top artists url: %w", err)
	}
	q := u.Query()
	q.Set("time_range", topArtistsTimeRange)
	q.Set("limit", topArtistsLimit)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("spotify: build top artists request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var resp topArtistsResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(resp.Items))
	for _, it := range resp.Items {
		names = append(names, it.Name)
	}
	return names, nil
}

// do executes the request and decodes a 200 JSON body into out. Non-200
// responses return an error carrying the status and a truncated body for
// server logs.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("spotify: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("spotify: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("spotify: %s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, truncate(string(body), 512))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("spotify: decode response: %w", err)
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
