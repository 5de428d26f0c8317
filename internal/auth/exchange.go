package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/HendryAvila/cribl-bridge/internal/apierr"
)

const (
	// SafetyMargin is subtracted from the server-reported lifetime so the
	// token is replaced before the server stops accepting it.
	SafetyMargin = 60 * time.Second

	// LoginLifetime is the fixed refresh cadence for login tokens, which
	// carry no expiry information.
	LoginLifetime = time.Hour

	// DefaultCloudAuthURL is the Cribl.Cloud identity provider.
	DefaultCloudAuthURL = "https://login.cribl.cloud"

	// DefaultAudience is the audience requested for Cribl.Cloud tokens.
	DefaultAudience = "https://api.cribl.cloud"
)

// ClientCredentials exchanges a client id/secret for a token at
// {AuthURL}/oauth/token (Cribl.Cloud).
type ClientCredentials struct {
	AuthURL      string
	ClientID     string
	ClientSecret string
	Audience     string
	HTTPClient   *http.Client
}

type clientCredentialsRequest struct {
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Audience     string `json:"audience"`
}

type clientCredentialsResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// Mode implements Exchanger.
func (c *ClientCredentials) Mode() string { return "client credentials" }

// Exchange implements Exchanger.
func (c *ClientCredentials) Exchange(ctx context.Context) (*Grant, error) {
	authURL := c.AuthURL
	if authURL == "" {
		authURL = DefaultCloudAuthURL
	}
	audience := c.Audience
	if audience == "" {
		audience = DefaultAudience
	}

	var out clientCredentialsResponse
	status, body, err := postJSON(ctx, httpClientOrDefault(c.HTTPClient), strings.TrimRight(authURL, "/")+"/oauth/token",
		clientCredentialsRequest{
			GrantType:    "client_credentials",
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			Audience:     audience,
		}, &out)
	if err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, &apierr.MalformedResponseError{Status: status, Body: body, Err: errors.New("access_token missing")}
	}

	return &Grant{
		AccessToken: out.AccessToken,
		TokenType:   out.TokenType,
		Lifetime:    time.Duration(out.ExpiresIn)*time.Second - SafetyMargin,
	}, nil
}

// Login exchanges a username/password for a token at
// {BaseURL}/api/v1/auth/login (self-hosted leader).
type Login struct {
	BaseURL    string
	Username   string
	Password   string
	HTTPClient *http.Client
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Mode implements Exchanger.
func (l *Login) Mode() string { return "login" }

// Exchange implements Exchanger.
func (l *Login) Exchange(ctx context.Context) (*Grant, error) {
	var out loginResponse
	status, body, err := postJSON(ctx, httpClientOrDefault(l.HTTPClient), strings.TrimRight(l.BaseURL, "/")+"/api/v1/auth/login",
		loginRequest{Username: l.Username, Password: l.Password}, &out)
	if err != nil {
		return nil, err
	}

	token := StripScheme(out.Token)
	if token == "" {
		return nil, &apierr.MalformedResponseError{Status: status, Body: body, Err: errors.New("token missing")}
	}

	return &Grant{
		AccessToken: token,
		TokenType:   "Bearer",
		Lifetime:    LoginLifetime,
	}, nil
}

// StripScheme removes a leading scheme label ("Bearer abc" -> "abc").
// Tokens without a label are returned trimmed.
func StripScheme(token string) string {
	token = strings.TrimSpace(token)
	scheme, rest, found := strings.Cut(token, " ")
	if !found || !isSchemeLabel(scheme) {
		return token
	}
	return strings.TrimSpace(rest)
}

func isSchemeLabel(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

func httpClientOrDefault(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: DefaultExchangeTimeout}
}

// postJSON sends body as JSON and decodes a 2xx answer into out. Failures
// are returned as apierr types; status and raw body are returned for
// further validation by the caller.
func postJSON(ctx context.Context, client *http.Client, url string, body, out any) (int, []byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, &apierr.TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, &apierr.TransportError{Err: err}
	}

	if err := apierr.CheckStatus(resp.StatusCode, raw); err != nil {
		return resp.StatusCode, raw, err
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return resp.StatusCode, raw, &apierr.MalformedResponseError{Status: resp.StatusCode, Body: raw, Err: err}
	}
	return resp.StatusCode, raw, nil
}
