// Package cribl is the authenticated gateway to the Cribl REST API.
//
// Every outbound call goes through Client.Call, which makes sure a valid
// credential is attached before anything is sent and turns every failure
// into an Envelope carrying one normalized message. The typed operations
// (worker groups, pipelines, sources, metrics, version control) are thin
// wrappers over Call.
package cribl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"

	"github.com/HendryAvila/cribl-bridge/internal/apierr"
	"github.com/HendryAvila/cribl-bridge/internal/telemetry"
)

// DefaultTimeout bounds a single API call, excluding credential refresh.
const DefaultTimeout = 30 * time.Second

// CredentialSource supplies the bearer credential. *auth.Manager satisfies it.
type CredentialSource interface {
	// EnsureValid blocks until a valid credential is stored or the
	// refresh failed.
	EnsureValid(ctx context.Context) error
	// Token returns the stored credential without refreshing.
	Token() (*oauth2.Token, bool)
	// Invalidate drops the stored credential.
	Invalidate()
}

// Request describes one API call.
type Request struct {
	Method string
	// Path is relative to the base URL, e.g. "/api/v1/master/groups".
	Path    string
	Payload any
	Query   url.Values
	// Context labels the logical operation in error messages,
	// e.g. "fetch pipelines for group default".
	Context string
}

func (r Request) label() string {
	if r.Context != "" {
		return r.Context
	}
	return r.Method + " " + r.Path
}

// RawResponse is a successful HTTP answer.
type RawResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

// Client calls the Cribl API with a managed credential.
// It is safe for concurrent use.
type Client struct {
	baseURL    string
	creds      CredentialSource
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
	logger     *slog.Logger
	metrics    *telemetry.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client. Redirects are still not followed.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-call timeout. Defaults to DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics records calls.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a Client for the leader at baseURL.
func NewClient(baseURL string, creds CredentialSource, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		creds:     creds,
		timeout:   DefaultTimeout,
		userAgent: "cribl-bridge",
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}

	hc := &http.Client{}
	if c.httpClient != nil {
		copied := *c.httpClient
		hc = &copied
	}
	// A redirect is a failure, never a reason to resend the credential.
	hc.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	c.httpClient = hc

	return c
}

// Call sends r with a valid credential attached. It never returns a Go
// error: failures come back as an Envelope with a normalized message.
// If no valid credential can be obtained, nothing is sent.
func (c *Client) Call(ctx context.Context, r Request) Envelope[*RawResponse] {
	label := r.label()
	ctx, span := otel.Tracer(telemetry.TracerName).Start(ctx, "cribl.call",
		trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("http.request.method", r.Method),
		attribute.String("cribl.path", r.Path),
		attribute.String("cribl.context", label),
	)
	defer span.End()

	start := time.Now()
	resp, err := c.do(ctx, r)
	c.metrics.ObserveCall(r.Method, outcome(err), time.Since(start))

	if err != nil {
		msg := apierr.Normalize(err, label)
		span.SetStatus(codes.Error, msg)
		c.logger.Warn("cribl call failed",
			"context", label,
			"method", r.Method,
			"path", r.Path,
			"error", err,
		)
		return Fail[*RawResponse](msg)
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.Status))
	c.logger.Debug("cribl call succeeded", "context", label, "status", resp.Status)
	return Ok(resp)
}

func (c *Client) do(ctx context.Context, r Request) (*RawResponse, error) {
	if err := c.creds.EnsureValid(ctx); err != nil {
		return nil, err
	}
	tok, ok := c.creds.Token()
	if !ok {
		// The credential was invalidated between refresh and send.
		return nil, &apierr.RefreshError{
			Message: apierr.Normalize(errors.New("no credential available"), r.label()),
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newRequest(ctx, r)
	if err != nil {
		return nil, err
	}
	tok.SetAuthHeader(req)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &apierr.TransportError{Err: err}
	}
	defer func() { _ = httpResp.Body.Close() }()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &apierr.TransportError{Err: err}
	}

	if err := apierr.CheckStatus(httpResp.StatusCode, body); err != nil {
		if httpResp.StatusCode == http.StatusUnauthorized {
			// The server no longer accepts the credential; make the next
			// call fetch a new one.
			c.creds.Invalidate()
		}
		return nil, err
	}

	return &RawResponse{
		Status: httpResp.StatusCode,
		Header: httpResp.Header,
		Body:   body,
	}, nil
}

func (c *Client) newRequest(ctx context.Context, r Request) (*http.Request, error) {
	u := c.baseURL + "/" + strings.TrimLeft(r.Path, "/")
	if len(r.Query) > 0 {
		u += "?" + r.Query.Encode()
	}

	var body io.Reader
	if r.Payload != nil {
		payload, err := json.Marshal(r.Payload)
		if err != nil {
			return nil, fmt.Errorf("encoding payload: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, u, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if r.Payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-Id", uuid.NewString())
	return req, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apierr.ErrRefresh):
		return "refresh_error"
	case errors.Is(err, apierr.ErrUnexpectedStatus):
		return "http_error"
	case errors.Is(err, apierr.ErrNoResponse):
		return "transport_error"
	default:
		return "error"
	}
}

// decodeJSON decodes a successful raw response into T. A body that does not
// match becomes a normalized malformed-response failure.
func decodeJSON[T any](env Envelope[*RawResponse], label string) Envelope[T] {
	if !env.Success {
		return failAs[T](env)
	}
	var out T
	if err := json.Unmarshal(env.Data.Body, &out); err != nil {
		return Fail[T](apierr.Normalize(&apierr.MalformedResponseError{
			Status: env.Data.Status,
			Body:   env.Data.Body,
			Err:    err,
		}, label))
	}
	return Ok(out)
}
