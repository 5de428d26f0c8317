// Package auth owns the bearer credential used for Cribl API calls.
//
// A Manager keeps the current token and its expiry and guarantees that
// concurrent callers needing a fresh token share a single exchange with
// the credential source. How the token is obtained is delegated to an
// Exchanger: client credentials for Cribl.Cloud, username/password login
// for self-hosted leaders.
package auth

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/HendryAvila/cribl-bridge/internal/apierr"
	"github.com/HendryAvila/cribl-bridge/internal/telemetry"
)

// DefaultExchangeTimeout bounds a single credential exchange.
const DefaultExchangeTimeout = 30 * time.Second

// refreshKey is the single key of the singleflight group: there is exactly
// one credential per Manager.
const refreshKey = "credential"

// Grant is the outcome of a successful exchange.
type Grant struct {
	// AccessToken is the bearer value, without any scheme label.
	AccessToken string
	// TokenType is the scheme reported by the server ("Bearer" if empty).
	TokenType string
	// Lifetime is how long the token may be used from the moment the
	// exchange settles. Safety margins are already applied.
	Lifetime time.Duration
}

// Exchanger obtains a new credential from the credential source.
type Exchanger interface {
	// Exchange performs one exchange. Failures must be classified with the
	// apierr types so they normalize consistently.
	Exchange(ctx context.Context) (*Grant, error)
	// Mode names the credential source for messages and metrics.
	Mode() string
}

// Manager hands out a valid credential, refreshing it when missing or
// expired. It is safe for concurrent use.
type Manager struct {
	exchanger Exchanger
	now       func() time.Time
	timeout   time.Duration
	logger    *slog.Logger
	metrics   *telemetry.Metrics

	mu    sync.RWMutex
	token *oauth2.Token

	group singleflight.Group
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithExchangeTimeout bounds each exchange. Defaults to DefaultExchangeTimeout.
func WithExchangeTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithMetrics records exchanges and waits.
func WithMetrics(metrics *telemetry.Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// NewManager creates a Manager backed by ex.
func NewManager(ex Exchanger, opts ...Option) *Manager {
	m := &Manager{
		exchanger: ex,
		now:       time.Now,
		timeout:   DefaultExchangeTimeout,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// EnsureValid returns nil once a valid credential is stored. When the stored
// credential is missing or expired, the caller joins the one in-flight
// exchange (starting it if none is running) and waits for it to settle.
// Every waiter observes the same outcome. Failures are *apierr.RefreshError.
//
// If ctx ends first the caller stops waiting; the shared exchange keeps
// running for the remaining waiters.
func (m *Manager) EnsureValid(ctx context.Context) error {
	if m.valid() {
		return nil
	}

	m.metrics.ObserveRefreshWait()
	ch := m.group.DoChan(refreshKey, func() (any, error) {
		return nil, m.refresh()
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return &apierr.RefreshError{
			Mode:    m.exchanger.Mode(),
			Message: apierr.Normalize(ctx.Err(), m.refreshLabel()),
			Err:     ctx.Err(),
		}
	}
}

// Token returns the stored credential, if any. It never refreshes.
func (m *Manager) Token() (*oauth2.Token, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.token == nil {
		return nil, false
	}
	return m.token, true
}

// Invalidate drops the stored credential so the next EnsureValid refreshes.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	m.token = nil
	m.mu.Unlock()
}

// ExpiresAt returns the expiry of the stored credential, or the zero time.
func (m *Manager) ExpiresAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.token == nil {
		return time.Time{}
	}
	return m.token.Expiry
}

// valid reports whether a credential is stored and now < expiry.
func (m *Manager) valid() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token != nil && m.now().Before(m.token.Expiry)
}

// refresh runs inside the singleflight group. It re-checks validity so a
// caller that lost the race with a just-settled exchange does not start
// another one.
func (m *Manager) refresh() error {
	if m.valid() {
		return nil
	}

	mode := m.exchanger.Mode()
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	ctx, span := otel.Tracer(telemetry.TracerName).Start(ctx, "auth.refresh")
	span.SetAttributes(attribute.String("cribl.auth_mode", mode))
	defer span.End()

	grant, err := m.exchanger.Exchange(ctx)
	m.metrics.ObserveRefresh(mode, err)
	if err != nil {
		m.Invalidate()
		msg := apierr.Normalize(err, m.refreshLabel())
		span.SetStatus(codes.Error, msg)
		m.logger.Warn("credential refresh failed", "mode", mode, "error", err)
		return &apierr.RefreshError{Mode: mode, Message: msg, Err: err}
	}

	tokenType := grant.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	tok := &oauth2.Token{
		AccessToken: grant.AccessToken,
		TokenType:   tokenType,
		Expiry:      m.now().Add(grant.Lifetime),
	}

	m.mu.Lock()
	m.token = tok
	m.mu.Unlock()

	m.logger.Debug("credential refreshed", "mode", mode, "expires_at", tok.Expiry)
	return nil
}

func (m *Manager) refreshLabel() string {
	return "credential refresh (" + m.exchanger.Mode() + ")"
}
