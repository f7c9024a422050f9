package token

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/KreatechIT/mrs-sub000/internal/shared/models"
)

const (
	// DefaultExpiryBuffer is how long before the exp claim a token is already
	// treated as expired, so refresh happens ahead of the hard cutoff.
	DefaultExpiryBuffer = 5 * time.Minute

	maxRefreshAttempts = 3
	refreshPath        = "/login/refresh-token/"
)

var (
	// ErrMaxRefreshAttempts is returned after three consecutive failed
	// refreshes; tokens are cleared and further calls fail fast without a
	// network round trip.
	ErrMaxRefreshAttempts = errors.New("max refresh attempts exceeded")

	// ErrRefreshTokenExpired is returned when the refresh endpoint itself
	// answers 401; local tokens are cleared immediately.
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// ErrNoRefreshToken is returned when there is nothing to refresh with.
	ErrNoRefreshToken = errors.New("no refresh token stored")
)

// Manager drives the token lifecycle: NoTokens -> Valid on login,
// Valid -> Expiring lazily on access, one deduplicated refresh in flight at
// a time, and Invalid (cleared) after the refresh credential is rejected or
// the attempt budget is spent.
type Manager struct {
	store   *Store
	baseURL string
	hc      *http.Client
	log     *zap.Logger
	buffer  time.Duration

	mu       sync.Mutex
	failures int
	group    singleflight.Group
}

// Option tweaks a Manager. The defaults match production use.
type Option func(*Manager)

func WithHTTPClient(hc *http.Client) Option {
	return func(m *Manager) { m.hc = hc }
}

func WithExpiryBuffer(d time.Duration) Option {
	return func(m *Manager) { m.buffer = d }
}

func NewManager(baseURL string, store *Store, log *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		baseURL: baseURL,
		hc:      &http.Client{Timeout: 30 * time.Second},
		log:     log,
		buffer:  DefaultExpiryBuffer,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// SaveLogin persists a fresh pair obtained from a login endpoint and resets
// the refresh failure budget.
func (m *Manager) SaveLogin(tr models.TokenResponse) error {
	if err := m.store.Save(AuthTokens{Access: tr.AccessToken, Refresh: tr.RefreshToken}); err != nil {
		return err
	}
	m.mu.Lock()
	m.failures = 0
	m.mu.Unlock()
	return nil
}

// Tokens exposes the stored pair.
func (m *Manager) Tokens() (AuthTokens, bool, error) {
	return m.store.Load()
}

// Clear wipes local auth state and re-arms the refresh budget.
func (m *Manager) Clear() error {
	m.mu.Lock()
	m.failures = 0
	m.mu.Unlock()
	return m.store.Clear()
}

// IsExpired decodes the JWT exp claim without verifying the signature; the
// real verification happens server-side and this read exists only so the
// client can refresh ahead of time. A missing or unreadable claim counts as
// expired.
func (m *Manager) IsExpired(tok string) bool {
	if tok == "" {
		return true
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return time.Until(exp.Time) <= m.buffer
}

// ValidAccessToken returns a usable access token, or "" without surfacing an
// error. An expired token triggers exactly one refresh attempt.
func (m *Manager) ValidAccessToken(ctx context.Context) string {
	cur, ok, err := m.store.Load()
	if err == nil && ok && !m.IsExpired(cur.Access) {
		return cur.Access
	}
	next, err := m.Refresh(ctx)
	if err != nil {
		m.log.Debug("token refresh failed", zap.Error(err))
		return ""
	}
	return next.Access
}

// Refresh exchanges the refresh token for a new access token. Concurrent
// callers share a single in-flight network request.
func (m *Manager) Refresh(ctx context.Context) (AuthTokens, error) {
	m.mu.Lock()
	spent := m.failures >= maxRefreshAttempts
	m.mu.Unlock()
	if spent {
		return AuthTokens{}, ErrMaxRefreshAttempts
	}

	v, err, _ := m.group.Do("refresh", func() (interface{}, error) {
		return m.doRefresh(ctx)
	})
	if err != nil {
		return AuthTokens{}, err
	}
	return v.(AuthTokens), nil
}

func (m *Manager) doRefresh(ctx context.Context) (AuthTokens, error) {
	cur, ok, err := m.store.Load()
	if err != nil {
		return AuthTokens{}, err
	}
	if !ok || cur.Refresh == "" {
		return AuthTokens{}, ErrNoRefreshToken
	}

	body, _ := json.Marshal(map[string]string{"refresh": cur.Refresh})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+refreshPath, bytes.NewReader(body))
	if err != nil {
		return AuthTokens{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.hc.Do(req)
	if err != nil {
		return AuthTokens{}, m.recordFailure(fmt.Errorf("refresh request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		// The refresh credential itself was rejected; retrying cannot help.
		if cerr := m.store.Clear(); cerr != nil {
			m.log.Warn("failed to clear tokens", zap.Error(cerr))
		}
		m.log.Warn("refresh token rejected by server")
		return AuthTokens{}, ErrRefreshTokenExpired
	}
	if resp.StatusCode != http.StatusOK {
		return AuthTokens{}, m.recordFailure(fmt.Errorf("refresh failed: status %d", resp.StatusCode))
	}

	var tr models.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return AuthTokens{}, m.recordFailure(fmt.Errorf("refresh response: %w", err))
	}
	if tr.AccessToken == "" {
		return AuthTokens{}, m.recordFailure(errors.New("refresh response missing access token"))
	}

	next := AuthTokens{Access: tr.AccessToken, Refresh: tr.RefreshToken}
	if next.Refresh == "" {
		// Server did not rotate; keep the one we have.
		next.Refresh = cur.Refresh
	}
	if err := m.store.Save(next); err != nil {
		return AuthTokens{}, err
	}

	m.mu.Lock()
	m.failures = 0
	m.mu.Unlock()
	m.log.Debug("access token refreshed")
	return next, nil
}

func (m *Manager) recordFailure(cause error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
	if m.failures >= maxRefreshAttempts {
		if err := m.store.Clear(); err != nil {
			m.log.Warn("failed to clear tokens", zap.Error(err))
		}
		m.log.Warn("refresh attempt budget spent, tokens cleared",
			zap.Int("attempts", m.failures), zap.Error(cause))
		return fmt.Errorf("%w: %v", ErrMaxRefreshAttempts, cause)
	}
	m.log.Warn("token refresh failed",
		zap.Int("attempt", m.failures), zap.Error(cause))
	return cause
}
