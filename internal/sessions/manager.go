package sessions

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/tenantly/authweb/internal/apiclient"
	"github.com/tenantly/authweb/internal/models"
	"github.com/tenantly/authweb/pkg/logger"
	"github.com/tenantly/authweb/pkg/metrics"
)

// DefaultMaxAge is the fixed session lifetime counted from login.
const DefaultMaxAge = 30 * 24 * time.Hour

// AuthAPI is the part of the API client the manager calls.
type AuthAPI interface {
	Login(ctx context.Context, body models.UserLogin) (*models.Token, error)
	Refresh(ctx context.Context, body models.RefreshToken) (*models.Token, error)
	Me(ctx context.Context, editors ...apiclient.RequestEditorFn) (*models.User, error)
}

// Manager owns the session lifecycle: issue, persist, attach, refresh and sign-out.
type Manager struct {
	api     AuthAPI
	store   *CookieStore
	revoker Revoker
	maxAge  time.Duration
}

type Option func(*Manager)

// WithRevoker sets where signed-out session ids are recorded.
func WithRevoker(r Revoker) Option {
	return func(m *Manager) { m.revoker = r }
}

// WithMaxAge overrides DefaultMaxAge.
func WithMaxAge(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.maxAge = d
		}
	}
}

func NewManager(api AuthAPI, store *CookieStore, opts ...Option) *Manager {
	m := &Manager{api: api, store: store, maxAge: DefaultMaxAge}
	for _, o := range opts {
		o(m)
	}
	if m.revoker == nil {
		m.revoker = NewMemoryRevoker()
	}
	return m
}

// Now returns the manager's clock.
func (m *Manager) Now() time.Time { return m.store.now() }

// Login exchanges credentials for tokens, fetches the profile with the new
// access token and assembles a Session. Nothing is persisted; see Issue.
func (m *Manager) Login(ctx context.Context, email, password string) (*Session, error) {
	tok, err := m.api.Login(ctx, models.UserLogin{Email: email, Password: password})
	if err != nil {
		return nil, m.loginFailed(err)
	}
	if tok.AccessToken == "" {
		metrics.LoginAttempts.WithLabelValues("network").Inc()
		return nil, fmt.Errorf("login: %w: response carried no access token", apiclient.ErrNetwork)
	}

	user, err := m.api.Me(ctx, apiclient.WithBearer(tok.AccessToken))
	if err != nil {
		return nil, m.loginFailed(fmt.Errorf("fetch profile: %w", err))
	}

	now := m.Now()
	s := &Session{
		ID:           ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Subject:      SubjectFromUser(user),
		IssuedAt:     now,
		Expiry:       now.Add(m.maxAge),
	}
	metrics.LoginAttempts.WithLabelValues("success").Inc()
	return s, nil
}

func (m *Manager) loginFailed(err error) error {
	var ve *apiclient.ValidationError
	switch {
	case errors.As(err, &ve):
		metrics.LoginAttempts.WithLabelValues("validation").Inc()
		return ve
	case errors.Is(err, apiclient.ErrNetwork):
		metrics.LoginAttempts.WithLabelValues("network").Inc()
		return err
	default:
		metrics.LoginAttempts.WithLabelValues("invalid").Inc()
		return fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	}
}

// Current returns the session carried by r, or nil when the container is
// missing, malformed, expired or revoked.
func (m *Manager) Current(r *http.Request) *Session {
	s, err := m.store.Read(r)
	if err != nil {
		if !errors.Is(err, http.ErrNoCookie) {
			logger.Debugf("sessions: ignoring unreadable container: %v", err)
		}
		return nil
	}
	revoked, err := m.revoker.IsRevoked(r.Context(), s.ID)
	if err != nil {
		logger.Warnf("sessions: revocation lookup for %s failed: %v", s.ID, err)
		return s
	}
	if revoked {
		return nil
	}
	return s
}

// Refresh exchanges the refresh token for a new pair. Any failure wraps
// ErrTerminalSession; the caller signs the user out.
func (m *Manager) Refresh(ctx context.Context, s *Session) (*Session, error) {
	if s == nil {
		return nil, ErrNoSession
	}
	if s.Terminal() {
		metrics.SessionRefreshes.WithLabelValues("terminal").Inc()
		return nil, fmt.Errorf("%w: no refresh token", ErrTerminalSession)
	}
	tok, err := m.api.Refresh(ctx, models.RefreshToken{RefreshToken: s.RefreshToken})
	if err != nil {
		metrics.SessionRefreshes.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: %w", ErrTerminalSession, err)
	}
	if tok.AccessToken == "" {
		metrics.SessionRefreshes.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: response carried no access token", ErrTerminalSession)
	}
	metrics.SessionRefreshes.WithLabelValues("success").Inc()
	return s.WithTokens(*tok), nil
}

// Issue persists a freshly logged-in session and revokes any container
// already present on r, so one browser holds one session.
func (m *Manager) Issue(w http.ResponseWriter, r *http.Request, s *Session) error {
	if prior, err := m.store.Read(r); err == nil && prior.ID != s.ID {
		if err := m.revoker.Revoke(r.Context(), prior.ID, prior.Expiry); err != nil {
			logger.Warnf("sessions: revoke prior session %s: %v", prior.ID, err)
		}
	}
	return m.store.Write(w, s)
}

// Save replaces the container with s, e.g. after Refresh or a profile update.
func (m *Manager) Save(w http.ResponseWriter, s *Session) error {
	if s == nil {
		return ErrNoSession
	}
	return m.store.Write(w, s)
}

// SignOut clears the container and revokes its id.
func (m *Manager) SignOut(w http.ResponseWriter, r *http.Request) error {
	m.store.Clear(w)
	s, err := m.store.Read(r)
	if err != nil {
		return nil
	}
	if err := m.revoker.Revoke(r.Context(), s.ID, s.Expiry); err != nil {
		return fmt.Errorf("revoke session %s: %w", s.ID, err)
	}
	return nil
}

// Attach sets the bearer header of s on req.
func (m *Manager) Attach(s *Session, req *http.Request) {
	s.Attach(req)
}
