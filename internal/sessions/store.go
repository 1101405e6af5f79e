package sessions

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tenantly/authweb/internal/tokens"
)

// CookieOptions configures the session cookie.
type CookieOptions struct {
	Name   string
	Secure bool
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// CookieStore keeps the signed session container in a browser cookie.
type CookieStore struct {
	name   string
	secure bool
	codec  *tokens.Codec
	now    func() time.Time
}

// NewCookieStore returns a store signing containers with secret.
func NewCookieStore(secret []byte, opts CookieOptions) *CookieStore {
	if opts.Name == "" {
		opts.Name = "authweb.session"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &CookieStore{
		name:   opts.Name,
		secure: opts.Secure,
		codec:  tokens.NewCodec(secret, opts.Now),
		now:    opts.Now,
	}
}

// Name returns the cookie name.
func (cs *CookieStore) Name() string { return cs.name }

// Read decodes the container on r. A missing cookie yields http.ErrNoCookie;
// anything unreadable wraps tokens.ErrInvalid.
func (cs *CookieStore) Read(r *http.Request) (*Session, error) {
	c, err := r.Cookie(cs.name)
	if err != nil {
		return nil, err
	}
	claims, err := cs.codec.Parse(c.Value)
	if err != nil {
		return nil, err
	}
	s := fromClaims(claims)
	if s.Expired(cs.now()) {
		return nil, tokens.ErrInvalid
	}
	return s, nil
}

// Write replaces the container with s. Max-Age is the remaining lifetime.
func (cs *CookieStore) Write(w http.ResponseWriter, s *Session) error {
	remaining := s.Expiry.Sub(cs.now())
	if remaining <= 0 {
		return fmt.Errorf("session %s already expired", s.ID)
	}
	value, err := cs.codec.Sign(s.claims())
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cs.name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(remaining / time.Second),
		Expires:  s.Expiry.UTC(),
		HttpOnly: true,
		Secure:   cs.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear expires the cookie.
func (cs *CookieStore) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cs.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   cs.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func jwtDate(t time.Time) *jwt.NumericDate {
	if t.IsZero() {
		return nil
	}
	return jwt.NewNumericDate(t)
}
