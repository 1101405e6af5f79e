package sessions

import (
	"net/http"
	"strings"
	"time"

	"github.com/tenantly/authweb/internal/apiclient"
	"github.com/tenantly/authweb/internal/models"
	"github.com/tenantly/authweb/internal/tokens"
)

// Subject is the identity snapshot fetched from GET /users/me at login.
type Subject struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// DisplayName returns "First Last", falling back to the email.
func (s Subject) DisplayName() string {
	name := strings.TrimSpace(s.FirstName + " " + s.LastName)
	if name == "" {
		return s.Email
	}
	return name
}

// SubjectFromUser builds a snapshot from an API profile.
func SubjectFromUser(u *models.User) Subject {
	return Subject{ID: u.ID, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName}
}

// Session is one authenticated browser session. Values are immutable:
// transitions return a modified copy and the container is replaced wholesale.
type Session struct {
	ID           string
	AccessToken  string
	RefreshToken string
	TokenType    string
	Subject      Subject
	IssuedAt     time.Time
	Expiry       time.Time
}

// Terminal reports whether the session can no longer be renewed.
func (s *Session) Terminal() bool {
	return s.RefreshToken == ""
}

// Expired reports whether the session's fixed lifetime is over at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.Expiry)
}

// AccessTokenExpired reports whether the access token's own exp claim has
// passed. Opaque tokens are never considered expired; the API's 401 decides.
func (s *Session) AccessTokenExpired(now time.Time) bool {
	exp, ok := tokens.AccessTokenExpiry(s.AccessToken)
	return ok && !now.Before(exp)
}

// WithTokens returns a copy carrying a rotated token pair. ID, IssuedAt and
// Expiry are kept. An empty refresh_token in the response keeps the current one.
func (s Session) WithTokens(t models.Token) *Session {
	s.AccessToken = t.AccessToken
	if t.RefreshToken != "" {
		s.RefreshToken = t.RefreshToken
	}
	if t.TokenType != "" {
		s.TokenType = t.TokenType
	}
	return &s
}

// WithSubject returns a copy carrying an updated identity snapshot.
func (s Session) WithSubject(sub Subject) *Session {
	s.Subject = sub
	return &s
}

// Attach sets Authorization: Bearer <access token> on req.
func (s *Session) Attach(req *http.Request) {
	apiclient.SetBearer(req, s.AccessToken)
}

// Editor exposes Attach as an API-client request editor.
func (s *Session) Editor() apiclient.RequestEditorFn {
	return apiclient.WithBearer(s.AccessToken)
}

func (s *Session) claims() *tokens.ContainerClaims {
	c := &tokens.ContainerClaims{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    s.TokenType,
		User: tokens.SubjectClaims{
			ID:        s.Subject.ID,
			Email:     s.Subject.Email,
			FirstName: s.Subject.FirstName,
			LastName:  s.Subject.LastName,
		},
	}
	c.ID = s.ID
	c.Subject = s.Subject.ID
	c.IssuedAt = jwtDate(s.IssuedAt)
	c.ExpiresAt = jwtDate(s.Expiry)
	return c
}

func fromClaims(c *tokens.ContainerClaims) *Session {
	s := &Session{
		ID:           c.ID,
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    c.TokenType,
		Subject: Subject{
			ID:        c.User.ID,
			Email:     c.User.Email,
			FirstName: c.User.FirstName,
			LastName:  c.User.LastName,
		},
	}
	if c.IssuedAt != nil {
		s.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		s.Expiry = c.ExpiresAt.Time
	}
	return s
}
