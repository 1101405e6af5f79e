package middleware

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/tenantly/authweb/internal/sessions"
)

const sessionKey = "session"

// SessionReader is the minimal interface the middleware depends on
type SessionReader interface {
	Current(r *http.Request) *sessions.Session
}

// LoadSession reads the session container once per request and stores the
// session (if any) in the gin context.
func LoadSession(sr SessionReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s := sr.Current(c.Request); s != nil {
			c.Set(sessionKey, s)
		}
		c.Next()
	}
}

// SessionFrom returns the session loaded by LoadSession, or nil.
func SessionFrom(c *gin.Context) *sessions.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	s, _ := v.(*sessions.Session)
	return s
}

// SetSession replaces the session for the rest of the request, e.g. after a refresh.
func SetSession(c *gin.Context, s *sessions.Session) {
	c.Set(sessionKey, s)
}

// RequireSession redirects anonymous visitors to the login page, remembering
// where they were going.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if SessionFrom(c) == nil {
			c.Redirect(http.StatusFound, LoginURL(c.Request.URL.RequestURI()))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireSessionAPI answers 401 for anonymous JSON callers.
func RequireSessionAPI() gin.HandlerFunc {
	return func(c *gin.Context) {
		if SessionFrom(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}
		c.Next()
	}
}

// LoginURL builds /login?callbackUrl=<next>.
func LoginURL(next string) string {
	if next == "" || next == "/" {
		return "/login"
	}
	return "/login?" + url.Values{"callbackUrl": {next}}.Encode()
}
