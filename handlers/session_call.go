package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tenantly/authweb/internal/apiclient"
	"github.com/tenantly/authweb/internal/sessions"
	"github.com/tenantly/authweb/pkg/logger"
	"github.com/tenantly/authweb/pkg/middleware"
)

const expiredURL = "/login?reason=expired"

// callWithSession runs call with the request's session attached. The session
// is refreshed first when its access token has already expired, and once more
// when the API answers 401, after which call is retried once. When refreshing
// fails the user is signed out and the returned error wraps ErrTerminalSession.
func (h *Handler) callWithSession(c *gin.Context, call func(auth apiclient.RequestEditorFn) error) error {
	s := middleware.SessionFrom(c)
	if s == nil {
		return sessions.ErrNoSession
	}
	if s.AccessTokenExpired(h.sessions.Now()) {
		next, err := h.refresh(c, s)
		if err != nil {
			return err
		}
		s = next
	}

	err := call(s.Editor())
	if !errors.Is(err, apiclient.ErrUnauthorized) {
		return err
	}
	next, rerr := h.refresh(c, s)
	if rerr != nil {
		return rerr
	}
	err = call(next.Editor())
	if errors.Is(err, apiclient.ErrUnauthorized) {
		h.endSession(c)
		return fmt.Errorf("%w: rejected after refresh: %w", sessions.ErrTerminalSession, err)
	}
	return err
}

// refresh swaps the token pair and persists the result for the rest of the request.
func (h *Handler) refresh(c *gin.Context, s *sessions.Session) (*sessions.Session, error) {
	next, err := h.sessions.Refresh(c.Request.Context(), s)
	if err != nil {
		logger.Infof("session %s could not be refreshed: %v", s.ID, err)
		h.endSession(c)
		return nil, err
	}
	if err := h.sessions.Save(c.Writer, next); err != nil {
		logger.Errorf("save refreshed session %s: %v", s.ID, err)
	}
	middleware.SetSession(c, next)
	return next, nil
}

func (h *Handler) endSession(c *gin.Context) {
	if err := h.sessions.SignOut(c.Writer, c.Request); err != nil {
		logger.Warnf("sign out: %v", err)
	}
	middleware.SetSession(c, nil)
}

// sessionEnded redirects to the login page when err means the session is gone.
// It reports whether the response was written.
func sessionEnded(c *gin.Context, err error) bool {
	if !errors.Is(err, sessions.ErrTerminalSession) && !errors.Is(err, sessions.ErrNoSession) {
		return false
	}
	c.Redirect(http.StatusSeeOther, expiredURL)
	return true
}
