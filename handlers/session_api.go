package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tenantly/authweb/internal/activity"
	"github.com/tenantly/authweb/internal/apiclient"
	"github.com/tenantly/authweb/internal/sessions"
	"github.com/tenantly/authweb/pkg/logger"
	"github.com/tenantly/authweb/pkg/middleware"
)

// SessionView is the JSON form of a session. Tokens are never exposed.
type SessionView struct {
	ID        string           `json:"id"`
	User      sessions.Subject `json:"user"`
	IssuedAt  time.Time        `json:"issuedAt"`
	ExpiresAt time.Time        `json:"expiresAt"`
}

// SessionJSON returns the current session.
func (h *Handler) SessionJSON(c *gin.Context) {
	s := middleware.SessionFrom(c)
	c.JSON(http.StatusOK, SessionView{ID: s.ID, User: s.Subject, IssuedAt: s.IssuedAt, ExpiresAt: s.Expiry})
}

// SignOutJSON signs out and answers with JSON instead of a redirect.
func (h *Handler) SignOutJSON(c *gin.Context) {
	s := middleware.SessionFrom(c)
	if err := h.sessions.SignOut(c.Writer, c.Request); err != nil {
		logger.Warnf("sign out: %v", err)
	}
	if s != nil {
		h.record(c, activity.KindLogout, s.Subject, "")
	}
	c.JSON(http.StatusOK, gin.H{"status": "signed_out"})
}

// UserExists backs the inline email check of the registration form.
func (h *Handler) UserExists(c *gin.Context) {
	existsProxy(c, "email", h.users.EmailTaken)
}

// TenantExists backs the inline domain check of the registration form.
func (h *Handler) TenantExists(c *gin.Context) {
	existsProxy(c, "domain", h.users.DomainTaken)
}

func existsProxy(c *gin.Context, param string, check func(ctx context.Context, v string) (bool, error)) {
	v := strings.TrimSpace(c.Query(param))
	if v == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": param + " is required"})
		return
	}
	exists, err := check(c.Request.Context(), v)
	if err != nil {
		if errors.Is(err, apiclient.ErrNetwork) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "authentication service unavailable"})
			return
		}
		logger.Warnf("exists check for %s: %v", param, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "exists check failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"exists": exists})
}
