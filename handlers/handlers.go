package handlers

import (
	"github.com/gin-gonic/gin"
	activitysvc "github.com/tenantly/authweb/internal/activity/service"
	"github.com/tenantly/authweb/internal/sessions"
	"github.com/tenantly/authweb/internal/users"
	"github.com/tenantly/authweb/pkg/middleware"
	"github.com/tenantly/authweb/web"
)

// Handler serves the pages and JSON endpoints of the web front end.
type Handler struct {
	sessions *sessions.Manager
	users    *users.Service
	activity *activitysvc.Service
}

func NewHandler(m *sessions.Manager, u *users.Service, a *activitysvc.Service) *Handler {
	return &Handler{sessions: m, users: u, activity: a}
}

// Deps is everything NewRouter wires together.
type Deps struct {
	Sessions *sessions.Manager
	Users    *users.Service
	Activity *activitysvc.Service
	Renderer *web.Renderer

	// Limit returns the rate limiter for a form submission route; nil disables limiting.
	Limit func(route string) gin.HandlerFunc
	// Checks are run by GET /ready.
	Checks map[string]Check
}

// NewRouter builds the gin engine with middleware and every route.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())
	r.HTMLRender = d.Renderer

	RegisterOps(r, d.Checks)
	RegisterSwagger(r)

	h := NewHandler(d.Sessions, d.Users, d.Activity)
	app := r.Group("/", middleware.LoadSession(d.Sessions))
	h.Register(app, d.Limit)
	return r
}

// Register mounts the page and JSON routes. Routes that need a session redirect
// (pages) or answer 401 (JSON) for anonymous callers.
func (h *Handler) Register(rg *gin.RouterGroup, limit func(route string) gin.HandlerFunc) {
	limited := func(route string) []gin.HandlerFunc {
		if limit == nil {
			return nil
		}
		if l := limit(route); l != nil {
			return []gin.HandlerFunc{l}
		}
		return nil
	}
	post := func(route string, handler gin.HandlerFunc) {
		rg.POST(route, append(limited(route), handler)...)
	}

	rg.GET("/login", h.LoginPage)
	post("/login", h.Login)
	rg.GET("/register", h.RegisterPage)
	post("/register", h.RegisterAccount)
	rg.POST("/logout", h.Logout)
	rg.GET("/forgot-password", h.ForgotPasswordPage)
	post("/forgot-password", h.ForgotPassword)
	rg.GET("/reset-password", h.ResetPasswordPage)
	rg.POST("/reset-password", h.ResetPassword)

	pages := rg.Group("/", middleware.RequireSession())
	pages.GET("/", h.Dashboard)
	pages.GET("/profile", h.ProfilePage)
	pages.POST("/profile", h.UpdateProfile)
	pages.GET("/profile/change-password", h.ChangePasswordPage)
	pages.POST("/profile/change-password", h.ChangePassword)

	api := rg.Group("/api")
	api.GET("/auth/session", middleware.RequireSessionAPI(), h.SessionJSON)
	api.POST("/auth/signout", h.SignOutJSON)
	api.GET("/users/exists", h.UserExists)
	api.GET("/tenants/exists", h.TenantExists)
}
