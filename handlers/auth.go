package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tenantly/authweb/internal/activity"
	"github.com/tenantly/authweb/internal/forms"
	"github.com/tenantly/authweb/internal/models"
	"github.com/tenantly/authweb/internal/sessions"
	"github.com/tenantly/authweb/pkg/logger"
	"github.com/tenantly/authweb/pkg/middleware"
	"github.com/tenantly/authweb/web"
)

var loginNotices = map[string]string{
	"registered": "Your account was created. You can sign in now.",
	"reset":      "Your password was changed. Sign in with the new password.",
}

// LoginPage shows the sign-in form. Signed-in visitors go straight on.
func (h *Handler) LoginPage(c *gin.Context) {
	next := safeRedirect(c.Query("callbackUrl"))
	if middleware.SessionFrom(c) != nil {
		c.Redirect(http.StatusFound, next)
		return
	}
	data := web.PageData{Title: "Sign in", Form: &forms.Login{}, Next: next}
	for key, msg := range loginNotices {
		if c.Query(key) == "1" {
			data.Flash = msg
		}
	}
	if c.Query("reason") == "expired" {
		data.FormError = "Your session has expired. Please sign in again."
	}
	render(c, http.StatusOK, "login.html", data)
}

// Login validates the form, signs in against the API and issues the session container.
func (h *Handler) Login(c *gin.Context) {
	var form forms.Login
	err := forms.Bind(c, &form)
	data := web.PageData{Title: "Sign in", Next: safeRedirect(form.CallbackURL)}
	if err != nil {
		renderInvalid(c, "login.html", data, &form, err)
		return
	}

	s, err := h.sessions.Login(c.Request.Context(), form.Email, form.Password)
	if err != nil {
		renderFailure(c, "login.html", data, &form, err)
		return
	}
	if err := h.sessions.Issue(c.Writer, c.Request, s); err != nil {
		logger.Errorf("issue session for %s: %v", s.Subject.Email, err)
		data.Form = &form
		data.FormError = msgUnexpected
		render(c, http.StatusInternalServerError, "login.html", data)
		return
	}
	h.record(c, activity.KindLogin, s.Subject, "")
	c.Redirect(http.StatusSeeOther, data.Next)
}

// Logout clears the container and revokes the session.
func (h *Handler) Logout(c *gin.Context) {
	s := middleware.SessionFrom(c)
	if err := h.sessions.SignOut(c.Writer, c.Request); err != nil {
		logger.Warnf("sign out: %v", err)
	}
	if s != nil {
		h.record(c, activity.KindLogout, s.Subject, "")
	}
	c.Redirect(http.StatusSeeOther, "/login")
}

// RegisterPage shows the sign-up form.
func (h *Handler) RegisterPage(c *gin.Context) {
	render(c, http.StatusOK, "register.html", web.PageData{Title: "Create account", Form: &forms.Register{}})
}

// RegisterAccount creates the user and tenant, then sends the visitor to sign in.
func (h *Handler) RegisterAccount(c *gin.Context) {
	var form forms.Register
	err := forms.Bind(c, &form)
	data := web.PageData{Title: "Create account"}
	if err != nil {
		renderInvalid(c, "register.html", data, &form, err)
		return
	}

	in := models.UserRegister{
		Email:        form.Email,
		Password:     form.Password,
		FirstName:    form.FirstName,
		LastName:     form.LastName,
		TenantName:   form.TenantName,
		TenantDomain: form.TenantDomain,
	}
	if err := h.users.Register(c.Request.Context(), in); err != nil {
		renderFailure(c, "register.html", data, &form, err)
		return
	}
	subject := sessions.Subject{Email: form.Email, FirstName: form.FirstName, LastName: form.LastName}
	h.record(c, activity.KindRegister, subject, form.TenantDomain)
	c.Redirect(http.StatusSeeOther, "/login?registered=1")
}

const resetRequested = "If an account matches those details, a reset link is on its way."

// ForgotPasswordPage shows the reset request form.
func (h *Handler) ForgotPasswordPage(c *gin.Context) {
	render(c, http.StatusOK, "forgot_password.html", web.PageData{Title: "Reset password", Form: &forms.ForgotPassword{}})
}

// ForgotPassword requests a reset link. The answer is the same whether or not
// the account exists.
func (h *Handler) ForgotPassword(c *gin.Context) {
	var form forms.ForgotPassword
	err := forms.Bind(c, &form)
	data := web.PageData{Title: "Reset password"}
	if err != nil {
		renderInvalid(c, "forgot_password.html", data, &form, err)
		return
	}
	if err := h.users.RequestPasswordReset(c.Request.Context(), form.Email, form.TenantDomain); err != nil {
		renderFailure(c, "forgot_password.html", data, &form, err)
		return
	}
	h.record(c, activity.KindPasswordResetRequest, sessions.Subject{Email: form.Email}, form.TenantDomain)
	data.Form = &forms.ForgotPassword{}
	data.Flash = resetRequested
	render(c, http.StatusOK, "forgot_password.html", data)
}

// ResetPasswordPage shows the new password form for a mailed token.
func (h *Handler) ResetPasswordPage(c *gin.Context) {
	form := &forms.ResetPassword{Token: c.Query("token")}
	data := web.PageData{Title: "Choose a new password", Form: form}
	if form.Token == "" {
		data.FormError = "This reset link is incomplete. Request a new one."
	}
	render(c, http.StatusOK, "reset_password.html", data)
}

// ResetPassword sets the new password and sends the visitor to sign in.
func (h *Handler) ResetPassword(c *gin.Context) {
	var form forms.ResetPassword
	err := forms.Bind(c, &form)
	data := web.PageData{Title: "Choose a new password"}
	if err != nil {
		renderInvalid(c, "reset_password.html", data, &form, err)
		return
	}
	if err := h.users.ResetPassword(c.Request.Context(), form.Token, form.NewPassword); err != nil {
		renderFailure(c, "reset_password.html", data, &form, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/login?reset=1")
}

// record stores an activity event when activity tracking is configured.
func (h *Handler) record(c *gin.Context, kind activity.Kind, s sessions.Subject, tenant string) {
	if h.activity == nil {
		return
	}
	h.activity.Record(c.Request.Context(), activity.Event{
		Kind:   kind,
		UserID: s.ID,
		Email:  s.Email,
		Name:   s.DisplayName(),
		Tenant: tenant,
	})
}
