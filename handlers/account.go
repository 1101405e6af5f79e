package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tenantly/authweb/internal/activity"
	"github.com/tenantly/authweb/internal/apiclient"
	"github.com/tenantly/authweb/internal/forms"
	"github.com/tenantly/authweb/internal/models"
	"github.com/tenantly/authweb/internal/sessions"
	"github.com/tenantly/authweb/pkg/logger"
	"github.com/tenantly/authweb/pkg/middleware"
	"github.com/tenantly/authweb/web"
)

const dashboardRecent = 10

// Dashboard shows activity counters and the latest events.
func (h *Handler) Dashboard(c *gin.Context) {
	data := web.PageData{Title: "Dashboard"}
	if h.activity != nil {
		sum, err := h.activity.Dashboard(c.Request.Context(), dashboardRecent)
		if err != nil {
			logger.Warnf("dashboard activity: %v", err)
		} else {
			data.Data = sum
		}
	}
	render(c, http.StatusOK, "dashboard.html", data)
}

// ProfilePage loads the profile from the API.
func (h *Handler) ProfilePage(c *gin.Context) {
	var user *models.User
	err := h.callWithSession(c, func(auth apiclient.RequestEditorFn) error {
		var err error
		user, err = h.users.Profile(c.Request.Context(), auth)
		return err
	})
	data := web.PageData{Title: "Profile", Form: &forms.Profile{}}
	if err != nil {
		if sessionEnded(c, err) {
			return
		}
		status, _, msg := describe(err)
		data.FormError = msg
		render(c, status, "profile.html", data)
		return
	}
	data.Form = &forms.Profile{FirstName: user.FirstName, LastName: user.LastName}
	data.Data = user
	render(c, http.StatusOK, "profile.html", data)
}

// UpdateProfile saves the name and refreshes the subject snapshot in the container.
func (h *Handler) UpdateProfile(c *gin.Context) {
	var form forms.Profile
	err := forms.Bind(c, &form)
	data := web.PageData{Title: "Profile"}
	if err != nil {
		renderInvalid(c, "profile.html", data, &form, err)
		return
	}

	var user *models.User
	err = h.callWithSession(c, func(auth apiclient.RequestEditorFn) error {
		var err error
		user, err = h.users.UpdateProfile(c.Request.Context(), form.FirstName, form.LastName, auth)
		return err
	})
	if err != nil {
		if sessionEnded(c, err) {
			return
		}
		renderFailure(c, "profile.html", data, &form, err)
		return
	}

	// callWithSession may have refreshed, so read the session again
	s := middleware.SessionFrom(c).WithSubject(sessions.SubjectFromUser(user))
	if err := h.sessions.Save(c.Writer, s); err != nil {
		logger.Errorf("save session %s after profile update: %v", s.ID, err)
	}
	middleware.SetSession(c, s)
	h.record(c, activity.KindProfileUpdate, s.Subject, "")

	data.Form = &form
	data.Data = user
	data.Flash = "Your profile was updated."
	render(c, http.StatusOK, "profile.html", data)
}

// ChangePasswordPage shows the change password form.
func (h *Handler) ChangePasswordPage(c *gin.Context) {
	render(c, http.StatusOK, "change_password.html", web.PageData{Title: "Change password", Form: &forms.ChangePassword{}})
}

// ChangePassword changes the password of the signed-in user.
func (h *Handler) ChangePassword(c *gin.Context) {
	var form forms.ChangePassword
	err := forms.Bind(c, &form)
	data := web.PageData{Title: "Change password"}
	if err != nil {
		renderInvalid(c, "change_password.html", data, &forms.ChangePassword{}, err)
		return
	}

	err = h.callWithSession(c, func(auth apiclient.RequestEditorFn) error {
		return h.users.ChangePassword(c.Request.Context(), form.CurrentPassword, form.NewPassword, auth)
	})
	if err != nil {
		if sessionEnded(c, err) {
			return
		}
		renderFailure(c, "change_password.html", data, &forms.ChangePassword{}, err)
		return
	}
	h.record(c, activity.KindPasswordChange, middleware.SessionFrom(c).Subject, "")
	data.Form = &forms.ChangePassword{}
	data.Flash = "Your password was changed."
	render(c, http.StatusOK, "change_password.html", data)
}
