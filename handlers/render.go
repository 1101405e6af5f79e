package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tenantly/authweb/internal/apiclient"
	"github.com/tenantly/authweb/internal/forms"
	"github.com/tenantly/authweb/internal/sessions"
	"github.com/tenantly/authweb/pkg/logger"
	"github.com/tenantly/authweb/pkg/middleware"
	"github.com/tenantly/authweb/web"
)

const (
	msgInvalidCredentials = "Invalid email or password."
	msgUnavailable        = "The authentication service is unavailable. Please try again in a moment."
	msgUnexpected         = "Something went wrong. Please try again."
)

// render writes page inside the layout. The current session and an empty
// form are filled in when the caller left them unset.
func render(c *gin.Context, status int, page string, data web.PageData) {
	if data.Session == nil {
		data.Session = middleware.SessionFrom(c)
	}
	if data.Form == nil {
		data.Form = struct{}{}
	}
	c.HTML(status, page, data)
}

// renderInvalid re-renders a form that failed local validation.
func renderInvalid(c *gin.Context, page string, data web.PageData, form interface{}, err error) {
	data.Form = form
	data.Errors = forms.FieldErrors(form, err)
	if msg, ok := data.Errors[""]; ok {
		data.FormError = msg
		delete(data.Errors, "")
	}
	render(c, http.StatusBadRequest, page, data)
}

// renderFailure re-renders a form after the API rejected the submission.
func renderFailure(c *gin.Context, page string, data web.PageData, form interface{}, err error) {
	status, fields, msg := describe(err)
	data.Form = form
	data.Errors = fields
	data.FormError = msg
	render(c, status, page, data)
}

// describe maps an error to a status code, field messages and a form-level message.
func describe(err error) (int, map[string]string, string) {
	var ve *apiclient.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity, ve.FieldMap(), ve.Detail
	case errors.Is(err, sessions.ErrInvalidCredentials):
		return http.StatusUnauthorized, nil, msgInvalidCredentials
	case errors.Is(err, apiclient.ErrNetwork):
		return http.StatusServiceUnavailable, nil, msgUnavailable
	default:
		logger.Errorf("unexpected API failure: %v", err)
		return http.StatusBadGateway, nil, msgUnexpected
	}
}

// safeRedirect accepts only same-origin absolute paths. Control characters
// are refused outright since browsers drop some of them when reading Location.
func safeRedirect(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	if strings.IndexFunc(next, func(r rune) bool { return r < 0x20 || r == 0x7f }) >= 0 {
		return "/"
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}
	return next
}
