package web

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tenantly/authweb/internal/forms"
	"github.com/tenantly/authweb/internal/sessions"
)

func renderPage(t *testing.T, r *Renderer, name string, data PageData) string {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, r.Instance(name, data).Render(rec))
	return rec.Body.String()
}

func TestRenderer_ParsesAllPages(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)
	for _, p := range []string{"login.html", "register.html", "profile.html", "change_password.html", "forgot_password.html", "reset_password.html", "dashboard.html", "error.html"} {
		assert.True(t, r.Has(p), p)
	}
	assert.False(t, r.Has("layout.html"))
}

func TestRenderer_LoginKeepsEmailNotPassword(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	body := renderPage(t, r, "login.html", PageData{
		Title:  "Sign in",
		Form:   &forms.Login{Email: "a@b.com", Password: "short"},
		Errors: map[string]string{"password": "Password must be at least 6 characters."},
		Next:   "/profile",
	})
	assert.Contains(t, body, `value="a@b.com"`)
	assert.Contains(t, body, "Password must be at least 6 characters.")
	assert.Contains(t, body, `name="callbackUrl" value="/profile"`)
	assert.NotContains(t, body, "short")
}

func TestRenderer_EscapesInput(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)
	body := renderPage(t, r, "register.html", PageData{Form: &forms.Register{FirstName: `<script>alert(1)</script>`}})
	assert.NotContains(t, body, "<script>alert(1)</script>")
	assert.Contains(t, body, "&lt;script&gt;")
}

func TestRenderer_LayoutShowsSession(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)
	s := &sessions.Session{Subject: sessions.Subject{Email: "a@b.com", FirstName: "Ana", LastName: "Diaz"}}
	body := renderPage(t, r, "dashboard.html", PageData{Session: s, Form: struct{}{}})
	assert.Contains(t, body, "Ana Diaz")
	assert.Contains(t, body, ">AD<")
	assert.Contains(t, body, `action="/logout"`)
	assert.Contains(t, body, "Activity is unavailable right now.")
}

func TestRenderer_UnknownPageFallsBackToError(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)
	body := renderPage(t, r, "nope.html", PageData{})
	assert.Contains(t, body, "Page not found: nope.html")
}

func TestRenderer_InitialsUseWholeRunes(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	s := &sessions.Session{Subject: sessions.Subject{Email: "e@b.com", FirstName: "élodie", LastName: "Ñúñez"}}
	body := renderPage(t, r, "dashboard.html", PageData{Session: s, Form: struct{}{}})
	assert.Contains(t, body, ">ÉÑ<")
	assert.NotContains(t, body, "�")

	s = &sessions.Session{Subject: sessions.Subject{Email: "øyvind@b.com"}}
	body = renderPage(t, r, "dashboard.html", PageData{Session: s, Form: struct{}{}})
	assert.Contains(t, body, ">Ø<")
}
