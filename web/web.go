package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin/render"
	"github.com/tenantly/authweb/internal/sessions"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutFile = "templates/layout.html"

// PageData is passed to every page template.
// Form is the bound form struct; it is never nil so templates can read fields.
type PageData struct {
	Title     string
	Session   *sessions.Session
	Form      interface{}
	Errors    map[string]string
	FormError string
	Flash     string
	Next      string
	Data      interface{}
}

// Renderer implements gin's render.HTMLRender. Each page is parsed together
// with the layout into its own template set so "content" blocks do not clash.
type Renderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"formatTime": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Local().Format("2006-01-02 15:04")
	},
	"initials": func(s *sessions.Session) string {
		if s == nil {
			return ""
		}
		var b strings.Builder
		for _, part := range []string{s.Subject.FirstName, s.Subject.LastName} {
			b.WriteString(firstLetter(part))
		}
		if b.Len() == 0 {
			b.WriteString(firstLetter(s.Subject.Email))
		}
		return b.String()
	},
}

// firstLetter returns the upper-cased first rune of s, or "" when s is empty.
func firstLetter(s string) string {
	r, _ := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return ""
	}
	return strings.ToUpper(string(r))
}

// NewRenderer parses every embedded page.
func NewRenderer() (*Renderer, error) {
	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	r := &Renderer{pages: map[string]*template.Template{}}
	for _, f := range files {
		if f == layoutFile {
			continue
		}
		name := path.Base(f)
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, layoutFile, f)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Instance renders page name inside the layout.
func (r *Renderer) Instance(name string, data interface{}) render.Render {
	t, ok := r.pages[name]
	if !ok {
		t = r.pages["error.html"]
		data = PageData{Title: "Error", Form: struct{}{}, FormError: "Page not found: " + name}
	}
	return render.HTML{Template: t, Name: "layout", Data: data}
}

// Has reports whether a page exists.
func (r *Renderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}
