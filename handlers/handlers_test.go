package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tenantly/authweb/internal/activity"
	activitysvc "github.com/tenantly/authweb/internal/activity/service"
	"github.com/tenantly/authweb/internal/apiclient"
	"github.com/tenantly/authweb/internal/sessions"
	"github.com/tenantly/authweb/internal/users"
	"github.com/tenantly/authweb/pkg/middleware"
	"github.com/tenantly/authweb/web"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// upstream is a small in-memory stand-in for the authentication API.
type upstream struct {
	mu        sync.Mutex
	passwords map[string]string
	names     map[string][2]string
	access    map[string]string // access token -> email
	refresh   map[string]string // refresh token -> email
	domains   map[string]bool
	seq       int

	// accessTTL, when set, makes access tokens signed JWTs expiring after it.
	accessTTL time.Duration
	paths     []string

	calls     int32
	refreshes int32
}

func newUpstream() *upstream {
	return &upstream{
		passwords: map[string]string{"a@b.com": "secret1"},
		names:     map[string][2]string{"a@b.com": {"Ana", "Diaz"}},
		access:    map[string]string{},
		refresh:   map[string]string{},
		domains:   map[string]bool{"acme": true},
	}
}

func (u *upstream) issue(w http.ResponseWriter, email string) {
	u.seq++
	at, rt := fmt.Sprintf("at-%d", u.seq), fmt.Sprintf("rt-%d", u.seq)
	if u.accessTTL != 0 {
		claims := jwt.RegisteredClaims{ID: at, ExpiresAt: jwt.NewNumericDate(time.Now().Add(u.accessTTL))}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("upstream-key"))
		if err != nil {
			panic(err)
		}
		at = signed
	}
	u.access[at] = email
	u.refresh[rt] = email
	writeJSON(w, http.StatusOK, map[string]string{"access_token": at, "refresh_token": rt, "token_type": "bearer"})
}

// expireAccess invalidates every access token; refresh tokens stay valid.
func (u *upstream) expireAccess() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.access = map[string]string{}
}

// revokeAll invalidates every token.
func (u *upstream) revokeAll() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.access = map[string]string{}
	u.refresh = map[string]string{}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&u.calls, 1)
	u.mu.Lock()
	defer u.mu.Unlock()
	u.paths = append(u.paths, r.Method+" "+strings.TrimPrefix(r.URL.Path, "/v1"))

	var body map[string]string
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	bearer := func() (string, bool) {
		email, ok := u.access[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")]
		return email, ok
	}
	user := func(email string) map[string]string {
		n := u.names[email]
		return map[string]string{"id": "u-" + email, "email": email, "first_name": n[0], "last_name": n[1]}
	}

	switch r.Method + " " + strings.TrimPrefix(r.URL.Path, "/v1") {
	case "POST /login":
		if pw, ok := u.passwords[body["email"]]; !ok || pw != body["password"] {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Incorrect email or password"})
			return
		}
		u.issue(w, body["email"])
	case "POST /refresh":
		atomic.AddInt32(&u.refreshes, 1)
		email, ok := u.refresh[body["refresh_token"]]
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid refresh token"})
			return
		}
		delete(u.refresh, body["refresh_token"])
		u.issue(w, email)
	case "GET /users/me":
		email, ok := bearer()
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, user(email))
	case "PATCH /users/me":
		email, ok := bearer()
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		u.names[email] = [2]string{body["first_name"], body["last_name"]}
		writeJSON(w, http.StatusOK, user(email))
	case "POST /change-password":
		email, ok := bearer()
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if u.passwords[email] != body["current_password"] {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Incorrect password"})
			return
		}
		u.passwords[email] = body["new_password"]
		w.WriteHeader(http.StatusNoContent)
	case "GET /users/exists":
		_, ok := u.passwords[r.URL.Query().Get("email")]
		writeJSON(w, http.StatusOK, map[string]bool{"exists": ok})
	case "GET /tenants/exists":
		writeJSON(w, http.StatusOK, map[string]bool{"exists": u.domains[r.URL.Query().Get("domain")]})
	case "POST /register":
		u.passwords[body["email"]] = body["password"]
		u.names[body["email"]] = [2]string{body["first_name"], body["last_name"]}
		u.domains[body["tenant_domain"]] = true
		w.WriteHeader(http.StatusCreated)
	case "POST /request-password-reset":
		w.WriteHeader(http.StatusAccepted)
	case "POST /reset-password":
		if body["token"] != "good-token" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Invalid or expired token"})
			return
		}
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type testEnv struct {
	router   *gin.Engine
	api      *upstream
	activity *activitysvc.Service
}

func newTestEnv(t *testing.T, limit func(string) gin.HandlerFunc) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	api := newUpstream()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	client, err := apiclient.NewClient(srv.URL + "/v1")
	require.NoError(t, err)
	renderer, err := web.NewRenderer()
	require.NoError(t, err)

	store := sessions.NewCookieStore([]byte(testSecret), sessions.CookieOptions{Name: "sid"})
	act := activitysvc.NewMemoryService()
	r := NewRouter(Deps{
		Sessions: sessions.NewManager(client, store),
		Users:    users.NewService(client),
		Activity: act,
		Renderer: renderer,
		Limit:    limit,
		Checks:   map[string]Check{"api": client.Health},
	})
	return &testEnv{router: r, api: api, activity: act}
}

// browser keeps cookies between requests like a real one would.
type browser struct {
	t       *testing.T
	router  *gin.Engine
	cookies map[string]*http.Cookie
}

func (e *testEnv) browser(t *testing.T) *browser {
	return &browser{t: t, router: e.router, cookies: map[string]*http.Cookie{}}
}

func (b *browser) do(method, path string, form url.Values) *httptest.ResponseRecorder {
	b.t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	b.router.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return w
}

func (b *browser) login() {
	b.t.Helper()
	w := b.do(http.MethodPost, "/login", url.Values{"email": {"a@b.com"}, "password": {"secret1"}})
	require.Equal(b.t, http.StatusSeeOther, w.Code, w.Body.String())
	require.Contains(b.t, b.cookies, "sid")
}

func (b *browser) session() (int, SessionView) {
	b.t.Helper()
	w := b.do(http.MethodGet, "/api/auth/session", nil)
	var v SessionView
	if w.Code == http.StatusOK {
		require.NoError(b.t, json.Unmarshal(w.Body.Bytes(), &v))
	}
	return w.Code, v
}

func TestLogin_SuccessRedirectsToCallback(t *testing.T) {
	env := newTestEnv(t, nil)
	b := env.browser(t)

	w := b.do(http.MethodPost, "/login", url.Values{"email": {"a@b.com"}, "password": {"secret1"}, "callbackUrl": {"/profile"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/profile", w.Header().Get("Location"))

	cookie := b.cookies["sid"]
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	code, v := b.session()
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "a@b.com", v.User.Email)
	assert.Equal(t, "Ana", v.User.FirstName)

	sum, err := env.activity.Dashboard(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), sum.LoginsLastDay)
}

func TestLogin_RejectsOffsiteCallback(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, next := range []string{"//evil.example", "https://evil.example/x", "/\\evil.example", "profile", "/\t/evil.example", "/\n/evil.example", "/\x7f/evil.example"} {
		b := env.browser(t)
		w := b.do(http.MethodPost, "/login", url.Values{"email": {"a@b.com"}, "password": {"secret1"}, "callbackUrl": {next}})
		require.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/", w.Header().Get("Location"), next)
	}
}

func TestLogin_InvalidCredentialsSetsNoCookie(t *testing.T) {
	env := newTestEnv(t, nil)
	b := env.browser(t)

	w := b.do(http.MethodPost, "/login", url.Values{"email": {"a@b.com"}, "password": {"wrong-pw"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, w.Header().Values("Set-Cookie"))
	assert.Contains(t, w.Body.String(), "Invalid email or password.")
	assert.Contains(t, w.Body.String(), `value="a@b.com"`)
	assert.NotContains(t, w.Body.String(), "wrong-pw")
}

func TestLogin_ShortPasswordNeverReachesAPI(t *testing.T) {
	env := newTestEnv(t, nil)
	b := env.browser(t)

	w := b.do(http.MethodPost, "/login", url.Values{"email": {"a@b.com"}, "password": {"short"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Password must be at least 6 characters.")
	assert.Equal(t, int32(0), atomic.LoadInt32(&env.api.calls))
}

func TestLoginPage_Notices(t *testing.T) {
	env := newTestEnv(t, nil)
	b := env.browser(t)

	w := b.do(http.MethodGet, "/login?registered=1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Your account was created.")

	w = b.do(http.MethodGet, "/login?reason=expired", nil)
	assert.Contains(t, w.Body.String(), "Your session has expired.")

	b.login()
	w = b.do(http.MethodGet, "/login?callbackUrl=/profile", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/profile", w.Header().Get("Location"))
}

func registration(domain string) url.Values {
	return url.Values{
		"first_name":       {"Bo"},
		"last_name":        {"Chen"},
		"email":            {"bo@b.com"},
		"password":         {"secret1"},
		"confirm_password": {"secret1"},
		"tenant_name":      {"Acme Corp"},
		"tenant_domain":    {domain},
	}
}

func TestRegister_ExistingDomainKeepsValues(t *testing.T) {
	env := newTestEnv(t, nil)
	b := env.browser(t)

	w := b.do(http.MethodPost, "/register", registration("acme"))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "This organization domain is already taken.")
	assert.Contains(t, body, `value="Bo"`)
	assert.Contains(t, body, `value="bo@b.com"`)
	assert.Contains(t, body, `value="acme"`)
	assert.NotContains(t, body, "secret1")
}

func TestRegister_SuccessDerivesDomain(t *testing.T) {
	env := newTestEnv(t, nil)
	b := env.browser(t)

	w := b.do(http.MethodPost, "/register", registration(""))
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
	assert.Equal(t, "/login?registered=1", w.Header().Get("Location"))
	assert.True(t, env.api.domains["acme-corp"])

	recent, err := env.activity.Dashboard(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, recent.Recent, 1)
	assert.Equal(t, activity.KindRegister, recent.Recent[0].Kind)
	assert.Equal(t, "acme-corp", recent.Recent[0].Tenant)
}

func TestRegister_MismatchedPasswords(t *testing.T) {
	env := newTestEnv(t, nil)
	form := registration("newco")
	form.Set("confirm_password", "other-pw")

	w := env.browser(t).do(http.MethodPost, "/register", form)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Passwords do not match.")
	assert.Equal(t, int32(0), atomic.LoadInt32(&env.api.calls))
}

func TestLogout_RevokesSession(t *testing.T) {
	env := newTestEnv(t, nil)
	b := env.browser(t)
	b.login()
	stolen := *b.cookies["sid"]

	w := b.do(http.MethodPost, "/logout", nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
	assert.NotContains(t, b.cookies, "sid")

	code, _ := b.session()
	assert.Equal(t, http.StatusUnauthorized, code)

	// a copy of the old container is refused as well
	replay := env.browser(t)
	replay.cookies["sid"] = &stolen
	code, _ = replay.session()
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestSignOutJSON(t *testing.T) {
	env := newTestEnv(t, nil)
	b := env.browser(t)
	b.login()

	w := b.do(http.MethodPost, "/api/auth/signout", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"signed_out"}`, w.Body.String())
	code, _ := b.session()
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestProtectedPage_RedirectsAnonymous(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.browser(t).do(http.MethodGet, "/profile", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?callbackUrl=%2Fprofile", w.Header().Get("Location"))
}

func TestProfile_RetriesAfterRefresh(t *testing.T) {
	env := newTestEnv(t, nil)
	b := env.browser(t)
	b.login()
	before := b.cookies["sid"].Value

	env.api.expireAccess()
	w := b.do(http.MethodGet, "/profile", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `value="Ana"`)
	assert.Equal(t, int32(1), atomic.LoadInt32(&env.api.refreshes))
	assert.NotEqual(t, before, b.cookies["sid"].Value, "refreshed tokens are persisted")

	// the rotated pair works without another refresh
	w = b.do(http.MethodGet, "/profile", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&env.api.refreshes))
}

func TestProfile_FailedRefreshSignsOut(t *testing.T) {
	env := newTestEnv(t, nil)
	b := env.browser(t)
	b.login()

	env.api.revokeAll()
	w := b.do(http.MethodGet, "/profile", nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login?reason=expired", w.Header().Get("Location"))
	assert.NotContains(t, b.cookies, "sid")

	code, _ := b.session()
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestProfile_UpdateRefreshesSubject(t *testing.T) {
	env := newTestEnv(t, nil)
	b := env.browser(t)
	b.login()

	w := b.do(http.MethodPost, "/profile", url.Values{"first_name": {"Anna"}, "last_name": {"Diaz"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Your profile was updated.")
	assert.Contains(t, w.Body.String(), "Anna Diaz")

	code, v := b.session()
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Anna", v.User.FirstName)
}

func TestProfile_UpdateValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	b := env.browser(t)
	b.login()
	calls := atomic.LoadInt32(&env.api.calls)

	w := b.do(http.MethodPost, "/profile", url.Values{"first_name": {""}, "last_name": {"Diaz"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "First name is required.")
	assert.Equal(t, calls, atomic.LoadInt32(&env.api.calls))
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t, nil)
	b := env.browser(t)
	b.login()

	w := b.do(http.MethodPost, "/profile/change-password", url.Values{
		"current_password": {"not-it"}, "new_password": {"new-secret"}, "confirm_password": {"new-secret"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Incorrect password")

	w = b.do(http.MethodPost, "/profile/change-password", url.Values{
		"current_password": {"secret1"}, "new_password": {"new-secret"}, "confirm_password": {"new-secret"},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Your password was changed.")
	assert.Equal(t, "new-secret", env.api.passwords["a@b.com"])
}

func TestForgotPassword_GenericConfirmation(t *testing.T) {
	env := newTestEnv(t, nil)
	b := env.browser(t)

	w := b.do(http.MethodPost, "/forgot-password", url.Values{"email": {"nobody@b.com"}, "tenant_domain": {"acme"}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "a reset link is on its way")
	assert.NotContains(t, w.Body.String(), "nobody@b.com")
}

func TestResetPassword(t *testing.T) {
	env := newTestEnv(t, nil)
	b := env.browser(t)

	w := b.do(http.MethodGet, "/reset-password?token=good-token", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `value="good-token"`)

	w = b.do(http.MethodPost, "/reset-password", url.Values{"token": {"stale"}, "new_password": {"new-secret"}, "confirm_password": {"new-secret"}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid or expired token")

	w = b.do(http.MethodPost, "/reset-password", url.Values{"token": {"good-token"}, "new_password": {"new-secret"}, "confirm_password": {"new-secret"}})
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login?reset=1", w.Header().Get("Location"))
}

func TestSessionJSON_HasNoTokens(t *testing.T) {
	env := newTestEnv(t, nil)
	b := env.browser(t)
	b.login()

	w := b.do(http.MethodGet, "/api/auth/session", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"email":"a@b.com"`)
	assert.NotContains(t, w.Body.String(), "at-")
	assert.NotContains(t, w.Body.String(), "rt-")
	assert.NotContains(t, w.Body.String(), "Token")
}

func TestExistsProxies(t *testing.T) {
	env := newTestEnv(t, nil)
	b := env.browser(t)

	w := b.do(http.MethodGet, "/api/users/exists?email=a@b.com", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"exists":true}`, w.Body.String())

	w = b.do(http.MethodGet, "/api/tenants/exists?domain=newco", nil)
	assert.JSONEq(t, `{"exists":false}`, w.Body.String())

	w = b.do(http.MethodGet, "/api/tenants/exists", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExistsProxy_APIDown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()
	client, err := apiclient.NewClient(dead.URL + "/v1")
	require.NoError(t, err)

	h := NewHandler(nil, users.NewService(client), nil)
	r := gin.New()
	r.GET("/api/users/exists", h.UserExists)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/users/exists?email=a@b.com", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestDashboard_ShowsRecentActivity(t *testing.T) {
	env := newTestEnv(t, nil)
	b := env.browser(t)
	b.login()

	w := b.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), activity.KindLogin.Label())
	assert.Contains(t, w.Body.String(), "Ana Diaz")
}

func TestLogin_RateLimited(t *testing.T) {
	env := newTestEnv(t, func(route string) gin.HandlerFunc {
		if route == "/login" {
			return middleware.RateLimitMiddleware(0.001, 1)
		}
		return nil
	})
	b := env.browser(t)

	form := url.Values{"email": {"a@b.com"}, "password": {"wrong-pw"}}
	assert.Equal(t, http.StatusUnauthorized, b.do(http.MethodPost, "/login", form).Code)
	assert.Equal(t, http.StatusTooManyRequests, b.do(http.MethodPost, "/login", form).Code)
	// other forms keep their own budget
	assert.Equal(t, http.StatusOK, b.do(http.MethodGet, "/login", nil).Code)
}

func TestReadiness(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterOps(r, map[string]Check{
		"api":   func(context.Context) error { return nil },
		"redis": func(context.Context) error { return fmt.Errorf("connection refused") },
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"ready":false,"checks":{"api":"ok","redis":"connection refused"}}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSafeRedirect(t *testing.T) {
	cases := map[string]string{
		"":                     "/",
		"/":                    "/",
		"/profile":             "/profile",
		"/profile?tab=a#top":   "/profile?tab=a#top",
		"//evil.example":       "/",
		"/\\evil.example":      "/",
		"/\t/evil.example":     "/",
		"/\r\n/evil.example":   "/",
		"/\x00/evil.example":   "/",
		"/\x7f/evil.example":   "/",
		"https://evil.example": "/",
		"javascript:alert(1)":  "/",
	}
	for in, want := range cases {
		assert.Equal(t, want, safeRedirect(in), "%q", in)
	}
}

func TestRegister_BlankInputNeverReachesAPI(t *testing.T) {
	env := newTestEnv(t, nil)
	form := registration("")
	form.Set("first_name", "   ")
	form.Set("last_name", " B ")
	form.Set("tenant_name", " Z ")

	w := env.browser(t).do(http.MethodPost, "/register", form)
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "First name is required.")
	assert.Contains(t, body, "Last name must be at least 2 characters.")
	assert.Contains(t, body, "Organization domain must be at least 2 characters.")
	assert.Equal(t, int32(0), atomic.LoadInt32(&env.api.calls))
	assert.False(t, env.api.domains["z"])
}

func TestProfile_BlankNamesNeverReachAPI(t *testing.T) {
	env := newTestEnv(t, nil)
	b := env.browser(t)
	b.login()
	calls := atomic.LoadInt32(&env.api.calls)

	w := b.do(http.MethodPost, "/profile", url.Values{"first_name": {"   "}, "last_name": {"Diaz"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "First name is required.")
	assert.Equal(t, calls, atomic.LoadInt32(&env.api.calls))
	assert.Equal(t, "Ana", env.api.names["a@b.com"][0])
}

func TestProfile_RefreshesExpiredAccessTokenFirst(t *testing.T) {
	env := newTestEnv(t, nil)
	env.api.accessTTL = -time.Minute
	b := env.browser(t)
	b.login()
	before := b.cookies["sid"].Value

	env.api.mu.Lock()
	env.api.paths = nil
	env.api.mu.Unlock()

	w := b.do(http.MethodGet, "/profile", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `value="Ana"`)
	assert.Equal(t, int32(1), atomic.LoadInt32(&env.api.refreshes))
	assert.Equal(t, []string{"POST /refresh", "GET /users/me"}, env.api.paths)
	assert.NotEqual(t, before, b.cookies["sid"].Value)
}
