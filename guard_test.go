package budgetgate

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minus-twelve/budgetgate/types"
)

func newTestGuard(t *testing.T) (*Guard, *Codec, *testClock) {
	t.Helper()
	codec, clock := newTestCodec(t)
	return NewGuard(codec, DefaultRoutes()), codec, clock
}

func TestGuard_PublicWithoutCookie(t *testing.T) {
	guard, _, _ := newTestGuard(t)

	d := guard.Decide("/", types.SessionCookies{})
	assert.True(t, d.Allowed())
	assert.False(t, d.ClearSession)
	assert.Equal(t, RoutePublic, d.Class)
}

func TestGuard_PublicWithValidSession(t *testing.T) {
	guard, codec, _ := newTestGuard(t)
	sess := sealSession(t, codec, makeJWT(t, testEpoch.Add(time.Hour)), userProfile)

	d := guard.Decide("/", sess)
	assert.Equal(t, "/dashboard", d.Redirect)
	assert.False(t, d.ClearSession)
	assert.Equal(t, ReasonAuthenticated, d.Reason)

	d = guard.Decide("/otp", sess)
	assert.Equal(t, "/dashboard", d.Redirect)
}

func TestGuard_PublicWithBrokenSession(t *testing.T) {
	guard, _, _ := newTestGuard(t)
	sess := types.SessionCookies{Token: "garbage", Profile: "garbage"}

	d := guard.Decide("/forgot-password", sess)
	assert.Equal(t, "/", d.Redirect)
	assert.True(t, d.ClearSession)

	// Already on the landing page: no redirect, but the dead cookies still go.
	d = guard.Decide("/", sess)
	assert.True(t, d.Allowed())
	assert.True(t, d.ClearSession)
	assert.Equal(t, ReasonSessionInvalid, d.Reason)
}

func TestGuard_ProtectedWithoutCookie(t *testing.T) {
	guard, _, _ := newTestGuard(t)

	d := guard.Decide("/dashboard", types.SessionCookies{})
	assert.Equal(t, "/", d.Redirect)
	assert.False(t, d.ClearSession)
	assert.Equal(t, ReasonNoSession, d.Reason)
}

func TestGuard_RoleRestriction(t *testing.T) {
	guard, codec, _ := newTestGuard(t)
	token := makeJWT(t, testEpoch.Add(time.Hour))

	d := guard.Decide("/config", sealSession(t, codec, token, userProfile))
	assert.Equal(t, "/unauthorized", d.Redirect)
	assert.False(t, d.ClearSession)
	assert.Equal(t, ReasonRoleDenied, d.Reason)

	d = guard.Decide("/config", sealSession(t, codec, token, adminProfile))
	assert.True(t, d.Allowed())
	require.NotNil(t, d.Profile)
	assert.Equal(t, adminProfile, *d.Profile)

	d = guard.Decide("/user/3", sealSession(t, codec, token, userProfile))
	assert.Equal(t, "/unauthorized", d.Redirect)

	d = guard.Decide("/budget", sealSession(t, codec, token, userProfile))
	assert.True(t, d.Allowed())
}

func TestGuard_UnknownRoleIsDenied(t *testing.T) {
	guard, codec, _ := newTestGuard(t)
	token := makeJWT(t, testEpoch.Add(time.Hour))
	odd := userProfile
	odd.Role = types.Role("Superviseur")

	d := guard.Decide("/config", sealSession(t, codec, token, odd))
	assert.Equal(t, "/unauthorized", d.Redirect)

	d = guard.Decide("/service", sealSession(t, codec, token, odd))
	assert.True(t, d.Allowed())
}

func TestGuard_ExpiredEnvelope(t *testing.T) {
	guard, codec, clock := newTestGuard(t)
	sess := sealSession(t, codec, makeJWT(t, testEpoch.Add(30*24*time.Hour)), userProfile)

	clock.Advance(EnvelopeLifetime)

	d := guard.Decide("/budget", sess)
	assert.Equal(t, "/", d.Redirect)
	assert.True(t, d.ClearSession)
	assert.Equal(t, ReasonSessionInvalid, d.Reason)
}

func TestGuard_ExpiredToken(t *testing.T) {
	guard, codec, clock := newTestGuard(t)
	sess := sealSession(t, codec, makeJWT(t, testEpoch.Add(time.Hour)), userProfile)

	clock.Advance(2 * time.Hour)

	d := guard.Decide("/budget", sess)
	assert.Equal(t, "/", d.Redirect)
	assert.True(t, d.ClearSession)
}

func TestGuard_ProfileProblems(t *testing.T) {
	guard, codec, _ := newTestGuard(t)
	sess := sealSession(t, codec, makeJWT(t, testEpoch.Add(time.Hour)), userProfile)

	missing := types.SessionCookies{Token: sess.Token}
	d := guard.Decide("/extension", missing)
	assert.Equal(t, "/", d.Redirect)
	assert.True(t, d.ClearSession)
	assert.Equal(t, ReasonProfileInvalid, d.Reason)

	notJSON, err := codec.Encrypt("not json")
	require.NoError(t, err)
	d = guard.Decide("/extension", types.SessionCookies{Token: sess.Token, Profile: notJSON})
	assert.Equal(t, "/", d.Redirect)
	assert.True(t, d.ClearSession)
}

func TestGuard_UnclassifiedAlwaysAllowed(t *testing.T) {
	guard, _, _ := newTestGuard(t)

	for _, p := range []string{"/unauthorized", "/healthz", "/api/budgets", "/favicon.ico"} {
		d := guard.Decide(p, types.SessionCookies{Token: "garbage"})
		assert.True(t, d.Allowed(), p)
		assert.False(t, d.ClearSession, p)
	}
}

func TestGuard_RedirectToCurrentPathIsAllowed(t *testing.T) {
	codec, _ := newTestCodec(t)
	routes := DefaultRoutes()
	routes.Public = append(routes.Public, "dashboard")
	routes.Protected = []string{"/budget"}
	guard := NewGuard(codec, routes)

	sess := sealSession(t, codec, makeJWT(t, testEpoch.Add(time.Hour)), userProfile)
	d := guard.Decide("/dashboard", sess)
	assert.True(t, d.Allowed())
	assert.Equal(t, ReasonAuthenticated, d.Reason)
}

func TestGuard_Middleware(t *testing.T) {
	guard, codec, clock := newTestGuard(t)
	jar := CookieJar{TokenName: "tk", ProfileName: "usr", TTL: DefaultCookieTTL}

	r := gin.New()
	r.Use(guard.Middleware(jar, nil))
	r.NoRoute(func(c *gin.Context) {
		p, ok := ProfileFromContext(c)
		if ok {
			c.String(http.StatusOK, string(p.Role))
			return
		}
		c.String(http.StatusOK, "page")
	})

	serve := func(path string, sess types.SessionCookies) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if sess.Token != "" {
			req.AddCookie(&http.Cookie{Name: "tk", Value: sess.Token})
		}
		if sess.Profile != "" {
			req.AddCookie(&http.Cookie{Name: "usr", Value: sess.Profile})
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := serve("/", types.SessionCookies{})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "page", w.Body.String())

	w = serve("/dashboard", types.SessionCookies{})
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.Empty(t, w.Result().Cookies())

	sess := sealSession(t, codec, makeJWT(t, testEpoch.Add(30*24*time.Hour)), adminProfile)
	w = serve("/config", sess)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Admin", w.Body.String())

	clock.Advance(8 * 24 * time.Hour)
	w = serve("/budget", sess)
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	cleared := map[string]bool{}
	for _, c := range w.Result().Cookies() {
		assert.Less(t, c.MaxAge, 0, c.Name)
		cleared[c.Name] = true
	}
	assert.Equal(t, map[string]bool{"tk": true, "usr": true}, cleared)
}

func TestGuard_PanicDuringProtectedCheckIsInvalidSession(t *testing.T) {
	codec, _ := newTestCodec(t)
	sess := sealSession(t, codec, makeJWT(t, testEpoch.Add(time.Hour)), adminProfile)

	broken, err := NewCodec(testSecret, WithClock(func() time.Time { panic("clock unavailable") }))
	require.NoError(t, err)
	guard := NewGuard(broken, DefaultRoutes())

	var d Decision
	require.NotPanics(t, func() { d = guard.Decide("/budget", sess) })
	assert.Equal(t, "/", d.Redirect)
	assert.True(t, d.ClearSession)
	assert.Equal(t, ReasonSessionInvalid, d.Reason)
	assert.Equal(t, RouteProtected, d.Class)
	assert.Nil(t, d.Profile)
}
