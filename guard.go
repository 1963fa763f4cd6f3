package budgetgate

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/minus-twelve/budgetgate/types"
)

const (
	ReasonAuthenticated  = "already_authenticated"
	ReasonNoSession      = "no_session"
	ReasonSessionInvalid = "session_invalid"
	ReasonProfileInvalid = "profile_invalid"
	ReasonRoleDenied     = "role_denied"
)

// Decision is the guard's verdict for one request. An empty Redirect means
// the request goes through.
type Decision struct {
	Redirect     string
	ClearSession bool
	Reason       string
	Class        RouteClass
	Profile      *types.Profile
}

func (d Decision) Allowed() bool {
	return d.Redirect == ""
}

// Guard enforces sessions and role restrictions. It keeps no state between
// requests.
type Guard struct {
	codec  *Codec
	routes RouteTable
}

func NewGuard(codec *Codec, routes RouteTable) *Guard {
	return &Guard{codec: codec, routes: routes}
}

func (g *Guard) Routes() RouteTable {
	return g.routes
}

func (g *Guard) Decide(requestPath string, sess types.SessionCookies) Decision {
	current := cleanPath(requestPath)

	switch class := g.routes.Classify(current); class {
	case RoutePublic:
		d := g.decidePublic(current, sess)
		d.Class = class
		return d
	case RouteProtected:
		d := g.decideProtected(current, sess)
		d.Class = class
		return d
	default:
		return Decision{Class: class}
	}
}

func (g *Guard) decidePublic(current string, sess types.SessionCookies) Decision {
	if sess.Token == "" {
		return Decision{}
	}
	token, ok := g.codec.Decrypt(sess.Token)
	if ok && !g.codec.IsExpired(token) {
		return redirect(current, g.routes.AuthenticatedLanding, false, ReasonAuthenticated)
	}
	return redirect(current, g.routes.PublicLanding, true, ReasonSessionInvalid)
}

func (g *Guard) decideProtected(current string, sess types.SessionCookies) (d Decision) {
	if sess.Token == "" {
		return redirect(current, g.routes.PublicLanding, false, ReasonNoSession)
	}

	defer func() {
		if recover() != nil {
			d = redirect(current, g.routes.PublicLanding, true, ReasonSessionInvalid)
		}
	}()

	token, ok := g.codec.Decrypt(sess.Token)
	if !ok || g.codec.IsExpired(token) {
		return redirect(current, g.routes.PublicLanding, true, ReasonSessionInvalid)
	}
	profile, ok := g.decodeProfile(sess.Profile)
	if !ok {
		return redirect(current, g.routes.PublicLanding, true, ReasonProfileInvalid)
	}
	if !g.routes.Permits(current, profile.Role) {
		return redirect(current, g.routes.UnauthorizedPage, false, ReasonRoleDenied)
	}
	return Decision{Profile: &profile}
}

func (g *Guard) decodeProfile(envelope string) (types.Profile, bool) {
	raw, ok := g.codec.Decrypt(envelope)
	if !ok {
		return types.Profile{}, false
	}
	var p types.Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return types.Profile{}, false
	}
	return p, true
}

// redirect turns a redirect to the current path into a pass-through so the
// browser never loops.
func redirect(current, target string, clear bool, reason string) Decision {
	d := Decision{ClearSession: clear, Reason: reason}
	if cleanPath(target) != current {
		d.Redirect = target
	}
	return d
}

const profileContextKey = "budgetgate.profile"

// ProfileFromContext returns the profile the guard attached to a protected
// request.
func ProfileFromContext(c *gin.Context) (types.Profile, bool) {
	v, ok := c.Get(profileContextKey)
	if !ok {
		return types.Profile{}, false
	}
	p, ok := v.(types.Profile)
	return p, ok
}

func (g *Guard) Middleware(jar CookieJar, logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *gin.Context) {
		d := g.Decide(c.Request.URL.Path, jar.Read(c.Request))

		if d.ClearSession {
			jar.Clear(c.Writer)
		}
		if d.Reason != "" {
			logger.InfoContext(c.Request.Context(), "route guard",
				slog.String("class", d.Class.String()),
				slog.String("reason", d.Reason),
				slog.String("redirect", d.Redirect),
				slog.Bool("clear_session", d.ClearSession),
			)
		}
		if !d.Allowed() {
			c.Redirect(http.StatusTemporaryRedirect, d.Redirect)
			c.Abort()
			return
		}
		if d.Profile != nil {
			c.Set(profileContextKey, *d.Profile)
		}
		c.Next()
	}
}
