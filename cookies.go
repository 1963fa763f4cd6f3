package budgetgate

import (
	"net/http"
	"time"

	"github.com/minus-twelve/budgetgate/types"
)

// DefaultCookieTTL is a third of a day, the browser-side lifetime of both
// session cookies. The envelopes inside them live longer.
const DefaultCookieTTL = 8 * time.Hour

// CookieJar reads and writes the two session cookies.
type CookieJar struct {
	TokenName   string
	ProfileName string
	TTL         time.Duration
	Secure      bool
}

func NewCookieJar(cfg types.SessionConfig, production bool) CookieJar {
	ttl := cfg.CookieTTL
	if ttl <= 0 {
		ttl = DefaultCookieTTL
	}
	return CookieJar{
		TokenName:   cfg.TokenCookie,
		ProfileName: cfg.ProfileCookie,
		TTL:         ttl,
		Secure:      production,
	}
}

func (j CookieJar) Read(r *http.Request) types.SessionCookies {
	var s types.SessionCookies
	if c, err := r.Cookie(j.TokenName); err == nil {
		s.Token = c.Value
	}
	if c, err := r.Cookie(j.ProfileName); err == nil {
		s.Profile = c.Value
	}
	return s
}

func (j CookieJar) Write(w http.ResponseWriter, token, profile string) {
	http.SetCookie(w, j.cookie(j.TokenName, token, int(j.TTL/time.Second)))
	http.SetCookie(w, j.cookie(j.ProfileName, profile, int(j.TTL/time.Second)))
}

func (j CookieJar) Clear(w http.ResponseWriter) {
	http.SetCookie(w, j.cookie(j.TokenName, "", -1))
	http.SetCookie(w, j.cookie(j.ProfileName, "", -1))
}

func (j CookieJar) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   j.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}
