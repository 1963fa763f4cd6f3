package budgetgate

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// IsExpired reports whether a decrypted session token is past its own expiry.
// Two shapes are understood: a base64 JSON wrapper with "exp" in milliseconds,
// and a JWT whose "exp" claim is in seconds. The JWT signature is not checked
// here; the backend does that on every API call. Empty or unreadable tokens
// count as expired.
func (c *Codec) IsExpired(token string) bool {
	if token == "" {
		return true
	}
	now := time.Now()
	if c != nil {
		now = c.now()
	}

	if exp, found, ok := wrapperExpiry(token); ok {
		return found && !now.Before(exp)
	}

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !now.Before(claims.ExpiresAt.Time)
}

// wrapperExpiry reads the legacy {"data","exp"} wrapper. ok is false when the
// token is not such a wrapper at all.
func wrapperExpiry(token string) (exp time.Time, found bool, ok bool) {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return time.Time{}, false, false
	}
	var w *struct {
		Exp *float64 `json:"exp"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return time.Time{}, false, false
	}
	if w == nil {
		// JSON null: report an expiry in the past.
		return time.Time{}, true, true
	}
	if w.Exp == nil || *w.Exp == 0 {
		return time.Time{}, false, true
	}
	return time.UnixMilli(int64(*w.Exp)), true, true
}
