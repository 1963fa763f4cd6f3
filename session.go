package budgetgate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/minus-twelve/budgetgate/types"
)

// Authenticator is the backend login call.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (types.LoginResponse, error)
}

// SessionManager issues, reads and clears the encrypted session cookies.
// Nothing about a session is kept server-side.
type SessionManager struct {
	codec          *Codec
	jar            CookieJar
	auth           Authenticator
	limiter        Limiter
	trustedProxies []net.IPNet
	logger         *slog.Logger
}

func NewManager(codec *Codec, jar CookieJar, auth Authenticator, limiter Limiter, security types.SecurityConfig, logger *slog.Logger) *SessionManager {
	if logger == nil {
		logger = slog.Default()
	}

	trustedNetworks := make([]net.IPNet, 0, len(security.TrustedProxies))
	for _, proxy := range security.TrustedProxies {
		_, ipnet, err := net.ParseCIDR(proxy)
		if err != nil {
			ip := net.ParseIP(proxy)
			if ip == nil {
				logger.Warn("ignoring trusted proxy", slog.String("value", proxy))
				continue
			}
			mask := net.CIDRMask(32, 32)
			if ip.To4() == nil {
				mask = net.CIDRMask(128, 128)
			} else {
				ip = ip.To4()
			}
			ipnet = &net.IPNet{IP: ip, Mask: mask}
		}
		trustedNetworks = append(trustedNetworks, *ipnet)
	}

	return &SessionManager{
		codec:          codec,
		jar:            jar,
		auth:           auth,
		limiter:        limiter,
		trustedProxies: trustedNetworks,
		logger:         logger,
	}
}

func (sm *SessionManager) Jar() CookieJar {
	return sm.jar
}

// Login authenticates against the backend and writes both session cookies.
func (sm *SessionManager) Login(ctx context.Context, w http.ResponseWriter, r *http.Request, creds types.Credentials) (types.Profile, error) {
	ip := sm.GetClientIP(r)

	if sm.limiter != nil {
		allowed, err := sm.limiter.Allow(ctx, ip)
		if err != nil {
			// Limiter outages fail open.
			sm.logger.ErrorContext(ctx, "login limiter failed", slog.Any("error", err))
		} else if !allowed {
			return types.Profile{}, ErrLoginRateLimited
		}
	}

	resp, err := sm.auth.Login(ctx, creds.Email, creds.Password)
	if err != nil {
		return types.Profile{}, err
	}

	profile, err := resp.User.Profile()
	if err != nil {
		return types.Profile{}, fmt.Errorf("%w: %q", ErrInvalidRole, resp.User.Role)
	}

	if err := sm.Establish(w, resp.Token, profile); err != nil {
		return types.Profile{}, err
	}

	if sm.limiter != nil {
		if err := sm.limiter.Reset(ctx, ip); err != nil {
			sm.logger.WarnContext(ctx, "login limiter reset failed", slog.Any("error", err))
		}
	}

	sm.logger.InfoContext(ctx, "session established",
		slog.String("email", profile.Email),
		slog.String("role", string(profile.Role)),
	)
	return profile, nil
}

// Establish seals token and profile and writes them as cookies.
func (sm *SessionManager) Establish(w http.ResponseWriter, token string, profile types.Profile) error {
	rawProfile, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSessionWrite, err)
	}

	sealedToken, err := sm.codec.Encrypt(token)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSessionWrite, err)
	}
	sealedProfile, err := sm.codec.Encrypt(string(rawProfile))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSessionWrite, err)
	}

	sm.jar.Write(w, sealedToken, sealedProfile)
	return nil
}

func (sm *SessionManager) Logout(w http.ResponseWriter) {
	sm.jar.Clear(w)
}

// Current returns the cached profile when the request carries a usable
// session.
func (sm *SessionManager) Current(r *http.Request) (types.Profile, bool) {
	cookies := sm.jar.Read(r)
	if cookies.Token == "" || cookies.Profile == "" {
		return types.Profile{}, false
	}
	if _, ok := sm.BearerToken(r); !ok {
		return types.Profile{}, false
	}

	raw, ok := sm.codec.Decrypt(cookies.Profile)
	if !ok {
		return types.Profile{}, false
	}
	var p types.Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return types.Profile{}, false
	}
	return p, true
}

// BearerToken returns the decrypted backend token of the request.
func (sm *SessionManager) BearerToken(r *http.Request) (string, bool) {
	sealed := sm.jar.Read(r).Token
	token, ok := sm.codec.Decrypt(sealed)
	if !ok || sm.codec.IsExpired(token) {
		return "", false
	}
	return token, true
}

// GetClientIP honors X-Forwarded-For only when the direct peer is a trusted
// proxy.
func (sm *SessionManager) GetClientIP(r *http.Request) string {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}

	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded == "" {
		return ip
	}

	clientIP := net.ParseIP(ip)
	if clientIP == nil {
		return ip
	}
	for _, trusted := range sm.trustedProxies {
		if trusted.Contains(clientIP) {
			if ips := splitIPs(forwarded); len(ips) > 0 && ips[0] != "" {
				return ips[0]
			}
		}
	}
	return ip
}

func splitIPs(forwarded string) []string {
	ips := strings.Split(forwarded, ",")
	for i := range ips {
		ips[i] = strings.TrimSpace(ips[i])
	}
	return ips
}
