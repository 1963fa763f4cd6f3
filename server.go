package budgetgate

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/minus-twelve/budgetgate/internal/backend"
	"github.com/minus-twelve/budgetgate/internal/logging"
	"github.com/minus-twelve/budgetgate/types"
)

const apiPrefix = "/api"

const unauthorizedPage = `<!doctype html>
<html lang="fr">
<head><meta charset="utf-8"><title>Accès non autorisé</title></head>
<body>
<h1>403</h1>
<p>Vous n'avez pas les permissions nécessaires pour accéder à cette page.</p>
<p><a href="/dashboard">Retour au tableau de bord</a></p>
</body>
</html>
`

// Server wires the guard, the session endpoints and the API pass-through
// into one gin engine.
type Server struct {
	sessions  *SessionManager
	guard     *Guard
	api       http.Handler
	staticDir string
	logger    *slog.Logger
}

type ServerOptions struct {
	Sessions  *SessionManager
	Guard     *Guard
	API       http.Handler
	StaticDir string
	Logger    *slog.Logger
}

func NewServer(opts ServerOptions) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		sessions:  opts.Sessions,
		guard:     opts.Guard,
		api:       opts.API,
		staticDir: opts.StaticDir,
		logger:    logger,
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logging.Middleware(s.logger))
	r.Use(s.guard.Middleware(s.sessions.Jar(), s.logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := r.Group("/auth")
	auth.POST("/login", s.login)
	auth.POST("/logout", s.logout)
	auth.GET("/me", s.me)

	r.Any(apiPrefix+"/*path", s.proxy)

	r.GET(s.guard.Routes().UnauthorizedPage, func(c *gin.Context) {
		c.Data(http.StatusForbidden, "text/html; charset=utf-8", []byte(unauthorizedPage))
	})

	r.NoRoute(s.static)
	return r
}

type sessionResponse struct {
	User types.Profile `json:"user"`
	Menu []NavItem     `json:"menu"`
}

func (s *Server) login(c *gin.Context) {
	var creds types.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	profile, err := s.sessions.Login(c.Request.Context(), c.Writer, c.Request, creds)
	if err != nil {
		var apiErr *backend.APIError
		switch {
		case errors.Is(err, ErrLoginRateLimited):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many login attempts"})
		case errors.As(err, &apiErr):
			msg := apiErr.Message
			if msg == "" {
				msg = "authentication failed"
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": msg})
		case errors.Is(err, ErrInvalidRole):
			s.logger.WarnContext(c.Request.Context(), "login refused", slog.Any("error", err))
			c.JSON(http.StatusForbidden, gin.H{"error": "account role is not allowed"})
		default:
			s.logger.ErrorContext(c.Request.Context(), "login failed", slog.Any("error", err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "login is unavailable"})
		}
		return
	}

	c.JSON(http.StatusOK, sessionResponse{User: profile, Menu: s.guard.Routes().Menu(profile.Role)})
}

func (s *Server) logout(c *gin.Context) {
	s.sessions.Logout(c.Writer)
	c.Status(http.StatusNoContent)
}

func (s *Server) me(c *gin.Context) {
	profile, ok := s.sessions.Current(c.Request)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	c.JSON(http.StatusOK, sessionResponse{User: profile, Menu: s.guard.Routes().Menu(profile.Role)})
}

func (s *Server) proxy(c *gin.Context) {
	if s.api == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "backend not configured"})
		return
	}
	token, ok := s.sessions.BearerToken(c.Request)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	req := c.Request.Clone(c.Request.Context())
	req.Header.Set("Authorization", "Bearer "+token)
	// Session cookies stay with the gate.
	req.Header.Del("Cookie")
	s.api.ServeHTTP(c.Writer, req)
}

func (s *Server) static(c *gin.Context) {
	if s.staticDir == "" || (c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	name := filepath.Join(s.staticDir, filepath.FromSlash(cleanPath(c.Request.URL.Path)))
	if info, err := os.Stat(name); err == nil && !info.IsDir() {
		c.File(name)
		return
	}
	if !strings.Contains(filepath.Base(name), ".") {
		// Client-side routes fall back to the bundle's entry point.
		c.File(filepath.Join(s.staticDir, "index.html"))
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
}
