// Package backend talks to the console's REST API: the login call and the
// authenticated pass-through used by the front-end data screens.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/minus-twelve/budgetgate/types"
)

const (
	defaultTimeout   = 15 * time.Second
	defaultLoginPath = "/auth/login"
	maxErrorBody     = 64 << 10
)

var (
	ErrMissingURL = errors.New("backend: API URL is not defined")
	// ErrRejected means the backend refused the credentials.
	ErrRejected = errors.New("backend: request rejected")
	// ErrUnavailable covers transport failures and server-side errors.
	ErrUnavailable = errors.New("backend: unavailable")
)

// APIError carries the status and message of a rejected call.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s (status %d)", ErrRejected, e.Status)
	}
	return fmt.Sprintf("%s (status %d): %s", ErrRejected, e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	return ErrRejected
}

type Client struct {
	baseURL   *url.URL
	http      *http.Client
	loginPath string
	logger    *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func WithLoginPath(p string) Option {
	return func(c *Client) {
		if p != "" {
			c.loginPath = "/" + strings.TrimPrefix(p, "/")
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, ErrMissingURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("backend: parse API URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("backend: API URL %q must be absolute http(s)", baseURL)
	}

	c := &Client{
		baseURL:   u,
		http:      &http.Client{Timeout: defaultTimeout},
		loginPath: defaultLoginPath,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) endpoint(p string) string {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + p
	return u.String()
}

// Login exchanges credentials for the backend session token and user.
func (c *Client) Login(ctx context.Context, email, password string) (types.LoginResponse, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return types.LoginResponse{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(c.loginPath), bytes.NewReader(body))
	if err != nil {
		return types.LoginResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return types.LoginResponse{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusBadRequest,
		resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden:
		return types.LoginResponse{}, &APIError{Status: resp.StatusCode, Message: readMessage(resp.Body)}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return types.LoginResponse{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var out types.LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return types.LoginResponse{}, fmt.Errorf("%w: decode login response: %v", ErrUnavailable, err)
	}
	if out.Token == "" {
		return types.LoginResponse{}, fmt.Errorf("%w: login response without token", ErrUnavailable)
	}
	return out, nil
}

func readMessage(r io.Reader) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(r, maxErrorBody)).Decode(&body); err != nil {
		return ""
	}
	return body.Message
}

// Proxy forwards requests under prefix to the API with the prefix stripped.
// The caller sets the Authorization header before handing the request over.
func (c *Client) Proxy(prefix string) http.Handler {
	prefix = "/" + strings.Trim(prefix, "/")
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			p := strings.TrimPrefix(pr.In.URL.Path, prefix)
			if p == "" {
				p = "/"
			}
			pr.Out.URL.Path = p
			pr.Out.URL.RawPath = ""
			pr.SetURL(c.baseURL)
			pr.SetXForwarded()
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			c.logger.ErrorContext(r.Context(), "backend proxy failed",
				slog.String("path", r.URL.Path),
				slog.Any("error", err),
			)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "backend unavailable"})
		},
	}
}
