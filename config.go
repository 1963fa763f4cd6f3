package budgetgate

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"

	"github.com/minus-twelve/budgetgate/types"
)

const (
	defaultListenAddr     = ":3000"
	defaultLoginLimit     = 5
	defaultLoginPeriod    = time.Minute
	defaultBackendTimeout = 15 * time.Second
)

// LoadConfig reads the YAML file at path (optional), lets the environment
// override it, fills defaults and validates the result.
func LoadConfig(path string) (types.Config, error) {
	var cfg types.Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return cfg, fmt.Errorf("decode environment: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := ValidateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func ApplyDefaults(cfg *types.Config) {
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultListenAddr
	}
	if cfg.StoreType == "" {
		cfg.StoreType = "memory"
	}
	if cfg.Session.CookieTTL <= 0 {
		cfg.Session.CookieTTL = DefaultCookieTTL
	}
	if cfg.Security.LoginRate.Limit <= 0 {
		cfg.Security.LoginRate.Limit = defaultLoginLimit
	}
	if cfg.Security.LoginRate.Period <= 0 {
		cfg.Security.LoginRate.Period = defaultLoginPeriod
	}
	if cfg.Security.BackendTimeout <= 0 {
		cfg.Security.BackendTimeout = defaultBackendTimeout
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
}

func ValidateConfig(cfg types.Config) error {
	switch {
	case cfg.Session.EncryptionKey == "":
		return &ConfigurationError{Field: "session.encryption_key", Reason: "must not be empty"}
	case cfg.Session.TokenCookie == "":
		return &ConfigurationError{Field: "session.token_cookie", Reason: "must not be empty"}
	case cfg.Session.ProfileCookie == "":
		return &ConfigurationError{Field: "session.profile_cookie", Reason: "must not be empty"}
	case cfg.Session.TokenCookie == cfg.Session.ProfileCookie:
		return &ConfigurationError{Field: "session.profile_cookie", Reason: "must differ from session.token_cookie"}
	case cfg.APIURL == "":
		return &ConfigurationError{Field: "api_url", Reason: "must not be empty"}
	}
	return nil
}
