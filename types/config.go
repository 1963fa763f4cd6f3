package types

import "time"

type Config struct {
	Env        string         `yaml:"env" env:"APP_ENV"`
	ListenAddr string         `yaml:"listen_addr" env:"LISTEN_ADDR"`
	APIURL     string         `yaml:"api_url" env:"API_URL"`
	StaticDir  string         `yaml:"static_dir" env:"STATIC_DIR"`
	StoreType  string         `yaml:"store_type" env:"STORE_TYPE"`
	Session    SessionConfig  `yaml:"session"`
	Security   SecurityConfig `yaml:"security"`
	Redis      RedisConfig    `yaml:"redis"`
	Log        LogConfig      `yaml:"log"`
}

func (c Config) Production() bool {
	return c.Env == "production"
}

type SessionConfig struct {
	TokenCookie   string        `yaml:"token_cookie" env:"TOKEN_NAME"`
	ProfileCookie string        `yaml:"profile_cookie" env:"TOKEN_USER_NAME"`
	EncryptionKey string        `yaml:"encryption_key" env:"ENCRYPTION_KEY"`
	CookieTTL     time.Duration `yaml:"cookie_ttl" env:"COOKIE_TTL"`
}

type SecurityConfig struct {
	LoginRate      Rate          `yaml:"login_rate"`
	TrustedProxies []string      `yaml:"trusted_proxies" env:"TRUSTED_PROXIES"`
	BackendTimeout time.Duration `yaml:"backend_timeout" env:"BACKEND_TIMEOUT"`
}

type Rate struct {
	Period time.Duration `yaml:"period" env:"LOGIN_RATE_PERIOD"`
	Limit  int           `yaml:"limit" env:"LOGIN_RATE_LIMIT"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
	Prefix   string `yaml:"prefix" env:"REDIS_PREFIX"`
}

type LogConfig struct {
	Level      string `yaml:"level" env:"LOG_LEVEL"`
	Format     string `yaml:"format" env:"LOG_FORMAT"`
	File       string `yaml:"file" env:"LOG_FILE"`
	MaxSizeMB  int    `yaml:"max_size_mb" env:"LOG_MAX_SIZE_MB"`
	MaxBackups int    `yaml:"max_backups" env:"LOG_MAX_BACKUPS"`
	MaxAgeDays int    `yaml:"max_age_days" env:"LOG_MAX_AGE_DAYS"`
}
