// Package config loads server configuration from a YAML file and the
// environment.
//
// Order of precedence: environment variables override the file, then the
// result is validated, then unset values take defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Media     MediaConfig     `yaml:"media"`
	Log       LogConfig       `yaml:"log"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	CORSOrigin      string        `yaml:"cors_origin"` // empty allows no cross-origin callers
	CookieSecure    bool          `yaml:"cookie_secure"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type AuthConfig struct {
	AccessTokenSecret  string        `yaml:"access_token_secret"`
	RefreshTokenSecret string        `yaml:"refresh_token_secret"`
	AccessTokenTTL     time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL    time.Duration `yaml:"refresh_token_ttl"`
	Issuer             string        `yaml:"issuer"`
	BcryptCost         int           `yaml:"bcrypt_cost"`
}

// MediaConfig points at an S3-compatible bucket. An empty Bucket disables
// uploads.
type MediaConfig struct {
	Endpoint       string `yaml:"endpoint"`
	Region         string `yaml:"region"`
	Bucket         string `yaml:"bucket"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	UsePathStyle   bool   `yaml:"use_path_style"`
	PublicBaseURL  string `yaml:"public_base_url"`
	Folder         string `yaml:"folder"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// BootstrapConfig optionally names the first superadmin, created at startup
// when no user with that email exists.
type BootstrapConfig struct {
	SuperAdminEmail    string `yaml:"superadmin_email"`
	SuperAdminName     string `yaml:"superadmin_name"`
	SuperAdminPassword string `yaml:"superadmin_password"`
}

// Load reads the YAML file at path, applies environment overrides, validates
// and fills defaults. An empty path skips the file and configures from the
// environment alone.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(os.Getenv); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) applyEnvOverrides(getenv func(string) string) error {
	strs := map[string]*string{
		"BLOG_HOST":                 &c.Server.Host,
		"BLOG_CORS_ORIGIN":          &c.Server.CORSOrigin,
		"DB_PATH":                   &c.Database.Path,
		"BLOG_ACCESS_TOKEN_SECRET":  &c.Auth.AccessTokenSecret,
		"BLOG_REFRESH_TOKEN_SECRET": &c.Auth.RefreshTokenSecret,
		"BLOG_S3_ENDPOINT":          &c.Media.Endpoint,
		"BLOG_S3_REGION":            &c.Media.Region,
		"BLOG_S3_BUCKET":            &c.Media.Bucket,
		"BLOG_S3_ACCESS_KEY":        &c.Media.AccessKey,
		"BLOG_S3_SECRET_KEY":        &c.Media.SecretKey,
		"BLOG_S3_PUBLIC_BASE_URL":   &c.Media.PublicBaseURL,
		"BLOG_LOG_LEVEL":            &c.Log.Level,
		"BLOG_SUPERADMIN_EMAIL":     &c.Bootstrap.SuperAdminEmail,
		"BLOG_SUPERADMIN_NAME":      &c.Bootstrap.SuperAdminName,
		"BLOG_SUPERADMIN_PASSWORD":  &c.Bootstrap.SuperAdminPassword,
	}
	for key, dst := range strs {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := getenv("BLOG_COOKIE_SECURE"); v != "" {
		secure, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("BLOG_COOKIE_SECURE: %w", err)
		}
		c.Server.CookieSecure = secure
	}
	return nil
}

func (c *Config) validate() error {
	if c.Auth.AccessTokenSecret == "" {
		return errors.New("auth.access_token_secret is required")
	}
	if c.Auth.RefreshTokenSecret == "" {
		return errors.New("auth.refresh_token_secret is required")
	}
	if c.Auth.AccessTokenSecret == c.Auth.RefreshTokenSecret {
		return errors.New("auth.access_token_secret and auth.refresh_token_secret must differ")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	if c.Media.Bucket != "" && c.Media.AccessKey != "" && c.Media.SecretKey == "" {
		return errors.New("media.secret_key is required when media.access_key is set")
	}
	b := c.Bootstrap
	if (b.SuperAdminEmail == "") != (b.SuperAdminPassword == "") {
		return errors.New("bootstrap.superadmin_email and bootstrap.superadmin_password must be set together")
	}
	if c.Log.Level != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
			return fmt.Errorf("log.level: %w", err)
		}
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = 16 << 10
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/blog.db"
	}
	if c.Auth.AccessTokenTTL == 0 {
		c.Auth.AccessTokenTTL = 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL == 0 {
		c.Auth.RefreshTokenTTL = 240 * time.Hour
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "blog-backend"
	}
	if c.Auth.BcryptCost == 0 {
		c.Auth.BcryptCost = 12
	}
	if c.Media.Region == "" {
		c.Media.Region = "us-east-1"
	}
	if c.Media.Folder == "" {
		c.Media.Folder = "blog-backend"
	}
	if c.Media.MaxUploadBytes == 0 {
		c.Media.MaxUploadBytes = 5 << 20
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Bootstrap.SuperAdminName == "" {
		c.Bootstrap.SuperAdminName = "super admin"
	}
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// LogLevel returns the configured slog level. Call after Load.
func (c *Config) LogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
