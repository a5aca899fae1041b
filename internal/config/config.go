package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"project-submission/internal/MinIO"
	"project-submission/internal/storage"
	"project-submission/internal/validation"
	"project-submission/pkg/database/postgres"
	"project-submission/pkg/database/redis"
	"project-submission/pkg/logger"
)

const defaultPath = "./config/local.env"

type Config struct {
	HTTPPort      string        `env:"HTTP_PORT" env-default:"8080"`
	SiteURL       string        `env:"SITE_URL" env-default:"http://localhost:8080"`
	SecureCookies bool          `env:"SECURE_COOKIES" env-default:"false"`
	JWTSecret     string        `env:"JWT_TOKEN"`
	NonceSecret   string        `env:"NONCE_SECRET"`
	SessionTTL    time.Duration `env:"SESSION_TTL" env-default:"336h"`
	NonceTTL      time.Duration `env:"NONCE_TTL" env-default:"24h"`

	PrivacyPolicyRequired bool `env:"PRIVACY_POLICY_REQUIRED" env-default:"false"`

	Admin    AdminConfig
	Log      logger.Config
	Postgres postgres.Config
	Redis    redis.RedisConfig
	Storage  storage.Config
	MinIO    MinIO.Config
	Uploads  validation.Config
}

// AdminConfig seeds the administrator account on startup when a password is set.
type AdminConfig struct {
	Username string `env:"ADMIN_USERNAME" env-default:"admin"`
	Email    string `env:"ADMIN_EMAIL" env-default:"admin@localhost"`
	Password string `env:"ADMIN_PASSWORD"`
}

func New() (*Config, error) {
	return Load(defaultPath)
}

func Load(path string) (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_TOKEN is required")
	}
	if c.NonceSecret == "" {
		return errors.New("NONCE_SECRET is required")
	}
	if c.NonceSecret == c.JWTSecret {
		return errors.New("NONCE_SECRET must differ from JWT_TOKEN")
	}
	switch c.Storage.Driver {
	case storage.DriverLocal, storage.DriverMinIO:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}
	return nil
}
