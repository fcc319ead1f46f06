package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

type Config interface {
	EnvConfig
	CorsConfig
	SecurityConfig
	StorageConfig
	MailConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetServiceAddress() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type SecurityConfig interface {
	GetJWTSecret() string
	GetJWTAlgorithm() string
	GetJWTKeyID() string
	GetJWTPrivateKeyFile() string
	GetJWTPublicKeyFile() string
	GetTokenTTL() time.Duration
	GetConfirmationTTL() time.Duration
	GetConfirmURL() string
	GetPasswordHasher() string
}

type StorageConfig interface {
	GetDBDriver() string
	GetDBDSN() string
}

type MailConfig interface {
	GetSmtpHost() string
	GetSmtpPort() string
	GetSmtpAccount() string
	GetSmtpPassword() string
	GetSmtpFrom() string
	GetMailRetries() uint64
}

type mainConfig struct {
	EnvVars
	Cors
	Security
	Storage
	Mail
}

var _ Config = mainConfig{}

// Load reads the configuration from the environment and validates it.
func Load() (Config, error) {
	var cfg mainConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, errors.Wrap(err, "[config.Load] parse env")
	}
	if err := cfg.validate(); err != nil {
		return nil, errors.Wrap(err, "[config.Load]")
	}
	return cfg, nil
}

func (c mainConfig) validate() error {
	alg := strings.ToUpper(c.Security.JWTAlgorithm)
	switch {
	case strings.HasPrefix(alg, "HS"):
		if c.Security.JWTSecret == "" {
			return errors.Errorf("JWT_SECRET is required for %s", alg)
		}
	case strings.HasPrefix(alg, "RS"), strings.HasPrefix(alg, "ES"):
		if c.Security.JWTPrivateKeyFile == "" || c.Security.JWTPublicKeyFile == "" {
			return errors.Errorf("JWT_PRIVATE_KEY_FILE and JWT_PUBLIC_KEY_FILE are required for %s", alg)
		}
	default:
		return errors.Errorf("unsupported JWT_ALGORITHM %q", c.Security.JWTAlgorithm)
	}

	if c.Security.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	if c.Security.ConfirmationTTL <= 0 {
		return errors.New("CONFIRMATION_TTL must be positive")
	}

	switch c.Security.PasswordHasher {
	case "bcrypt", "argon2id":
	default:
		return errors.Errorf("unsupported PASSWORD_HASHER %q", c.Security.PasswordHasher)
	}

	switch c.Storage.DBDriver {
	case DriverSQLite, DriverPostgres:
	default:
		return errors.Errorf("unsupported DB_DRIVER %q", c.Storage.DBDriver)
	}
	if c.Storage.DBDSN == "" {
		return errors.New("DB_DSN must not be empty")
	}
	return nil
}
