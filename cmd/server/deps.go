package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jrsteele09/go-credential-service/auth"
	"github.com/jrsteele09/go-credential-service/internal/config"
	"github.com/jrsteele09/go-credential-service/mailer"
	"github.com/jrsteele09/go-credential-service/storage/postgres"
	"github.com/jrsteele09/go-credential-service/storage/sqlite"
	"github.com/jrsteele09/go-credential-service/token"
	"github.com/jrsteele09/go-credential-service/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// storage is an open backend and the repositories it serves.
type storage struct {
	users           users.Repo
	passwordChanges auth.PasswordChangeRepo
	close           func()
}

// openStorage connects to the configured backend. Postgres schemas are
// migrated on open; SQLite creates its schema itself.
func openStorage(ctx context.Context, cfg config.StorageConfig) (*storage, error) {
	dsn := cfg.GetDBDSN()

	switch cfg.GetDBDriver() {
	case config.DriverPostgres:
		pool, err := postgres.Connect(ctx, dsn)
		if err != nil {
			return nil, errors.Wrap(err, "[openStorage]")
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, errors.Wrap(err, "[openStorage]")
		}
		store := postgres.New(pool)
		return &storage{users: store.Users(), passwordChanges: store.PasswordChanges(), close: pool.Close}, nil

	case config.DriverSQLite:
		if dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
				return nil, errors.Wrap(err, "[openStorage] create data folder")
			}
		}
		store, err := sqlite.Open(ctx, dsn)
		if err != nil {
			return nil, errors.Wrap(err, "[openStorage]")
		}
		return &storage{users: store.Users(), passwordChanges: store.PasswordChanges(), close: func() { _ = store.Close() }}, nil

	default:
		return nil, errors.Errorf("[openStorage] unsupported driver %q", cfg.GetDBDriver())
	}
}

// newSigner builds the token signer, reading PEM key files for key pair algorithms.
func newSigner(cfg config.SecurityConfig) (token.Signer, error) {
	signerConfig := token.SignerConfig{
		Algorithm: cfg.GetJWTAlgorithm(),
		Secret:    cfg.GetJWTSecret(),
		KeyID:     cfg.GetJWTKeyID(),
	}
	if file := cfg.GetJWTPrivateKeyFile(); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, errors.Wrap(err, "[newSigner] read private key")
		}
		signerConfig.PrivateKeyPEM = string(data)
	}
	if file := cfg.GetJWTPublicKeyFile(); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, errors.Wrap(err, "[newSigner] read public key")
		}
		signerConfig.PublicKeyPEM = string(data)
	}
	return token.NewSigner(signerConfig)
}

// newMailer picks SMTP when a relay host is configured and logs mail otherwise.
func newMailer(cfg config.MailConfig, logger zerolog.Logger) mailer.Mailer {
	if cfg.GetSmtpHost() == "" {
		logger.Warn().Msg("SMTP_HOST not set, confirmation mail is logged with its token redacted and never delivered")
		return mailer.NewLogMailer(logger)
	}
	return mailer.NewSMTPMailer(mailer.SMTPConfig{
		Host:     cfg.GetSmtpHost(),
		Port:     cfg.GetSmtpPort(),
		Account:  cfg.GetSmtpAccount(),
		Password: cfg.GetSmtpPassword(),
		From:     cfg.GetSmtpFrom(),
	})
}

func newDispatcher(cfg config.MailConfig, m mailer.Mailer, recorder mailer.DeliveryRecorder, logger zerolog.Logger) (*mailer.Dispatcher, error) {
	return mailer.NewDispatcher(m,
		mailer.WithLogger(logger),
		mailer.WithRetries(cfg.GetMailRetries(), 500*time.Millisecond),
		mailer.WithDeliveryRecorder(recorder),
	)
}
