package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-credential-service/auth"
	"github.com/jrsteele09/go-credential-service/hashing"
	"github.com/jrsteele09/go-credential-service/internal/config"
	"github.com/jrsteele09/go-credential-service/metrics"
	"github.com/jrsteele09/go-credential-service/server"
	"github.com/jrsteele09/go-credential-service/token"
	"github.com/jrsteele09/go-credential-service/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout = 5 * time.Second
	purgeInterval   = 10 * time.Minute
)

func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := config.Load()
			if err != nil {
				return err
			}
			return run(cmd.Context(), c)
		},
	}
}

func run(ctx context.Context, c config.Config) (returnError error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := newLogger(c.GetEnv())
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	displayAppname(c.GetAppName())

	store, err := openStorage(ctx, c)
	if err != nil {
		return err
	}
	defer store.close()

	m := metrics.New()
	dispatcher, err := newDispatcher(c, newMailer(c, logger), m, logger.With().Str("component", "mailer").Logger())
	if err != nil {
		return err
	}

	handler, flow, err := buildServer(c, store, dispatcher, m, logger)
	if err != nil {
		return err
	}

	purgeCtx, stopPurge := context.WithCancel(ctx)
	defer stopPurge()
	go purgeLoop(purgeCtx, flow, purgeInterval, logger)

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- listenAndServe(httpServer, logger)
	}()

	select {
	case err := <-serveErr:
		returnError = err
	case <-waitForStopSignal():
		returnError = shutdown(httpServer)
	}

	// Let queued confirmation mail finish before exiting
	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := dispatcher.Close(drainCtx); err != nil {
		logger.Warn().Err(err).Msg("mail dispatcher did not drain")
	}

	logger.Info().Msg("Server stopped")
	return returnError
}

func buildServer(c config.Config, store *storage, notifier auth.Notifier, m *metrics.Metrics, logger zerolog.Logger) (*server.Server, *auth.PasswordChangeFlow, error) {
	hasher, err := hashing.New(c.GetPasswordHasher())
	if err != nil {
		return nil, nil, err
	}

	signer, err := newSigner(c)
	if err != nil {
		return nil, nil, err
	}
	tokens, err := token.New(signer,
		token.WithIssuer(c.GetServiceAddress()),
		token.WithAudience(c.GetServiceAddress()),
		token.WithTokenExpiry(c.GetTokenTTL()),
	)
	if err != nil {
		return nil, nil, err
	}

	options := []auth.Option{
		auth.WithLogger(logger.With().Str("component", "auth").Logger()),
		auth.WithRecorder(m),
	}
	credentials, err := auth.NewCredentialService(store.users, hasher, tokens, options...)
	if err != nil {
		return nil, nil, err
	}
	guard, err := auth.NewAccessGuard(tokens)
	if err != nil {
		return nil, nil, err
	}
	flow, err := auth.NewPasswordChangeFlow(
		auth.Repos{Users: store.users, PasswordChanges: store.passwordChanges},
		hasher,
		notifier,
		auth.PasswordChangeConfig{ConfirmURL: c.GetConfirmURL(), ConfirmationTTL: c.GetConfirmationTTL()},
		options...,
	)
	if err != nil {
		return nil, nil, err
	}
	userService, err := users.NewService(store.users, hasher, users.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}

	srv, err := server.New(c, server.Services{
		Credentials:     credentials,
		Guard:           guard,
		PasswordChanges: flow,
		Users:           userService,
		Tokens:          tokens,
		Metrics:         m,
	}, server.WithLogger(logger.With().Str("component", "http").Logger()))
	if err != nil {
		return nil, nil, err
	}
	return srv, flow, nil
}

// purgeLoop removes dead pending password changes until ctx is done.
func purgeLoop(ctx context.Context, flow *auth.PasswordChangeFlow, interval time.Duration, logger zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := flow.PurgeExpired(ctx)
			if err != nil {
				logger.Warn().Err(err).Msg("purge of expired password changes failed")
				continue
			}
			if n > 0 {
				logger.Info().Int64("purged", n).Msg("expired password changes purged")
			}
		}
	}
}

func listenAndServe(server *http.Server, logger zerolog.Logger) error {
	logger.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
