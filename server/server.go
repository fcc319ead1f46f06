package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-credential-service/auth"
	"github.com/jrsteele09/go-credential-service/internal/config"
	"github.com/jrsteele09/go-credential-service/metrics"
	"github.com/jrsteele09/go-credential-service/token"
	"github.com/jrsteele09/go-credential-service/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Config is the part of the service configuration the HTTP layer reads.
type Config interface {
	config.EnvConfig
	config.CorsConfig
}

// Services holds everything the handlers call into.
type Services struct {
	Credentials     *auth.CredentialService
	Guard           *auth.AccessGuard
	PasswordChanges *auth.PasswordChangeFlow
	Users           *users.Service
	Tokens          *token.Manager
	Metrics         *metrics.Metrics // optional
}

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	routes   []string
	config   Config
	services Services
	logger   zerolog.Logger
}

type Option func(*Server)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func New(config Config, services Services, options ...Option) (*Server, error) {
	switch {
	case services.Credentials == nil:
		return nil, errors.New("[server.New] credential service is required")
	case services.Guard == nil:
		return nil, errors.New("[server.New] access guard is required")
	case services.PasswordChanges == nil:
		return nil, errors.New("[server.New] password change flow is required")
	case services.Users == nil:
		return nil, errors.New("[server.New] users service is required")
	case services.Tokens == nil:
		return nil, errors.New("[server.New] token manager is required")
	}

	s := &Server{
		mux:      http.NewServeMux(),
		config:   config,
		services: services,
		logger:   zerolog.Nop(),
	}
	for _, opt := range options {
		opt(s)
	}
	s.env = config.GetEnv()

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// Routes lists the registered patterns in registration order.
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			s.logRoute(parts[0], parts[1])
		} else {
			s.logRoute("", parts[0])
		}
	}
}

func (s *Server) logRoute(method, path string) {
	s.logger.Info().Msgf("[%-19s] %s", colouredMethod(method), path)
}

func colouredMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		return color + paddedMethod + ResetColor
	}
	return Gray + paddedMethod + ResetColor
}
