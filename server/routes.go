package server

import (
	"net/http"

	"github.com/jrsteele09/go-credential-service/token"
)

func (s *Server) initRoutes() {
	// Credentials
	s.RegisterRouteHandler("POST "+RouteLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware(RouteLogin)...))
	s.RegisterRouteHandler("POST "+RouteChangePassword, ChainMiddleware(s.ChangePasswordHandler(), s.APIMiddleware(RouteChangePassword, s.RequireAuth())...))
	s.RegisterRouteHandler("POST "+RouteConfirmChangePassword, ChainMiddleware(s.ConfirmChangePasswordHandler(), s.APIMiddleware(RouteConfirmChangePassword)...))
	// The mailed link lands here; the page posts back to the route above
	s.RegisterRouteHandler("GET "+RouteConfirmChangePassword, ChainMiddleware(s.ConfirmChangePasswordPageHandler(), s.APIMiddleware(RouteConfirmChangePassword)...))
	s.RegisterRouteHandler("POST "+RouteIntrospect, ChainMiddleware(s.IntrospectHandler(), s.APIMiddleware(RouteIntrospect)...))

	// Users
	s.RegisterRouteHandler("GET "+RouteUser, ChainMiddleware(s.GetUserHandler(), s.APIMiddleware(RouteUser, s.RequireAuth())...))

	// CORS preflight for the whole API
	s.RegisterRouteHandler("OPTIONS /api/", ChainMiddleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}, s.CorsMiddleware))

	if keyPairSigner, ok := s.services.Tokens.Signer().(*token.KeyPairSigner); ok {
		s.RegisterRouteHandler("GET "+RouteWellKnownJWKS, ChainMiddleware(s.JWKSHandler(keyPairSigner), s.APIMiddleware(RouteWellKnownJWKS)...))
	}

	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
	if s.services.Metrics != nil {
		s.RegisterRouteHandler("GET "+RouteMetrics, s.services.Metrics.Handler())
	}
}
