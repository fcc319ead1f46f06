package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Credential API
	RouteLogin                 = "/api/auth/login"
	RouteChangePassword        = "/api/auth/change-password"
	RouteConfirmChangePassword = "/api/auth/change-password/confirm"
	RouteIntrospect            = "/api/auth/introspect"

	// Users API
	RouteUser = "/api/users/{id}"

	// Operational routes
	RouteWellKnownJWKS = "/.well-known/jwks.json"
	RouteHealth        = "/healthz"
	RouteMetrics       = "/metrics"
)
