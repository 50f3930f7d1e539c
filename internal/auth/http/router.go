package http

import (
	"log/slog"
	"net/http"

	"github.com/clubfig/clubfig/pkg/httpx"
	"github.com/clubfig/clubfig/pkg/jwtx"
	"github.com/clubfig/clubfig/pkg/slogx"

	_ "github.com/clubfig/clubfig/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Instrumenter wraps the mux with request metrics. obs.Metrics implements it.
type Instrumenter interface {
	Instrument(http.Handler) http.Handler
	Handler() http.Handler
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier jwtx.Verifier
	logger   *slog.Logger
	metrics  Instrumenter

	Auth    *AuthHandler
	Readies map[string]Pinger
}

func NewRouter(
	verifier jwtx.Verifier,
	tenants TenantResolver,
	metrics Instrumenter,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:      http.NewServeMux(),
		verifier: verifier,
		logger:   logger,
		metrics:  metrics,
		Readies:  map[string]Pinger{},
	}

	// Instrument sits last so it sees the request the mux stamps the route
	// pattern on.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		TenantGate(tenants),
	}
	if metrics != nil {
		r.middlewares = append(r.middlewares, metrics.Instrument)
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Clubfig Authentication Service API
//	@version		0.1.0
//	@description	Tenant-scoped login with short-lived HS256 access tokens and rotating refresh tokens.
//	@description	The tenant is taken from the first label of the Host header.
//
//	@host						acme.localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := r.Auth

	// Login is also throttled per tenant and IP inside the handler.
	r.Mux.Handle("POST /auth/login",
		httpx.Chain(http.HandlerFunc(h.Login),
			httpx.RateLimitByIPAndHost(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /auth/refresh",
		httpx.Chain(http.HandlerFunc(h.Refresh),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("POST /auth/logout",
		httpx.Chain(http.HandlerFunc(h.Logout),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /auth/revoke-token",
		httpx.Chain(http.HandlerFunc(h.RevokeToken),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /auth/me",
		httpx.Chain(http.HandlerFunc(h.Me),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.Readies),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	if r.metrics != nil {
		r.Mux.Handle("GET /metrics", r.metrics.Handler())
	}
}
