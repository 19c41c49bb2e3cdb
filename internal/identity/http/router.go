package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/aussiebroadwan/bookly/api/identity" // Swagger docs
	"github.com/aussiebroadwan/bookly/internal/identity/service"
	"github.com/aussiebroadwan/bookly/pkg/httpx"
	"github.com/aussiebroadwan/bookly/pkg/jwtx"
	"github.com/aussiebroadwan/bookly/pkg/slogx"
)

// RateLimits groups the limiter profiles applied per route class. Zero
// fields fall back to the httpx defaults.
type RateLimits struct {
	Auth   httpx.RateLimitConfig // sign-up, sign-in, refresh
	User   httpx.RateLimitConfig // authenticated profile operations
	Public httpx.RateLimitConfig // health, docs, hello
}

// RouterConfig carries the router's dependencies.
type RouterConfig struct {
	Service *service.IdentityService
	Store   Pinger
	Cache   Pinger

	BuildVersion   string
	Logger         *slog.Logger
	AllowedOrigins []string
	RateLimits     RateLimits
}

// Router serves the identity API.
type Router struct {
	mux chi.Router

	svc          *service.IdentityService
	verifier     jwtx.Verifier
	store        Pinger
	cache        Pinger
	buildVersion string
	startTime    time.Time
	limits       RateLimits
}

// NewRouter builds the router with every route registered.
//
//	@title						Bookly Identity API
//	@version					1.0.0
//	@description				Authentication and session core of the Bookly book-review service.
//	@description
//	@description				Access and refresh tokens are HMAC-signed JWTs. Refresh tokens are single use: every rotation revokes the one presented.
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access or refresh token. Format: "Bearer {token}".
func NewRouter(cfg RouterConfig) *Router {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &Router{
		mux:          chi.NewRouter(),
		svc:          cfg.Service,
		verifier:     cfg.Service.Tokens,
		store:        cfg.Store,
		cache:        cfg.Cache,
		buildVersion: cfg.BuildVersion,
		startTime:    time.Now(),
		limits: RateLimits{
			Auth:   cfg.RateLimits.Auth.Or(httpx.StrictLimit),
			User:   cfg.RateLimits.User.Or(httpx.ModerateLimit),
			Public: cfg.RateLimits.Public.Or(httpx.PublicLimit),
		},
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r.mux.Use(slogx.HTTPMiddleware(logger))
	r.mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", slogx.RequestIDHeader},
		ExposedHeaders:   []string{slogx.RequestIDHeader, "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.mux.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteFailure(w, http.StatusNotFound, "Route not found!", nil)
	})
	r.mux.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteFailure(w, http.StatusMethodNotAllowed, "Method not allowed!", nil)
	})

	r.registerAuth()
	r.registerSystem()

	return r
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{Service: r.svc}

	access := httpx.AuthnMiddleware(httpx.AuthnConfig{
		Verifier: r.verifier,
		Required: jwtx.TypeAccess,
	})
	refresh := httpx.AuthnMiddleware(httpx.AuthnConfig{
		Verifier: r.verifier,
		Required: jwtx.TypeRefresh,
		Live:     r.svc.IsLiveRefreshToken,
	})

	r.mux.Route("/api/v1/auth", func(ar chi.Router) {
		// Public, strict: brute force and account enumeration targets
		ar.With(httpx.RateLimitByIP(r.limits.Auth)).Post("/sign-up", h.SignUp)
		ar.With(httpx.RateLimitByIPAndJSONFields(r.limits.Auth, "email", "username")).Post("/sign-in", h.SignIn)

		// Refresh token only
		ar.With(refresh, httpx.RateLimitByUser(r.limits.Auth)).Get("/refresh-token", h.Refresh)

		// Access token only
		ar.Group(func(pr chi.Router) {
			pr.Use(access)
			pr.Use(httpx.RateLimitByUser(r.limits.User))

			pr.Get("/user-info", h.UserInfo)
			pr.Get("/sign-out", h.SignOut)
			pr.Patch("/update-profile", h.UpdateProfile)
			pr.Patch("/change-password", h.ChangePassword)
		})
	})
}

func (r *Router) registerSystem() {
	public := httpx.RateLimitByIP(r.limits.Public)

	r.mux.With(public).Get("/livez", LivezHandler(r.startTime, r.buildVersion))
	r.mux.With(public).Get("/readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store, r.cache))

	r.mux.With(public).Get("/", HelloHandler)
	r.mux.With(public).Get("/hello", HelloHandler)

	r.mux.With(public).Get("/api/v1/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/api/v1/docs/doc.json"),
	))
}
