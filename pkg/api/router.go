package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MalloZup/realmd/internal/logger"
	"github.com/MalloZup/realmd/pkg/api/auth"
	"github.com/MalloZup/realmd/pkg/realm"
)

type contextKey string

const claimsContextKey contextKey = "claims"

// GetClaimsFromContext retrieves the caller's claims from the request
// context. Returns nil outside authorized routes.
func GetClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, ok := ctx.Value(claimsContextKey).(*auth.Claims)
	if !ok {
		return nil
	}
	return claims
}

// invokerFrom names the caller for diagnostics. Unauthenticated local
// deployments report "local".
func invokerFrom(r *http.Request) string {
	if claims := GetClaimsFromContext(r.Context()); claims != nil {
		return claims.Invoker()
	}
	return "local"
}

// extractBearerToken extracts the token from a Bearer Authorization header.
func extractBearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	return parts[1], true
}

// authorize validates the bearer token before any handler body runs. When
// jwtService is nil the API trusts its local transport and every caller is
// treated as an administrator.
func authorize(jwtService *auth.JWTService, requireAdmin bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if jwtService == nil {
				next.ServeHTTP(w, r)
				return
			}

			tokenString, ok := extractBearerToken(r)
			if !ok {
				WriteError(w, realm.NewError(realm.KindNotAuthorized, "Not authorized to perform this action"))
				return
			}

			claims, err := jwtService.ValidateToken(tokenString)
			if err != nil {
				WriteError(w, realm.WrapError(realm.KindNotAuthorized, err, "Not authorized to perform this action"))
				return
			}

			if requireAdmin && !claims.IsAdmin() {
				WriteError(w, realm.NewError(realm.KindNotAuthorized, "Not authorized to perform this action"))
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewRouter creates the chi router with the full middleware stack and all
// control-API routes.
//
// Routes:
//   - GET  /health                             - liveness probe, unauthenticated
//   - GET  /metrics                            - Prometheus metrics, unauthenticated
//   - POST /api/v1/discover                    - resolve a name to realms
//   - GET  /api/v1/realms                      - list known realms
//   - GET  /api/v1/realms/{name}               - one realm
//   - POST /api/v1/realms/{name}/join          - enroll, admin only
//   - POST /api/v1/realms/{name}/leave         - unenroll, admin only
//   - POST /api/v1/realms/{name}/deconfigure   - local removal, admin only
//   - POST /api/v1/realms/{name}/login-policy  - login policy, admin only
func NewRouter(handlers *Handlers, jwtService *auth.JWTService) http.Handler {
	r := chi.NewRouter()

	// Middleware stack, order matters.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", handlers.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authorize(jwtService, false))
			// Discovery runs network probes; bound it but leave room
			// for slow resolvers.
			r.With(middleware.Timeout(2*time.Minute)).Post("/discover", handlers.Discover)
			r.Get("/realms", handlers.ListRealms)
			r.Get("/realms/{name}", handlers.GetRealm)
		})

		r.Group(func(r chi.Router) {
			r.Use(authorize(jwtService, true))
			r.Post("/realms/{name}/join", handlers.Join)
			r.Post("/realms/{name}/leave", handlers.Leave)
			r.Post("/realms/{name}/deconfigure", handlers.Deconfigure)
			r.Post("/realms/{name}/login-policy", handlers.ChangeLoginPolicy)
		})
	})

	return r
}

// requestLogger logs requests through the process logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("API request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		logger.Info("API request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).String(),
		)
	})
}
