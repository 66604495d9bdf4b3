package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sheetalMehta7/chillTube-backend/internal/auth"
	"github.com/sheetalMehta7/chillTube-backend/internal/service"
	"github.com/sheetalMehta7/chillTube-backend/pkg/health"
	"github.com/sheetalMehta7/chillTube-backend/pkg/middleware"
)

// NewRouter creates a chi router with all user account routes registered.
func NewRouter(
	sessions *service.SessionService,
	jwtManager *auth.JWTManager,
	healthHandler *health.Handler,
	logger *slog.Logger,
	corsConfig CORSConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(CORS(corsConfig))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("users"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Token validator that bridges to the internal JWTManager.
	tokenValidator := func(token string) (*middleware.Claims, error) {
		claims, err := jwtManager.ValidateAccessToken(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{
			UserID:   claims.UserID,
			Username: claims.Username,
		}, nil
	}

	authHandler := NewAuthHandler(sessions, logger)

	r.Route("/api/v1/users", func(r chi.Router) {
		// Register is multipart, so it stays outside the JSON guard.
		r.Post("/register", authHandler.Register)

		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)

			r.Post("/login", authHandler.Login)
			r.Post("/refresh-token", authHandler.RefreshToken)
		})

		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)
			r.Use(middleware.Auth(tokenValidator))

			r.Post("/logout", authHandler.Logout)
			r.Post("/update-password", authHandler.ChangePassword)
			r.Get("/current-user", authHandler.CurrentUser)
		})
	})

	return r
}
