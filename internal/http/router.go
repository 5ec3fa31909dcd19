package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/redmonkez12/go-auth-starter/internal/auth"
	"github.com/redmonkez12/go-auth-starter/internal/config"
	"github.com/redmonkez12/go-auth-starter/internal/httputil"
	"github.com/redmonkez12/go-auth-starter/internal/logging"
)

// Handlers groups the route handlers mounted by NewRouter
type Handlers struct {
	Auth       *auth.Handler
	Profile    *auth.ProfileHandler
	Middleware *auth.Middleware
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, h Handlers, logger *logging.Logger) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
	}

	r.Use(SecurityHeaders(cfg.Server.IsDevelopment()))
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	// Rate limiting keys on RemoteAddr; forwarded headers are client-controlled without a proxy
	if cfg.Server.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Compress(5))

	r.Get("/health", handleHealth)

	// Swagger UI - only in development
	if cfg.Server.IsDevelopment() {
		logger.Info("swagger UI enabled", "path", "/swagger/")
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/sign-up", h.Auth.SignUp)
		r.Post("/sign-in", h.Auth.SignIn)
		r.Post("/sign-out", h.Auth.SignOut)
		r.Post("/forgot-password", h.Auth.ForgotPassword)
		r.Post("/reset-password", h.Auth.ResetPassword)
		r.Get("/verify-email", h.Auth.VerifyEmail)
		r.Post("/verify-email", h.Auth.VerifyEmail)
		r.Post("/resend-verification", h.Auth.ResendVerificationEmail)

		r.Get("/oauth", h.Auth.ListProviders)
		r.Get("/oauth/{provider}", h.Auth.OAuthStart)
		r.Get("/oauth/{provider}/callback", h.Auth.OAuthCallback)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(h.Middleware.RequireSession)
		r.Get("/profile", h.Profile.GetProfile)
		r.Patch("/profile", h.Profile.UpdateProfile)
		r.Post("/profile/avatar/upload-url", h.Profile.CreateAvatarUploadURL)
	})

	return r
}

// handleHealth is a simple health check endpoint
// @Summary      Health check
// @Description  Check if the API is running
// @Tags         health
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /health [get]
func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, map[string]string{"status": "api is running"}, http.StatusOK)
}
