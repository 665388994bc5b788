package api

import (
	"context"
	"net/http"
	"time"

	"lifeboard/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

const maxWebhookBody = 256 << 10

// Limiter is satisfied by the redis fixed-window limiter.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type Options struct {
	// Hottok is the webhook secret; empty makes the webhook answer 500.
	Hottok        string
	LegacyHeaders []string
	BodyFields    []string

	Limiter     Limiter // nil disables rate limiting of the check endpoint
	CheckLimit  int
	CheckWindow time.Duration
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Only enable behind a proxy that overwrites those headers.
	TrustProxy  bool

	Auth *AuthManager // nil disables the admin API

	MetricsPath    string
	MetricsHandler http.Handler
}

type Server struct {
	licenseUC usecase.LicenseUseCase
	opts      Options
	validate  *validator.Validate
	log       *zerolog.Logger
}

func NewServer(licenseUC usecase.LicenseUseCase, opts Options, logger *zerolog.Logger) *Server {
	if opts.CheckLimit <= 0 {
		opts.CheckLimit = 30
	}
	if opts.CheckWindow <= 0 {
		opts.CheckWindow = time.Minute
	}
	return &Server{
		licenseUC: licenseUC,
		opts:      opts,
		validate:  validator.New(),
		log:       logger,
	}
}

// Router builds the chi mux. Middlewares are applied outermost first.
func (s *Server) Router(mws ...Middleware) http.Handler {
	r := chi.NewRouter()
	if s.opts.TrustProxy {
		r.Use(middleware.RealIP)
	}

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method_not_allowed"})
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not_found"})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	if s.opts.MetricsHandler != nil && s.opts.MetricsPath != "" {
		r.Handle(s.opts.MetricsPath, s.opts.MetricsHandler)
	}

	r.Route("/api/license", func(r chi.Router) {
		r.Post("/webhook", s.handleWebhook)
		r.Get("/check", s.handleCheck)
	})

	if s.opts.Auth != nil {
		r.Route("/api/admin", func(r chi.Router) {
			r.Post("/login", s.handleAdminLogin)
			r.Post("/logout", s.handleAdminLogout)
			r.Group(func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Get("/licenses/{email}", s.handleAdminGetLicense)
				r.Put("/licenses/{email}", s.handleAdminSetLicense)
			})
		})
	}

	return Chain(r, mws...)
}
