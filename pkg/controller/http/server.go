package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stridelog/stridelog/pkg/domain/model/config"
	"github.com/stridelog/stridelog/pkg/usecase"
	"github.com/stridelog/stridelog/pkg/utils/logging"
)

type Server struct {
	router *chi.Mux
	uc     *usecase.UseCases
	tuning *config.Tuning
}

type Options func(*Server)

func WithTuning(tuning *config.Tuning) Options {
	return func(s *Server) {
		s.tuning = tuning
	}
}

func New(uc *usecase.UseCases, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
		uc:     uc,
		tuning: config.DefaultTuning(),
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	// Public pages
	r.Get("/", s.homeHandler())
	r.Get("/step-sync-help", s.staticPageHandler("step_sync_help.html"))
	r.Get("/api-setup", s.staticPageHandler("api_setup.html"))
	r.Get("/oauth-error", s.staticPageHandler("oauth_error.html"))

	// Sign-in endpoints
	r.Get("/auth/login", authLoginHandler(uc.Auth))
	r.Get("/auth/callback", authCallbackHandler(uc.Auth))
	r.Get("/logout", authLogoutHandler(uc.Auth))

	// Fitness pages, session required
	r.Group(func(r chi.Router) {
		r.Use(htmlAuthMiddleware(uc.Auth))

		r.Get("/success", s.profileHandler())
		r.Get("/connect/fitness", s.connectHandler())
		r.Get("/fitness/callback", s.fitnessCallbackHandler())
		r.Get("/refresh/fitness", s.refreshHandler())
		r.Get("/force-sync/fitness", s.forceSyncHandler())
		r.Get("/reconnect/fitness", s.reconnectHandler())
		r.Get("/step-history", s.historyPageHandler())
		r.Get("/debug/step-data", s.debugStepDataHandler())
	})

	// JSON API, session required
	r.Route("/api", func(r chi.Router) {
		r.Use(apiAuthMiddleware(uc.Auth))

		r.Get("/steps/history", s.apiHistoryHandler())
		r.Get("/sync/status", s.apiSyncStatusHandler())
		r.Post("/sync", s.apiIngestHandler())
		r.Get("/fitness/data", s.apiFitnessDataHandler())
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.Default().Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
