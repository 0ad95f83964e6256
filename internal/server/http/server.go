// Package httpserver exposes the identity service over HTTP. The core stays
// transport-agnostic; everything wire-related (JSON shapes, bearer tokens,
// status mapping) lives here.
package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/avolkov/authd/internal/service"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	log        *zap.Logger
}

// New constructs a Server routing the identity API. jwtKey signs the bearer
// tokens that carry session ids between requests.
func New(addr string, svc *service.IdentityService, jwtKey []byte, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	h := newHandler(svc, jwtKey, log)

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		Recover(log),
		Logging(log),
		Metrics(),
		middleware.Timeout(60*time.Second),
	)
	r.Get("/healthz", handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Post("/password/reset-request", h.requestPasswordReset)
		r.Post("/password/reset", h.resetPassword)

		r.Group(func(r chi.Router) {
			r.Use(h.requireSession)
			r.Get("/me", h.me)
			r.Post("/logout", h.logout)
			r.Post("/session/refresh", h.refreshSession)
			r.Post("/password/change", h.changePassword)
		})
	})

	return &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		log: log,
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Run serves until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	s.log.Info("http server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
