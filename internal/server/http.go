// Copyright (c) 2025 GymKeeper Inc. All Rights Reserved.
// This is licensed software from GymKeeper Inc, for limitations
// and restrictions contact your company contract manager.

package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/gymkeeper/retention-engine/pkg/intervention"
	"github.com/gymkeeper/retention-engine/pkg/member"
	"github.com/gymkeeper/retention-engine/pkg/play"
	"github.com/gymkeeper/retention-engine/pkg/scheduler"
	"github.com/gymkeeper/retention-engine/pkg/tenant"
	"github.com/gymkeeper/retention-engine/pkg/webhook"
)

// Deps wires the HTTP server's collaborators.
type Deps struct {
	Plays         play.Store
	Interventions intervention.Store
	Lifecycle     *intervention.Manager
	Scheduler     *scheduler.Scheduler
	Tenants       tenant.Store
	Members       member.EngagementStore
	Reconciler    *webhook.Reconciler
	Adapters      []webhook.Adapter

	// CronSecret guards the batch trigger endpoint.
	CronSecret string

	// HealthChecks are pinged by /healthz; any failure reports unhealthy.
	HealthChecks map[string]func(context.Context) error
}

// HTTPServer manages the REST API server lifecycle.
type HTTPServer struct {
	server *http.Server
	port   int
	deps   Deps
}

// NewHTTPServer creates a new HTTP server instance.
func NewHTTPServer(port int, deps Deps) *HTTPServer {
	return &HTTPServer{
		port: port,
		deps: deps,
	}
}

// Setup configures the router, middleware and routes.
func (s *HTTPServer) Setup() error {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)

	r.Route("/tenants/{tenantID}/plays", func(r chi.Router) {
		r.Post("/", s.handleCreatePlay)
		r.Get("/", s.handleListPlays)
		r.Get("/{playID}", s.handleGetPlay)
		r.Put("/{playID}", s.handleUpdatePlay)
		r.Delete("/{playID}", s.handleDeletePlay)
	})

	r.Route("/interventions", func(r chi.Router) {
		r.Get("/{id}", s.handleGetIntervention)
		r.Post("/{id}/approve", s.handleApprove)
		r.Post("/{id}/cancel", s.handleCancel)
	})

	r.Get("/logs", s.handleLogs)

	r.With(s.requireCronSecret).Post("/cron/interventions", s.handleCronRun)

	for _, adapter := range s.deps.Adapters {
		a := adapter
		r.Post("/webhooks/"+a.Provider(), s.handleWebhook(a))
		logrus.Infof("registered webhook endpoint for provider %s", a.Provider())
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           otelhttp.NewHandler(r, "retention-api"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return nil
}

// Start begins serving API requests on the configured port.
func (s *HTTPServer) Start(ctx context.Context) error {
	go func() {
		logrus.Infof("HTTP server listening on port %d", s.port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	logrus.Info("shutting down HTTP server...")
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	logrus.Info("HTTP server stopped")
	return nil
}

// requireCronSecret authenticates the batch trigger with a shared secret.
func (s *HTTPServer) requireCronSecret(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Cron-Secret") != s.deps.CronSecret {
			respondError(w, http.StatusUnauthorized, "invalid cron secret")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs one line per request in the service's structured format.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logrus.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start).String(),
		}).Info("request handled")
	})
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	checks := make(map[string]string, len(s.deps.HealthChecks))
	healthy := true
	for name, check := range s.deps.HealthChecks {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			healthy = false
			continue
		}
		checks[name] = "ok"
	}
	code := http.StatusOK
	if !healthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	respondJSON(w, code, map[string]any{"status": status, "checks": checks})
}
