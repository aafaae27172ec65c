// Package api exposes the interface service over HTTP/JSON and a websocket snapshot feed.
package api

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"netifmgr/internal/metrics"
	"netifmgr/internal/pkg/logging"
	"netifmgr/internal/port"

	"github.com/gorilla/mux"
)

const shutdownTimeout = 5 * time.Second

// Server routes API requests to an InterfaceService.
type Server struct {
	svc     port.InterfaceService
	metrics *metrics.Registry
	router  *mux.Router
}

// NewServer creates a server. reg may be nil, which disables /metrics and request metrics.
func NewServer(svc port.InterfaceService, reg *metrics.Registry) *Server {
	s := &Server{svc: svc, metrics: reg, router: mux.NewRouter()}
	s.RegisterRoutes(s.router)
	return s
}

// RegisterRoutes registers the API on router.
func (s *Server) RegisterRoutes(router *mux.Router) {
	router.Use(s.instrument)

	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.HandleFunc("/interfaces", s.listInterfaces).Methods(http.MethodGet)
	apiRouter.HandleFunc("/interfaces/{device}/logic", s.addLogicInterface).Methods(http.MethodPost)
	apiRouter.HandleFunc("/logic", s.updateLogicInterface).Methods(http.MethodPut)
	apiRouter.HandleFunc("/logic/{name}", s.removeLogicInterface).Methods(http.MethodDelete)
	apiRouter.HandleFunc("/events", s.events).Methods(http.MethodGet)

	if s.metrics != nil {
		router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	logger := logging.WithComponent("api")

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("listen", addr).Info("API server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("API server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down API server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("API server failed: %w", err)
	}
	logger.Info("API server stopped")
	return nil
}

// instrument records request metrics under the matched route template.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.metrics == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		s.metrics.RecordAPIRequest(r.Method, route, rec.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}
