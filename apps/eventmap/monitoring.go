package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// newMonitoringRouter serves /healthz, which reports 503 until the map has
// laid out its first frame, and /metrics.
func newMonitoringRouter(reg *prometheus.Registry, ready func() bool) http.Handler {
	router := httprouter.New()

	router.GET("/healthz", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		status, body := http.StatusOK, "OK"
		if !ready() {
			status, body = http.StatusServiceUnavailable, "map not ready"
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
	router.Handler(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return router
}

// serveMonitoring runs the monitoring server until ctx is cancelled.
func serveMonitoring(ctx context.Context, log *slog.Logger, handler http.Handler, port int) error {
	readTimeout := 5
	writeTimeout := 10
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler,
		ReadTimeout:  time.Duration(readTimeout) * time.Second,
		WriteTimeout: time.Duration(writeTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.InfoContext(ctx, "Starting monitoring server", "port", port)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("monitoring server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Monitoring server shutdown failed", "error", err)
		}
		return nil
	}
}
