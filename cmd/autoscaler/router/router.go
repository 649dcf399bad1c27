// Package router configures HTTP routes for the autoscaler's status API.
//
// Routes configured:
//   - GET /healthz - Health check endpoint (returns 200 OK)
//   - GET /readyz - Readiness check (503 while the journal store is unreachable)
//   - GET /metrics - Prometheus metrics endpoint
//   - GET /v1/targets - Status snapshot of every registered target
//   - GET /v1/decisions?target=<name>&limit=<n> - Recent scaling decisions for a target
//
// Handlers answer JSON; errors use the shared ErrorResponse shape. The
// returned handler carries the logging and panic-recovery middleware.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DRAJ6/replicactl/pkg/autoscaler"
	"github.com/DRAJ6/replicactl/pkg/httpx"
	"github.com/DRAJ6/replicactl/pkg/journal"
)

const defaultDecisionLimit = 20

// pinger is implemented by journal stores with a health check.
type pinger interface {
	Ping(ctx context.Context) error
}

// SetupRoutes configures the HTTP endpoints for the autoscaler.
func SetupRoutes(mgr *autoscaler.Manager, jnl journal.Journal, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/healthz", httpx.HealthHandler())
	mux.Handle("/readyz", httpx.HealthHandlerWithCheck(readinessCheck(jnl)))
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/v1/targets", handleGetTargets(mgr))
	mux.HandleFunc("/v1/decisions", handleGetDecisions(mgr, jnl, logger))

	return httpx.RecoveryMiddleware(logger)(httpx.LoggingMiddleware(logger)(mux))
}

// readinessCheck reports ready once the journal store answers. Stores
// without a health check (the in-memory journal) are always ready.
func readinessCheck(jnl journal.Journal) func() error {
	return func() error {
		p, ok := jnl.(pinger)
		if !ok {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return p.Ping(ctx)
	}
}

// handleGetTargets returns a handler for GET /v1/targets.
func handleGetTargets(mgr *autoscaler.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"targets": mgr.Statuses(),
		})
	}
}

// handleGetDecisions returns a handler for GET /v1/decisions?target=<name>&limit=<n>.
func handleGetDecisions(mgr *autoscaler.Manager, jnl journal.Journal, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := r.URL.Query().Get("target")
		if target == "" {
			httpx.WriteErrorMessage(w, http.StatusBadRequest, "target parameter required")
			return
		}

		if _, ok := mgr.Get(target); !ok {
			httpx.WriteErrorMessage(w, http.StatusNotFound, fmt.Sprintf("target %q not registered", target))
			return
		}

		limit := defaultDecisionLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				httpx.WriteErrorMessage(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = parsed
		}

		records, err := jnl.Recent(r.Context(), target, limit)
		if err != nil {
			logger.Error("failed to read decisions", "target", target, "error", err)
			httpx.WriteErrorMessage(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if records == nil {
			records = []journal.Record{}
		}

		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"target":    target,
			"decisions": records,
		})
	}
}
