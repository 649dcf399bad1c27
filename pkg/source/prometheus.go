package source

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	promapi "github.com/prometheus/client_golang/api"
	promv1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"

	"github.com/DRAJ6/replicactl/pkg/scaling"
)

// PrometheusSource evaluates a PromQL expression as an instant query and
// returns the first sample of the resulting vector. The query should
// aggregate to a single series whose value is the per-replica load
// (e.g. sum(rate(http_requests_total[1m])) / count of replicas).
type PrometheusSource struct {
	api   promv1.API
	query string
}

// NewPrometheusSource creates a source backed by the Prometheus HTTP API at
// serverURL (scheme and host, e.g. http://prometheus.monitoring.svc:9090).
func NewPrometheusSource(serverURL, query string) (*PrometheusSource, error) {
	if serverURL == "" {
		return nil, errors.New("prometheus source: server URL is required")
	}
	if query == "" {
		return nil, errors.New("prometheus source: query is required")
	}
	client, err := promapi.NewClient(promapi.Config{Address: serverURL})
	if err != nil {
		return nil, fmt.Errorf("prometheus source: %w", err)
	}
	return &PrometheusSource{
		api:   promv1.NewAPI(client),
		query: query,
	}, nil
}

func (s *PrometheusSource) Name() string { return "prometheus" }

// Sample implements Source. It issues an instant query and maps every
// failure mode (transport, non-success status, empty or stale result) to
// ErrUnavailable so the caller retries on the next cycle.
func (s *PrometheusSource) Sample(ctx context.Context, target scaling.Target) (scaling.MetricSample, error) {
	result, _, err := s.api.Query(ctx, s.query, time.Now())
	if err != nil {
		return scaling.MetricSample{}, fmt.Errorf("%w: query %q: %v", ErrUnavailable, s.query, err)
	}

	vector, ok := result.(model.Vector)
	if !ok {
		return scaling.MetricSample{}, fmt.Errorf("%w: query %q returned %s, want vector", ErrUnavailable, s.query, result.Type())
	}
	if len(vector) == 0 {
		return scaling.MetricSample{}, fmt.Errorf("%w: query %q returned no samples", ErrUnavailable, s.query)
	}

	first := vector[0]
	value := float64(first.Value)
	if math.IsNaN(value) {
		return scaling.MetricSample{}, fmt.Errorf("%w: query %q returned a stale sample", ErrUnavailable, s.query)
	}

	return scaling.MetricSample{
		Timestamp: first.Timestamp.Time(),
		Value:     value,
	}, nil
}
