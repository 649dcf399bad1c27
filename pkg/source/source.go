// Package source provides metric sources that observe the load signal of a
// scalable workload and normalize it into a per-replica sample.
//
// Each source implements the Source interface and can be plugged into a
// reconcile loop. Sources are intentionally thin: they fetch one value,
// stamp it with an observation time, and leave all scaling decisions to the
// policy layer.
package source

import (
	"context"
	"errors"

	"github.com/DRAJ6/replicactl/pkg/scaling"
)

// ErrUnavailable marks a transient sampling failure. The reconciler skips
// the cycle and retries on the next tick; callers must not retry within a
// cycle. Match with errors.Is.
var ErrUnavailable = errors.New("metric unavailable")

// Source observes the current value of the scaling metric for a target.
type Source interface {
	// Sample fetches one observation. It must respect the context deadline
	// and return an error wrapping ErrUnavailable on transient failures.
	Sample(ctx context.Context, target scaling.Target) (scaling.MetricSample, error)

	// Name returns a short identifier for logs and telemetry.
	Name() string
}
