// Package backend reads and writes the replica count of scalable workloads.
package backend

import (
	"context"
	"errors"

	"github.com/DRAJ6/replicactl/pkg/scaling"
)

// ErrUnavailable marks a transient backend failure. A failed write discards
// the decision for that cycle; the reconciler re-reads the live count on the
// next tick instead of retrying. Match with errors.Is.
var ErrUnavailable = errors.New("backend unavailable")

// Backend is the boundary to the system that actually runs the workload.
type Backend interface {
	// Replicas returns the replica count the workload is configured to run.
	Replicas(ctx context.Context, target scaling.Target) (int32, error)

	// SetReplicas updates the workload's replica count. It must respect the
	// context deadline and return an error wrapping ErrUnavailable when the
	// write did not take effect.
	SetReplicas(ctx context.Context, target scaling.Target, replicas int32) error
}
