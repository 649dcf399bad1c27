// Package scaling computes desired replica counts from observed load
// using a deterministic policy (target value per replica, min/max clamps)
// and gates scale-downs through a stabilization window.
package scaling

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidPolicy is returned when a policy or target is rejected at
// construction time. It is fatal: callers must not retry.
var ErrInvalidPolicy = errors.New("invalid policy")

// Reason explains why a decision proposed the replica count it did.
type Reason string

const (
	// ReasonNoChange means the desired count already matches the current count.
	ReasonNoChange Reason = "no-change"
	// ReasonScaleUp means the desired count is above the current count.
	ReasonScaleUp Reason = "scale-up"
	// ReasonScaleDown means the desired count is below the current count.
	ReasonScaleDown Reason = "scale-down"
	// ReasonSuppressed means a scale-down was held back by the stabilization window.
	ReasonSuppressed Reason = "suppressed-by-stabilization"
	// ReasonClamped means the raw desired count fell outside the replica bounds.
	ReasonClamped Reason = "clamped-to-bound"
)

// Target identifies a scalable workload. Replica bounds live on the Policy.
type Target struct {
	// Name is the workload name (e.g. a Deployment name). Required.
	Name string

	// Namespace the workload lives in. Required for Kubernetes backends.
	Namespace string
}

// Validate checks the target invariants.
func (t Target) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("%w: target name is required", ErrInvalidPolicy)
	}
	return nil
}

// String returns the namespace-qualified target name.
func (t Target) String() string {
	if t.Namespace == "" {
		return t.Name
	}
	return t.Namespace + "/" + t.Name
}

// MetricSample is a single observation of the scaling metric, averaged per
// replica. Samples are immutable once taken.
type MetricSample struct {
	// Timestamp is when the observation was taken.
	Timestamp time.Time

	// Value is the observed metric value.
	Value float64

	// TargetValue is the policy target the value is compared against.
	// Stamped by the reconciler before the sample is recorded.
	TargetValue float64
}

// Decision is the outcome of one policy evaluation.
type Decision struct {
	// Desired is the replica count the policy proposes. Always within the
	// policy bounds.
	Desired int32 `json:"desired"`

	// Reason explains the proposal.
	Reason Reason `json:"reason"`

	// Timestamp is when the decision was made.
	Timestamp time.Time `json:"timestamp"`
}

// Policy converts an observed metric value into a desired replica count.
//
// The core rule is proportional: desired = ceil(current * observed / target),
// clamped to [MinReplicas, MaxReplicas]. Policies are immutable and safe to
// share; Decide never mutates its inputs.
type Policy struct {
	// TargetValue is the metric value one replica should sustain. Always > 0.
	TargetValue float64

	// MinReplicas and MaxReplicas bound the output: 0 <= min <= max.
	MinReplicas int32
	MaxReplicas int32
}

// NewPolicy validates the inputs and returns a Policy. A target value <= 0,
// a negative min, or min > max are rejected with ErrInvalidPolicy.
func NewPolicy(targetValue float64, minReplicas, maxReplicas int32) (Policy, error) {
	if targetValue <= 0 || math.IsNaN(targetValue) || math.IsInf(targetValue, 0) {
		return Policy{}, fmt.Errorf("%w: target value %v must be > 0", ErrInvalidPolicy, targetValue)
	}
	if minReplicas < 0 {
		return Policy{}, fmt.Errorf("%w: min replicas %d must be >= 0", ErrInvalidPolicy, minReplicas)
	}
	if minReplicas > maxReplicas {
		return Policy{}, fmt.Errorf("%w: min replicas %d exceeds max replicas %d", ErrInvalidPolicy, minReplicas, maxReplicas)
	}
	return Policy{
		TargetValue: targetValue,
		MinReplicas: minReplicas,
		MaxReplicas: maxReplicas,
	}, nil
}

// Decide computes the desired replica count for the observed sample.
//
// An observed value of zero proposes zero replicas before clamping, so the
// result lands on MinReplicas. A current count of zero stays at zero until
// clamping raises it to the minimum. The returned reason is:
//
//   - no-change when desired == current (even if the raw value was clamped)
//   - clamped-to-bound when the raw value fell outside the bounds
//   - scale-up / scale-down otherwise
func (p Policy) Decide(current int32, sample MetricSample, now time.Time) Decision {
	value := sample.Value
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		value = 0
	}

	raw := math.Ceil(float64(current) * value / p.TargetValue)

	desired, clamped := clampBounds(raw, p.MinReplicas, p.MaxReplicas)

	reason := ReasonNoChange
	switch {
	case desired == current:
		// Clamping that lands back on the current count is still no-change.
	case clamped:
		reason = ReasonClamped
	case desired > current:
		reason = ReasonScaleUp
	default:
		reason = ReasonScaleDown
	}

	return Decision{
		Desired:   desired,
		Reason:    reason,
		Timestamp: now,
	}
}

// clampBounds forces x into [lo, hi] and reports whether it had to move.
// The comparison happens in float64 so that an overflowing raw value is
// clamped instead of wrapping on conversion.
func clampBounds(x float64, lo, hi int32) (int32, bool) {
	if x < float64(lo) {
		return lo, true
	}
	if x > float64(hi) {
		return hi, true
	}
	return int32(x), false
}
