// Package autoscaler implements the reconcile loop that keeps a workload's
// replica count in line with its scaling policy: sample the metric, decide
// a desired count, apply it through the backend. A Manager runs one loop
// per target.
package autoscaler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DRAJ6/replicactl/pkg/backend"
	"github.com/DRAJ6/replicactl/pkg/journal"
	"github.com/DRAJ6/replicactl/pkg/scaling"
	"github.com/DRAJ6/replicactl/pkg/source"
)

// DefaultCallTimeout bounds individual metric and backend calls when the
// config does not set one.
const DefaultCallTimeout = 10 * time.Second

// Phase is the loop's position in the reconcile cycle.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseSampling Phase = "sampling"
	PhaseDeciding Phase = "deciding"
	PhaseApplying Phase = "applying"
)

// Recorder receives loop telemetry. Implementations must be safe for
// concurrent use: one recorder is shared by every target's loop.
type Recorder interface {
	ObserveTick(target string, duration time.Duration)
	RecordDecision(target string, reason scaling.Reason)
	RecordMetricFailure(target string)
	RecordBackendFailure(target string)
	SetReplicas(target string, current, desired int32)
}

// NopRecorder discards all telemetry.
type NopRecorder struct{}

func (NopRecorder) ObserveTick(string, time.Duration)     {}
func (NopRecorder) RecordDecision(string, scaling.Reason) {}
func (NopRecorder) RecordMetricFailure(string)            {}
func (NopRecorder) RecordBackendFailure(string)           {}
func (NopRecorder) SetReplicas(string, int32, int32)      {}

// Status is a point-in-time snapshot of one target's loop.
type Status struct {
	Target       string            `json:"target"`
	Phase        Phase             `json:"phase"`
	Current      int32             `json:"current"`
	LastDecision *scaling.Decision `json:"lastDecision,omitempty"`
	LastError    string            `json:"lastError,omitempty"`
	LastTick     time.Time         `json:"lastTick"`
}

// Config assembles the pieces of one target's loop.
type Config struct {
	// Target identifies the workload to scale. Required.
	Target scaling.Target

	// Policy converts samples into desired counts. Required, built via
	// scaling.NewPolicy.
	Policy scaling.Policy

	// Source supplies the metric. Required.
	Source source.Source

	// Backend reads and writes the replica count. Required.
	Backend backend.Backend

	// Window gates scale-downs. Nil applies every decision immediately.
	Window *scaling.Window

	// Journal records decisions. Nil falls back to an in-memory journal.
	Journal journal.Journal

	// Recorder receives telemetry. Nil discards it.
	Recorder Recorder

	// CallTimeout bounds each metric and backend call. Zero means
	// DefaultCallTimeout.
	CallTimeout time.Duration

	Logger *slog.Logger
}

// Autoscaler reconciles a single target. Run owns all mutable loop state;
// Status may be called from any goroutine.
type Autoscaler struct {
	target      scaling.Target
	policy      scaling.Policy
	source      source.Source
	backend     backend.Backend
	window      *scaling.Window
	journal     journal.Journal
	recorder    Recorder
	callTimeout time.Duration
	logger      *slog.Logger

	mu           sync.RWMutex
	phase        Phase
	current      int32
	lastDecision *scaling.Decision
	lastErr      string
	lastTick     time.Time
}

// New validates cfg and returns an Autoscaler ready to Run.
func New(cfg Config) (*Autoscaler, error) {
	if err := cfg.Target.Validate(); err != nil {
		return nil, err
	}
	if cfg.Policy.TargetValue <= 0 {
		return nil, fmt.Errorf("%w: policy target value must be > 0", scaling.ErrInvalidPolicy)
	}
	if cfg.Source == nil {
		return nil, errors.New("metric source is required")
	}
	if cfg.Backend == nil {
		return nil, errors.New("workload backend is required")
	}
	if cfg.Journal == nil {
		cfg.Journal = journal.NewMemoryJournal(0)
	}
	if cfg.Recorder == nil {
		cfg.Recorder = NopRecorder{}
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Autoscaler{
		target:      cfg.Target,
		policy:      cfg.Policy,
		source:      cfg.Source,
		backend:     cfg.Backend,
		window:      cfg.Window,
		journal:     cfg.Journal,
		recorder:    cfg.Recorder,
		callTimeout: cfg.CallTimeout,
		logger:      cfg.Logger,
		phase:       PhaseIdle,
	}, nil
}

// Name returns the namespace-qualified target name the loop reconciles.
func (a *Autoscaler) Name() string {
	return a.target.String()
}

// Run executes the reconcile loop at regular intervals.
// Blocks until context is canceled.
func (a *Autoscaler) Run(ctx context.Context, interval time.Duration) error {
	a.logger.Info("starting reconcile loop",
		"target", a.target.String(),
		"interval", interval,
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := a.Tick(ctx); err != nil {
		a.logger.Error("reconcile tick failed", "target", a.target.String(), "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("reconcile loop stopped", "target", a.target.String())
			return ctx.Err()
		case <-ticker.C:
			if err := a.Tick(ctx); err != nil {
				a.logger.Error("reconcile tick failed", "target", a.target.String(), "error", err)
			}
		}
	}
}

// Tick performs one reconcile cycle: sample, decide, apply.
// Exported for testing purposes.
//
// Cancellation is honored between cycles, never inside one: once Tick is
// past this first check it runs the cycle to completion. A metric failure
// ends the cycle before any backend call and records no decision. A backend
// write failure leaves the decision journaled; the next cycle re-reads the
// live count rather than trusting the failed write.
func (a *Autoscaler) Tick(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	a.beginTick(start)
	defer a.setPhase(PhaseIdle)
	defer func() {
		a.recorder.ObserveTick(a.target.String(), time.Since(start))
	}()

	sample, sampleDuration, err := a.sample(ctx)
	if err != nil {
		a.recorder.RecordMetricFailure(a.target.String())
		a.setLastError(err)
		return fmt.Errorf("sample: %w", err)
	}

	current, decision, decideDuration, err := a.decide(ctx, sample)
	if err != nil {
		a.recorder.RecordBackendFailure(a.target.String())
		a.setLastError(err)
		return fmt.Errorf("decide: %w", err)
	}

	applyDuration, err := a.apply(ctx, current, decision)
	if err != nil {
		a.recorder.RecordBackendFailure(a.target.String())
		a.setLastError(err)
		return fmt.Errorf("apply: %w", err)
	}

	totalDuration := time.Since(start)
	a.logger.Info("reconcile tick complete",
		"target", a.target.String(),
		"value", sample.Value,
		"current", current,
		"desired", decision.Desired,
		"reason", decision.Reason,
		"sample_ms", sampleDuration.Milliseconds(),
		"decide_ms", decideDuration.Milliseconds(),
		"apply_ms", applyDuration.Milliseconds(),
		"total_ms", totalDuration.Milliseconds(),
	)

	return nil
}

// sample reads the scaling metric from the source.
func (a *Autoscaler) sample(ctx context.Context) (scaling.MetricSample, time.Duration, error) {
	start := time.Now()
	a.setPhase(PhaseSampling)

	callCtx, cancel := context.WithTimeout(ctx, a.callTimeout)
	defer cancel()

	sample, err := a.source.Sample(callCtx, a.target)
	if err != nil {
		return scaling.MetricSample{}, 0, err
	}

	duration := time.Since(start)
	a.logger.Debug("sampled metric",
		"source", a.source.Name(),
		"target", a.target.String(),
		"value", sample.Value,
		"duration_ms", duration.Milliseconds(),
	)

	return sample, duration, nil
}

// decide reads the live replica count, evaluates the policy against the
// sample, and runs the result through the stabilization window. The decision
// is journaled whether or not it is later applied.
func (a *Autoscaler) decide(ctx context.Context, sample scaling.MetricSample) (int32, scaling.Decision, time.Duration, error) {
	start := time.Now()
	a.setPhase(PhaseDeciding)

	callCtx, cancel := context.WithTimeout(ctx, a.callTimeout)
	defer cancel()

	current, err := a.backend.Replicas(callCtx, a.target)
	if err != nil {
		return 0, scaling.Decision{}, 0, fmt.Errorf("read replicas: %w", err)
	}

	sample.TargetValue = a.policy.TargetValue
	now := time.Now()
	decision := a.policy.Decide(current, sample, now)
	decision = a.window.Admit(now, current, decision)

	a.recorder.RecordDecision(a.target.String(), decision.Reason)
	a.recorder.SetReplicas(a.target.String(), current, decision.Desired)
	a.journalDecision(ctx, current, sample, decision)
	a.noteDecision(current, decision)

	duration := time.Since(start)
	a.logger.Debug("evaluated policy",
		"target", a.target.String(),
		"value", sample.Value,
		"current", current,
		"desired", decision.Desired,
		"reason", decision.Reason,
		"duration_ms", duration.Milliseconds(),
	)

	return current, decision, duration, nil
}

// apply writes the desired count to the backend. No-change and suppressed
// decisions skip the write.
func (a *Autoscaler) apply(ctx context.Context, current int32, decision scaling.Decision) (time.Duration, error) {
	if decision.Desired == current || decision.Reason == scaling.ReasonSuppressed {
		return 0, nil
	}

	start := time.Now()
	a.setPhase(PhaseApplying)

	// A scale that has been committed to must not be torn down halfway by
	// shutdown; detach from the loop context and rely on the call timeout.
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.callTimeout)
	defer cancel()

	if err := a.backend.SetReplicas(callCtx, a.target, decision.Desired); err != nil {
		return time.Since(start), fmt.Errorf("set replicas: %w", err)
	}

	a.noteApplied(decision.Desired)
	a.logger.Info("scaled workload",
		"target", a.target.String(),
		"from", current,
		"to", decision.Desired,
		"reason", decision.Reason,
	)

	return time.Since(start), nil
}

// journalDecision appends the decision to the journal. Journal failures are
// logged and do not fail the cycle.
func (a *Autoscaler) journalDecision(ctx context.Context, current int32, sample scaling.MetricSample, decision scaling.Decision) {
	rec := journal.Record{
		ID:          uuid.NewString(),
		Target:      a.target.String(),
		Previous:    current,
		Desired:     decision.Desired,
		Reason:      decision.Reason,
		Value:       sample.Value,
		TargetValue: sample.TargetValue,
		Timestamp:   decision.Timestamp,
	}
	if err := a.journal.Append(ctx, rec); err != nil {
		a.logger.Warn("journal append failed", "target", a.target.String(), "error", err)
	}
}

// Status returns a snapshot of the loop's state.
func (a *Autoscaler) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()

	st := Status{
		Target:    a.target.String(),
		Phase:     a.phase,
		Current:   a.current,
		LastError: a.lastErr,
		LastTick:  a.lastTick,
	}
	if a.lastDecision != nil {
		d := *a.lastDecision
		st.LastDecision = &d
	}
	return st
}

func (a *Autoscaler) beginTick(at time.Time) {
	a.mu.Lock()
	a.lastTick = at
	a.lastErr = ""
	a.mu.Unlock()
}

func (a *Autoscaler) setPhase(p Phase) {
	a.mu.Lock()
	a.phase = p
	a.mu.Unlock()
}

func (a *Autoscaler) setLastError(err error) {
	a.mu.Lock()
	a.lastErr = err.Error()
	a.mu.Unlock()
}

func (a *Autoscaler) noteDecision(current int32, decision scaling.Decision) {
	a.mu.Lock()
	a.current = current
	d := decision
	a.lastDecision = &d
	a.mu.Unlock()
}

func (a *Autoscaler) noteApplied(desired int32) {
	a.mu.Lock()
	a.current = desired
	a.mu.Unlock()
}
