package autoscaler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Manager owns the registry of running loops: one per target, each on its
// own goroutine with its own cancel. Targets are fully independent; one
// loop's failures never touch another's.
type Manager struct {
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	runners map[string]*runner
}

type runner struct {
	scaler *Autoscaler
	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a manager that runs each registered loop at interval.
func NewManager(interval time.Duration, logger *slog.Logger) *Manager {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		interval: interval,
		logger:   logger,
		runners:  make(map[string]*runner),
	}
}

// Add registers the autoscaler under its target name and starts its loop.
// The loop stops when ctx is canceled, the target is removed, or the
// manager is stopped.
func (m *Manager) Add(ctx context.Context, a *Autoscaler) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := a.Name()
	if _, ok := m.runners[name]; ok {
		return fmt.Errorf("target %q already registered", name)
	}

	runCtx, cancel := context.WithCancel(ctx)
	r := &runner{scaler: a, cancel: cancel, done: make(chan struct{})}
	m.runners[name] = r

	go func() {
		defer close(r.done)
		// Run only returns the context's error once the loop is told to stop.
		_ = a.Run(runCtx, m.interval)
	}()

	m.logger.Info("target registered", "target", name, "interval", m.interval)
	return nil
}

// Remove stops the target's loop and waits for it to drain.
func (m *Manager) Remove(name string) error {
	m.mu.Lock()
	r, ok := m.runners[name]
	if ok {
		delete(m.runners, name)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("target %q not registered", name)
	}

	r.cancel()
	<-r.done

	m.logger.Info("target removed", "target", name)
	return nil
}

// Get returns the registered autoscaler for name.
func (m *Manager) Get(name string) (*Autoscaler, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.runners[name]
	if !ok {
		return nil, false
	}
	return r.scaler, true
}

// Statuses returns a snapshot for every registered target, sorted by name.
func (m *Manager) Statuses() []Status {
	m.mu.Lock()
	scalers := make([]*Autoscaler, 0, len(m.runners))
	for _, r := range m.runners {
		scalers = append(scalers, r.scaler)
	}
	m.mu.Unlock()

	statuses := make([]Status, 0, len(scalers))
	for _, s := range scalers {
		statuses = append(statuses, s.Status())
	}
	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Target < statuses[j].Target
	})
	return statuses
}

// Stop cancels every loop and waits for all of them to drain.
func (m *Manager) Stop() {
	m.mu.Lock()
	runners := make([]*runner, 0, len(m.runners))
	for name, r := range m.runners {
		runners = append(runners, r)
		delete(m.runners, name)
	}
	m.mu.Unlock()

	for _, r := range runners {
		r.cancel()
	}
	for _, r := range runners {
		<-r.done
	}

	m.logger.Info("all reconcile loops stopped")
}
