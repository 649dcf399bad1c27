package scaling

import (
	"fmt"
	"math"
	"time"
)

type entry struct {
	proposal int32
	index    int
}

// Window tracks the replica proposals of recent decisions and gates
// scale-downs: a lower count is admitted only once no proposal inside the
// lookback window exceeds it. Scale-ups are never gated.
//
// Proposals are bucketed by granularity and kept in a ring of descending
// maxima, so Record and Max are O(1) amortized. A Window belongs to a single
// reconcile loop and is not safe for concurrent use.
type Window struct {
	maxima        []entry
	first, length int
	granularity   time.Duration
}

// NewWindow returns a window spanning duration, bucketing proposals by
// granularity. Entries strictly older than duration (rounded up to whole
// buckets) are purged before each read.
func NewWindow(duration, granularity time.Duration) (*Window, error) {
	if duration <= 0 {
		return nil, fmt.Errorf("%w: stabilization window %v must be > 0", ErrInvalidPolicy, duration)
	}
	if granularity < time.Second || granularity > duration {
		return nil, fmt.Errorf("%w: window granularity %v must be in [1s, %v]", ErrInvalidPolicy, granularity, duration)
	}
	buckets := int(math.Ceil(float64(duration) / float64(granularity)))
	return &Window{
		maxima:      make([]entry, buckets),
		granularity: granularity,
	}, nil
}

// Admit records the decision's proposal and applies the scale-down gate.
// A proposal below current is suppressed while any recorded proposal in the
// window exceeds it; the returned decision then carries ReasonSuppressed and
// must not be applied. Suppressed proposals stay recorded, so they keep
// gating until higher entries age out. A nil window admits everything.
func (w *Window) Admit(now time.Time, current int32, d Decision) Decision {
	if w == nil {
		return d
	}
	w.Record(now, d.Desired)
	if d.Desired >= current {
		return d
	}
	if max, ok := w.Max(now); ok && d.Desired < max {
		d.Reason = ReasonSuppressed
	}
	return d
}

// Record adds a proposal to the window at time now.
func (w *Window) Record(now time.Time, proposal int32) {
	index := w.index(now)

	// Proposals at or below the new one can never be the maximum again:
	// the new entry is both higher and newer. The ring stays in descending
	// order, so pop from the back until a higher entry appears.
	for w.length > 0 {
		last := w.at(w.first + w.length - 1)
		if w.maxima[last].proposal > proposal {
			break
		}
		w.length--
	}

	w.expire(index)

	// Several records can land in one bucket; keep the bucket's maximum.
	if w.length > 0 {
		if last := w.maxima[w.at(w.first+w.length-1)]; last.index == index {
			if last.proposal > proposal {
				proposal = last.proposal
			}
			w.length--
		}
	}

	w.maxima[w.at(w.first+w.length)] = entry{proposal: proposal, index: index}
	w.length++
}

// Max purges entries that have aged out and returns the highest remaining
// proposal. The second return is false when the window is empty.
func (w *Window) Max(now time.Time) (int32, bool) {
	w.expire(w.index(now))
	if w.length == 0 {
		return 0, false
	}
	return w.maxima[w.first].proposal, true
}

// expire drops entries recorded more than len(maxima) buckets before index.
// Entries are appended in index order, so the oldest are always at the front.
func (w *Window) expire(index int) {
	for w.length > 0 && index-w.maxima[w.first].index >= len(w.maxima) {
		w.first++
		w.length--
		if w.first == len(w.maxima) {
			w.first = 0
		}
	}
}

func (w *Window) index(t time.Time) int {
	return int(t.Unix() / int64(w.granularity/time.Second))
}

func (w *Window) at(i int) int {
	return i % len(w.maxima)
}
