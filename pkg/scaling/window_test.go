package scaling

import (
	"errors"
	"testing"
	"time"
)

var windowStart = time.Unix(1700000000, 0)

func mustWindow(t *testing.T, duration, granularity time.Duration) *Window {
	t.Helper()
	w, err := NewWindow(duration, granularity)
	if err != nil {
		t.Fatalf("NewWindow() error = %v", err)
	}
	return w
}

func down(desired int32) Decision {
	return Decision{Desired: desired, Reason: ReasonScaleDown, Timestamp: windowStart}
}

func TestNewWindow_Invalid(t *testing.T) {
	tests := []struct {
		name        string
		duration    time.Duration
		granularity time.Duration
	}{
		{"zero duration", 0, time.Second},
		{"negative duration", -time.Minute, time.Second},
		{"zero granularity", time.Minute, 0},
		{"sub-second granularity", time.Minute, 500 * time.Millisecond},
		{"granularity above duration", time.Second, time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWindow(tt.duration, tt.granularity)
			if !errors.Is(err, ErrInvalidPolicy) {
				t.Fatalf("error = %v, want ErrInvalidPolicy", err)
			}
		})
	}
}

func TestWindow_ScaleUpNeverGated(t *testing.T) {
	w := mustWindow(t, 5*time.Minute, time.Second)

	w.Record(windowStart, 9)

	d := w.Admit(windowStart.Add(time.Second), 3, Decision{Desired: 7, Reason: ReasonScaleUp})
	if d.Reason != ReasonScaleUp {
		t.Fatalf("Reason = %q, want %q", d.Reason, ReasonScaleUp)
	}
	if d.Desired != 7 {
		t.Fatalf("Desired = %d, want 7", d.Desired)
	}
}

func TestWindow_ScaleDownSuppressedByHigherProposal(t *testing.T) {
	w := mustWindow(t, 5*time.Minute, time.Second)

	// A recent decision proposed 4; dropping from 6 to 2 must wait.
	w.Record(windowStart, 4)

	d := w.Admit(windowStart.Add(15*time.Second), 6, down(2))
	if d.Reason != ReasonSuppressed {
		t.Fatalf("Reason = %q, want %q", d.Reason, ReasonSuppressed)
	}
	if d.Desired != 2 {
		t.Fatalf("Desired = %d, want candidate 2 preserved", d.Desired)
	}
}

func TestWindow_ScaleDownAdmittedWhenAgreed(t *testing.T) {
	w := mustWindow(t, 5*time.Minute, time.Second)

	// Every proposal in the window is at or below the candidate.
	w.Record(windowStart, 2)
	w.Record(windowStart.Add(15*time.Second), 3)

	d := w.Admit(windowStart.Add(30*time.Second), 6, down(3))
	if d.Reason != ReasonScaleDown {
		t.Fatalf("Reason = %q, want %q", d.Reason, ReasonScaleDown)
	}
}

func TestWindow_EntriesAgeOut(t *testing.T) {
	w := mustWindow(t, time.Minute, time.Second)

	w.Record(windowStart, 8)

	// Inside the window the old proposal still gates.
	d := w.Admit(windowStart.Add(30*time.Second), 8, down(2))
	if d.Reason != ReasonSuppressed {
		t.Fatalf("Reason = %q, want %q", d.Reason, ReasonSuppressed)
	}

	// Beyond the window it is purged and the drop goes through. The
	// suppressed candidate from above is still recorded, but 2 >= 2.
	d = w.Admit(windowStart.Add(2*time.Minute), 8, down(2))
	if d.Reason != ReasonScaleDown {
		t.Fatalf("Reason = %q, want %q", d.Reason, ReasonScaleDown)
	}
}

func TestWindow_SuppressedProposalKeepsGating(t *testing.T) {
	w := mustWindow(t, time.Minute, time.Second)

	w.Record(windowStart, 4)

	// Candidate 2 is suppressed by the 4 but recorded anyway.
	d := w.Admit(windowStart.Add(10*time.Second), 6, down(2))
	if d.Reason != ReasonSuppressed {
		t.Fatalf("Reason = %q, want %q", d.Reason, ReasonSuppressed)
	}

	// The 4 ages out; the recorded 2 now gates anything below it.
	at := windowStart.Add(65 * time.Second)
	d = w.Admit(at, 6, down(1))
	if d.Reason != ReasonSuppressed {
		t.Fatalf("Reason = %q, want %q", d.Reason, ReasonSuppressed)
	}
}

func TestWindow_MonotonicDescent(t *testing.T) {
	w := mustWindow(t, time.Minute, time.Second)

	// With a fresh high proposal in the window, each lower candidate is
	// held until the higher entries expire; equal-or-higher candidates pass.
	w.Record(windowStart, 10)

	d := w.Admit(windowStart.Add(time.Second), 10, down(9))
	if d.Reason != ReasonSuppressed {
		t.Fatalf("9 below max 10, Reason = %q, want suppressed", d.Reason)
	}

	// Desired == max(window) is admitted; nothing proposed more.
	d = w.Admit(windowStart.Add(2*time.Second), 11, down(10))
	if d.Reason != ReasonScaleDown {
		t.Fatalf("10 equals max, Reason = %q, want scale-down", d.Reason)
	}
}

func TestWindow_MaxTracksHighestLiveEntry(t *testing.T) {
	w := mustWindow(t, time.Minute, time.Second)

	if _, ok := w.Max(windowStart); ok {
		t.Fatal("Max() on empty window reported a value")
	}

	w.Record(windowStart, 3)
	w.Record(windowStart.Add(5*time.Second), 7)
	w.Record(windowStart.Add(10*time.Second), 5)

	got, ok := w.Max(windowStart.Add(11 * time.Second))
	if !ok || got != 7 {
		t.Fatalf("Max() = %d, %v, want 7, true", got, ok)
	}

	// After the 7 expires, the 5 is the live maximum.
	got, ok = w.Max(windowStart.Add(66 * time.Second))
	if !ok || got != 5 {
		t.Fatalf("Max() = %d, %v, want 5, true", got, ok)
	}
}

func TestWindow_SameBucketKeepsMax(t *testing.T) {
	w := mustWindow(t, time.Minute, time.Second)

	w.Record(windowStart, 6)
	w.Record(windowStart, 2)
	w.Record(windowStart, 4)

	got, ok := w.Max(windowStart)
	if !ok || got != 6 {
		t.Fatalf("Max() = %d, %v, want 6, true", got, ok)
	}
}

func TestWindow_NilAdmitsEverything(t *testing.T) {
	var w *Window

	d := w.Admit(windowStart, 6, down(2))
	if d.Reason != ReasonScaleDown {
		t.Fatalf("Reason = %q, want %q", d.Reason, ReasonScaleDown)
	}
}

func TestWindow_LongRunningRecordStaysBounded(t *testing.T) {
	w := mustWindow(t, time.Minute, time.Second)

	// Hammer the window well past its span; the ring must keep absorbing
	// records and reporting a max from live entries only.
	for i := range 10 * 60 {
		at := windowStart.Add(time.Duration(i) * time.Second)
		w.Record(at, int32(i%13))
	}

	got, ok := w.Max(windowStart.Add(10 * 60 * time.Second))
	if !ok {
		t.Fatal("Max() reported empty window after records")
	}
	if got < 0 || got > 12 {
		t.Fatalf("Max() = %d, outside recorded range", got)
	}
}
