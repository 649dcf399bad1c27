package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/DRAJ6/replicactl/pkg/scaling"
)

// Smoothed wraps a source with an exponential moving average so that a
// single spiky observation does not whipsaw the policy. The first successful
// sample seeds the average; failed samples leave it untouched.
//
// EMA recurrence: ema = alpha*value + (1-alpha)*ema. An alpha of 1 disables
// smoothing. Like the window, a Smoothed source belongs to one reconcile
// loop and is not safe for concurrent use.
type Smoothed struct {
	inner  Source
	alpha  float64
	seeded bool
	ema    float64
}

// NewSmoothed wraps inner with a smoothing factor alpha in (0, 1].
func NewSmoothed(inner Source, alpha float64) (*Smoothed, error) {
	if inner == nil {
		return nil, errors.New("smoothed source: inner source is required")
	}
	if alpha <= 0 || alpha > 1 {
		return nil, fmt.Errorf("%w: smoothing factor %v must be in (0, 1]", scaling.ErrInvalidPolicy, alpha)
	}
	return &Smoothed{inner: inner, alpha: alpha}, nil
}

func (s *Smoothed) Name() string { return s.inner.Name() + "+ema" }

// Sample implements Source.
func (s *Smoothed) Sample(ctx context.Context, target scaling.Target) (scaling.MetricSample, error) {
	sample, err := s.inner.Sample(ctx, target)
	if err != nil {
		return sample, err
	}

	if !s.seeded {
		s.ema = sample.Value
		s.seeded = true
	} else {
		s.ema = s.alpha*sample.Value + (1-s.alpha)*s.ema
	}

	sample.Value = s.ema
	return sample, nil
}
