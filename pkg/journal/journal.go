// Package journal persists scaling decisions for inspection over the HTTP API.
package journal

import (
	"context"
	"time"

	"github.com/DRAJ6/replicactl/pkg/scaling"
)

// Record is one journaled scaling decision.
type Record struct {
	ID          string         `json:"id"`
	Target      string         `json:"target"`
	Previous    int32          `json:"previous"`
	Desired     int32          `json:"desired"`
	Reason      scaling.Reason `json:"reason"`
	Value       float64        `json:"value"`
	TargetValue float64        `json:"targetValue"`
	Timestamp   time.Time      `json:"timestamp"`
}

// Journal stores a bounded history of records per target, newest first.
type Journal interface {
	Append(ctx context.Context, rec Record) error
	Recent(ctx context.Context, target string, limit int) ([]Record, error)
}
