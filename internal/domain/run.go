package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus represents the lifecycle state of a simulation run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Direction identifies which side of the control loop a channel sits on
type Direction string

const (
	// DirectionXMEAS carries measurements from the plant to the controller
	DirectionXMEAS Direction = "xmeas"
	// DirectionXMV carries manipulated variables from the controller to the plant
	DirectionXMV Direction = "xmv"
)

// Run describes one simulation run and the channel parameters it was driven with
type Run struct {
	ID        string        `json:"id" yaml:"id"`
	Seed      int64         `json:"seed" yaml:"seed"`
	XMEAS     ErrorRate     `json:"xmeas" yaml:"xmeas"`
	XMV       ErrorRate     `json:"xmv" yaml:"xmv"`
	Lanes     int           `json:"lanes" yaml:"lanes"`
	Scan      time.Duration `json:"scan" yaml:"scan"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
	SaveEvery int           `json:"save_every" yaml:"save_every"`
	Status    RunStatus     `json:"status" yaml:"status"`
	Ticks     int64         `json:"ticks" yaml:"ticks"`
	Error     string        `json:"error,omitempty" yaml:"error,omitempty"`
	CreatedAt time.Time     `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" yaml:"updated_at"`
}

// NewRun creates a running run with a fresh ID
func NewRun(seed int64, xmeas, xmv ErrorRate, lanes int) *Run {
	now := time.Now().UTC()
	return &Run{
		ID:        uuid.NewString(),
		Seed:      seed,
		XMEAS:     xmeas,
		XMV:       xmv,
		Lanes:     lanes,
		Status:    RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TotalTicks returns the number of scan ticks the run is configured for
func (r *Run) TotalTicks() int64 {
	if r.Scan <= 0 {
		return 0
	}
	return int64(r.Duration / r.Scan)
}

// Finished reports whether the run reached a terminal status
func (r *Run) Finished() bool {
	return r.Status == RunStatusCompleted || r.Status == RunStatusFailed
}
