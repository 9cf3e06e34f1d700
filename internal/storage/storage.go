package storage

import (
	"context"
	"time"
)

// RunStatus is the recorded outcome of an execution.
type RunStatus string

const (
	StatusOK       RunStatus = "ok"
	StatusRejected RunStatus = "rejected"
	StatusError    RunStatus = "error"
)

// Run is the persisted record of one script execution.
type Run struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Status    RunStatus `json:"status"`
	ErrKind   string    `json:"err_kind,omitempty"`
	Output    string    `json:"output"`
	Error     string    `json:"error,omitempty"`
	Plot      []byte    `json:"-"` // raw PNG bytes, may be nil
	HasPlot   bool      `json:"has_plot"`
	CreatedAt time.Time `json:"created_at"`
}

// RunListOptions controls filtering and pagination for ListRuns.
type RunListOptions struct {
	Status RunStatus
	Limit  int
	Offset int
}

// Store is the persistence interface for the run history.
type Store interface {
	// CreateRun inserts a run. The ID field must be set by the caller.
	CreateRun(ctx context.Context, r *Run) error

	// GetRun returns a run by ID or ID prefix.
	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns returns runs ordered by created_at descending. Plot bytes
	// are not loaded; HasPlot indicates their presence.
	ListRuns(ctx context.Context, opts RunListOptions) ([]Run, error)

	// DeleteRun removes a run.
	DeleteRun(ctx context.Context, id string) error

	// Close releases resources.
	Close() error
}
