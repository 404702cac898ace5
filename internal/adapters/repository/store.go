// Package repository persists finished runs: their identity, daily case
// series, annual totals and calibration metrics.
package repository

import (
	"context"

	"github.com/okian/dengue/internal/domain/model"
	"github.com/okian/dengue/internal/domain/summary"
)

// Store provides read/write access to stored runs.
type Store interface {
	// SaveRun stores a run atomically. Returns ErrDuplicate if the run id exists.
	SaveRun(ctx context.Context, res model.RunResult) error

	// Run loads a stored run. Returns ErrNotFound if the id is unknown.
	Run(ctx context.Context, runID string) (model.RunResult, error)

	// Metrics loads only the calibration metrics of a run.
	Metrics(ctx context.Context, runID string) (summary.Metrics, error)

	// FindByFingerprint returns the id of a stored run with the fingerprint.
	FindByFingerprint(ctx context.Context, fingerprint string) (string, error)

	// Count returns the number of stored runs.
	Count(ctx context.Context) (int, error)

	Close() error
}
