package model

import (
	"time"

	"github.com/okian/dengue/internal/domain/params"
	"github.com/okian/dengue/internal/domain/summary"
)

// RunRequest asks for one simulation of a parameter bundle.
type RunRequest struct {
	ID          string            `json:"id"`
	Fingerprint string            `json:"fingerprint"`
	Params      params.Parameters `json:"-"`
	SubmittedAt time.Time         `json:"submitted_at"`
}

// RunResult is the outcome of one finished simulation.
type RunResult struct {
	RunID       string          `json:"run_id"`
	Fingerprint string          `json:"fingerprint"`
	Seed        uint64          `json:"seed"`
	Days        int             `json:"days"`
	Population  int             `json:"population"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  time.Time       `json:"finished_at"`
	Series      DailySeries     `json:"series"`
	AnnualCases []int           `json:"annual_cases"`
	Metrics     summary.Metrics `json:"metrics"`
}

// Duration returns the wall-clock time the run took.
func (r RunResult) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }
