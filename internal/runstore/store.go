// Package runstore keeps the history of optimisation runs.
package runstore

import (
	"context"
	"errors"
	"time"

	"github.com/GoSim-25-26J-441/compression-optimizer/internal/improvement"
	"github.com/GoSim-25-26J-441/compression-optimizer/pkg/models"
	"github.com/GoSim-25-26J-441/compression-optimizer/pkg/utils"
)

var (
	// ErrNotFound is returned by Get for unknown run ids
	ErrNotFound = errors.New("run not found")
	// ErrExists is returned by Save when the id is already taken
	ErrExists = errors.New("run already exists")
)

// DefaultListLimit and MaxListLimit bound List
const (
	DefaultListLimit = 50
	MaxListLimit     = 1000
)

// Status of a finished run
type Status string

const (
	// StatusCompleted means a candidate won
	StatusCompleted Status = "completed"
	// StatusFallback means the default parameters were returned
	StatusFallback Status = "fallback"
)

// RunRecord summarises one optimisation run
type RunRecord struct {
	ID             string                    `json:"id"`
	Status         Status                    `json:"status"`
	CreatedAt      time.Time                 `json:"created_at"`
	FinishedAt     time.Time                 `json:"finished_at"`
	DatasetPoints  int                       `json:"dataset_points"`
	Candidates     int                       `json:"candidates"`
	Failed         int                       `json:"failed"`
	Fallback       bool                      `json:"fallback"`
	FallbackReason string                    `json:"fallback_reason,omitempty"`
	Optimal        models.OptimalParameters  `json:"optimal"`
	Top            []models.EvaluationResult `json:"top"`
}

// NewRunRecord builds a record from a finished report
func NewRunRecord(report *improvement.Report, datasetPoints int, started time.Time) *RunRecord {
	rec := &RunRecord{
		ID:            utils.NewRunID(),
		Status:        StatusCompleted,
		CreatedAt:     started.UTC(),
		FinishedAt:    started.Add(report.Duration).UTC(),
		DatasetPoints: datasetPoints,
		Candidates:    report.Candidates,
		Failed:        report.Failed,
		Fallback:      report.Fallback,
		Optimal:       report.Optimal,
		Top:           report.Top,
	}
	if report.Fallback {
		rec.Status = StatusFallback
		if report.FallbackReason != nil {
			rec.FallbackReason = report.FallbackReason.Error()
		}
	}
	if rec.Top == nil {
		rec.Top = []models.EvaluationResult{}
	}
	return rec
}

// Store persists run records. Implementations are safe for concurrent use.
type Store interface {
	Save(ctx context.Context, rec *RunRecord) error
	Get(ctx context.Context, id string) (*RunRecord, error)
	// List returns the most recent runs, newest first
	List(ctx context.Context, limit int) ([]*RunRecord, error)
	Close() error
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return utils.Clamp(limit, 1, MaxListLimit)
}
