// Package repository loads run outputs into a relational store.
package repository

import (
	"context"

	"github.com/TheMarksan/healthcare-saas/internal/domain/model"
)

// Batch is everything one run loads.
type Batch struct {
	RunID      string
	SourceFile string
	// SourceRecords and Rejected describe the expense extract behind the batch.
	SourceRecords int
	Rejected      int
	Aggregated    []model.AggregatedRecord
	Metrics       []model.OperatorMetric
}

// Result reports rows written per table.
type Result struct {
	Aggregated int
	Metrics    int
}

// Sink persists a batch atomically: either every table is written or none.
type Sink interface {
	Load(ctx context.Context, b Batch) (Result, error)
	Close() error
}
