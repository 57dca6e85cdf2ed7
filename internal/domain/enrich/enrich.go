// Package enrich joins raw expense records with the operator registry.
package enrich

import (
	"context"
	"fmt"
	"strings"

	"github.com/TheMarksan/healthcare-saas/internal/domain/issues"
	"github.com/TheMarksan/healthcare-saas/internal/domain/model"
	"github.com/TheMarksan/healthcare-saas/internal/domain/quarter"
	"github.com/TheMarksan/healthcare-saas/pkg/logger"
)

// Registry resolves registration IDs to registry entries.
type Registry interface {
	ByRegistration(id string) (model.RegistryEntry, bool)
}

// Result summarizes one Enrich call.
type Result struct {
	Accepted  int
	Rejected  int
	Matched   int
	Unmatched int
}

// Add accumulates o into r.
func (r *Result) Add(o Result) {
	r.Accepted += o.Accepted
	r.Rejected += o.Rejected
	r.Matched += o.Matched
	r.Unmatched += o.Unmatched
}

// Enricher normalizes quarters and applies the registry left join.
type Enricher struct {
	registry Registry
	logger   logger.Logger
	issues   *issues.Collector
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithLogger sets the logger used for rejected records.
func WithLogger(l logger.Logger) Option {
	return func(e *Enricher) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithIssues records rejected records in c.
func WithIssues(c *issues.Collector) Option {
	return func(e *Enricher) {
		e.issues = c
	}
}

// New creates an Enricher over a read-only registry.
func New(reg Registry, opts ...Option) *Enricher {
	e := &Enricher{
		registry: reg,
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enrich converts a chunk of raw records, preserving input order.
// Records with an unparseable quarter or year are dropped and counted.
func (e *Enricher) Enrich(ctx context.Context, chunk []model.RawRecord) ([]model.EnrichedRecord, Result) {
	out := make([]model.EnrichedRecord, 0, len(chunk))
	var res Result
	for _, raw := range chunk {
		rec, err := e.Record(ctx, raw)
		if err != nil {
			res.Rejected++
			continue
		}
		res.Accepted++
		if rec.RegistryMatched {
			res.Matched++
		} else {
			res.Unmatched++
		}
		out = append(out, rec)
	}
	return out, res
}

// Record enriches a single raw record. The returned error wraps ErrRejected.
func (e *Enricher) Record(ctx context.Context, raw model.RawRecord) (model.EnrichedRecord, error) {
	q, err := quarter.Normalize(raw.Quarter)
	if err != nil {
		e.reject(ctx, raw, issues.InvalidQuarter, "Trimestre", raw.Quarter, err)
		return model.EnrichedRecord{}, fmt.Errorf("%w: line %d: %w", ErrRejected, raw.Line, err)
	}
	y, err := quarter.Year(raw.Year)
	if err != nil {
		e.reject(ctx, raw, issues.InvalidYear, "Ano", raw.Year, err)
		return model.EnrichedRecord{}, fmt.Errorf("%w: line %d: %w", ErrRejected, raw.Line, err)
	}

	rec := model.EnrichedRecord{
		Line:           raw.Line,
		RegistrationID: strings.TrimSpace(raw.RegistrationID),
		CompanyName:    strings.TrimSpace(raw.CompanyName),
		State:          strings.TrimSpace(raw.State),
		Quarter:        q,
		Year:           y,
		TaxID:          strings.TrimSpace(raw.TaxID),
		Category:       strings.TrimSpace(raw.Category),
		ExpenseValue:   strings.TrimSpace(raw.ExpenseValue),
	}

	if rec.RegistrationID != "" {
		if entry, ok := e.registry.ByRegistration(rec.RegistrationID); ok {
			rec.RegistryMatched = true
			rec.OfficialName = entry.OfficialName
			rec.TaxID = entry.TaxID
			rec.Category = entry.Category
			if entry.State != "" {
				rec.State = entry.State
			}
			if rec.CompanyName == "" {
				rec.CompanyName = entry.OfficialName
			}
		}
	}

	rec.CadastroIncompleto = rec.TaxID == ""
	return rec, nil
}

func (e *Enricher) reject(ctx context.Context, raw model.RawRecord, kind issues.Kind, field, value string, err error) {
	e.logger.Warn(ctx, "dropping record",
		logger.Int("line", raw.Line),
		logger.String("field", field),
		logger.String("value", value),
		logger.Error(err))
	if e.issues != nil {
		e.issues.Add(issues.Issue{Line: raw.Line, Kind: kind, Field: field, Value: value, Detail: err.Error()})
	}
}
