// Package aggregate sums enriched records per (company, state, quarter, year).
package aggregate

import (
	"context"
	"fmt"
	"sort"

	"github.com/TheMarksan/healthcare-saas/internal/domain/issues"
	"github.com/TheMarksan/healthcare-saas/internal/domain/model"
	"github.com/TheMarksan/healthcare-saas/pkg/logger"
)

// DefaultChunkSize bounds how many records are grouped at once.
const DefaultChunkSize = 50_000

// Aggregator folds chunks of records into one running aggregate.
// Totals are integer cents, so the result does not depend on record order.
type Aggregator struct {
	logger   logger.Logger
	issues   *issues.Collector
	groups   map[model.AggregateKey]*model.AggregatedRecord
	chunks   int
	records  int
	coercion int
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger for coercion warnings.
func WithLogger(l logger.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithIssues records coerced amounts in c.
func WithIssues(c *issues.Collector) Option {
	return func(a *Aggregator) {
		a.issues = c
	}
}

// New creates an empty Aggregator.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		logger: logger.Nop(),
		groups: make(map[model.AggregateKey]*model.AggregatedRecord),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AddChunk folds one chunk into the running aggregate.
// Expense values that do not parse count as zero and are reported, never returned.
// A value that would push a group total out of range is reported the same way.
func (a *Aggregator) AddChunk(ctx context.Context, recs []model.EnrichedRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, r := range recs {
		amount, err := ParseAmount(r.ExpenseValue)
		if err != nil {
			a.coerce(ctx, r, err)
			amount = 0
		}
		key := model.AggregateKey{CompanyName: r.CompanyName, State: r.State, Quarter: r.Quarter, Year: r.Year}
		g, ok := a.groups[key]
		if !ok {
			g = &model.AggregatedRecord{AggregateKey: key}
			a.groups[key] = g
		}
		fillFirst(g, r.TaxID, r.RegistrationID, r.Category)
		total, ok := addCents(g.TotalExpense, amount)
		if !ok {
			a.coerce(ctx, r, fmt.Errorf("%w: group total out of range", ErrInvalidAmount))
		}
		g.TotalExpense = total
		g.Flags = g.Flags.Merge(r.Flags)
	}
	a.chunks++
	a.records += len(recs)
	return nil
}

// fillFirst keeps the first non-blank value seen for each descriptive field.
func fillFirst(g *model.AggregatedRecord, taxID, registrationID, category string) {
	if g.TaxID == "" {
		g.TaxID = taxID
	}
	if g.RegistrationID == "" {
		g.RegistrationID = registrationID
	}
	if g.Category == "" {
		g.Category = category
	}
}

func (a *Aggregator) coerce(ctx context.Context, r model.EnrichedRecord, err error) {
	a.coercion++
	a.logger.Warn(ctx, "non-numeric expense value counted as zero",
		logger.Int("line", r.Line),
		logger.String("value", r.ExpenseValue))
	if a.issues != nil {
		a.issues.Add(issues.Issue{Line: r.Line, Kind: issues.InvalidAmount, Field: "ValorDespesas", Value: r.ExpenseValue, Detail: err.Error()})
	}
}

// Rows returns one row per key sorted by company name, state, year and quarter.
func (a *Aggregator) Rows() []model.AggregatedRecord {
	out := make([]model.AggregatedRecord, 0, len(a.groups))
	for _, g := range a.groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AggregateKey.Less(out[j].AggregateKey) })
	return out
}

// Len returns the number of distinct keys.
func (a *Aggregator) Len() int { return len(a.groups) }

// Chunks returns the number of chunks merged.
func (a *Aggregator) Chunks() int { return a.chunks }

// Records returns the number of records consumed.
func (a *Aggregator) Records() int { return a.records }

// Coerced returns the number of expense values counted as zero.
func (a *Aggregator) Coerced() int { return a.coercion }
