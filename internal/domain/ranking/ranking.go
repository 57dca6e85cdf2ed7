// Package ranking computes per-operator expense statistics and the expense ranking.
package ranking

import (
	"context"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"github.com/TheMarksan/healthcare-saas/internal/domain/model"
	"github.com/TheMarksan/healthcare-saas/pkg/logger"
)

// DefaultThreshold is the coefficient of variation above which an operator is highly variable.
const DefaultThreshold = 0.5

// Engine derives OperatorMetric rows from aggregated rows.
type Engine struct {
	threshold float64
	logger    logger.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithThreshold sets the high variability threshold. Negative values are ignored.
func WithThreshold(t float64) Option {
	return func(e *Engine) {
		if t >= 0 {
			e.threshold = t
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{threshold: DefaultThreshold, logger: logger.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Threshold returns the configured threshold.
func (e *Engine) Threshold() float64 { return e.threshold }

type groupKey struct {
	name  string
	state string
}

type group struct {
	key    groupKey
	total  decimal.Decimal
	values []float64
	first  model.AggregatedRecord
	flags  model.Flags
}

// Compute groups rows by (company, state) and ranks groups by total expense, descending.
// Groups with equal totals keep their (company, state) order, so ranks are 1..N without gaps.
func (e *Engine) Compute(ctx context.Context, rows []model.AggregatedRecord) []model.OperatorMetric {
	byKey := make(map[groupKey]*group)
	groups := make([]*group, 0)
	for _, r := range rows {
		k := groupKey{name: r.CompanyName, state: r.State}
		g, ok := byKey[k]
		if !ok {
			g = &group{key: k, first: r}
			byKey[k] = g
			groups = append(groups, g)
		}
		g.total = g.total.Add(decimal.New(int64(r.TotalExpense), -2))
		g.values = append(g.values, r.TotalExpense.Float())
		g.flags = g.flags.Merge(model.Flags{
			CNPJConflict:       r.CNPJConflict,
			RazaoSocialAusente: r.RazaoSocialAusente,
			CadastroIncompleto: r.CadastroIncompleto,
		})
		fillFirst(&g.first, r)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if c := strings.Compare(groups[i].key.name, groups[j].key.name); c != 0 {
			return c < 0
		}
		return groups[i].key.state < groups[j].key.state
	})
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].total.GreaterThan(groups[j].total) })

	out := make([]model.OperatorMetric, len(groups))
	high := 0
	for i, g := range groups {
		m := e.metric(g)
		m.Ranking = i + 1
		if m.HighVariability {
			high++
		}
		out[i] = m
	}
	e.logger.Info(ctx, "operator metrics computed",
		logger.Int("operators", len(out)),
		logger.Int("high_variability", high),
		logger.Float64("threshold", e.threshold))
	return out
}

func (e *Engine) metric(g *group) model.OperatorMetric {
	n := len(g.values)
	total := g.total.InexactFloat64()
	mean := total / float64(n)
	std := SampleStdDev(g.values)
	cv := 0.0
	if mean > 0 {
		cv = std / mean
	}
	return model.OperatorMetric{
		CompanyName:            g.key.name,
		State:                  g.key.state,
		TotalExpense:           total,
		MeanQuarterly:          mean,
		StdDev:                 std,
		CoefficientOfVariation: cv,
		HighVariability:        cv > e.threshold,
		QuarterCount:           n,
		Flags:                  g.flags,
		RegistrationID:         g.first.RegistrationID,
		Category:               g.first.Category,
		TaxID:                  g.first.TaxID,
	}
}

func fillFirst(dst *model.AggregatedRecord, r model.AggregatedRecord) {
	if dst.TaxID == "" {
		dst.TaxID = r.TaxID
	}
	if dst.RegistrationID == "" {
		dst.RegistrationID = r.RegistrationID
	}
	if dst.Category == "" {
		dst.Category = r.Category
	}
}

// SampleStdDev returns the n-1 standard deviation of values.
// It is zero for fewer than two values or when every value is the same.
func SampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	for _, v := range values[1:] {
		if v != values[0] {
			return stat.StdDev(values, nil)
		}
	}
	return 0
}
