package sampledata

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/TheMarksan/healthcare-saas/internal/adapters/csvio"
	"github.com/TheMarksan/healthcare-saas/internal/domain/model"
	"github.com/TheMarksan/healthcare-saas/pkg/logger"
)

// ErrMismatch is returned when pipeline metrics disagree with the dataset.
var ErrMismatch = errors.New("metrics do not match dataset")

const centTolerance = 0.005

// Verify checks a metrics file against the expected per-operator totals:
// every operator present once, totals exact to the cent, ranks dense and
// ordered by total descending.
func Verify(ctx context.Context, metricsPath string, expected map[OperatorKey]model.Cents) error {
	metrics, err := csvio.ReadMetrics(metricsPath)
	if err != nil {
		return err
	}
	if len(metrics) != len(expected) {
		return fmt.Errorf("%w: %d operators, expected %d", ErrMismatch, len(metrics), len(expected))
	}

	seen := make(map[OperatorKey]bool, len(metrics))
	for i, m := range metrics {
		key := OperatorKey{Name: m.CompanyName, State: m.State}
		want, ok := expected[key]
		if !ok {
			return fmt.Errorf("%w: unexpected operator %q/%s", ErrMismatch, m.CompanyName, m.State)
		}
		if seen[key] {
			return fmt.Errorf("%w: operator %q/%s listed twice", ErrMismatch, m.CompanyName, m.State)
		}
		seen[key] = true
		if math.Abs(m.TotalExpense-want.Float()) > centTolerance {
			return fmt.Errorf("%w: %q/%s total %.2f, expected %s", ErrMismatch, m.CompanyName, m.State, m.TotalExpense, want)
		}
		if m.Ranking != i+1 {
			return fmt.Errorf("%w: row %d has rank %d", ErrMismatch, i+1, m.Ranking)
		}
		if i > 0 && m.TotalExpense > metrics[i-1].TotalExpense {
			return fmt.Errorf("%w: rank %d total exceeds rank %d", ErrMismatch, m.Ranking, metrics[i-1].Ranking)
		}
	}

	logger.Get().Info(ctx, "metrics verified", logger.Int("operators", len(metrics)))
	if len(metrics) > 0 {
		logger.Get().Info(ctx, "top operator",
			logger.String("name", metrics[0].CompanyName),
			logger.String("state", metrics[0].State),
			logger.Float64("total", metrics[0].TotalExpense))
	}
	return nil
}
