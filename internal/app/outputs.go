package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/TheMarksan/healthcare-saas/internal/adapters/csvio"
	"github.com/TheMarksan/healthcare-saas/internal/adapters/xlsx"
	"github.com/TheMarksan/healthcare-saas/internal/domain/summary"
	"github.com/TheMarksan/healthcare-saas/pkg/logger"
)

func (r *run) stagePath(rel string) string {
	return filepath.Join(r.staging, filepath.FromSlash(rel))
}

// track schedules a staged output for commit under the output directory.
func (r *run) track(rel string) {
	r.outputs = append(r.outputs, [2]string{r.stagePath(rel), filepath.Join(r.cfg.OutputDir, filepath.FromSlash(rel))})
}

func (r *run) writeOutputs(ctx context.Context) error {
	aggregated := r.aggregator.Rows()
	conflicts := r.resolution.Report()
	unmatched := r.unmatched.Report()
	invalid := r.invalid.Report()
	r.report.UnmatchedRegistrations = len(unmatched)
	r.report.InvalidTaxIDs = len(invalid)

	writes := []struct {
		rel string
		fn  func(string) error
	}{
		{AggregatedFile, func(p string) error { return csvio.WriteAggregated(p, aggregated) }},
		{MetricsFile, func(p string) error { return csvio.WriteMetrics(p, r.metrics) }},
		{ConflictsFile, func(p string) error { return csvio.WriteConflicts(p, conflicts) }},
		{UnmatchedFile, func(p string) error { return csvio.WriteUnmatched(p, unmatched) }},
		{InvalidFile, func(p string) error { return csvio.WriteInvalid(p, invalid) }},
		{SummaryFile, r.writeSummary},
		{IssuesFile, func(p string) error { return csvio.WriteIssues(p, r.issues.Issues()) }},
	}
	for _, w := range writes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.fn(r.stagePath(w.rel)); err != nil {
			return fmt.Errorf("write %s: %w", w.rel, err)
		}
		r.track(w.rel)
	}
	r.report.Issues = r.issues.Total()
	if r.issues.Truncated() {
		r.log.Warn(ctx, "issue report truncated",
			logger.Int("total", r.issues.Total()),
			logger.Int("stored", len(r.issues.Issues())))
	}

	if r.cfg.XLSXPath != "" {
		staged := r.stagePath(workbookFile)
		if err := xlsx.Write(staged, xlsx.Contents{Metrics: r.metrics, Aggregated: aggregated, Conflicts: conflicts}); err != nil {
			return err
		}
		r.outputs = append(r.outputs, [2]string{staged, r.cfg.XLSXPath})
	}

	r.log.Info(ctx, "outputs staged", logger.Int("files", len(r.outputs)), logger.String("staging", r.staging))
	return nil
}

func (r *run) writeSummary(path string) error {
	rep := summary.Build(summary.Metadata{
		RunID:         r.report.RunID,
		SourceFile:    filepath.Base(r.cfg.ExpensesPath),
		SourceRecords: r.report.SourceRecords,
	}, r.metrics, r.cfg.TopN, r.now())
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// commit moves every staged output to its final path.
func (r *run) commit() error {
	for _, o := range r.outputs {
		if err := os.MkdirAll(filepath.Dir(o[1]), 0o755); err != nil {
			return fmt.Errorf("%w: %w", ErrCommit, err)
		}
		if err := os.Rename(o[0], o[1]); err != nil {
			return fmt.Errorf("%w: %w", ErrCommit, err)
		}
		r.report.Outputs = append(r.report.Outputs, o[1])
	}
	return nil
}
