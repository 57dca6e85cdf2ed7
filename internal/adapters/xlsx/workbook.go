// Package xlsx exports run outputs as a single spreadsheet workbook.
package xlsx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/TheMarksan/healthcare-saas/internal/adapters/csvio"
	"github.com/TheMarksan/healthcare-saas/internal/domain/model"
	"github.com/xuri/excelize/v2"
)

// Sheet names.
const (
	SheetMetrics    = "Metricas"
	SheetAggregated = "Agregado"
	SheetConflicts  = "Conflitos"
)

// ErrWorkbook wraps every export failure.
var ErrWorkbook = errors.New("workbook export failed")

// Contents is what goes into the workbook.
type Contents struct {
	Metrics    []model.OperatorMetric
	Aggregated []model.AggregatedRecord
	Conflicts  []model.ConflictEntry
}

// Write saves c to path, one sheet per dataset, each with a header row.
func Write(path string, c Contents) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: %w", ErrWorkbook, cerr)
		}
	}()

	if err := f.SetSheetName("Sheet1", SheetMetrics); err != nil {
		return fmt.Errorf("%w: %w", ErrWorkbook, err)
	}
	for _, name := range []string{SheetAggregated, SheetConflicts} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("%w: %w", ErrWorkbook, err)
		}
	}

	if err := writeRows(f, SheetMetrics, csvio.MetricsHeader, metricRows(c.Metrics)); err != nil {
		return err
	}
	if err := writeRows(f, SheetAggregated, csvio.AggregatedHeader, aggregatedRows(c.Aggregated)); err != nil {
		return err
	}
	if err := writeRows(f, SheetConflicts, []string{csvio.ColTaxID, "RazoesEncontradas", "RazaoSocialCanonica"}, conflictRows(c.Conflicts)); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrWorkbook, err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("%w: %w", ErrWorkbook, err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, header []string, rows [][]any) error {
	hdr := make([]any, len(header))
	for i, h := range header {
		hdr[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &hdr); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWorkbook, sheet, err)
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrWorkbook, sheet, err)
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrWorkbook, sheet, err)
		}
	}
	return nil
}

func metricRows(metrics []model.OperatorMetric) [][]any {
	rows := make([][]any, 0, len(metrics))
	for _, m := range metrics {
		rows = append(rows, []any{
			m.Ranking, m.CompanyName, m.State, m.TotalExpense, m.MeanQuarterly, m.StdDev,
			m.CoefficientOfVariation, m.HighVariability, m.QuarterCount,
			m.CNPJConflict, m.RazaoSocialAusente, m.CadastroIncompleto,
			m.RegistrationID, m.Category, m.TaxID,
		})
	}
	return rows
}

func aggregatedRows(recs []model.AggregatedRecord) [][]any {
	rows := make([][]any, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, []any{
			r.CompanyName, r.State, r.Quarter, r.Year, r.TaxID, r.RegistrationID, r.Category,
			r.TotalExpense.Float(), r.CNPJConflict, r.RazaoSocialAusente, r.CadastroIncompleto, r.CNPJInvalido,
		})
	}
	return rows
}

func conflictRows(entries []model.ConflictEntry) [][]any {
	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []any{e.TaxID, strings.Join(e.NamesFound, csvio.ConflictNameSeparator), e.Canonical})
	}
	return rows
}
