package csvio

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/TheMarksan/healthcare-saas/internal/domain/issues"
	"github.com/TheMarksan/healthcare-saas/internal/domain/model"
)

// ConflictNameSeparator joins the names observed for one tax ID.
const ConflictNameSeparator = " | "

// WriteAggregated writes aggregated rows in the given order.
func WriteAggregated(path string, rows []model.AggregatedRecord) error {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.CompanyName,
			r.State,
			strconv.Itoa(r.Quarter),
			strconv.Itoa(r.Year),
			r.TaxID,
			r.RegistrationID,
			r.Category,
			r.TotalExpense.String(),
			FormatBool(r.CNPJConflict),
			FormatBool(r.RazaoSocialAusente),
			FormatBool(r.CadastroIncompleto),
			FormatBool(r.CNPJInvalido),
		})
	}
	return writeAll(path, AggregatedHeader, out)
}

// WriteMetrics writes operator metrics in the given order.
func WriteMetrics(path string, metrics []model.OperatorMetric) error {
	out := make([][]string, 0, len(metrics))
	for _, m := range metrics {
		out = append(out, []string{
			strconv.Itoa(m.Ranking),
			m.CompanyName,
			m.State,
			FormatMoney(m.TotalExpense),
			FormatMoney(m.MeanQuarterly),
			FormatMoney(m.StdDev),
			FormatRatio(m.CoefficientOfVariation),
			FormatBool(m.HighVariability),
			strconv.Itoa(m.QuarterCount),
			FormatBool(m.CNPJConflict),
			FormatBool(m.RazaoSocialAusente),
			FormatBool(m.CadastroIncompleto),
			m.RegistrationID,
			m.Category,
			m.TaxID,
		})
	}
	return writeAll(path, MetricsHeader, out)
}

// WriteConflicts writes one row per conflicting tax ID.
func WriteConflicts(path string, entries []model.ConflictEntry) error {
	out := make([][]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, []string{e.TaxID, strings.Join(e.NamesFound, ConflictNameSeparator)})
	}
	return writeAll(path, conflictsHeader, out)
}

// WriteUnmatched writes registration IDs missing from the registry.
func WriteUnmatched(path string, rows []model.UnmatchedRegistration) error {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{r.RegistrationID, strconv.Itoa(r.RecordCount), r.PlaceholderName})
	}
	return writeAll(path, unmatchedHeader, out)
}

// WriteInvalid writes tax IDs that failed check-digit validation.
func WriteInvalid(path string, rows []model.InvalidCNPJ) error {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{r.TaxID, r.RegistrationID, r.CompanyName, strconv.Itoa(r.RecordCount)})
	}
	return writeAll(path, invalidHeader, out)
}

// WriteIssues writes recoverable parse issues.
func WriteIssues(path string, items []issues.Issue) error {
	out := make([][]string, 0, len(items))
	for _, i := range items {
		out = append(out, []string{strconv.Itoa(i.Line), string(i.Kind), i.Field, i.Value, i.Detail})
	}
	return writeAll(path, issuesHeader, out)
}

// ReadMetrics loads a metrics file written by WriteMetrics.
func ReadMetrics(path string) ([]model.OperatorMetric, error) {
	t, err := openTable(path, ',', readConfig{encoding: EncodingUTF8})
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	defer func() { _ = t.close() }()
	if err := t.require(MetricsHeader...); err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	var out []model.OperatorMetric
	for {
		row, line, err := t.next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		p := numberParser{t: t, row: row}
		m := model.OperatorMetric{
			Ranking:                p.atoi("Ranking"),
			CompanyName:            t.get(row, ColCompanyName),
			State:                  t.get(row, ColState),
			TotalExpense:           p.atof("TotalDespesas"),
			MeanQuarterly:          p.atof("MediaTrimestral"),
			StdDev:                 p.atof("DesvioPadrao"),
			CoefficientOfVariation: p.atof("CoeficienteVariacao"),
			HighVariability:        ParseBool(t.get(row, "AltaVariabilidade")),
			QuarterCount:           p.atoi("QuantidadeTrimestres"),
			Flags: model.Flags{
				CNPJConflict:       ParseBool(t.get(row, ColCNPJConflict)),
				RazaoSocialAusente: ParseBool(t.get(row, ColRazaoSocialAusente)),
				CadastroIncompleto: ParseBool(t.get(row, ColCadastroIncompleto)),
			},
			RegistrationID: t.get(row, ColRegistrationID),
			Category:       t.get(row, ColCategory),
			TaxID:          t.get(row, ColTaxID),
		}
		if p.err != nil {
			return nil, fmt.Errorf("metrics: %w: line %d: %w", ErrMalformedRow, line, p.err)
		}
		out = append(out, m)
	}
}

// numberParser keeps the first conversion error of a row.
type numberParser struct {
	t   *table
	row []string
	err error
}

func (p *numberParser) atoi(col string) int {
	v, err := strconv.Atoi(p.t.get(p.row, col))
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s: %w", col, err)
	}
	return v
}

func (p *numberParser) atof(col string) float64 {
	v, err := strconv.ParseFloat(p.t.get(p.row, col), 64)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%s: %w", col, err)
	}
	return v
}
