// Package summary builds the aggregated JSON report over operator metrics.
package summary

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/TheMarksan/healthcare-saas/internal/domain/model"
)

// DefaultTopN is the number of operators listed in the top section.
const DefaultTopN = 10

// Metadata describes the run that produced the report.
type Metadata struct {
	RunID         string `json:"run_id"`
	ProcessedAt   string `json:"data_processamento"`
	SourceFile    string `json:"arquivo_fonte"`
	SourceRecords int    `json:"total_registros_fonte"`
}

// Overview holds dataset-wide totals.
type Overview struct {
	Operators           int     `json:"total_operadoras"`
	TotalExpense        float64 `json:"total_despesas_geral"`
	MeanPerOperator     float64 `json:"media_despesas_operadora"`
	HighVariability     int     `json:"operadoras_alta_variabilidade"`
	HighVariabilityPerc float64 `json:"percentual_alta_variabilidade"`
}

// Distribution summarizes TotalExpense across operators.
type Distribution struct {
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
}

// TopOperator is one entry of the top-N section.
type TopOperator struct {
	Ranking         int     `json:"ranking"`
	CompanyName     string  `json:"razao_social"`
	State           *string `json:"uf"`
	TotalExpense    float64 `json:"total_despesas"`
	MeanQuarterly   float64 `json:"media_trimestral"`
	CV              float64 `json:"coeficiente_variacao"`
	HighVariability bool    `json:"alta_variabilidade"`
}

// StateStats aggregates operators of one state.
type StateStats struct {
	State           string  `json:"uf"`
	Operators       int     `json:"quantidade_operadoras"`
	TotalExpense    float64 `json:"total_despesas"`
	MeanExpense     float64 `json:"media_despesas"`
	HighVariability int     `json:"operadoras_alta_variabilidade"`
}

// Report is the full aggregation report.
type Report struct {
	Metadata     Metadata
	Overview     Overview
	Distribution Distribution
	TopN         int
	Top          []TopOperator
	// ByState is sorted by total expense, descending. Operators without state use an empty key.
	ByState []StateStats
}

// MarshalJSON renders the report with a "top_<n>_operadoras" key and a state map.
func (r Report) MarshalJSON() ([]byte, error) {
	states := make(map[string]StateStats, len(r.ByState))
	for _, s := range r.ByState {
		if s.State != "" {
			states[s.State] = s
		}
	}
	top := r.Top
	if top == nil {
		top = []TopOperator{}
	}
	byState := r.ByState
	if byState == nil {
		byState = []StateStats{}
	}
	return json.Marshal(map[string]any{
		"metadata":                               r.Metadata,
		"resumo_geral":                           r.Overview,
		"estatisticas_distribuicao":              r.Distribution,
		fmt.Sprintf("top_%d_operadoras", r.TopN): top,
		"metricas_por_uf":                        states,
		"resumo_uf":                              byState,
	})
}

// Build computes the report from ranked metrics.
func Build(meta Metadata, metrics []model.OperatorMetric, topN int, now time.Time) Report {
	if topN <= 0 {
		topN = DefaultTopN
	}
	if meta.ProcessedAt == "" {
		meta.ProcessedAt = now.Format("2006-01-02 15:04:05")
	}
	rep := Report{Metadata: meta, TopN: topN}

	totals := make([]float64, len(metrics))
	high := 0
	var sum float64
	for i, m := range metrics {
		totals[i] = m.TotalExpense
		sum += m.TotalExpense
		if m.HighVariability {
			high++
		}
	}
	rep.Overview = Overview{
		Operators:       len(metrics),
		TotalExpense:    round2(sum),
		HighVariability: high,
	}
	if len(metrics) > 0 {
		rep.Overview.MeanPerOperator = sum / float64(len(metrics))
		rep.Overview.HighVariabilityPerc = float64(high) / float64(len(metrics)) * 100
	}
	rep.Distribution = Describe(totals)
	rep.Top = top(metrics, topN)
	rep.ByState = byState(metrics)
	return rep
}

// top returns the n operators with the largest totals, keeping rank order on ties.
func top(metrics []model.OperatorMetric, n int) []TopOperator {
	sorted := make([]model.OperatorMetric, len(metrics))
	copy(sorted, metrics)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Ranking < sorted[j].Ranking })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	out := make([]TopOperator, len(sorted))
	for i, m := range sorted {
		var state *string
		if m.State != "" {
			s := m.State
			state = &s
		}
		out[i] = TopOperator{
			Ranking:         m.Ranking,
			CompanyName:     m.CompanyName,
			State:           state,
			TotalExpense:    m.TotalExpense,
			MeanQuarterly:   m.MeanQuarterly,
			CV:              m.CoefficientOfVariation,
			HighVariability: m.HighVariability,
		}
	}
	return out
}

func byState(metrics []model.OperatorMetric) []StateStats {
	idx := make(map[string]int)
	var out []StateStats
	for _, m := range metrics {
		i, ok := idx[m.State]
		if !ok {
			i = len(out)
			idx[m.State] = i
			out = append(out, StateStats{State: m.State})
		}
		out[i].Operators++
		out[i].TotalExpense += m.TotalExpense
		if m.HighVariability {
			out[i].HighVariability++
		}
	}
	for i := range out {
		out[i].TotalExpense = round2(out[i].TotalExpense)
		out[i].MeanExpense = out[i].TotalExpense / float64(out[i].Operators)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalExpense > out[j].TotalExpense })
	return out
}

// Describe returns min, quartiles, max, mean and sample standard deviation of values.
// Quartiles use linear interpolation between closest ranks.
func Describe(values []float64) Distribution {
	if len(values) == 0 {
		return Distribution{}
	}
	s := make([]float64, len(values))
	copy(s, values)
	sort.Float64s(s)

	std := 0.0
	if len(s) > 1 {
		std = stat.StdDev(s, nil)
	}
	return Distribution{
		Min:    s[0],
		Q1:     Quantile(s, 0.25),
		Median: Quantile(s, 0.5),
		Q3:     Quantile(s, 0.75),
		Max:    s[len(s)-1],
		Mean:   stat.Mean(s, nil),
		Std:    std,
	}
}

// Quantile returns the p-quantile of sorted values using linear interpolation
// between closest ranks, position (n-1)*p. stat.LinInterp interpolates the
// empirical CDF instead, so p is moved onto that scale first.
func Quantile(sorted []float64, p float64) float64 {
	n := float64(len(sorted))
	if n == 0 {
		return 0
	}
	q := ((n-1)*p + 1) / n
	return stat.Quantile(math.Min(q, 1), stat.LinInterp, sorted, nil)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
