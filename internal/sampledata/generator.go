// Package sampledata generates synthetic registry and expense extracts with
// known data problems, and verifies pipeline outputs against them.
package sampledata

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/TheMarksan/healthcare-saas/internal/domain/cnpj"
	"github.com/TheMarksan/healthcare-saas/internal/domain/model"
	"github.com/TheMarksan/healthcare-saas/internal/domain/validate"
	"github.com/TheMarksan/healthcare-saas/pkg/logger"
)

var (
	states     = []string{"SP", "RJ", "MG", "RS", "PR", "BA", "SC", "PE", "CE", "GO"}
	categories = []string{"Medicina de Grupo", "Cooperativa Médica", "Odontologia de Grupo", "Autogestão", "Seguradora Especializada em Saúde"}
	nameParts  = []string{"Saúde", "Vida", "Med", "Assistência", "Bem Estar", "Odonto", "Care", "Plano"}
	suffixes   = []string{"S.A.", "LTDA", "Cooperativa"}
)

// OperatorKey identifies one operator of the metrics output.
type OperatorKey struct {
	Name  string
	State string
}

// Dataset is a generated registry and expense extract plus what the pipeline
// is expected to report for it.
type Dataset struct {
	Registry []model.RegistryEntry
	Expenses []model.RawRecord
	// Expected total expense per operator.
	Expected map[OperatorKey]model.Cents
	Stats    Stats
}

type operator struct {
	entry      model.RegistryEntry
	registered bool
	variant    string
	missing    bool
	baseline   int64
	// total and named track the rows the pipeline keeps.
	total model.Cents
	named bool
}

// Generate builds a dataset from cfg. The same seed always yields the same dataset.
func Generate(ctx context.Context, cfg *Config) (*Dataset, error) {
	if cfg.Operators <= 0 || cfg.Quarters <= 0 {
		return nil, fmt.Errorf("operators and quarters must be positive")
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	ds := &Dataset{Expected: make(map[OperatorKey]model.Cents)}

	ops := make([]*operator, 0, cfg.Operators)
	for i := 0; i < cfg.Operators; i++ {
		op, err := newOperator(rng, i, true)
		if err != nil {
			return nil, err
		}
		if rng.Float64() < cfg.ConflictRate {
			op.variant = op.entry.OfficialName + " " + suffixes[rng.IntN(len(suffixes))]
			ds.Stats.Conflicts++
		}
		op.missing = rng.Float64() < cfg.MissingNameRate
		ops = append(ops, op)
		ds.Registry = append(ds.Registry, op.entry)
	}

	extra := int(math.Round(float64(cfg.Operators) * cfg.UnmatchedRate))
	for i := 0; i < extra; i++ {
		op, err := newOperator(rng, cfg.Operators+i, false)
		if err != nil {
			return nil, err
		}
		if rng.Float64() < cfg.InvalidRate {
			op.entry.TaxID = breakCheckDigit(op.entry.TaxID)
			ds.Stats.InvalidTaxIDs++
		}
		op.missing = rng.Float64() < cfg.MissingNameRate
		ds.Stats.Unmatched++
		ops = append(ops, op)
	}

	line := 1
	for q := 0; q < cfg.Quarters; q++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		year := cfg.StartYear + q/4
		quarter := q%4 + 1
		for _, op := range ops {
			// Some quarters arrive split across two rows.
			parts := 1 + rng.IntN(2)
			for p := 0; p < parts; p++ {
				cents := op.baseline/int64(parts) + rng.Int64N(op.baseline/4+1)
				line++
				rec := ds.row(rng, cfg, op, line, quarter, year, cents, p)
				ds.Expenses = append(ds.Expenses, rec)
			}
		}
	}

	for _, op := range ops {
		ds.book(op)
	}

	ds.Stats.RegistryRows = len(ds.Registry)
	ds.Stats.ExpenseRows = len(ds.Expenses)
	ds.Stats.Operators = len(ds.Expected)
	logger.Get().Info(ctx, "dataset generated",
		logger.Int("registry_rows", ds.Stats.RegistryRows),
		logger.Int("expense_rows", ds.Stats.ExpenseRows),
		logger.Int("operators", ds.Stats.Operators),
		logger.Int("conflicts", ds.Stats.Conflicts),
		logger.Int("unmatched", ds.Stats.Unmatched))
	return ds, nil
}

// row renders one expense row and adds its amount to the operator.
func (ds *Dataset) row(rng *rand.Rand, cfg *Config, op *operator, line, quarter, year int, cents int64, part int) model.RawRecord {
	rec := model.RawRecord{
		Line:           line,
		RegistrationID: op.entry.RegistrationID,
		CompanyName:    op.entry.OfficialName,
		State:          op.entry.State,
		Quarter:        formatQuarter(rng, quarter, year),
		Year:           strconv.Itoa(year),
		TaxID:          op.entry.TaxID,
		ExpenseValue:   FormatAmount(model.Cents(cents)),
		Category:       op.entry.Category,
	}
	if op.variant != "" && part == 0 && quarter%2 == 0 {
		rec.CompanyName = op.variant
	}
	if op.missing && part == 0 && quarter == 1 {
		rec.CompanyName = ""
	}
	// Only split rows go bad so every operator keeps its official name on record.
	if part > 0 && rng.Float64() < cfg.BadRowRate {
		rec.Quarter = "5T" + strconv.Itoa(year)
		ds.Stats.BadRows++
		return rec
	}

	op.total += model.Cents(cents)
	if rec.CompanyName != "" {
		op.named = true
	}
	return rec
}

// book records the operator total under the name the pipeline will report.
// Registered operators always end up with the official name. An unmatched operator
// keeps its placeholder only when no row carries its name; otherwise the
// placeholder rows conflict with the named ones and take the name.
func (ds *Dataset) book(op *operator) {
	name := op.entry.OfficialName
	switch {
	case op.registered:
	case !op.named:
		name = validate.Placeholder(op.entry.RegistrationID)
	case op.missing:
		ds.Stats.Conflicts++
	}
	ds.Expected[OperatorKey{Name: name, State: op.entry.State}] += op.total
}

func newOperator(rng *rand.Rand, i int, registered bool) (*operator, error) {
	base := fmt.Sprintf("%08d%04d", 10_000_000+i*7919%90_000_000, 1)
	taxID, err := cnpj.CheckDigits(base)
	if err != nil {
		return nil, err
	}
	name := fmt.Sprintf("%s %s %03d", nameParts[rng.IntN(len(nameParts))], nameParts[rng.IntN(len(nameParts))], i)
	return &operator{
		entry: model.RegistryEntry{
			RegistrationID: strconv.Itoa(300_000 + i),
			OfficialName:   strings.ToUpper(name),
			TaxID:          taxID,
			Category:       categories[rng.IntN(len(categories))],
			State:          states[rng.IntN(len(states))],
		},
		registered: registered,
		baseline:   1_000_00 + rng.Int64N(50_000_000_00),
	}, nil
}

func formatQuarter(rng *rand.Rand, quarter, year int) string {
	if rng.IntN(2) == 0 {
		return strconv.Itoa(quarter) + "T" + strconv.Itoa(year)
	}
	return strconv.Itoa(quarter)
}

// breakCheckDigit returns taxID with its last digit changed.
func breakCheckDigit(taxID string) string {
	last := taxID[len(taxID)-1]
	return taxID[:len(taxID)-1] + string('0'+(last-'0'+1)%10)
}

// FormatAmount renders cents in the Brazilian format used by ANS extracts: 1.234.567,89.
func FormatAmount(c model.Cents) string {
	v := int64(c)
	sign := ""
	if v < 0 {
		sign, v = "-", -v
	}
	whole := strconv.FormatInt(v/100, 10)
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return fmt.Sprintf("%s%s,%02d", sign, b.String(), v%100)
}
