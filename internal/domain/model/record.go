// Package model defines the record types that flow through the reconciliation pipeline.
package model

import (
	"fmt"
	"strings"
)

// RawRecord is one row of a quarterly expense extract, exactly as read.
// Empty strings stand for missing values.
type RawRecord struct {
	Line           int
	RegistrationID string
	CompanyName    string
	State          string
	Quarter        string
	Year           string
	TaxID          string
	ExpenseValue   string
	Category       string
}

// RegistryEntry is one operator of the official ANS registry.
type RegistryEntry struct {
	RegistrationID string
	OfficialName   string
	TaxID          string
	Category       string
	State          string
}

// Flags is the fixed set of quality markers attached to records and aggregates.
type Flags struct {
	CadastroIncompleto bool
	RazaoSocialAusente bool
	CNPJConflict       bool
	CNPJInvalido       bool
}

// Merge returns the field-wise OR of f and o.
func (f Flags) Merge(o Flags) Flags {
	return Flags{
		CadastroIncompleto: f.CadastroIncompleto || o.CadastroIncompleto,
		RazaoSocialAusente: f.RazaoSocialAusente || o.RazaoSocialAusente,
		CNPJConflict:       f.CNPJConflict || o.CNPJConflict,
		CNPJInvalido:       f.CNPJInvalido || o.CNPJInvalido,
	}
}

// Any reports whether at least one flag is raised.
func (f Flags) Any() bool {
	return f.CadastroIncompleto || f.RazaoSocialAusente || f.CNPJConflict || f.CNPJInvalido
}

// EnrichedRecord is a record after registry join and validation.
// Stages receive it by value and return an updated copy.
type EnrichedRecord struct {
	Line            int
	RegistrationID  string
	CompanyName     string
	OfficialName    string
	State           string
	Quarter         int
	Year            int
	TaxID           string
	Category        string
	ExpenseValue    string
	RegistryMatched bool
	Flags
}

// Period returns a comparable (year, quarter) ordinal.
func (r EnrichedRecord) Period() int {
	return r.Year*10 + r.Quarter
}

// Cents is a monetary amount in hundredths of a real.
type Cents int64

// Float returns the amount in reais.
func (c Cents) Float() float64 {
	return float64(c) / 100
}

// String formats the amount with two decimals and a dot separator.
func (c Cents) String() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// AggregateKey identifies one aggregated row.
type AggregateKey struct {
	CompanyName string
	State       string
	Quarter     int
	Year        int
}

// Less orders keys by company name, state, year and quarter.
func (k AggregateKey) Less(o AggregateKey) bool {
	if c := strings.Compare(k.CompanyName, o.CompanyName); c != 0 {
		return c < 0
	}
	if c := strings.Compare(k.State, o.State); c != 0 {
		return c < 0
	}
	if k.Year != o.Year {
		return k.Year < o.Year
	}
	return k.Quarter < o.Quarter
}

// AggregatedRecord is the per (company, state, quarter, year) expense total.
type AggregatedRecord struct {
	AggregateKey
	TaxID          string
	RegistrationID string
	Category       string
	TotalExpense   Cents
	Flags
}

// OperatorMetric is the per (company, state) statistical summary and rank.
type OperatorMetric struct {
	Ranking                int
	CompanyName            string
	State                  string
	TotalExpense           float64
	MeanQuarterly          float64
	StdDev                 float64
	CoefficientOfVariation float64
	HighVariability        bool
	QuarterCount           int
	Flags
	RegistrationID string
	Category       string
	TaxID          string
}

// ConflictEntry lists the distinct names observed for one tax ID.
type ConflictEntry struct {
	TaxID      string
	NamesFound []string
	Canonical  string
}

// UnmatchedRegistration is one registration ID absent from the registry.
type UnmatchedRegistration struct {
	RegistrationID  string
	RecordCount     int
	PlaceholderName string
}

// InvalidCNPJ is one tax ID failing check-digit validation.
type InvalidCNPJ struct {
	TaxID          string
	RegistrationID string
	CompanyName    string
	RecordCount    int
}
