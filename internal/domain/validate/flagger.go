// Package validate flags enriched records and tracks the side reports derived from them.
package validate

import (
	"context"
	"fmt"

	"github.com/TheMarksan/healthcare-saas/internal/domain/cnpj"
	"github.com/TheMarksan/healthcare-saas/internal/domain/model"
	"github.com/TheMarksan/healthcare-saas/pkg/logger"
)

// NoRegistration replaces the registration ID in placeholders for records without one.
const NoRegistration = "SEM_REG_ANS"

// Placeholder returns the synthetic name used for records without a company name.
func Placeholder(registrationID string) string {
	if registrationID == "" {
		registrationID = NoRegistration
	}
	return fmt.Sprintf("OPERADORA [%s]", registrationID)
}

// Flagger applies the missing-name and tax ID checks. It never drops records.
type Flagger struct {
	logger       logger.Logger
	missingNames int
	invalidIDs   int
}

// Option configures a Flagger.
type Option func(*Flagger)

// WithLogger sets the logger for per-chunk warnings.
func WithLogger(l logger.Logger) Option {
	return func(f *Flagger) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFlagger creates a Flagger.
func NewFlagger(opts ...Option) *Flagger {
	f := &Flagger{logger: logger.Nop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Flag returns a copy of rec with RazaoSocialAusente and CNPJInvalido evaluated.
func (f *Flagger) Flag(rec model.EnrichedRecord) model.EnrichedRecord {
	if rec.CompanyName == "" {
		rec.RazaoSocialAusente = true
		rec.CompanyName = Placeholder(rec.RegistrationID)
		f.missingNames++
	}
	if rec.TaxID != "" && !rec.CadastroIncompleto {
		rec.CNPJInvalido = !cnpj.Valid(rec.TaxID)
		if rec.CNPJInvalido {
			f.invalidIDs++
		}
	}
	return rec
}

// FlagAll flags a chunk, returning a new slice in the same order.
func (f *Flagger) FlagAll(ctx context.Context, recs []model.EnrichedRecord) []model.EnrichedRecord {
	missing, invalid := f.missingNames, f.invalidIDs
	out := make([]model.EnrichedRecord, len(recs))
	for i, r := range recs {
		out[i] = f.Flag(r)
	}
	if n := f.missingNames - missing; n > 0 {
		f.logger.Warn(ctx, "records without company name; placeholder applied", logger.Int("count", n))
	}
	if n := f.invalidIDs - invalid; n > 0 {
		f.logger.Warn(ctx, "records with invalid tax id", logger.Int("count", n))
	}
	return out
}

// MissingNames returns how many records received a placeholder name.
func (f *Flagger) MissingNames() int { return f.missingNames }

// InvalidTaxIDs returns how many records failed tax ID validation.
func (f *Flagger) InvalidTaxIDs() int { return f.invalidIDs }
