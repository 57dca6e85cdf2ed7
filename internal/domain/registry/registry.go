// Package registry provides read-only lookups over the official operator registry.
package registry

import (
	"context"
	"strings"

	"github.com/TheMarksan/healthcare-saas/internal/domain/issues"
	"github.com/TheMarksan/healthcare-saas/internal/domain/model"
	"github.com/TheMarksan/healthcare-saas/pkg/logger"
)

// Lookup indexes registry entries by registration ID and by tax ID.
// It is built once and never written afterwards, so concurrent reads are safe.
type Lookup struct {
	byRegistration map[string]model.RegistryEntry
	byTaxID        map[string]model.RegistryEntry
}

// Option configures New.
type Option func(*builder)

type builder struct {
	logger logger.Logger
	issues *issues.Collector
}

// WithLogger sets the logger used for duplicate warnings.
func WithLogger(l logger.Logger) Option {
	return func(b *builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithIssues records duplicate keys in c.
func WithIssues(c *issues.Collector) Option {
	return func(b *builder) {
		b.issues = c
	}
}

// New builds a Lookup. Keys are trimmed. On a duplicate registration ID the
// later row is discarded entirely; on a shared tax ID the first row wins.
func New(ctx context.Context, entries []model.RegistryEntry, opts ...Option) *Lookup {
	b := &builder{logger: logger.Nop()}
	for _, opt := range opts {
		opt(b)
	}

	l := &Lookup{
		byRegistration: make(map[string]model.RegistryEntry, len(entries)),
		byTaxID:        make(map[string]model.RegistryEntry, len(entries)),
	}
	for i, e := range entries {
		e = trimEntry(e)
		if e.RegistrationID != "" {
			if _, dup := l.byRegistration[e.RegistrationID]; dup {
				b.logger.Warn(ctx, "duplicate registration in registry; keeping first",
					logger.String("registration_id", e.RegistrationID))
				b.record(i, issues.DuplicateRegistration, "REGISTRO_OPERADORA", e.RegistrationID)
				continue
			}
			l.byRegistration[e.RegistrationID] = e
		}
		if e.TaxID != "" {
			if _, dup := l.byTaxID[e.TaxID]; dup {
				b.logger.Debug(ctx, "tax id shared by several registrations; keeping first",
					logger.String("tax_id", e.TaxID))
				b.record(i, issues.DuplicateTaxID, "CNPJ", e.TaxID)
			} else {
				l.byTaxID[e.TaxID] = e
			}
		}
	}
	return l
}

func (b *builder) record(idx int, kind issues.Kind, field, value string) {
	if b.issues == nil {
		return
	}
	// header is line 1
	b.issues.Add(issues.Issue{Line: idx + 2, Kind: kind, Field: field, Value: value, Detail: "registry"})
}

// ByRegistration returns the entry for a registration ID.
func (l *Lookup) ByRegistration(id string) (model.RegistryEntry, bool) {
	e, ok := l.byRegistration[strings.TrimSpace(id)]
	return e, ok
}

// ByTaxID returns the first registry entry carrying taxID.
func (l *Lookup) ByTaxID(taxID string) (model.RegistryEntry, bool) {
	e, ok := l.byTaxID[strings.TrimSpace(taxID)]
	return e, ok
}

// Len returns the number of distinct registration IDs.
func (l *Lookup) Len() int { return len(l.byRegistration) }

func trimEntry(e model.RegistryEntry) model.RegistryEntry {
	return model.RegistryEntry{
		RegistrationID: strings.TrimSpace(e.RegistrationID),
		OfficialName:   strings.TrimSpace(e.OfficialName),
		TaxID:          strings.TrimSpace(e.TaxID),
		Category:       strings.TrimSpace(e.Category),
		State:          strings.TrimSpace(e.State),
	}
}
