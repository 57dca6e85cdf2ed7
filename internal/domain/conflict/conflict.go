// Package conflict resolves tax IDs that appear under more than one company name.
//
// Resolution runs in two phases so that records never need to be held in memory:
// Observe every record once to build the tax ID -> names map, call Resolve, then
// stream the records again through Resolution.Apply.
package conflict

import (
	"context"
	"sort"

	"github.com/TheMarksan/healthcare-saas/internal/domain/dedupe"
	"github.com/TheMarksan/healthcare-saas/internal/domain/model"
	"github.com/TheMarksan/healthcare-saas/pkg/logger"
)

// Registry resolves tax IDs to registry entries.
type Registry interface {
	ByTaxID(taxID string) (model.RegistryEntry, bool)
}

type candidate struct {
	names      dedupe.Deduper
	recentName string
	recentAt   int
}

// Resolver accumulates names per tax ID during phase one.
type Resolver struct {
	logger     logger.Logger
	taxIDs     dedupe.Deduper
	candidates map[string]*candidate
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the resolver logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates an empty Resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		logger:     logger.Nop(),
		taxIDs:     dedupe.NewOrdered(dedupe.WithCapacity(1024)),
		candidates: make(map[string]*candidate),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Observe records the name carried by rec under its tax ID.
// Records without a tax ID are ignored. Placeholder names count towards a conflict
// but are never chosen as the canonical name.
// Among records sharing the latest (year, quarter), the first observed wins.
func (r *Resolver) Observe(ctx context.Context, rec model.EnrichedRecord) {
	if rec.TaxID == "" || rec.CompanyName == "" {
		return
	}
	c, ok := r.candidates[rec.TaxID]
	if !ok {
		r.taxIDs.SeenAndRecord(ctx, rec.TaxID)
		c = &candidate{names: dedupe.NewOrdered()}
		r.candidates[rec.TaxID] = c
	}
	c.names.SeenAndRecord(ctx, rec.CompanyName)
	if rec.RazaoSocialAusente {
		return
	}
	if c.recentName == "" || rec.Period() > c.recentAt {
		c.recentName, c.recentAt = rec.CompanyName, rec.Period()
	}
}

// TaxIDs returns the number of distinct tax IDs observed.
func (r *Resolver) TaxIDs() int { return int(r.taxIDs.Size()) }

// Resolve picks a canonical name for every tax ID seen under more than one name.
// The registry name for the tax ID wins; otherwise the most recent real name is used.
// A tax ID seen only under placeholders keeps the first placeholder observed.
func (r *Resolver) Resolve(ctx context.Context, reg Registry) *Resolution {
	res := &Resolution{canonical: make(map[string]string)}
	fromRegistry := 0
	for _, taxID := range r.taxIDs.Values() {
		c := r.candidates[taxID]
		if c.names.Size() < 2 {
			continue
		}
		name := c.recentName
		if name == "" {
			name = c.names.Values()[0]
		}
		if entry, ok := reg.ByTaxID(taxID); ok && entry.OfficialName != "" {
			name = entry.OfficialName
			fromRegistry++
		}
		res.canonical[taxID] = name
		res.entries = append(res.entries, model.ConflictEntry{
			TaxID:      taxID,
			NamesFound: c.names.Values(),
			Canonical:  name,
		})
		r.logger.Debug(ctx, "tax id conflict resolved",
			logger.String("tax_id", taxID),
			logger.Int("names", int(c.names.Size())),
			logger.String("canonical", name))
	}
	sort.Slice(res.entries, func(i, j int) bool { return res.entries[i].TaxID < res.entries[j].TaxID })

	if len(res.entries) > 0 {
		r.logger.Warn(ctx, "tax ids with conflicting company names",
			logger.Int("conflicts", len(res.entries)),
			logger.Int("resolved_by_registry", fromRegistry),
			logger.Int("resolved_by_recency", len(res.entries)-fromRegistry))
	}
	return res
}

// Resolution is the immutable outcome of phase one.
type Resolution struct {
	canonical map[string]string
	entries   []model.ConflictEntry
}

// Apply returns rec renamed to the canonical name and flagged when its tax ID is in conflict.
// Outside a conflict, a registry-matched record takes the official name.
func (res *Resolution) Apply(rec model.EnrichedRecord) model.EnrichedRecord {
	if name, ok := res.canonical[rec.TaxID]; ok && rec.TaxID != "" {
		rec.CompanyName = name
		rec.CNPJConflict = true
		return rec
	}
	if rec.RegistryMatched && rec.OfficialName != "" {
		rec.CompanyName = rec.OfficialName
	}
	return rec
}

// ApplyAll applies the resolution to a chunk, returning a new slice.
func (res *Resolution) ApplyAll(recs []model.EnrichedRecord) []model.EnrichedRecord {
	out := make([]model.EnrichedRecord, len(recs))
	for i, r := range recs {
		out[i] = res.Apply(r)
	}
	return out
}

// Canonical returns the canonical name of a conflicting tax ID.
func (res *Resolution) Canonical(taxID string) (string, bool) {
	name, ok := res.canonical[taxID]
	return name, ok
}

// Report returns one entry per conflicting tax ID, sorted by tax ID.
func (res *Resolution) Report() []model.ConflictEntry {
	out := make([]model.ConflictEntry, len(res.entries))
	copy(out, res.entries)
	return out
}

// Len returns the number of conflicting tax IDs.
func (res *Resolution) Len() int { return len(res.entries) }
