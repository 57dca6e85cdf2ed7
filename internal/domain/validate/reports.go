package validate

import (
	"context"
	"sort"

	"github.com/TheMarksan/healthcare-saas/internal/domain/dedupe"
	"github.com/TheMarksan/healthcare-saas/internal/domain/model"
)

// UnmatchedTracker counts records whose registration ID is absent from the registry.
type UnmatchedTracker struct {
	order   dedupe.Deduper
	entries map[string]*model.UnmatchedRegistration
}

// NewUnmatchedTracker creates an empty tracker.
func NewUnmatchedTracker() *UnmatchedTracker {
	return &UnmatchedTracker{
		order:   dedupe.NewOrdered(dedupe.WithCapacity(64)),
		entries: make(map[string]*model.UnmatchedRegistration),
	}
}

// Observe counts rec when it has a registration ID that the registry did not match.
func (t *UnmatchedTracker) Observe(ctx context.Context, rec model.EnrichedRecord) {
	if rec.RegistryMatched || rec.RegistrationID == "" {
		return
	}
	if !t.order.SeenAndRecord(ctx, rec.RegistrationID) {
		t.entries[rec.RegistrationID] = &model.UnmatchedRegistration{
			RegistrationID:  rec.RegistrationID,
			PlaceholderName: rec.CompanyName,
		}
	}
	t.entries[rec.RegistrationID].RecordCount++
}

// Report returns one row per registration ID, by count descending then first appearance.
func (t *UnmatchedTracker) Report() []model.UnmatchedRegistration {
	out := make([]model.UnmatchedRegistration, 0, len(t.entries))
	for _, id := range t.order.Values() {
		out = append(out, *t.entries[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RecordCount > out[j].RecordCount })
	return out
}

// Len returns the number of distinct unmatched registration IDs.
func (t *UnmatchedTracker) Len() int { return int(t.order.Size()) }

// InvalidTracker counts records per tax ID that failed validation.
type InvalidTracker struct {
	order   dedupe.Deduper
	entries map[string]*model.InvalidCNPJ
}

// NewInvalidTracker creates an empty tracker.
func NewInvalidTracker() *InvalidTracker {
	return &InvalidTracker{
		order:   dedupe.NewOrdered(dedupe.WithCapacity(64)),
		entries: make(map[string]*model.InvalidCNPJ),
	}
}

// Observe counts rec when it carries CNPJInvalido.
func (t *InvalidTracker) Observe(ctx context.Context, rec model.EnrichedRecord) {
	if !rec.CNPJInvalido {
		return
	}
	if !t.order.SeenAndRecord(ctx, rec.TaxID) {
		t.entries[rec.TaxID] = &model.InvalidCNPJ{
			TaxID:          rec.TaxID,
			RegistrationID: rec.RegistrationID,
			CompanyName:    rec.CompanyName,
		}
	}
	t.entries[rec.TaxID].RecordCount++
}

// Report returns one row per invalid tax ID, by count descending then first appearance.
func (t *InvalidTracker) Report() []model.InvalidCNPJ {
	out := make([]model.InvalidCNPJ, 0, len(t.entries))
	for _, id := range t.order.Values() {
		out = append(out, *t.entries[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RecordCount > out[j].RecordCount })
	return out
}

// Len returns the number of distinct invalid tax IDs.
func (t *InvalidTracker) Len() int { return int(t.order.Size()) }
