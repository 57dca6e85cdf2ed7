// Package dedupe tracks distinct values in first-occurrence order.
package dedupe

import "context"

// Deduper records values and remembers the order they were first seen.
type Deduper interface {
	// SeenAndRecord reports whether v was already recorded and records it if not.
	SeenAndRecord(ctx context.Context, v string) bool
	// Values returns the recorded values in first-occurrence order.
	Values() []string
	// Index returns the first-occurrence position of v, or -1.
	Index(v string) int
	Size() int64
}

// orderedDeduper keeps a map for membership and a slice for order.
// Values are never evicted. It is not safe for concurrent use.
type orderedDeduper struct {
	seen  map[string]int
	order []string
}

// NewOrdered creates an empty Deduper.
func NewOrdered(opts ...Option) Deduper {
	cfg := config{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &orderedDeduper{
		seen:  make(map[string]int, cfg.capacity),
		order: make([]string, 0, cfg.capacity),
	}
}

func (d *orderedDeduper) SeenAndRecord(_ context.Context, v string) bool {
	if _, ok := d.seen[v]; ok {
		return true
	}
	d.seen[v] = len(d.order)
	d.order = append(d.order, v)
	return false
}

func (d *orderedDeduper) Values() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

func (d *orderedDeduper) Index(v string) int {
	if i, ok := d.seen[v]; ok {
		return i
	}
	return -1
}

func (d *orderedDeduper) Size() int64 {
	return int64(len(d.order))
}
