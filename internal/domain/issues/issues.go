// Package issues collects non-fatal data problems found during a run.
package issues

import "sort"

// Kind classifies an issue.
type Kind string

// Issue kinds.
const (
	InvalidQuarter        Kind = "invalid_quarter"
	InvalidYear           Kind = "invalid_year"
	InvalidAmount         Kind = "invalid_amount"
	DuplicateRegistration Kind = "duplicate_registration"
	DuplicateTaxID        Kind = "duplicate_registry_taxid"
)

const defaultMaxStored = 10_000

// Issue is one recoverable problem tied to a source line.
type Issue struct {
	Line   int
	Kind   Kind
	Field  string
	Value  string
	Detail string
}

// Collector accumulates issues. Counts are exact; stored entries are capped.
// It is not safe for concurrent use.
type Collector struct {
	maxStored int
	items     []Issue
	counts    map[Kind]int
	total     int
}

// Option configures a Collector.
type Option func(*Collector)

// WithMaxStored caps the number of issues kept in memory. Zero or less keeps none.
func WithMaxStored(n int) Option {
	return func(c *Collector) {
		c.maxStored = n
	}
}

// NewCollector creates an empty Collector.
func NewCollector(opts ...Option) *Collector {
	c := &Collector{
		maxStored: defaultMaxStored,
		counts:    make(map[Kind]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Add records an issue.
func (c *Collector) Add(i Issue) {
	c.total++
	c.counts[i.Kind]++
	if len(c.items) < c.maxStored {
		c.items = append(c.items, i)
	}
}

// Issues returns the stored issues in the order they were added.
func (c *Collector) Issues() []Issue {
	out := make([]Issue, len(c.items))
	copy(out, c.items)
	return out
}

// Count returns the number of issues of kind.
func (c *Collector) Count(kind Kind) int { return c.counts[kind] }

// Total returns the number of issues added, stored or not.
func (c *Collector) Total() int { return c.total }

// Truncated reports whether some issues were counted but not stored.
func (c *Collector) Truncated() bool { return c.total > len(c.items) }

// Kinds returns the kinds seen so far, sorted.
func (c *Collector) Kinds() []Kind {
	out := make([]Kind, 0, len(c.counts))
	for k := range c.counts {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
