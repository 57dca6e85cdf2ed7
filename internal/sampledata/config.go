package sampledata

import "time"

// Config holds configuration for a sample dataset.
type Config struct {
	Dir       string // Output directory for the dataset and, when Run is set, the pipeline outputs
	Operators int    // Number of registered operators
	Quarters  int    // Consecutive quarters per operator, starting at StartYear Q1
	StartYear int
	Seed      uint64 // Seed for reproducible datasets

	// Fractions of operators receiving each data problem.
	ConflictRate    float64 // a second company name under the same tax ID
	MissingNameRate float64 // rows without company name
	UnmatchedRate   float64 // extra operators absent from the registry
	InvalidRate     float64 // share of unmatched operators with a wrong check digit
	BadRowRate      float64 // share of rows with an invalid quarter

	Run     bool // Run the pipeline over the dataset and verify its metrics
	Verbose bool
}

// DefaultConfig returns a small but varied dataset.
func DefaultConfig() *Config {
	return &Config{
		Dir:             "sample",
		Operators:       200,
		Quarters:        4,
		StartYear:       2024,
		Seed:            1,
		ConflictRate:    0.1,
		MissingNameRate: 0.05,
		UnmatchedRate:   0.1,
		InvalidRate:     0.3,
		BadRowRate:      0.01,
	}
}

// Stats holds generation and verification statistics.
type Stats struct {
	RegistryRows  int
	ExpenseRows   int
	BadRows       int
	Conflicts     int
	Unmatched     int
	InvalidTaxIDs int
	Operators     int
	StartTime     time.Time
	EndTime       time.Time
	Duration      time.Duration
}
