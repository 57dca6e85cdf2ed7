package repository

import "github.com/TheMarksan/healthcare-saas/pkg/logger"

const defaultBatchSize = 500

// Option applies a configuration option to the PostgresSink.
type Option func(*PostgresSink)

// WithBatchSize sets the number of rows per INSERT statement.
func WithBatchSize(n int) Option {
	return func(s *PostgresSink) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithLogger sets the sink logger.
func WithLogger(l logger.Logger) Option {
	return func(s *PostgresSink) {
		if l != nil {
			s.log = l
		}
	}
}
