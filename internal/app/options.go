package service

import (
	"time"

	"github.com/TheMarksan/healthcare-saas/internal/adapters/repository"
	"github.com/TheMarksan/healthcare-saas/internal/config"
	"github.com/TheMarksan/healthcare-saas/pkg/logger"
)

// Option applies a configuration option to the Pipeline.
type Option func(*Pipeline)

// WithConfig sets paths and tunables. config.New() is used otherwise.
func WithConfig(cfg *config.Config) Option {
	return func(p *Pipeline) {
		if cfg != nil {
			p.cfg = cfg
		}
	}
}

// WithLogger sets a custom logger for the pipeline.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithSink loads aggregates and metrics into s before outputs are committed.
func WithSink(s repository.Sink) Option {
	return func(p *Pipeline) {
		p.sink = s
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithRunID fixes the run identifier instead of generating one.
func WithRunID(id string) Option {
	return func(p *Pipeline) {
		if id != "" {
			p.newID = func() string { return id }
		}
	}
}
