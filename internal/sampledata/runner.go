package sampledata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	service "github.com/TheMarksan/healthcare-saas/internal/app"
	"github.com/TheMarksan/healthcare-saas/internal/config"
	"github.com/TheMarksan/healthcare-saas/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
)

// Run generates a dataset under cfg.Dir and, when cfg.Run is set, runs the
// pipeline over it and verifies the resulting metrics.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.Get()
	start := time.Now()

	log.Info(ctx, "starting sample data generation",
		logger.String("dir", cfg.Dir),
		logger.Int("operators", cfg.Operators),
		logger.Int("quarters", cfg.Quarters),
		logger.Any("seed", cfg.Seed),
		logger.Bool("run", cfg.Run))

	// Step 1: Generate
	ds, err := Generate(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	// Step 2: Write files
	if err := os.MkdirAll(cfg.Dir, directoryPermission); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	registryPath, expensesPath, err := ds.Write(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("write failed: %w", err)
	}
	log.Info(ctx, "dataset written", logger.String("registry", registryPath), logger.String("expenses", expensesPath))

	if cfg.Run {
		// Step 3: Run the pipeline
		pc := config.New()
		pc.RegistryPath = registryPath
		pc.ExpensesPath = expensesPath
		pc.OutputDir = filepath.Join(cfg.Dir, "out")
		if _, err := service.New(service.WithConfig(pc), service.WithLogger(log.Named("pipeline"))).Run(ctx); err != nil {
			return nil, fmt.Errorf("pipeline failed: %w", err)
		}

		// Step 4: Verify
		if err := Verify(ctx, filepath.Join(pc.OutputDir, filepath.FromSlash(service.MetricsFile)), ds.Expected); err != nil {
			return nil, fmt.Errorf("verification failed: %w", err)
		}
	}

	stats := ds.Stats
	stats.StartTime = start
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(start)
	if cfg.Verbose {
		log.Info(ctx, "sample data statistics",
			logger.Int("registry_rows", stats.RegistryRows),
			logger.Int("expense_rows", stats.ExpenseRows),
			logger.Int("bad_rows", stats.BadRows),
			logger.Int("conflicts", stats.Conflicts),
			logger.Int("unmatched_operators", stats.Unmatched),
			logger.Int("invalid_tax_ids", stats.InvalidTaxIDs),
			logger.String("duration", stats.Duration.String()))
	}
	return &stats, nil
}
