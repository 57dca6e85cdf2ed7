package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TheMarksan/healthcare-saas/internal/sampledata"
	"github.com/TheMarksan/healthcare-saas/pkg/logger"
)

const defaultTimeout = 10 * time.Minute

func main() {
	def := sampledata.DefaultConfig()
	var (
		dir       = flag.String("dir", def.Dir, "Output directory for the generated dataset")
		operators = flag.Int("operators", def.Operators, "Number of registered operators")
		quarters  = flag.Int("quarters", def.Quarters, "Number of consecutive quarters")
		startYear = flag.Int("start-year", def.StartYear, "Year of the first quarter")
		seed      = flag.Uint64("seed", def.Seed, "Random seed")
		conflicts = flag.Float64("conflict-rate", def.ConflictRate, "Fraction of operators reported under a second name")
		missing   = flag.Float64("missing-name-rate", def.MissingNameRate, "Fraction of operators with rows lacking a company name")
		unmatched = flag.Float64("unmatched-rate", def.UnmatchedRate, "Extra operators absent from the registry, as a fraction of operators")
		invalid   = flag.Float64("invalid-rate", def.InvalidRate, "Fraction of unmatched operators with a wrong CNPJ check digit")
		badRows   = flag.Float64("bad-row-rate", def.BadRowRate, "Fraction of split rows with an invalid quarter")
		run       = flag.Bool("run", false, "Run the pipeline over the dataset and verify its metrics")
		verbose   = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cfg := &sampledata.Config{
		Dir:             *dir,
		Operators:       *operators,
		Quarters:        *quarters,
		StartYear:       *startYear,
		Seed:            *seed,
		ConflictRate:    *conflicts,
		MissingNameRate: *missing,
		UnmatchedRate:   *unmatched,
		InvalidRate:     *invalid,
		BadRowRate:      *badRows,
		Run:             *run,
		Verbose:         *verbose,
	}
	if _, err := sampledata.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "sample data failed", logger.Error(err))
		stop()
		cancel()
		os.Exit(1)
	}
}
