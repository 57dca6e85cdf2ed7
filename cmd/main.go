package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/TheMarksan/healthcare-saas/internal/adapters/repository"
	app "github.com/TheMarksan/healthcare-saas/internal/app"
	"github.com/TheMarksan/healthcare-saas/internal/config"
	"github.com/TheMarksan/healthcare-saas/internal/domain/cnpj"
	"github.com/TheMarksan/healthcare-saas/pkg/logger"
	"github.com/TheMarksan/healthcare-saas/pkg/metrics"
)

// pushJob is the Pushgateway job name for run metrics.
const pushJob = "recon"

func main() {
	if err := logger.Init(); err != nil {
		// Use fmt for initialization errors since logger isn't available yet
		fmt.Fprintln(os.Stderr, "failed to initialize logging:", err)
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "recon",
		Short:        "Reconcile ANS operator expenses against the operator registry",
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd(), newCNPJCmd())
	return root
}

type runOptions struct {
	configPath  string
	registry    string
	expenses    string
	outputDir   string
	chunkSize   int
	cvThreshold float64
}

func newRunCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the reconciliation pipeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return runPipeline(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "YAML config file (default: $RECON_CONFIG)")
	cmd.Flags().StringVar(&opts.registry, "registry", "", "Operator registry CSV")
	cmd.Flags().StringVar(&opts.expenses, "expenses", "", "Consolidated expense CSV")
	cmd.Flags().StringVar(&opts.outputDir, "output-dir", "", "Directory receiving every output")
	cmd.Flags().IntVar(&opts.chunkSize, "chunk-size", 0, "Records processed per chunk")
	cmd.Flags().Float64Var(&opts.cvThreshold, "cv-threshold", 0, "Coefficient of variation above which an operator is flagged")
	return cmd
}

// loadConfig layers explicitly set flags over defaults, file and env.
func loadConfig(cmd *cobra.Command, opts runOptions) (*config.Config, error) {
	cfg, err := config.Load(cmd.Context(), opts.configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("registry") {
		cfg.RegistryPath = opts.registry
	}
	if flags.Changed("expenses") {
		cfg.ExpensesPath = opts.expenses
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir = opts.outputDir
	}
	if flags.Changed("chunk-size") {
		cfg.ChunkSize = opts.chunkSize
	}
	if flags.Changed("cv-threshold") {
		cfg.CVThreshold = opts.cvThreshold
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runPipeline(ctx context.Context, cfg *config.Config, out io.Writer) error {
	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithWriter(os.Stderr)); err != nil {
		return err
	}
	log := logger.Named("recon")
	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	opts := []app.Option{app.WithConfig(cfg), app.WithLogger(log)}
	if cfg.PostgresDSN != "" {
		sink, err := repository.OpenPostgres(ctx, cfg.PostgresDSN, repository.WithLogger(log.Named("sink")))
		if err != nil {
			return err
		}
		defer func() {
			if err := sink.Close(); err != nil {
				log.Warn(ctx, "closing sink failed", logger.Error(err))
			}
		}()
		opts = append(opts, app.WithSink(sink))
	}

	rep, runErr := app.New(opts...).Run(ctx)
	exportMetrics(ctx, cfg, log)
	if runErr != nil {
		return runErr
	}

	fmt.Fprintf(out, "run %s: %d records read, %d accepted, %d rejected, %d conflicts, %d operators ranked\n",
		rep.RunID, rep.SourceRecords, rep.Accepted, rep.Rejected, rep.Conflicts, rep.Operators)
	for _, path := range rep.Outputs {
		fmt.Fprintln(out, "  wrote", path)
	}
	return nil
}

// exportMetrics publishes run metrics. Failures are logged and never fail the run.
func exportMetrics(ctx context.Context, cfg *config.Config, log logger.Logger) {
	if cfg.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
			log.Warn(ctx, "metrics textfile export failed", logger.Error(err))
		}
	}
	if cfg.PushgatewayURL != "" {
		if err := metrics.Push(ctx, cfg.PushgatewayURL, pushJob); err != nil {
			log.Warn(ctx, "metrics push failed", logger.Error(err))
		}
	}
}

func newCNPJCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cnpj <value>...",
		Short: "Check CNPJ check digits",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, v := range args {
				status := "invalid"
				if cnpj.Valid(v) {
					status = "valid"
				}
				fmt.Fprintf(out, "%s\t%s\n", cnpj.Format(v), status)
			}
			return nil
		},
	}
}
