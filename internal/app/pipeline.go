// Package service runs the reconciliation pipeline: it reads the registry and
// the expense extract, reconciles identities, aggregates and ranks operators,
// and commits every output together.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/TheMarksan/healthcare-saas/internal/adapters/csvio"
	"github.com/TheMarksan/healthcare-saas/internal/adapters/repository"
	"github.com/TheMarksan/healthcare-saas/internal/config"
	"github.com/TheMarksan/healthcare-saas/internal/domain/aggregate"
	"github.com/TheMarksan/healthcare-saas/internal/domain/conflict"
	"github.com/TheMarksan/healthcare-saas/internal/domain/enrich"
	"github.com/TheMarksan/healthcare-saas/internal/domain/issues"
	"github.com/TheMarksan/healthcare-saas/internal/domain/model"
	"github.com/TheMarksan/healthcare-saas/internal/domain/ranking"
	"github.com/TheMarksan/healthcare-saas/internal/domain/registry"
	"github.com/TheMarksan/healthcare-saas/internal/domain/validate"
	"github.com/TheMarksan/healthcare-saas/pkg/logger"
	"github.com/TheMarksan/healthcare-saas/pkg/metrics"
)

// Output files, relative to the output directory.
const (
	EnrichedFile   = "consolidado_despesas_enriquecido.csv"
	AggregatedFile = "consolidado_despesas_agrupado.csv"
	MetricsFile    = "metrics/metricas_operadoras.csv"
	ConflictsFile  = "logs/data_equality_issues.csv"
	UnmatchedFile  = "logs/unmatched_reg_ans.csv"
	InvalidFile    = "logs/invalid_cnpjs.csv"
	IssuesFile     = "logs/parse_issues.csv"
	SummaryFile    = "reports/relatorio_agregacao.json"

	stageFile    = "enriched.stage.csv"
	workbookFile = "workbook.xlsx"
)

// Report summarizes a successful run.
type Report struct {
	RunID         string
	SourceRecords int
	enrich.Result
	Conflicts              int
	UnmatchedRegistrations int
	InvalidTaxIDs          int
	AggregatedRows         int
	Operators              int
	HighVariability        int
	Issues                 int
	// Outputs lists committed files, in write order.
	Outputs  []string
	Duration time.Duration
}

// Pipeline runs the reconciliation. A Pipeline may run more than once; runs share nothing.
type Pipeline struct {
	cfg    *config.Config
	logger logger.Logger
	sink   repository.Sink
	now    func() time.Time
	newID  func() string
}

// New constructs a Pipeline with default configuration.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:    config.New(),
		logger: logger.Nop(),
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one full reconciliation. Outputs are staged next to the output
// directory and moved into place only when every stage succeeded; on error
// nothing is committed.
func (p *Pipeline) Run(ctx context.Context) (rep *Report, err error) {
	start := p.now()
	r := p.newRun()
	defer func() {
		metrics.RecordRun(err == nil, p.now().Sub(start), p.now())
	}()

	r.log.Info(ctx, "run started",
		logger.String("registry", p.cfg.RegistryPath),
		logger.String("expenses", p.cfg.ExpensesPath),
		logger.String("output_dir", p.cfg.OutputDir))

	if err := os.MkdirAll(r.staging, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStaging, err)
	}
	defer func() {
		if rmErr := os.RemoveAll(r.staging); rmErr != nil {
			r.log.Warn(ctx, "staging cleanup failed", logger.Error(rmErr))
		}
	}()

	steps := []struct {
		stage string
		fn    func(context.Context) error
	}{
		{metrics.StageRegistry, r.loadRegistry},
		{metrics.StageEnrich, r.observe},
		{metrics.StageResolve, r.resolve},
		{metrics.StageAggregate, r.apply},
		{metrics.StageMetrics, r.rank},
		{metrics.StageWrite, r.writeOutputs},
		{metrics.StageSink, r.load},
	}
	for _, s := range steps {
		began := p.now()
		if err := s.fn(ctx); err != nil {
			r.log.Error(ctx, "run failed", logger.String("stage", s.stage), logger.Error(err))
			return nil, err
		}
		metrics.RecordStageDuration(s.stage, p.now().Sub(began))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.commit(); err != nil {
		r.log.Error(ctx, "commit failed", logger.Error(err))
		return nil, err
	}

	r.publishMetrics()
	r.report.Duration = p.now().Sub(start)
	r.log.Info(ctx, "run completed",
		logger.Int("source_records", r.report.SourceRecords),
		logger.Int("accepted", r.report.Accepted),
		logger.Int("rejected", r.report.Rejected),
		logger.Int("conflicts", r.report.Conflicts),
		logger.Int("operators", r.report.Operators),
		logger.Int("issues", r.report.Issues),
		logger.Any("duration", r.report.Duration))
	return &r.report, nil
}

// run holds the state of one execution.
type run struct {
	cfg     *config.Config
	log     logger.Logger
	sink    repository.Sink
	now     func() time.Time
	staging string

	issues     *issues.Collector
	lookup     *registry.Lookup
	flagger    *validate.Flagger
	unmatched  *validate.UnmatchedTracker
	invalid    *validate.InvalidTracker
	resolver   *conflict.Resolver
	resolution *conflict.Resolution
	aggregator *aggregate.Aggregator
	metrics    []model.OperatorMetric
	flagCounts map[string]int

	// staged -> final paths, in write order.
	outputs [][2]string
	report  Report
}

func (p *Pipeline) newRun() *run {
	id := p.newID()
	log := p.logger.With(logger.String("run_id", id))
	col := issues.NewCollector(issues.WithMaxStored(p.cfg.MaxIssues))
	return &run{
		cfg:        p.cfg,
		log:        log,
		sink:       p.sink,
		now:        p.now,
		staging:    filepath.Join(p.cfg.OutputDir, ".staging-"+id),
		issues:     col,
		flagger:    validate.NewFlagger(validate.WithLogger(log)),
		unmatched:  validate.NewUnmatchedTracker(),
		invalid:    validate.NewInvalidTracker(),
		resolver:   conflict.New(conflict.WithLogger(log)),
		aggregator: aggregate.New(aggregate.WithLogger(log), aggregate.WithIssues(col)),
		flagCounts: make(map[string]int),
		report:     Report{RunID: id},
	}
}

func (r *run) loadRegistry(ctx context.Context) error {
	entries, err := csvio.ReadRegistry(ctx, r.cfg.RegistryPath, csvio.WithEncoding(r.cfg.InputEncoding))
	if err != nil {
		return err
	}
	r.lookup = registry.New(ctx, entries, registry.WithLogger(r.log), registry.WithIssues(r.issues))
	r.log.Info(ctx, "registry loaded", logger.Int("rows", len(entries)), logger.Int("operators", r.lookup.Len()))
	return nil
}

// observe is phase one: enrich, flag and stage every record while the
// resolver collects names per tax ID.
func (r *run) observe(ctx context.Context) error {
	src, err := csvio.OpenExpenses(r.cfg.ExpensesPath, csvio.WithEncoding(r.cfg.InputEncoding))
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	stage, err := csvio.CreateStaging(r.stagePath(stageFile))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStaging, err)
	}

	enricher := enrich.New(r.lookup, enrich.WithLogger(r.log), enrich.WithIssues(r.issues))
	for {
		chunk, err := src.Next(ctx, r.cfg.ChunkSize)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			_ = stage.Close()
			return err
		}
		metrics.RecordRecordsRead(len(chunk))

		recs, res := enricher.Enrich(ctx, chunk)
		r.report.Result.Add(res)
		recs = r.flagger.FlagAll(ctx, recs)
		for _, rec := range recs {
			r.unmatched.Observe(ctx, rec)
			r.invalid.Observe(ctx, rec)
			r.resolver.Observe(ctx, rec)
		}
		if err := stage.Write(recs); err != nil {
			_ = stage.Close()
			return fmt.Errorf("%w: %w", ErrStaging, err)
		}
		metrics.RecordChunkProcessed()
	}
	if err := stage.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrStaging, err)
	}

	r.report.SourceRecords = src.Read()
	r.log.Info(ctx, "records enriched",
		logger.Int("read", r.report.SourceRecords),
		logger.Int("accepted", r.report.Accepted),
		logger.Int("rejected", r.report.Rejected),
		logger.Int("matched", r.report.Matched),
		logger.Int("unmatched", r.report.Unmatched))
	if r.report.Accepted == 0 {
		return ErrNoValidRecords
	}
	return nil
}

func (r *run) resolve(ctx context.Context) error {
	r.resolution = r.resolver.Resolve(ctx, r.lookup)
	r.report.Conflicts = r.resolution.Len()
	return ctx.Err()
}

// apply is phase two: canonical names are applied to the staged records, which
// are then written out and aggregated.
func (r *run) apply(ctx context.Context) error {
	stage, err := csvio.OpenEnriched(r.stagePath(stageFile))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStaging, err)
	}
	defer func() { _ = stage.Close() }()

	out, err := csvio.CreateEnriched(r.stagePath(EnrichedFile))
	if err != nil {
		return err
	}
	for {
		chunk, err := stage.Next(ctx, r.cfg.ChunkSize)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			_ = out.Close()
			return err
		}
		recs := r.resolution.ApplyAll(chunk)
		r.countFlags(recs)
		if err := out.Write(recs); err != nil {
			_ = out.Close()
			return err
		}
		if err := r.aggregator.AddChunk(ctx, recs); err != nil {
			_ = out.Close()
			return err
		}
	}
	if err := out.Close(); err != nil {
		return err
	}
	r.track(EnrichedFile)

	r.report.AggregatedRows = r.aggregator.Len()
	r.log.Info(ctx, "records aggregated",
		logger.Int("records", r.aggregator.Records()),
		logger.Int("groups", r.aggregator.Len()),
		logger.Int("coerced_amounts", r.aggregator.Coerced()))
	return nil
}

func (r *run) countFlags(recs []model.EnrichedRecord) {
	for _, rec := range recs {
		if rec.CadastroIncompleto {
			r.flagCounts[csvio.ColCadastroIncompleto]++
		}
		if rec.RazaoSocialAusente {
			r.flagCounts[csvio.ColRazaoSocialAusente]++
		}
		if rec.CNPJConflict {
			r.flagCounts[csvio.ColCNPJConflict]++
		}
		if rec.CNPJInvalido {
			r.flagCounts[csvio.ColCNPJInvalido]++
		}
	}
}

func (r *run) rank(ctx context.Context) error {
	engine := ranking.New(ranking.WithThreshold(r.cfg.CVThreshold), ranking.WithLogger(r.log))
	r.metrics = engine.Compute(ctx, r.aggregator.Rows())
	r.report.Operators = len(r.metrics)
	for _, m := range r.metrics {
		if m.HighVariability {
			r.report.HighVariability++
		}
	}
	return ctx.Err()
}

func (r *run) load(ctx context.Context) error {
	if r.sink == nil {
		return nil
	}
	res, err := r.sink.Load(ctx, repository.Batch{
		RunID:         r.report.RunID,
		SourceFile:    filepath.Base(r.cfg.ExpensesPath),
		SourceRecords: r.report.SourceRecords,
		Rejected:      r.report.Rejected,
		Aggregated:    r.aggregator.Rows(),
		Metrics:       r.metrics,
	})
	if err != nil {
		return err
	}
	metrics.RecordRowsLoaded(repository.TableAggregated, res.Aggregated)
	metrics.RecordRowsLoaded(repository.TableMetrics, res.Metrics)
	return nil
}

func (r *run) publishMetrics() {
	metrics.RecordRecordsAccepted(r.report.Accepted)
	metrics.RecordRecordsRejected(string(issues.InvalidQuarter), r.issues.Count(issues.InvalidQuarter))
	metrics.RecordRecordsRejected(string(issues.InvalidYear), r.issues.Count(issues.InvalidYear))
	for _, kind := range r.issues.Kinds() {
		metrics.RecordIssues(string(kind), r.issues.Count(kind))
	}
	for flag, n := range r.flagCounts {
		metrics.RecordFlag(flag, n)
	}
	metrics.UpdateConflicts(r.report.Conflicts)
	metrics.UpdateUnmatchedRegistrations(r.report.UnmatchedRegistrations)
	metrics.UpdateInvalidTaxIDs(r.report.InvalidTaxIDs)
	metrics.UpdateAggregatedRows(r.report.AggregatedRows)
	metrics.UpdateOperatorsRanked(r.report.Operators, r.report.HighVariability)
}
