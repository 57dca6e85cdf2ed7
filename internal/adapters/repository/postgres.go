package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/TheMarksan/healthcare-saas/internal/domain/model"
	"github.com/TheMarksan/healthcare-saas/pkg/logger"
)

// Tables written by the sink. Their schema is managed outside this job.
const (
	TableAggregated = "despesas_agregadas"
	TableMetrics    = "metricas_operadoras"
	TableImportLogs = "import_logs"
)

// Import statuses recorded in import_logs.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
)

var (
	aggregatedColumns = []string{
		"razao_social", "uf", "trimestre", "ano", "cnpj", "registro_ans", "modalidade", "valor_despesas",
		"cnpj_conflict", "razao_social_ausente", "cadastro_incompleto", "cnpj_invalido", "run_id",
	}
	aggregatedKey = "razao_social, uf, trimestre, ano"

	metricsColumns = []string{
		"ranking", "razao_social", "uf", "total_despesas", "media_trimestral", "desvio_padrao",
		"coeficiente_variacao", "alta_variabilidade", "quantidade_trimestres",
		"cnpj_conflict", "razao_social_ausente", "cadastro_incompleto",
		"registro_ans", "modalidade", "cnpj", "run_id",
	}
	metricsKey = "razao_social, uf"
)

// PostgresSink writes batches to Postgres through lib/pq.
type PostgresSink struct {
	db        *sql.DB
	sb        sq.StatementBuilderType
	batchSize int
	log       logger.Logger
}

var _ Sink = (*PostgresSink)(nil)

// NewPostgresSink wires an existing database handle.
func NewPostgresSink(db *sql.DB, opts ...Option) *PostgresSink {
	s := &PostgresSink{
		db:        db,
		sb:        sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		batchSize: defaultBatchSize,
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenPostgres opens and pings a database from a lib/pq DSN.
func OpenPostgres(ctx context.Context, dsn string, opts ...Option) (*PostgresSink, error) {
	if dsn == "" {
		return nil, ErrNoDatabase
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewPostgresSink(db, opts...), nil
}

// Load writes one import log per table plus every row in a single transaction.
func (s *PostgresSink) Load(ctx context.Context, b Batch) (res Result, err error) {
	if s.db == nil {
		return res, ErrNoDatabase
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("%w: begin: %w", ErrLoad, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			s.logFailure(ctx, err)
		}
	}()

	aggLog, err := s.startLog(ctx, tx, b, "despesas")
	if err != nil {
		return res, err
	}
	for _, chunk := range chunks(len(b.Aggregated), s.batchSize) {
		q, args, err := s.aggregatedUpsert(b.RunID, b.Aggregated[chunk[0]:chunk[1]]).ToSql()
		if err != nil {
			return res, fmt.Errorf("%w: build %s: %w", ErrLoad, TableAggregated, err)
		}
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return res, fmt.Errorf("%w: %s: %w", ErrLoad, TableAggregated, err)
		}
		res.Aggregated += chunk[1] - chunk[0]
	}
	if err := s.finishLog(ctx, tx, aggLog, b.SourceRecords, res.Aggregated, b.Rejected); err != nil {
		return res, err
	}

	metLog, err := s.startLog(ctx, tx, b, "metricas")
	if err != nil {
		return res, err
	}
	for _, chunk := range chunks(len(b.Metrics), s.batchSize) {
		q, args, err := s.metricsUpsert(b.RunID, b.Metrics[chunk[0]:chunk[1]]).ToSql()
		if err != nil {
			return res, fmt.Errorf("%w: build %s: %w", ErrLoad, TableMetrics, err)
		}
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return res, fmt.Errorf("%w: %s: %w", ErrLoad, TableMetrics, err)
		}
		res.Metrics += chunk[1] - chunk[0]
	}
	if err := s.finishLog(ctx, tx, metLog, len(b.Aggregated), res.Metrics, 0); err != nil {
		return res, err
	}

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("%w: commit: %w", ErrLoad, err)
	}
	s.log.Info(ctx, "batch loaded",
		logger.String("run_id", b.RunID),
		logger.Int("aggregated_rows", res.Aggregated),
		logger.Int("metric_rows", res.Metrics))
	return res, nil
}

// Close releases the database handle.
func (s *PostgresSink) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PostgresSink) startLog(ctx context.Context, tx *sql.Tx, b Batch, importType string) (int64, error) {
	q, args, err := s.importLogInsert(b.RunID, importType, b.SourceFile).ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: build %s: %w", ErrLoad, TableImportLogs, err)
	}
	var id int64
	if err := tx.QueryRowContext(ctx, q, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrLoad, TableImportLogs, err)
	}
	return id, nil
}

func (s *PostgresSink) finishLog(ctx context.Context, tx *sql.Tx, id int64, total, success, reject int) error {
	q, args, err := s.importLogUpdate(id, total, success, reject).ToSql()
	if err != nil {
		return fmt.Errorf("%w: build %s: %w", ErrLoad, TableImportLogs, err)
	}
	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrLoad, TableImportLogs, err)
	}
	return nil
}

func (s *PostgresSink) logFailure(ctx context.Context, err error) {
	fields := []logger.Field{logger.Error(err)}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		fields = append(fields,
			logger.String("pg_code", string(pqErr.Code)),
			logger.String("pg_table", pqErr.Table),
			logger.String("pg_constraint", pqErr.Constraint))
	}
	s.log.Error(ctx, "batch load rolled back", fields...)
}

func (s *PostgresSink) aggregatedUpsert(runID string, rows []model.AggregatedRecord) sq.InsertBuilder {
	ins := s.sb.Insert(TableAggregated).Columns(aggregatedColumns...)
	for _, r := range rows {
		ins = ins.Values(
			r.CompanyName, r.State, r.Quarter, r.Year, nullable(r.TaxID), nullable(r.RegistrationID),
			nullable(r.Category), r.TotalExpense.String(),
			r.CNPJConflict, r.RazaoSocialAusente, r.CadastroIncompleto, r.CNPJInvalido, runID,
		)
	}
	return ins.Suffix(upsertSuffix(aggregatedKey, aggregatedColumns[4:]))
}

func (s *PostgresSink) metricsUpsert(runID string, rows []model.OperatorMetric) sq.InsertBuilder {
	ins := s.sb.Insert(TableMetrics).Columns(metricsColumns...)
	for _, m := range rows {
		ins = ins.Values(
			m.Ranking, m.CompanyName, m.State, m.TotalExpense, m.MeanQuarterly, m.StdDev,
			m.CoefficientOfVariation, m.HighVariability, m.QuarterCount,
			m.CNPJConflict, m.RazaoSocialAusente, m.CadastroIncompleto,
			nullable(m.RegistrationID), nullable(m.Category), nullable(m.TaxID), runID,
		)
	}
	updates := append([]string{"ranking"}, metricsColumns[3:]...)
	return ins.Suffix(upsertSuffix(metricsKey, updates) + ", updated_at = NOW()")
}

func (s *PostgresSink) importLogInsert(runID, importType, file string) sq.InsertBuilder {
	return s.sb.Insert(TableImportLogs).
		Columns("run_id", "import_type", "file_name", "status").
		Values(runID, importType, file, StatusRunning).
		Suffix("RETURNING id")
}

func (s *PostgresSink) importLogUpdate(id int64, total, success, reject int) sq.UpdateBuilder {
	return s.sb.Update(TableImportLogs).
		Set("total_lines", total).
		Set("success_count", success).
		Set("reject_count", reject).
		Set("status", StatusCompleted).
		Set("finished_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id})
}

// upsertSuffix builds ON CONFLICT (key) DO UPDATE SET col = EXCLUDED.col, ...
func upsertSuffix(key string, cols []string) string {
	s := "ON CONFLICT (" + key + ") DO UPDATE SET "
	for i, c := range cols {
		if i > 0 {
			s += ", "
		}
		s += c + " = EXCLUDED." + c
	}
	return s
}

// chunks splits [0, n) into [start, end) windows of at most size.
func chunks(n, size int) [][2]int {
	var out [][2]int
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, [2]int{start, end})
	}
	return out
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
