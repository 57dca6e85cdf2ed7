// Package config defines pipeline configuration and its layered loading.
//
// Conventions:
// - Keys are flat snake_case and map 1:1 to RECON_ environment variables.
// - New returns defaults; Load layers an optional YAML file and the environment on top.
package config

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// RegistryPath is the ';'-delimited operator registry CSV.
	RegistryPath string `koanf:"registry_path" validate:"required"`
	// ExpensesPath is the consolidated expense CSV.
	ExpensesPath string `koanf:"expenses_path" validate:"required"`
	// OutputDir receives every output file.
	OutputDir string `koanf:"output_dir" validate:"required"`
	// InputEncoding of the source files: utf-8 or latin1, aliases such as iso-8859-1 accepted.
	InputEncoding string `koanf:"input_encoding" validate:"encoding"`

	// ChunkSize bounds how many records are processed at once.
	ChunkSize int `koanf:"chunk_size" validate:"min=1"`
	// CVThreshold is the coefficient of variation above which an operator is flagged.
	CVThreshold float64 `koanf:"cv_threshold" validate:"gte=0"`
	// TopN sizes the top operators section of the JSON report.
	TopN int `koanf:"top_n" validate:"min=1"`
	// MaxIssues caps how many parse issues are kept for the issue report. Counts stay exact.
	MaxIssues int `koanf:"max_issues" validate:"min=0"`

	// MetricsTextfile, when set, receives the run metrics in Prometheus text format.
	MetricsTextfile string `koanf:"metrics_textfile"`
	// PushgatewayURL, when set, receives the run metrics at the end of the run.
	PushgatewayURL string `koanf:"pushgateway_url" validate:"omitempty,url"`
	// XLSXPath, when set, receives a workbook with metrics, aggregates and conflicts.
	XLSXPath string `koanf:"xlsx_path"`
	// PostgresDSN, when set, loads aggregates and metrics into Postgres.
	PostgresDSN string `koanf:"postgres_dsn"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:      "info",
		LogFormat:     "text",
		RegistryPath:  "data/operadoras/Relatorio_cadop.csv",
		ExpensesPath:  "data/trimestrais_contabeis/consolidado_despesas.csv",
		OutputDir:     "data/trimestrais_contabeis",
		InputEncoding: "utf-8",
		ChunkSize:     50_000,
		CVThreshold:   0.5,
		TopN:          10,
		MaxIssues:     10_000,
	}
}
