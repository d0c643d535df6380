// Package analyzer orchestrates the analysis pipeline: read inputs, parse
// schema and queries, run the rule engine, and optionally ask an LLM for a
// deeper review.
package analyzer

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/pkg/errors"

	"github.com/nsxbet/sql-analyzer/pkg/cache"
	"github.com/nsxbet/sql-analyzer/pkg/config"
	"github.com/nsxbet/sql-analyzer/pkg/llm"
	"github.com/nsxbet/sql-analyzer/pkg/output"
	"github.com/nsxbet/sql-analyzer/pkg/query"
	"github.com/nsxbet/sql-analyzer/pkg/rules"
	"github.com/nsxbet/sql-analyzer/pkg/schema"
)

// Params carries everything the analyze pipeline needs.
type Params struct {
	// SchemaPath is the DDL file with table definitions.
	SchemaPath string
	// QueriesPath is the queries file, or "-" for stdin.
	QueriesPath string
	Provider    llm.ProviderKind
	APIKey      string
	Model       string
	OllamaURL   string
	Dialect     query.Dialect
	Format      output.Format
	Verbose     bool
	// DryRun shows what would be sent to the LLM without calling it.
	DryRun  bool
	NoColor bool
}

// DryRunInfo holds the summaries that would have gone to the LLM.
type DryRunInfo struct {
	SchemaSummary  string
	QueriesSummary string
}

// Result is the outcome of one pipeline run.
type Result struct {
	// ExitCode follows the severity contract: 0 clean or info only,
	// 1 warnings, 2 errors.
	ExitCode     int
	StaticOutput string
	// LLMOutput is empty when the LLM stage did not run.
	LLMOutput string
	DryRun    *DryRunInfo
}

// Analyzer runs the pipeline. The parse cache persists across runs.
type Analyzer struct {
	cfg   *config.Config
	cache *cache.QueryCache
	// Stdin is read when QueriesPath is "-".
	Stdin io.Reader
}

// New creates an analyzer with the given configuration.
func New(cfg *config.Config) *Analyzer {
	return &Analyzer{
		cfg:   cfg,
		cache: cache.New(cache.DefaultMaxSize),
		Stdin: os.Stdin,
	}
}

// Run executes the pipeline.
func (a *Analyzer) Run(ctx context.Context, params Params) (*Result, error) {
	schemaSQL, err := os.ReadFile(params.SchemaPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read schema file: %s", params.SchemaPath)
	}
	queriesSQL, err := a.readQueriesInput(params.QueriesPath)
	if err != nil {
		return nil, err
	}

	parsedSchema, err := schema.Parse(string(schemaSQL), params.Dialect)
	if err != nil {
		return nil, err
	}
	slog.Debug("Parsed schema", "tables", len(parsedSchema.Tables))

	parsedQueries, err := a.parseQueriesCached(queriesSQL, params.Dialect)
	if err != nil {
		return nil, err
	}
	slog.Debug("Parsed queries", "count", len(parsedQueries))

	opts := output.Options{
		Format:     params.Format,
		Colored:    !params.NoColor,
		Verbose:    params.Verbose,
		SourcePath: sourcePath(params.QueriesPath),
	}

	runner := rules.NewRunnerWithSchema(parsedSchema, a.cfg.Rules)
	report := runner.Analyze(parsedQueries)
	slog.Debug("Static analysis complete",
		"violations", len(report.Violations),
		"errors", report.ErrorCount(),
		"warnings", report.WarningCount())

	result := &Result{
		ExitCode:     ExitCode(report),
		StaticOutput: output.FormatStaticAnalysis(report, opts),
	}

	if params.DryRun {
		result.DryRun = &DryRunInfo{
			SchemaSummary:  parsedSchema.ToSummary(),
			QueriesSummary: output.FormatQueriesSummary(parsedQueries, opts),
		}
		return result, nil
	}

	apiKey := params.APIKey
	if apiKey == "" {
		apiKey = a.cfg.LLM.APIKey
	}
	if !llm.HasAccess(apiKey, params.Provider) {
		return result, nil
	}

	model := llm.EffectiveModel(params.Model, a.cfg.LLM.Model, params.Provider)
	ollamaURL := llm.EffectiveOllamaURL(params.OllamaURL, a.cfg.LLM.OllamaURL)
	provider, err := llm.BuildProvider(params.Provider, apiKey, model, ollamaURL)
	if err != nil {
		return nil, err
	}

	slog.Debug("Running LLM analysis", "provider", params.Provider.String(), "model", model)
	client := llm.NewClientWithRetry(provider, a.cfg.Retry)
	analysis, err := client.Analyze(ctx,
		parsedSchema.ToSummary(),
		output.FormatQueriesSummary(parsedQueries, opts))
	if err != nil {
		return nil, err
	}

	result.LLMOutput = output.FormatAnalysisResult(parsedQueries, analysis, opts)
	return result, nil
}

// ExitCode maps a report to the process exit code: 2 on any error, 1 on
// any warning, else 0.
func ExitCode(report *rules.AnalysisReport) int {
	if report.ErrorCount() > 0 {
		return 2
	}
	if report.WarningCount() > 0 {
		return 1
	}
	return 0
}

func (a *Analyzer) readQueriesInput(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(a.Stdin)
		if err != nil {
			return "", errors.Wrap(err, "failed to read stdin")
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read queries file: %s", path)
	}
	return string(data), nil
}

func (a *Analyzer) parseQueriesCached(sql string, dialect query.Dialect) ([]*query.Query, error) {
	if cached, ok := a.cache.Get(sql); ok {
		slog.Debug("Query cache hit")
		return cached, nil
	}
	queries, err := query.Parse(sql, dialect)
	if err != nil {
		return nil, err
	}
	a.cache.Put(sql, queries)
	return queries, nil
}

func sourcePath(queriesPath string) string {
	if queriesPath == "-" {
		return ""
	}
	return queriesPath
}
