package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nsxbet/sql-analyzer/pkg/analyzer"
	"github.com/nsxbet/sql-analyzer/pkg/config"
	"github.com/nsxbet/sql-analyzer/pkg/llm"
	"github.com/nsxbet/sql-analyzer/pkg/logger"
	"github.com/nsxbet/sql-analyzer/pkg/output"
	"github.com/nsxbet/sql-analyzer/pkg/query"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [flags] <queries-file>",
	Short: "Analyze SQL queries against a schema",
	Long: `Analyze SQL queries in a file (or stdin with "-") against a database
schema. Queries are parsed into a semantic model and checked by the static
rule engine; with an LLM provider configured, the queries are additionally
sent out for an AI-powered review.

The exit code reflects the worst violation found: 0 for a clean run or
informational findings, 1 for warnings, 2 for errors.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	// Flags for analyze command
	analyzeCmd.Flags().StringP("schema", "s", "", "path to SQL schema file (required)")
	analyzeCmd.Flags().String("dialect", "generic", "SQL dialect (generic, mysql, postgresql, sqlite, clickhouse)")
	analyzeCmd.Flags().StringP("output", "o", "text", "output format (text, json, yaml, sarif)")
	analyzeCmd.Flags().StringP("rules", "r", "", "path to rules configuration file")
	analyzeCmd.Flags().StringP("provider", "p", "ollama", "LLM provider (openai, anthropic, ollama)")
	analyzeCmd.Flags().StringP("api-key", "a", "", "API key for OpenAI or Anthropic")
	analyzeCmd.Flags().StringP("model", "m", "", "model name")
	analyzeCmd.Flags().String("ollama-url", config.DefaultOllamaURL, "Ollama base URL")
	analyzeCmd.Flags().Bool("dry-run", false, "show what would be sent to the LLM without calling it")
	analyzeCmd.Flags().Bool("no-color", false, "disable colored output")
	_ = analyzeCmd.MarkFlagRequired("schema")

	// Bind flags to viper
	_ = viper.BindPFlag("schema", analyzeCmd.Flags().Lookup("schema"))
	_ = viper.BindPFlag("dialect", analyzeCmd.Flags().Lookup("dialect"))
	_ = viper.BindPFlag("output", analyzeCmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("rules", analyzeCmd.Flags().Lookup("rules"))
	_ = viper.BindPFlag("provider", analyzeCmd.Flags().Lookup("provider"))
	_ = viper.BindPFlag("api-key", analyzeCmd.Flags().Lookup("api-key"))
	_ = viper.BindPFlag("model", analyzeCmd.Flags().Lookup("model"))
	_ = viper.BindPFlag("ollama-url", analyzeCmd.Flags().Lookup("ollama-url"))
	_ = viper.BindPFlag("dry-run", analyzeCmd.Flags().Lookup("dry-run"))
	_ = viper.BindPFlag("no-color", analyzeCmd.Flags().Lookup("no-color"))
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	// Initialize logger
	logLevel := slog.LevelWarn
	if viper.GetBool("debug") {
		logLevel = slog.LevelDebug
	} else if viper.GetBool("verbose") {
		logLevel = slog.LevelInfo
	}
	logger.Init(logLevel)

	slog.Debug("Starting analyze command", "args", args)

	dialect, err := query.ParseDialect(viper.GetString("dialect"))
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(viper.GetString("output"))
	if err != nil {
		return err
	}

	provider, err := llm.ParseProviderKind(viper.GetString("provider"))
	if err != nil {
		return err
	}

	cfg, err := loadConfiguration()
	if err != nil {
		return err
	}

	params := analyzer.Params{
		SchemaPath:  viper.GetString("schema"),
		QueriesPath: args[0],
		Provider:    provider,
		APIKey:      viper.GetString("api-key"),
		Model:       viper.GetString("model"),
		OllamaURL:   viper.GetString("ollama-url"),
		Dialect:     dialect,
		Format:      format,
		Verbose:     viper.GetBool("verbose"),
		DryRun:      viper.GetBool("dry-run"),
		NoColor:     viper.GetBool("no-color"),
	}

	result, err := analyzer.New(cfg).Run(context.Background(), params)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	fmt.Println(result.StaticOutput)

	if result.DryRun != nil {
		fmt.Println("Dry run: the following would be sent to the LLM.")
		fmt.Println()
		fmt.Println(result.DryRun.SchemaSummary)
		fmt.Println(result.DryRun.QueriesSummary)
	}

	if result.LLMOutput != "" {
		fmt.Println(result.LLMOutput)
	}

	if result.ExitCode != 0 {
		os.Exit(result.ExitCode)
	}
	return nil
}

// loadConfiguration reads the rules file given via --rules, or falls back
// to the standard config locations.
func loadConfiguration() (*config.Config, error) {
	if rulesPath := viper.GetString("rules"); rulesPath != "" {
		slog.Debug("Loading configuration", "path", rulesPath)
		return config.LoadFromFile(rulesPath)
	}
	return config.Load()
}
