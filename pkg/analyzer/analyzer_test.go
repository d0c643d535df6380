package analyzer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsxbet/sql-analyzer/pkg/config"
	"github.com/nsxbet/sql-analyzer/pkg/llm"
	"github.com/nsxbet/sql-analyzer/pkg/output"
	"github.com/nsxbet/sql-analyzer/pkg/query"
	"github.com/nsxbet/sql-analyzer/pkg/rules"
)

const testSchema = `
CREATE TABLE users (
    id INT PRIMARY KEY,
    email VARCHAR(255) NOT NULL,
    created_at TIMESTAMP,
    KEY idx_email (email)
);
`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// openAI without a key keeps the LLM stage off.
func staticOnlyParams(t *testing.T, queries string) Params {
	return Params{
		SchemaPath:  writeTemp(t, "schema.sql", testSchema),
		QueriesPath: writeTemp(t, "queries.sql", queries),
		Provider:    llm.OpenAI,
		Dialect:     query.Generic,
		Format:      output.Text,
		NoColor:     true,
	}
}

func TestRunStaticAnalysisOnly(t *testing.T) {
	a := New(config.Default())
	params := staticOnlyParams(t, "SELECT id FROM users WHERE email = 'a@b.c'")

	result, err := a.Run(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, 0, result.ExitCode)
	assert.Contains(t, result.StaticOutput, "Summary:")
	assert.Empty(t, result.LLMOutput)
	assert.Nil(t, result.DryRun)
}

func TestRunExitCodes(t *testing.T) {
	tests := []struct {
		name    string
		queries string
		want    int
	}{
		{"clean query", "SELECT id FROM users WHERE email = 'a@b.c'", 0},
		{"warning only", "SELECT id FROM users WHERE created_at > '2024-01-01'", 1},
		{"error", "DELETE FROM users", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(config.Default())
			result, err := a.Run(context.Background(), staticOnlyParams(t, tt.queries))
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.ExitCode)
		})
	}
}

func TestRunDryRun(t *testing.T) {
	a := New(config.Default())
	params := staticOnlyParams(t, "SELECT id FROM users WHERE email = 'x'")
	params.Provider = llm.Ollama
	params.DryRun = true

	result, err := a.Run(context.Background(), params)
	require.NoError(t, err)

	require.NotNil(t, result.DryRun)
	assert.Contains(t, result.DryRun.SchemaSummary, "Table: users")
	assert.Contains(t, result.DryRun.QueriesSummary, "Query #1 (SELECT):")
	assert.Empty(t, result.LLMOutput)
}

func TestRunStdinInput(t *testing.T) {
	a := New(config.Default())
	a.Stdin = strings.NewReader("SELECT id FROM users WHERE email = 'x'")

	params := staticOnlyParams(t, "unused")
	params.QueriesPath = "-"

	result, err := a.Run(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
}

func TestRunWithOllama(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"response": "llm verdict"})
	}))
	defer server.Close()

	a := New(config.Default())
	params := staticOnlyParams(t, "SELECT id FROM users WHERE email = 'x'")
	params.Provider = llm.Ollama
	params.OllamaURL = server.URL

	result, err := a.Run(context.Background(), params)
	require.NoError(t, err)
	assert.Contains(t, result.LLMOutput, "=== SQL Query Analysis ===")
	assert.Contains(t, result.LLMOutput, "llm verdict")
}

func TestRunConfigOllamaURLUsedWhenFlagIsDefault(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"response": "ok"})
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.LLM.OllamaURL = server.URL

	a := New(cfg)
	params := staticOnlyParams(t, "SELECT id FROM users WHERE email = 'x'")
	params.Provider = llm.Ollama
	params.OllamaURL = config.DefaultOllamaURL

	result, err := a.Run(context.Background(), params)
	require.NoError(t, err)
	assert.Contains(t, result.LLMOutput, "ok")
}

func TestRunSchemaFileMissing(t *testing.T) {
	a := New(config.Default())
	params := staticOnlyParams(t, "SELECT 1")
	params.SchemaPath = "does-not-exist.sql"

	_, err := a.Run(context.Background(), params)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read schema file")
}

func TestRunQueryParseError(t *testing.T) {
	a := New(config.Default())
	params := staticOnlyParams(t, "SELECT FROM WHERE")

	_, err := a.Run(context.Background(), params)
	require.Error(t, err)

	var pe *query.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "query", pe.Kind)
}

func TestRunCachesParsedQueries(t *testing.T) {
	a := New(config.Default())
	params := staticOnlyParams(t, "SELECT id FROM users WHERE email = 'x'")

	_, err := a.Run(context.Background(), params)
	require.NoError(t, err)
	first, ok := a.cache.Get("SELECT id FROM users WHERE email = 'x'")
	require.True(t, ok)

	_, err = a.Run(context.Background(), params)
	require.NoError(t, err)
	second, _ := a.cache.Get("SELECT id FROM users WHERE email = 'x'")
	assert.Equal(t, first, second)
}

func TestExitCode(t *testing.T) {
	report := rules.NewReport(1, 1)
	assert.Equal(t, 0, ExitCode(report))

	report.Violations = []rules.Violation{{Severity: rules.SeverityInfo}}
	assert.Equal(t, 0, ExitCode(report))

	report.Violations = append(report.Violations, rules.Violation{Severity: rules.SeverityWarning})
	assert.Equal(t, 1, ExitCode(report))

	report.Violations = append(report.Violations, rules.Violation{Severity: rules.SeverityError})
	assert.Equal(t, 2, ExitCode(report))
}
