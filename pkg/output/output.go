// Package output renders query summaries and analysis reports as text,
// JSON, YAML or SARIF.
package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nsxbet/sql-analyzer/pkg/query"
	"github.com/nsxbet/sql-analyzer/pkg/rules"
)

// Format selects the rendering of results.
type Format int

const (
	Text Format = iota
	JSON
	YAML
	Sarif
)

// ParseFormat maps a user-facing format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "text":
		return Text, nil
	case "json":
		return JSON, nil
	case "yaml":
		return YAML, nil
	case "sarif":
		return Sarif, nil
	default:
		return Text, errors.Errorf("unsupported output format: %s", s)
	}
}

// Options controls rendering.
type Options struct {
	Format  Format
	Colored bool
	Verbose bool
	// SourcePath is the queries file reported in SARIF locations.
	SourcePath string
}

// DefaultOptions returns colored text output.
func DefaultOptions() Options {
	return Options{Format: Text, Colored: true}
}

// AnalysisResult pairs the parsed queries with the LLM analysis text for
// structured output.
type AnalysisResult struct {
	Queries  []*query.Query `json:"queries" yaml:"queries"`
	Analysis string         `json:"analysis" yaml:"analysis"`
}

func paint(opts Options, s string, attrs ...color.Attribute) string {
	if !opts.Colored {
		return s
	}
	c := color.New(attrs...)
	c.EnableColor()
	return c.Sprint(s)
}

func toJSON(v interface{}) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ""
	}
	return string(data)
}

func toYAML(v interface{}) string {
	data, err := yaml.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

// FormatQueriesSummary renders the parsed query models. SARIF carries only
// violations, so it falls back to JSON here.
func FormatQueriesSummary(queries []*query.Query, opts Options) string {
	switch opts.Format {
	case JSON, Sarif:
		return toJSON(queries)
	case YAML:
		return toYAML(queries)
	default:
		return textQueriesSummary(queries, opts)
	}
}

// FormatAnalysisResult renders the LLM analysis alongside the queries.
func FormatAnalysisResult(queries []*query.Query, analysis string, opts Options) string {
	switch opts.Format {
	case JSON, Sarif:
		return toJSON(AnalysisResult{Queries: queries, Analysis: analysis})
	case YAML:
		return toYAML(AnalysisResult{Queries: queries, Analysis: analysis})
	default:
		return paint(opts, "=== SQL Query Analysis ===\n\n", color.Bold) + analysis
	}
}

// FormatStaticAnalysis renders the rule engine report.
func FormatStaticAnalysis(report *rules.AnalysisReport, opts Options) string {
	switch opts.Format {
	case JSON:
		return toJSON(report)
	case YAML:
		return toYAML(report)
	case Sarif:
		return toSarif(report, opts)
	default:
		return textStaticAnalysis(report, opts)
	}
}

func textQueriesSummary(queries []*query.Query, opts Options) string {
	var b strings.Builder
	b.WriteString("SQL Queries:\n\n")

	for i, q := range queries {
		header := fmt.Sprintf("Query #%d (%s):", i+1, q.Type)
		b.WriteString(paint(opts, header, color.FgCyan, color.Bold))
		b.WriteString("\n")
		fmt.Fprintf(&b, "%s\n", q.Raw)

		if len(q.CTENames) > 0 {
			fmt.Fprintf(&b, "CTEs: %s\n", strings.Join(q.CTENames, ", "))
		}
		fmt.Fprintf(&b, "Tables: %s\n", strings.Join(q.Tables, ", "))

		writeCols(&b, "WHERE columns", q.WhereCols)
		writeCols(&b, "JOIN columns", q.JoinCols)
		writeCols(&b, "ORDER BY columns", q.OrderCols)
		writeCols(&b, "GROUP BY columns", q.GroupCols)
		writeCols(&b, "HAVING columns", q.HavingCols)

		if len(q.WindowFuncs) > 0 {
			names := make([]string, 0, len(q.WindowFuncs))
			for _, w := range q.WindowFuncs {
				names = append(names, w.Name)
			}
			fmt.Fprintf(&b, "Window functions: %s\n", strings.Join(names, ", "))
		}

		if q.Limit != nil {
			fmt.Fprintf(&b, "LIMIT: %d\n", *q.Limit)
		}
		if q.Offset != nil {
			fmt.Fprintf(&b, "OFFSET: %d\n", *q.Offset)
		}

		if q.HasDistinct {
			b.WriteString("Has DISTINCT: yes\n")
		}
		if q.HasUnion {
			b.WriteString("Has UNION/INTERSECT/EXCEPT: yes\n")
		}
		if q.HasSubquery {
			b.WriteString("Has subquery: yes\n")
		}

		if opts.Verbose {
			c := q.Complexity()
			fmt.Fprintf(&b, "Complexity: %s (score: %d)\n", complexityLabel(c.Score, opts), c.Score)
		}

		b.WriteString("\n")
	}
	return b.String()
}

func writeCols(b *strings.Builder, label string, cols []string) {
	if len(cols) > 0 {
		fmt.Fprintf(b, "%s: %s\n", label, strings.Join(cols, ", "))
	}
}

func complexityLabel(score uint32, opts Options) string {
	switch {
	case score < 5:
		return paint(opts, "Low", color.FgGreen)
	case score < 15:
		return paint(opts, "Medium", color.FgYellow)
	default:
		return paint(opts, "High", color.FgRed)
	}
}

func severityTag(s rules.Severity, opts Options) string {
	tag := "[" + s.String() + "]"
	switch s {
	case rules.SeverityError:
		return paint(opts, tag, color.FgRed, color.Bold)
	case rules.SeverityWarning:
		return paint(opts, tag, color.FgYellow)
	default:
		return paint(opts, tag, color.FgGreen)
	}
}

func textStaticAnalysis(report *rules.AnalysisReport, opts Options) string {
	var b strings.Builder
	b.WriteString(paint(opts, "=== Static Analysis ===\n\n", color.Bold))

	if len(report.Violations) == 0 {
		b.WriteString(paint(opts, "No violations found.\n", color.FgGreen))
	} else {
		// Bucket by query; within a query the severity order from the
		// report is preserved.
		byQuery := map[int][]rules.Violation{}
		maxIndex := 0
		for _, v := range report.Violations {
			byQuery[v.QueryIndex] = append(byQuery[v.QueryIndex], v)
			if v.QueryIndex > maxIndex {
				maxIndex = v.QueryIndex
			}
		}
		for qi := 0; qi <= maxIndex; qi++ {
			violations, ok := byQuery[qi]
			if !ok {
				continue
			}
			header := fmt.Sprintf("Query #%d:", qi+1)
			b.WriteString(paint(opts, header, color.FgCyan, color.Bold))
			b.WriteString("\n")
			for _, v := range violations {
				fmt.Fprintf(&b, "  %s %s %s: %s\n", severityTag(v.Severity, opts), v.RuleID, v.RuleName, v.Message)
				if v.Suggestion != "" {
					fmt.Fprintf(&b, "    Suggestion: %s\n", v.Suggestion)
				}
			}
			b.WriteString("\n")
		}
	}

	fmt.Fprintf(&b, "Summary: %d errors, %d warnings, %d info (%d queries, %d rules)\n",
		report.ErrorCount(), report.WarningCount(), report.InfoCount(),
		report.QueriesCount, report.RulesCount)
	return b.String()
}
