package rules

import (
	"fmt"
	"strings"

	"github.com/nsxbet/sql-analyzer/pkg/query"
	"github.com/nsxbet/sql-analyzer/pkg/schema"
)

func containsFold(haystack []string, needle string) bool {
	for _, s := range haystack {
		if strings.EqualFold(s, needle) {
			return true
		}
	}
	return false
}

// MissingIndexOnFilterColumn checks that WHERE and JOIN columns of select
// queries are covered by an index somewhere in the schema.
type MissingIndexOnFilterColumn struct {
	schema *schema.Schema
}

func NewMissingIndexOnFilterColumn(s *schema.Schema) *MissingIndexOnFilterColumn {
	return &MissingIndexOnFilterColumn{schema: s}
}

func (r *MissingIndexOnFilterColumn) Info() RuleInfo {
	return RuleInfo{
		ID:       "SCHEMA001",
		Name:     "Missing index on filter column",
		Severity: SeverityWarning,
		Category: CategoryPerformance,
	}
}

func (r *MissingIndexOnFilterColumn) Check(q *query.Query, queryIndex int) []Violation {
	if q.Type != query.TypeSelect {
		return nil
	}

	indexed := r.schema.IndexedColumns()
	var violations []Violation

	for _, col := range q.WhereCols {
		if !containsFold(indexed, col) {
			violations = append(violations, violation(r.Info(),
				fmt.Sprintf("Column '%s' in WHERE clause has no index", col),
				fmt.Sprintf("Consider adding index on '%s'", col),
				queryIndex))
		}
	}
	for _, col := range q.JoinCols {
		if !containsFold(indexed, col) {
			violations = append(violations, violation(r.Info(),
				fmt.Sprintf("Column '%s' in JOIN clause has no index", col),
				fmt.Sprintf("Consider adding index on '%s'", col),
				queryIndex))
		}
	}
	return violations
}

// ColumnNotInSchema checks that referenced columns exist in the schema.
type ColumnNotInSchema struct {
	schema *schema.Schema
}

func NewColumnNotInSchema(s *schema.Schema) *ColumnNotInSchema {
	return &ColumnNotInSchema{schema: s}
}

func (r *ColumnNotInSchema) Info() RuleInfo {
	return RuleInfo{
		ID:       "SCHEMA002",
		Name:     "Column not in schema",
		Severity: SeverityWarning,
		Category: CategoryStyle,
	}
}

func (r *ColumnNotInSchema) Check(q *query.Query, queryIndex int) []Violation {
	allCols := r.schema.AllColumns()
	var violations []Violation

	queryCols := make([]string, 0,
		len(q.WhereCols)+len(q.JoinCols)+len(q.OrderCols)+len(q.GroupCols))
	queryCols = append(queryCols, q.WhereCols...)
	queryCols = append(queryCols, q.JoinCols...)
	queryCols = append(queryCols, q.OrderCols...)
	queryCols = append(queryCols, q.GroupCols...)

	for _, col := range queryCols {
		if isNumericOrDotted(col) {
			continue
		}
		if !containsFold(allCols, col) {
			violations = append(violations, violation(r.Info(),
				fmt.Sprintf("Column '%s' not found in schema", col),
				"Check column name spelling or table reference",
				queryIndex))
		}
	}
	return violations
}

// isNumericOrDotted reports whether the token is a positional reference
// or numeric literal rather than a column name.
func isNumericOrDotted(s string) bool {
	if s == "" {
		return true
	}
	for _, c := range s {
		if (c < '0' || c > '9') && c != '.' {
			return false
		}
	}
	return true
}

// SuggestIndex proposes an index for the first ORDER BY column that has
// none.
type SuggestIndex struct {
	schema *schema.Schema
}

func NewSuggestIndex(s *schema.Schema) *SuggestIndex {
	return &SuggestIndex{schema: s}
}

func (r *SuggestIndex) Info() RuleInfo {
	return RuleInfo{
		ID:       "SCHEMA003",
		Name:     "Index suggestion",
		Severity: SeverityInfo,
		Category: CategoryPerformance,
	}
}

func (r *SuggestIndex) Check(q *query.Query, queryIndex int) []Violation {
	if q.Type != query.TypeSelect {
		return nil
	}
	indexed := r.schema.IndexedColumns()
	for _, col := range q.OrderCols {
		if !containsFold(indexed, col) {
			return []Violation{violation(r.Info(),
				fmt.Sprintf("ORDER BY column '%s' could benefit from index", col),
				fmt.Sprintf("CREATE INDEX idx_%s ON table(%s)", strings.ToLower(col), col),
				queryIndex)}
		}
	}
	return nil
}
