package rules

import (
	"fmt"
	"strings"

	"github.com/nsxbet/sql-analyzer/pkg/query"
)

func violation(info RuleInfo, message, suggestion string, queryIndex int) Violation {
	return Violation{
		RuleID:     info.ID,
		RuleName:   info.Name,
		Message:    message,
		Severity:   info.Severity,
		Category:   info.Category,
		Suggestion: suggestion,
		QueryIndex: queryIndex,
	}
}

// SelectStarWithoutLimit flags SELECT * queries with no LIMIT clause.
type SelectStarWithoutLimit struct{}

func (r *SelectStarWithoutLimit) Info() RuleInfo {
	return RuleInfo{
		ID:       "PERF001",
		Name:     "SELECT * without LIMIT",
		Severity: SeverityWarning,
		Category: CategoryPerformance,
	}
}

func (r *SelectStarWithoutLimit) Check(q *query.Query, queryIndex int) []Violation {
	if q.Type != query.TypeSelect {
		return nil
	}
	upper := strings.ToUpper(q.Raw)
	hasStar := strings.Contains(upper, "SELECT *") || strings.Contains(upper, "SELECT  *")
	if hasStar && q.Limit == nil {
		return []Violation{violation(r.Info(),
			"Query uses SELECT * without LIMIT clause",
			"Add LIMIT clause or specify explicit columns",
			queryIndex)}
	}
	return nil
}

// LeadingWildcard flags LIKE patterns that start with a wildcard.
type LeadingWildcard struct{}

func (r *LeadingWildcard) Info() RuleInfo {
	return RuleInfo{
		ID:       "PERF002",
		Name:     "Leading wildcard in LIKE",
		Severity: SeverityWarning,
		Category: CategoryPerformance,
	}
}

func (r *LeadingWildcard) Check(q *query.Query, queryIndex int) []Violation {
	upper := strings.ToUpper(q.Raw)
	if strings.Contains(upper, "LIKE '%") || strings.Contains(upper, `LIKE "%`) {
		return []Violation{violation(r.Info(),
			"LIKE pattern starts with wildcard, preventing index usage",
			"Consider full-text search or restructure query",
			queryIndex)}
	}
	return nil
}

// OrInsteadOfIn flags chains of OR conditions that should be an IN list.
type OrInsteadOfIn struct{}

func (r *OrInsteadOfIn) Info() RuleInfo {
	return RuleInfo{
		ID:       "PERF003",
		Name:     "OR instead of IN",
		Severity: SeverityInfo,
		Category: CategoryPerformance,
	}
}

func (r *OrInsteadOfIn) Check(q *query.Query, queryIndex int) []Violation {
	orCount := strings.Count(strings.ToUpper(q.Raw), " OR ")
	if orCount >= 3 {
		return []Violation{violation(r.Info(),
			fmt.Sprintf("Query has %d OR conditions, consider using IN clause", orCount),
			"Replace multiple OR conditions with IN (val1, val2, ...)",
			queryIndex)}
	}
	return nil
}

// LargeOffset flags OFFSET values past the point where pagination should
// switch to a keyset approach.
type LargeOffset struct{}

func (r *LargeOffset) Info() RuleInfo {
	return RuleInfo{
		ID:       "PERF004",
		Name:     "Large OFFSET value",
		Severity: SeverityWarning,
		Category: CategoryPerformance,
	}
}

func (r *LargeOffset) Check(q *query.Query, queryIndex int) []Violation {
	if q.Offset != nil && *q.Offset > 1000 {
		return []Violation{violation(r.Info(),
			fmt.Sprintf("OFFSET %d is large, causing performance degradation", *q.Offset),
			"Use keyset pagination (WHERE id > last_id) instead",
			queryIndex)}
	}
	return nil
}

// MissingJoinCondition flags multi-table selects with no join or filter
// conditions at all.
type MissingJoinCondition struct{}

func (r *MissingJoinCondition) Info() RuleInfo {
	return RuleInfo{
		ID:       "PERF005",
		Name:     "Potential Cartesian product",
		Severity: SeverityError,
		Category: CategoryPerformance,
	}
}

func (r *MissingJoinCondition) Check(q *query.Query, queryIndex int) []Violation {
	if q.Type != query.TypeSelect {
		return nil
	}
	hasConditions := len(q.JoinCols) > 0 || len(q.WhereCols) > 0
	if len(q.Tables) > 1 && !hasConditions {
		return []Violation{violation(r.Info(),
			fmt.Sprintf("Query references %d tables without apparent JOIN conditions", len(q.Tables)),
			"Add JOIN conditions or WHERE clause to prevent Cartesian product",
			queryIndex)}
	}
	return nil
}

// DistinctWithOrderBy flags DISTINCT combined with ORDER BY.
type DistinctWithOrderBy struct{}

func (r *DistinctWithOrderBy) Info() RuleInfo {
	return RuleInfo{
		ID:       "PERF006",
		Name:     "DISTINCT with ORDER BY",
		Severity: SeverityInfo,
		Category: CategoryPerformance,
	}
}

func (r *DistinctWithOrderBy) Check(q *query.Query, queryIndex int) []Violation {
	if q.HasDistinct && len(q.OrderCols) > 0 {
		return []Violation{violation(r.Info(),
			"Query uses DISTINCT with ORDER BY",
			"Consider if both are necessary, or use GROUP BY instead",
			queryIndex)}
	}
	return nil
}

// ScalarSubquery flags subqueries in the projection list (N+1 pattern).
type ScalarSubquery struct{}

func (r *ScalarSubquery) Info() RuleInfo {
	return RuleInfo{
		ID:       "PERF007",
		Name:     "Scalar subquery in SELECT",
		Severity: SeverityWarning,
		Category: CategoryPerformance,
	}
}

func (r *ScalarSubquery) Check(q *query.Query, queryIndex int) []Violation {
	if q.Type != query.TypeSelect {
		return nil
	}
	upper := strings.ToUpper(q.Raw)
	fromPos := strings.Index(upper, " FROM ")
	if fromPos < 0 {
		return nil
	}
	selectPart := upper[:fromPos]
	if strings.Contains(selectPart, "SELECT") && strings.Contains(selectPart, "(") && q.HasSubquery {
		return []Violation{violation(r.Info(),
			"Scalar subquery in SELECT causes N+1 query pattern",
			"Use JOIN or window function instead",
			queryIndex)}
	}
	return nil
}

// functionOnColumnPatterns are matched against the uppercased statement
// text. Deliberately textual: the rule contract is the pattern list, not a
// structural check.
var functionOnColumnPatterns = []string{
	"WHERE YEAR(",
	"WHERE MONTH(",
	"WHERE DAY(",
	"WHERE DATE(",
	"WHERE UPPER(",
	"WHERE LOWER(",
	"WHERE TRIM(",
	"WHERE SUBSTRING(",
	"WHERE CAST(",
	"WHERE CONVERT(",
	"WHERE COALESCE(",
}

// FunctionOnColumn flags function calls wrapping columns in WHERE.
type FunctionOnColumn struct{}

func (r *FunctionOnColumn) Info() RuleInfo {
	return RuleInfo{
		ID:       "PERF008",
		Name:     "Function on indexed column",
		Severity: SeverityWarning,
		Category: CategoryPerformance,
	}
}

func (r *FunctionOnColumn) Check(q *query.Query, queryIndex int) []Violation {
	upper := strings.ToUpper(q.Raw)
	for _, pattern := range functionOnColumnPatterns {
		if strings.Contains(upper, pattern) {
			return []Violation{violation(r.Info(),
				"Function call on column in WHERE prevents index usage",
				"Use computed column, functional index, or rewrite condition",
				queryIndex)}
		}
	}
	return nil
}

// NotInWithSubquery flags NOT IN combined with a subquery.
type NotInWithSubquery struct{}

func (r *NotInWithSubquery) Info() RuleInfo {
	return RuleInfo{
		ID:       "PERF009",
		Name:     "NOT IN with subquery",
		Severity: SeverityWarning,
		Category: CategoryPerformance,
	}
}

func (r *NotInWithSubquery) Check(q *query.Query, queryIndex int) []Violation {
	upper := strings.ToUpper(q.Raw)
	if strings.Contains(upper, "NOT IN") && strings.Contains(upper, "SELECT") {
		return []Violation{violation(r.Info(),
			"NOT IN with subquery can return unexpected results with NULL",
			"Use NOT EXISTS or LEFT JOIN with IS NULL instead",
			queryIndex)}
	}
	return nil
}

// UnionWithoutAll flags UNION where UNION ALL would avoid a sort.
type UnionWithoutAll struct{}

func (r *UnionWithoutAll) Info() RuleInfo {
	return RuleInfo{
		ID:       "PERF010",
		Name:     "UNION without ALL",
		Severity: SeverityInfo,
		Category: CategoryPerformance,
	}
}

func (r *UnionWithoutAll) Check(q *query.Query, queryIndex int) []Violation {
	if !q.HasUnion {
		return nil
	}
	upper := strings.ToUpper(q.Raw)
	if strings.Contains(upper, " UNION ") && !strings.Contains(upper, " UNION ALL ") {
		return []Violation{violation(r.Info(),
			"UNION removes duplicates which requires sorting",
			"Use UNION ALL if duplicates are acceptable",
			queryIndex)}
	}
	return nil
}

// SelectWithoutWhere flags unbounded full-table selects.
type SelectWithoutWhere struct{}

func (r *SelectWithoutWhere) Info() RuleInfo {
	return RuleInfo{
		ID:       "PERF011",
		Name:     "SELECT without WHERE",
		Severity: SeverityInfo,
		Category: CategoryPerformance,
	}
}

func (r *SelectWithoutWhere) Check(q *query.Query, queryIndex int) []Violation {
	if q.Type != query.TypeSelect {
		return nil
	}
	if len(q.WhereCols) == 0 && q.Limit == nil && len(q.Tables) > 0 {
		return []Violation{violation(r.Info(),
			"SELECT without WHERE or LIMIT scans entire table",
			"Add WHERE clause or LIMIT to restrict results",
			queryIndex)}
	}
	return nil
}
