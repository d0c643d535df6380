package rules

import (
	"strings"

	"github.com/nsxbet/sql-analyzer/pkg/query"
)

// SelectStar flags SELECT * regardless of LIMIT.
type SelectStar struct{}

func (r *SelectStar) Info() RuleInfo {
	return RuleInfo{
		ID:       "STYLE001",
		Name:     "SELECT * usage",
		Severity: SeverityInfo,
		Category: CategoryStyle,
	}
}

func (r *SelectStar) Check(q *query.Query, queryIndex int) []Violation {
	if q.Type != query.TypeSelect {
		return nil
	}
	upper := strings.ToUpper(q.Raw)
	if strings.Contains(upper, "SELECT *") || strings.Contains(upper, "SELECT  *") {
		return []Violation{violation(r.Info(),
			"Query uses SELECT * instead of explicit column list",
			"Specify explicit columns to improve clarity and performance",
			queryIndex)}
	}
	return nil
}

// MissingTableAlias flags multi-table joins written without aliases.
type MissingTableAlias struct{}

func (r *MissingTableAlias) Info() RuleInfo {
	return RuleInfo{
		ID:       "STYLE002",
		Name:     "Missing table aliases",
		Severity: SeverityInfo,
		Category: CategoryStyle,
	}
}

func (r *MissingTableAlias) Check(q *query.Query, queryIndex int) []Violation {
	if q.Type != query.TypeSelect {
		return nil
	}
	if len(q.Tables) <= 1 {
		return nil
	}
	hasAliases := strings.Contains(strings.ToUpper(q.Raw), " AS ")
	for _, t := range q.Tables {
		if strings.Contains(t, " ") {
			hasAliases = true
		}
	}
	if !hasAliases && len(q.JoinCols) > 0 {
		return []Violation{violation(r.Info(),
			"Multi-table query without table aliases",
			"Add short aliases (e.g., users u, orders o) for readability",
			queryIndex)}
	}
	return nil
}
