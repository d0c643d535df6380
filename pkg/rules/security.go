package rules

import (
	"fmt"
	"strings"

	"github.com/nsxbet/sql-analyzer/pkg/query"
)

// MissingWhereInUpdate flags UPDATE statements that touch every row.
type MissingWhereInUpdate struct{}

func (r *MissingWhereInUpdate) Info() RuleInfo {
	return RuleInfo{
		ID:       "SEC001",
		Name:     "UPDATE without WHERE",
		Severity: SeverityError,
		Category: CategorySecurity,
	}
}

func (r *MissingWhereInUpdate) Check(q *query.Query, queryIndex int) []Violation {
	if q.Type != query.TypeUpdate {
		return nil
	}
	if len(q.WhereCols) == 0 {
		return []Violation{violation(r.Info(),
			"UPDATE statement without WHERE clause will affect all rows",
			"Add WHERE clause to limit affected rows",
			queryIndex)}
	}
	return nil
}

// MissingWhereInDelete flags DELETE statements that remove every row.
type MissingWhereInDelete struct{}

func (r *MissingWhereInDelete) Info() RuleInfo {
	return RuleInfo{
		ID:       "SEC002",
		Name:     "DELETE without WHERE",
		Severity: SeverityError,
		Category: CategorySecurity,
	}
}

func (r *MissingWhereInDelete) Check(q *query.Query, queryIndex int) []Violation {
	if q.Type != query.TypeDelete {
		return nil
	}
	if len(q.WhereCols) == 0 {
		return []Violation{violation(r.Info(),
			"DELETE statement without WHERE clause will remove all rows",
			"Add WHERE clause to limit deleted rows",
			queryIndex)}
	}
	return nil
}

// TruncateDetected flags every TRUNCATE statement. TRUNCATE cannot be
// limited by WHERE, bypasses DELETE triggers and is rarely recoverable.
type TruncateDetected struct{}

func (r *TruncateDetected) Info() RuleInfo {
	return RuleInfo{
		ID:       "SEC003",
		Name:     "TRUNCATE statement detected",
		Severity: SeverityError,
		Category: CategorySecurity,
	}
}

func (r *TruncateDetected) Check(q *query.Query, queryIndex int) []Violation {
	if q.Type != query.TypeTruncate {
		return nil
	}
	return []Violation{violation(r.Info(),
		fmt.Sprintf("TRUNCATE removes all rows from table(s) '%s' without logging individual deletions",
			strings.Join(q.Tables, ", ")),
		"Use DELETE with WHERE for safer data removal, or ensure backups exist",
		queryIndex)}
}

// DropDetected flags every DROP statement.
type DropDetected struct{}

func (r *DropDetected) Info() RuleInfo {
	return RuleInfo{
		ID:       "SEC004",
		Name:     "DROP statement detected",
		Severity: SeverityError,
		Category: CategorySecurity,
	}
}

func (r *DropDetected) Check(q *query.Query, queryIndex int) []Violation {
	if q.Type != query.TypeDrop {
		return nil
	}
	kind := q.ObjectKind
	if kind == "" {
		kind = "object"
	}
	return []Violation{violation(r.Info(),
		fmt.Sprintf("DROP %s '%s' permanently destroys data and schema",
			kind, strings.Join(q.Tables, ", ")),
		"Ensure this is intentional and backups exist before dropping",
		queryIndex)}
}
