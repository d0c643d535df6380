package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsxbet/sql-analyzer/pkg/query"
)

func uint64Ptr(v uint64) *uint64 { return &v }

func selectQuery(raw string) *query.Query {
	return query.NewQuery(raw, query.TypeSelect)
}

func TestSelectStarWithoutLimit(t *testing.T) {
	tests := []struct {
		name  string
		query *query.Query
		want  bool
	}{
		{
			name:  "select star no limit",
			query: selectQuery("SELECT * FROM users"),
			want:  true,
		},
		{
			name: "select star with limit",
			query: func() *query.Query {
				q := selectQuery("SELECT * FROM users LIMIT 10")
				q.Limit = uint64Ptr(10)
				return q
			}(),
			want: false,
		},
		{
			name:  "explicit columns",
			query: selectQuery("SELECT id, name FROM users"),
			want:  false,
		},
		{
			name:  "non-select",
			query: query.NewQuery("UPDATE users SET x = 1", query.TypeUpdate),
			want:  false,
		},
	}

	rule := &SelectStarWithoutLimit{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			violations := rule.Check(tt.query, 0)
			if tt.want {
				require.Len(t, violations, 1)
				assert.Equal(t, "PERF001", violations[0].RuleID)
				assert.Equal(t, SeverityWarning, violations[0].Severity)
			} else {
				assert.Empty(t, violations)
			}
		})
	}
}

func TestLeadingWildcard(t *testing.T) {
	rule := &LeadingWildcard{}

	violations := rule.Check(selectQuery("SELECT id FROM users WHERE name LIKE '%smith'"), 0)
	require.Len(t, violations, 1)
	assert.Equal(t, "PERF002", violations[0].RuleID)

	violations = rule.Check(selectQuery("SELECT id FROM users WHERE name LIKE 'smith%'"), 0)
	assert.Empty(t, violations)
}

func TestOrInsteadOfIn(t *testing.T) {
	rule := &OrInsteadOfIn{}

	raw := "SELECT id FROM users WHERE a = 1 OR a = 2 OR a = 3 OR a = 4"
	violations := rule.Check(selectQuery(raw), 0)
	require.Len(t, violations, 1)
	assert.Equal(t, "PERF003", violations[0].RuleID)
	assert.Contains(t, violations[0].Message, "3 OR conditions")

	violations = rule.Check(selectQuery("SELECT id FROM users WHERE a = 1 OR a = 2"), 0)
	assert.Empty(t, violations)
}

func TestLargeOffset(t *testing.T) {
	rule := &LargeOffset{}

	q := selectQuery("SELECT id FROM users LIMIT 10 OFFSET 5000")
	q.Limit = uint64Ptr(10)
	q.Offset = uint64Ptr(5000)
	violations := rule.Check(q, 0)
	require.Len(t, violations, 1)
	assert.Equal(t, "PERF004", violations[0].RuleID)
	assert.Contains(t, violations[0].Message, "OFFSET 5000")

	q = selectQuery("SELECT id FROM users LIMIT 10 OFFSET 100")
	q.Limit = uint64Ptr(10)
	q.Offset = uint64Ptr(100)
	assert.Empty(t, rule.Check(q, 0))
}

func TestMissingJoinCondition(t *testing.T) {
	rule := &MissingJoinCondition{}

	q := selectQuery("SELECT * FROM users, orders")
	q.Tables = []string{"users", "orders"}
	violations := rule.Check(q, 0)
	require.Len(t, violations, 1)
	assert.Equal(t, "PERF005", violations[0].RuleID)
	assert.Equal(t, SeverityError, violations[0].Severity)

	q = selectQuery("SELECT * FROM users u JOIN orders o ON u.id = o.user_id")
	q.Tables = []string{"users", "orders"}
	q.JoinCols = []string{"id", "user_id"}
	assert.Empty(t, rule.Check(q, 0))
}

func TestDistinctWithOrderBy(t *testing.T) {
	rule := &DistinctWithOrderBy{}

	q := selectQuery("SELECT DISTINCT name FROM users ORDER BY name")
	q.HasDistinct = true
	q.OrderCols = []string{"name"}
	violations := rule.Check(q, 0)
	require.Len(t, violations, 1)
	assert.Equal(t, "PERF006", violations[0].RuleID)

	q = selectQuery("SELECT DISTINCT name FROM users")
	q.HasDistinct = true
	assert.Empty(t, rule.Check(q, 0))
}

func TestScalarSubquery(t *testing.T) {
	rule := &ScalarSubquery{}

	q := selectQuery("SELECT id, (SELECT COUNT(*) FROM orders WHERE user_id = u.id) FROM users u")
	q.HasSubquery = true
	violations := rule.Check(q, 0)
	require.Len(t, violations, 1)
	assert.Equal(t, "PERF007", violations[0].RuleID)

	q = selectQuery("SELECT id FROM users WHERE id IN (SELECT user_id FROM orders)")
	q.HasSubquery = true
	assert.Empty(t, rule.Check(q, 0))
}

func TestFunctionOnColumn(t *testing.T) {
	rule := &FunctionOnColumn{}

	violations := rule.Check(selectQuery("SELECT id FROM orders WHERE YEAR(created_at) = 2024"), 0)
	require.Len(t, violations, 1)
	assert.Equal(t, "PERF008", violations[0].RuleID)

	violations = rule.Check(selectQuery("SELECT UPPER(name) FROM users WHERE id = 1"), 0)
	assert.Empty(t, violations)
}

func TestNotInWithSubquery(t *testing.T) {
	rule := &NotInWithSubquery{}

	violations := rule.Check(selectQuery("SELECT id FROM users WHERE id NOT IN (SELECT user_id FROM banned)"), 0)
	require.Len(t, violations, 1)
	assert.Equal(t, "PERF009", violations[0].RuleID)

	// The check is textual: any SELECT keyword alongside NOT IN counts,
	// so the literal-list negative case needs a non-select statement.
	violations = rule.Check(query.NewQuery("DELETE FROM users WHERE id NOT IN (1, 2, 3)", query.TypeDelete), 0)
	assert.Empty(t, violations)

	violations = rule.Check(selectQuery("SELECT id FROM users WHERE id NOT IN (1, 2, 3)"), 0)
	require.Len(t, violations, 1)
	assert.Equal(t, "PERF009", violations[0].RuleID)
}

func TestUnionWithoutAll(t *testing.T) {
	rule := &UnionWithoutAll{}

	q := selectQuery("SELECT id FROM a UNION SELECT id FROM b")
	q.HasUnion = true
	violations := rule.Check(q, 0)
	require.Len(t, violations, 1)
	assert.Equal(t, "PERF010", violations[0].RuleID)

	q = selectQuery("SELECT id FROM a UNION ALL SELECT id FROM b")
	q.HasUnion = true
	assert.Empty(t, rule.Check(q, 0))
}

func TestSelectWithoutWhere(t *testing.T) {
	rule := &SelectWithoutWhere{}

	q := selectQuery("SELECT id FROM users")
	q.Tables = []string{"users"}
	violations := rule.Check(q, 0)
	require.Len(t, violations, 1)
	assert.Equal(t, "PERF011", violations[0].RuleID)

	q = selectQuery("SELECT id FROM users WHERE id = 1")
	q.Tables = []string{"users"}
	q.WhereCols = []string{"id"}
	assert.Empty(t, rule.Check(q, 0))

	q = selectQuery("SELECT id FROM users LIMIT 5")
	q.Tables = []string{"users"}
	q.Limit = uint64Ptr(5)
	assert.Empty(t, rule.Check(q, 0))

	// No tables means nothing to scan.
	assert.Empty(t, rule.Check(selectQuery("SELECT 1"), 0))
}

func TestSelectStar(t *testing.T) {
	rule := &SelectStar{}

	violations := rule.Check(selectQuery("SELECT * FROM users LIMIT 5"), 0)
	require.Len(t, violations, 1)
	assert.Equal(t, "STYLE001", violations[0].RuleID)
	assert.Equal(t, SeverityInfo, violations[0].Severity)

	assert.Empty(t, rule.Check(selectQuery("SELECT id FROM users"), 0))
}

func TestMissingTableAlias(t *testing.T) {
	rule := &MissingTableAlias{}

	q := selectQuery("SELECT users.id FROM users JOIN orders ON users.id = orders.user_id")
	q.Tables = []string{"users", "orders"}
	q.JoinCols = []string{"id", "user_id"}
	violations := rule.Check(q, 0)
	require.Len(t, violations, 1)
	assert.Equal(t, "STYLE002", violations[0].RuleID)

	q = selectQuery("SELECT u.id FROM users AS u JOIN orders AS o ON u.id = o.user_id")
	q.Tables = []string{"users", "orders"}
	q.JoinCols = []string{"id", "user_id"}
	assert.Empty(t, rule.Check(q, 0))

	q = selectQuery("SELECT id FROM users")
	q.Tables = []string{"users"}
	assert.Empty(t, rule.Check(q, 0))
}

func TestMissingWhereInUpdate(t *testing.T) {
	rule := &MissingWhereInUpdate{}

	q := query.NewQuery("UPDATE users SET active = false", query.TypeUpdate)
	q.Tables = []string{"users"}
	violations := rule.Check(q, 0)
	require.Len(t, violations, 1)
	assert.Equal(t, "SEC001", violations[0].RuleID)
	assert.Equal(t, SeverityError, violations[0].Severity)

	q = query.NewQuery("UPDATE users SET active = false WHERE id = 1", query.TypeUpdate)
	q.WhereCols = []string{"id"}
	assert.Empty(t, rule.Check(q, 0))
}

func TestMissingWhereInDelete(t *testing.T) {
	rule := &MissingWhereInDelete{}

	q := query.NewQuery("DELETE FROM users", query.TypeDelete)
	q.Tables = []string{"users"}
	violations := rule.Check(q, 0)
	require.Len(t, violations, 1)
	assert.Equal(t, "SEC002", violations[0].RuleID)
	assert.Equal(t, SeverityError, violations[0].Severity)

	q = query.NewQuery("DELETE FROM users WHERE id = 1", query.TypeDelete)
	q.WhereCols = []string{"id"}
	assert.Empty(t, rule.Check(q, 0))
}

func TestTruncateDetected(t *testing.T) {
	rule := &TruncateDetected{}

	q := query.NewQuery("TRUNCATE TABLE audit_log", query.TypeTruncate)
	q.Tables = []string{"audit_log"}
	violations := rule.Check(q, 0)
	require.Len(t, violations, 1)
	assert.Equal(t, "SEC003", violations[0].RuleID)
	assert.Equal(t, SeverityError, violations[0].Severity)
	assert.Contains(t, violations[0].Message, "audit_log")

	assert.Empty(t, rule.Check(selectQuery("SELECT 1"), 0))
}

func TestDropDetected(t *testing.T) {
	rule := &DropDetected{}

	q := query.NewQuery("DROP TABLE old_users", query.TypeDrop)
	q.Tables = []string{"old_users"}
	q.ObjectKind = "table"
	violations := rule.Check(q, 0)
	require.Len(t, violations, 1)
	assert.Equal(t, "SEC004", violations[0].RuleID)
	assert.Equal(t, SeverityError, violations[0].Severity)
	assert.Contains(t, violations[0].Message, "DROP table 'old_users'")

	q = query.NewQuery("DROP INDEX idx_users_email", query.TypeDrop)
	q.Tables = []string{"idx_users_email"}
	q.ObjectKind = "index"
	violations = rule.Check(q, 0)
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0].Message, "DROP index")
}
