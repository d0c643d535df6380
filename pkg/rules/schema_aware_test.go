package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsxbet/sql-analyzer/pkg/config"
	"github.com/nsxbet/sql-analyzer/pkg/query"
	"github.com/nsxbet/sql-analyzer/pkg/schema"
)

func testSchema() *schema.Schema {
	return &schema.Schema{
		Tables: map[string]*schema.TableInfo{
			"users": {
				Name: "users",
				Columns: []schema.ColumnInfo{
					{Name: "id", DataType: "int", IsPrimary: true},
					{Name: "email", DataType: "varchar(255)"},
					{Name: "created_at", DataType: "timestamp"},
				},
				Indexes: []schema.IndexInfo{
					{Name: "idx_users_email", Columns: []string{"email"}, IsUnique: true},
				},
			},
		},
	}
}

func TestMissingIndexOnFilterColumn(t *testing.T) {
	rule := NewMissingIndexOnFilterColumn(testSchema())

	q := query.NewQuery("SELECT id FROM users WHERE created_at > '2024-01-01'", query.TypeSelect)
	q.Tables = []string{"users"}
	q.WhereCols = []string{"created_at"}
	violations := rule.Check(q, 0)
	require.Len(t, violations, 1)
	assert.Equal(t, "SCHEMA001", violations[0].RuleID)
	assert.Contains(t, violations[0].Message, "'created_at' in WHERE clause")

	q = query.NewQuery("SELECT id FROM users WHERE email = 'a@b.c'", query.TypeSelect)
	q.Tables = []string{"users"}
	q.WhereCols = []string{"email"}
	assert.Empty(t, rule.Check(q, 0))

	// Join columns are checked too.
	q = query.NewQuery("SELECT * FROM users u JOIN orders o ON u.id = o.user_id", query.TypeSelect)
	q.Tables = []string{"users", "orders"}
	q.JoinCols = []string{"id", "user_id"}
	violations = rule.Check(q, 0)
	require.Len(t, violations, 2)
	assert.Contains(t, violations[0].Message, "JOIN clause")

	// Non-select statements are out of scope.
	q = query.NewQuery("UPDATE users SET x = 1 WHERE created_at > now()", query.TypeUpdate)
	q.WhereCols = []string{"created_at"}
	assert.Empty(t, rule.Check(q, 0))
}

func TestColumnNotInSchema(t *testing.T) {
	rule := NewColumnNotInSchema(testSchema())

	q := query.NewQuery("SELECT id FROM users WHERE nonexistent = 1", query.TypeSelect)
	q.WhereCols = []string{"nonexistent"}
	violations := rule.Check(q, 0)
	require.Len(t, violations, 1)
	assert.Equal(t, "SCHEMA002", violations[0].RuleID)
	assert.Contains(t, violations[0].Message, "'nonexistent' not found")

	q = query.NewQuery("SELECT id FROM users WHERE email = 'x' ORDER BY created_at", query.TypeSelect)
	q.WhereCols = []string{"email"}
	q.OrderCols = []string{"created_at"}
	assert.Empty(t, rule.Check(q, 0))

	// Column matching is case-insensitive.
	q = query.NewQuery("SELECT id FROM users WHERE EMAIL = 'x'", query.TypeSelect)
	q.WhereCols = []string{"EMAIL"}
	assert.Empty(t, rule.Check(q, 0))

	// Positional references and numeric literals are skipped.
	q = query.NewQuery("SELECT id FROM users ORDER BY 1", query.TypeSelect)
	q.OrderCols = []string{"1"}
	assert.Empty(t, rule.Check(q, 0))
}

func TestSuggestIndex(t *testing.T) {
	rule := NewSuggestIndex(testSchema())

	q := query.NewQuery("SELECT id FROM users ORDER BY created_at", query.TypeSelect)
	q.OrderCols = []string{"created_at"}
	violations := rule.Check(q, 0)
	require.Len(t, violations, 1)
	assert.Equal(t, "SCHEMA003", violations[0].RuleID)
	assert.Equal(t, SeverityInfo, violations[0].Severity)
	assert.Equal(t, "CREATE INDEX idx_created_at ON table(created_at)", violations[0].Suggestion)

	// Only the first unindexed column is reported.
	q = query.NewQuery("SELECT id FROM users ORDER BY created_at, id", query.TypeSelect)
	q.OrderCols = []string{"created_at", "id"}
	assert.Len(t, rule.Check(q, 0), 1)

	q = query.NewQuery("SELECT id FROM users ORDER BY email", query.TypeSelect)
	q.OrderCols = []string{"email"}
	assert.Empty(t, rule.Check(q, 0))
}

func TestNewRunnerWithSchemaAddsRules(t *testing.T) {
	r := NewRunnerWithSchema(testSchema(), config.RulesConfig{})
	assert.Len(t, r.rules, 20)

	ids := map[string]bool{}
	for _, info := range r.RuleInfos() {
		ids[info.ID] = true
	}
	assert.True(t, ids["SCHEMA001"])
	assert.True(t, ids["SCHEMA002"])
	assert.True(t, ids["SCHEMA003"])
}

func TestNewRunnerWithSchemaDisabled(t *testing.T) {
	cfg := config.RulesConfig{Disabled: []string{"schema002"}}
	r := NewRunnerWithSchema(testSchema(), cfg)

	for _, info := range r.RuleInfos() {
		assert.NotEqual(t, "SCHEMA002", info.ID)
	}
	assert.Len(t, r.rules, 19)
}

func TestIsNumericOrDotted(t *testing.T) {
	assert.True(t, isNumericOrDotted("1"))
	assert.True(t, isNumericOrDotted("3.14"))
	assert.True(t, isNumericOrDotted(""))
	assert.False(t, isNumericOrDotted("email"))
	assert.False(t, isNumericOrDotted("u.id"))
}
