package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsxbet/sql-analyzer/pkg/query"
)

const usersDDL = `
CREATE TABLE users (
    id INT PRIMARY KEY,
    email VARCHAR(255) NOT NULL,
    name VARCHAR(100),
    created_at TIMESTAMP,
    UNIQUE KEY uk_email (email),
    KEY idx_created (created_at)
);
CREATE INDEX idx_name ON users (name);
`

func TestParseCreateTable(t *testing.T) {
	s, err := Parse(usersDDL, query.Generic)
	require.NoError(t, err)

	table, ok := s.Tables["users"]
	require.True(t, ok)
	require.Len(t, table.Columns, 4)

	id := table.Columns[0]
	assert.Equal(t, "id", id.Name)
	assert.True(t, id.IsPrimary)

	email := table.Columns[1]
	assert.Equal(t, "email", email.Name)
	assert.False(t, email.IsNullable)
	assert.False(t, email.IsPrimary)

	name := table.Columns[2]
	assert.True(t, name.IsNullable)
}

func TestParseIndexes(t *testing.T) {
	s, err := Parse(usersDDL, query.Generic)
	require.NoError(t, err)

	table := s.Tables["users"]
	require.Len(t, table.Indexes, 3)

	assert.Equal(t, "uk_email", table.Indexes[0].Name)
	assert.True(t, table.Indexes[0].IsUnique)
	assert.Equal(t, []string{"email"}, table.Indexes[0].Columns)

	assert.Equal(t, "idx_created", table.Indexes[1].Name)
	assert.False(t, table.Indexes[1].IsUnique)

	// CREATE INDEX statements attach to the already-parsed table.
	assert.Equal(t, "idx_name", table.Indexes[2].Name)
	assert.Equal(t, []string{"name"}, table.Indexes[2].Columns)
}

func TestParseTablePrimaryKeyConstraint(t *testing.T) {
	ddl := `CREATE TABLE pairs (a INT, b INT, PRIMARY KEY (a, b))`
	s, err := Parse(ddl, query.Generic)
	require.NoError(t, err)

	table := s.Tables["pairs"]
	require.Len(t, table.Columns, 2)
	for _, col := range table.Columns {
		assert.True(t, col.IsPrimary, col.Name)
		assert.False(t, col.IsNullable, col.Name)
	}
}

func TestParseUniqueIndexStatement(t *testing.T) {
	ddl := `
CREATE TABLE t (x INT);
CREATE UNIQUE INDEX ux ON t (x);
`
	s, err := Parse(ddl, query.Generic)
	require.NoError(t, err)

	table := s.Tables["t"]
	require.Len(t, table.Indexes, 1)
	assert.True(t, table.Indexes[0].IsUnique)
}

func TestParseIndexOnUnknownTableIgnored(t *testing.T) {
	s, err := Parse(`CREATE INDEX idx ON missing (x)`, query.Generic)
	require.NoError(t, err)
	assert.Empty(t, s.Tables)
}

func TestParseErrorKind(t *testing.T) {
	_, err := Parse("CREATE TABLE (", query.Generic)
	require.Error(t, err)

	var pe *query.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "schema", pe.Kind)
}

func TestIndexedColumns(t *testing.T) {
	s, err := Parse(usersDDL, query.Generic)
	require.NoError(t, err)

	assert.Equal(t, []string{"email", "created_at", "name"}, s.IndexedColumns())
}

func TestAllColumns(t *testing.T) {
	s, err := Parse(usersDDL, query.Generic)
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "email", "name", "created_at"}, s.AllColumns())
}

func TestClone(t *testing.T) {
	s, err := Parse(usersDDL, query.Generic)
	require.NoError(t, err)

	c := s.Clone()
	c.Tables["users"].Indexes[0].Columns[0] = "mutated"
	c.Tables["extra"] = &TableInfo{Name: "extra"}

	assert.Equal(t, "email", s.Tables["users"].Indexes[0].Columns[0])
	assert.NotContains(t, s.Tables, "extra")
}

func TestToSummary(t *testing.T) {
	s, err := Parse(usersDDL, query.Generic)
	require.NoError(t, err)

	summary := s.ToSummary()
	assert.Contains(t, summary, "Database Schema:")
	assert.Contains(t, summary, "Table: users")
	assert.Contains(t, summary, "  - email ")
	assert.Contains(t, summary, "NOT NULL")
	assert.Contains(t, summary, "PRIMARY KEY")
	assert.Contains(t, summary, "UNIQUE INDEX uk_email ON (email)")
	assert.Contains(t, summary, "INDEX idx_created ON (created_at)")
}

func TestParseClickHouseDDL(t *testing.T) {
	ddl := `CREATE TABLE events (
    event_date DATE,
    user_id INT CODEC(ZSTD),
    payload VARCHAR(255)
)`
	s, err := Parse(ddl, query.ClickHouse)
	require.NoError(t, err)

	table, ok := s.Tables["events"]
	require.True(t, ok)
	assert.Len(t, table.Columns, 3)

	require.NotNil(t, s.ClickHouse)
	assert.Equal(t, "ZSTD", s.ClickHouse.Codecs["user_id"])
}
