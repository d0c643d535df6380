// Package schema parses DDL statements (CREATE TABLE, CREATE INDEX) into a
// structured model consumed by schema-aware analysis rules and by the LLM
// prompt builder.
package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pingcap/tidb/parser/ast"

	"github.com/nsxbet/sql-analyzer/pkg/preprocessor"
	"github.com/nsxbet/sql-analyzer/pkg/query"
)

// ColumnInfo is column metadata extracted from CREATE TABLE.
type ColumnInfo struct {
	Name       string
	DataType   string
	IsNullable bool
	IsPrimary  bool
}

// IndexInfo is index metadata from CREATE INDEX or a table constraint.
type IndexInfo struct {
	Name     string
	Columns  []string
	IsUnique bool
}

// TableInfo groups the columns and indexes of one table.
type TableInfo struct {
	Name    string
	Columns []ColumnInfo
	Indexes []IndexInfo
}

// Schema is the parsed database schema. ClickHouse carries the metadata
// stripped by the preprocessor; it is nil for other dialects.
type Schema struct {
	Tables     map[string]*TableInfo
	ClickHouse *preprocessor.Metadata
}

// Parse builds a schema from DDL text. ClickHouse input is preprocessed
// first. A parse failure aborts with a *query.ParseError of kind "schema".
func Parse(sql string, dialect query.Dialect) (*Schema, error) {
	s := &Schema{Tables: make(map[string]*TableInfo)}

	if dialect == query.ClickHouse {
		res := preprocessor.Preprocess(sql)
		sql = res.SQL
		meta := res.Metadata
		s.ClickHouse = &meta
	}

	stmts, _, err := dialect.NewParser().Parse(sql, "", "")
	if err != nil {
		return nil, query.NewParseError("schema", err)
	}

	for _, stmt := range stmts {
		switch st := stmt.(type) {
		case *ast.CreateTableStmt:
			s.addTable(st)
		case *ast.CreateIndexStmt:
			s.addIndex(st)
		}
	}
	return s, nil
}

func (s *Schema) addTable(stmt *ast.CreateTableStmt) {
	info := &TableInfo{Name: stmt.Table.Name.O}

	for _, col := range stmt.Cols {
		ci := ColumnInfo{
			Name:       col.Name.Name.O,
			IsNullable: true,
		}
		if col.Tp != nil {
			ci.DataType = col.Tp.String()
		}
		for _, opt := range col.Options {
			switch opt.Tp {
			case ast.ColumnOptionPrimaryKey:
				ci.IsPrimary = true
			case ast.ColumnOptionNotNull:
				ci.IsNullable = false
			}
		}
		info.Columns = append(info.Columns, ci)
	}

	for _, cons := range stmt.Constraints {
		cols := constraintColumns(cons)
		switch cons.Tp {
		case ast.ConstraintPrimaryKey:
			for i := range info.Columns {
				for _, c := range cols {
					if info.Columns[i].Name == c {
						info.Columns[i].IsPrimary = true
						info.Columns[i].IsNullable = false
					}
				}
			}
		case ast.ConstraintKey, ast.ConstraintIndex:
			info.Indexes = append(info.Indexes, IndexInfo{Name: cons.Name, Columns: cols})
		case ast.ConstraintUniq, ast.ConstraintUniqKey, ast.ConstraintUniqIndex:
			info.Indexes = append(info.Indexes, IndexInfo{Name: cons.Name, Columns: cols, IsUnique: true})
		}
	}

	s.Tables[info.Name] = info
}

func (s *Schema) addIndex(stmt *ast.CreateIndexStmt) {
	table, ok := s.Tables[stmt.Table.Name.O]
	if !ok {
		return
	}
	idx := IndexInfo{
		Name:     stmt.IndexName,
		IsUnique: stmt.KeyType == ast.IndexKeyTypeUnique,
	}
	for _, part := range stmt.IndexPartSpecifications {
		if part.Column != nil {
			idx.Columns = append(idx.Columns, part.Column.Name.O)
		}
	}
	table.Indexes = append(table.Indexes, idx)
}

func constraintColumns(cons *ast.Constraint) []string {
	cols := make([]string, 0, len(cons.Keys))
	for _, key := range cons.Keys {
		if key.Column != nil {
			cols = append(cols, key.Column.Name.O)
		}
	}
	return cols
}

// Clone returns a deep copy. Schema-aware rules each own a copy so the
// runner can hand rules out to goroutines without sharing.
func (s *Schema) Clone() *Schema {
	c := &Schema{Tables: make(map[string]*TableInfo, len(s.Tables))}
	for name, t := range s.Tables {
		nt := &TableInfo{Name: t.Name}
		nt.Columns = append(nt.Columns, t.Columns...)
		for _, idx := range t.Indexes {
			nt.Indexes = append(nt.Indexes, IndexInfo{
				Name:     idx.Name,
				Columns:  append([]string(nil), idx.Columns...),
				IsUnique: idx.IsUnique,
			})
		}
		c.Tables[name] = nt
	}
	if s.ClickHouse != nil {
		meta := *s.ClickHouse
		c.ClickHouse = &meta
	}
	return c
}

// sortedTables returns tables ordered by name for deterministic output.
func (s *Schema) sortedTables() []*TableInfo {
	names := make([]string, 0, len(s.Tables))
	for name := range s.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	tables := make([]*TableInfo, 0, len(names))
	for _, name := range names {
		tables = append(tables, s.Tables[name])
	}
	return tables
}

// IndexedColumns returns every column covered by any index, across tables.
func (s *Schema) IndexedColumns() []string {
	var cols []string
	for _, t := range s.sortedTables() {
		for _, idx := range t.Indexes {
			cols = append(cols, idx.Columns...)
		}
	}
	return cols
}

// AllColumns returns every column name defined in the schema.
func (s *Schema) AllColumns() []string {
	var cols []string
	for _, t := range s.sortedTables() {
		for _, c := range t.Columns {
			cols = append(cols, c.Name)
		}
	}
	return cols
}

// ToSummary renders a human-readable schema description for LLM prompts
// and dry-run output. Tables appear in name order.
func (s *Schema) ToSummary() string {
	var b strings.Builder
	b.WriteString("Database Schema:\n\n")

	for _, table := range s.sortedTables() {
		fmt.Fprintf(&b, "Table: %s\n", table.Name)
		b.WriteString("Columns:\n")
		for _, col := range table.Columns {
			nullable := "NULL"
			if !col.IsNullable {
				nullable = "NOT NULL"
			}
			primary := ""
			if col.IsPrimary {
				primary = " PRIMARY KEY"
			}
			fmt.Fprintf(&b, "  - %s %s %s%s\n", col.Name, col.DataType, nullable, primary)
		}
		if len(table.Indexes) > 0 {
			b.WriteString("Indexes:\n")
			for _, idx := range table.Indexes {
				unique := ""
				if idx.IsUnique {
					unique = "UNIQUE "
				}
				fmt.Fprintf(&b, "  - %sINDEX %s ON (%s)\n", unique, idx.Name, strings.Join(idx.Columns, ", "))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}
