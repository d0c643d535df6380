package query

import (
	"github.com/pingcap/tidb/parser"
	"github.com/pingcap/tidb/parser/mysql"
	"github.com/pkg/errors"
)

// Dialect selects the SQL grammar variant accepted by the parser. It only
// affects parser acceptance; the extracted model is dialect-independent.
type Dialect int

const (
	Generic Dialect = iota
	MySQL
	PostgreSQL
	SQLite
	ClickHouse
)

func (d Dialect) String() string {
	switch d {
	case MySQL:
		return "mysql"
	case PostgreSQL:
		return "postgresql"
	case SQLite:
		return "sqlite"
	case ClickHouse:
		return "clickhouse"
	default:
		return "generic"
	}
}

// ParseDialect maps a user-facing dialect name to a Dialect.
func ParseDialect(s string) (Dialect, error) {
	switch s {
	case "", "generic":
		return Generic, nil
	case "mysql":
		return MySQL, nil
	case "postgresql", "postgres":
		return PostgreSQL, nil
	case "sqlite":
		return SQLite, nil
	case "clickhouse":
		return ClickHouse, nil
	default:
		return Generic, errors.Errorf("unsupported SQL dialect: %s", s)
	}
}

// NewParser builds a parser configured for the dialect. Non-MySQL dialects
// enable ANSI quoting so double-quoted identifiers parse as identifiers.
func (d Dialect) NewParser() *parser.Parser {
	p := parser.New()
	switch d {
	case Generic, PostgreSQL, SQLite:
		p.SetSQLMode(mysql.ModeANSIQuotes)
	default:
	}
	return p
}
