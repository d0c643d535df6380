package query

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pingcap/tidb/parser/ast"
	"github.com/pingcap/tidb/parser/format"
	driver "github.com/pingcap/tidb/parser/test_driver"
	"golang.org/x/sync/errgroup"

	"github.com/nsxbet/sql-analyzer/pkg/preprocessor"
)

var restoreFlags = format.RestoreKeyWordUppercase |
	format.RestoreStringSingleQuotes |
	format.RestoreStringWithoutCharset |
	format.RestoreSpacesAroundBinaryOperation

var errPosRe = regexp.MustCompile(`line (\d+) column (\d+)`)

// Parse parses a batch of SQL statements and classifies each into a Query.
// A failure anywhere aborts the whole batch with a *ParseError. Statements
// are classified concurrently; the result order matches the input order.
func Parse(sql string, dialect Dialect) ([]*Query, error) {
	if dialect == ClickHouse {
		sql = preprocessor.Preprocess(sql).SQL
	}

	p := dialect.NewParser()
	stmts, _, err := p.Parse(sql, "", "")
	if err != nil {
		return nil, NewParseError("query", err)
	}

	queries := make([]*Query, len(stmts))
	g := new(errgroup.Group)
	for i, stmt := range stmts {
		g.Go(func() error {
			queries[i] = classifyStmt(stmt)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return queries, nil
}

func NewParseError(kind string, err error) *ParseError {
	pe := &ParseError{Kind: kind, Msg: err.Error()}
	if m := errPosRe.FindStringSubmatch(pe.Msg); m != nil {
		pe.Line, _ = strconv.Atoi(m[1])
		pe.Column, _ = strconv.Atoi(m[2])
	}
	return pe
}

func classifyStmt(stmt ast.StmtNode) *Query {
	raw := restoreNode(stmt)

	switch s := stmt.(type) {
	case *ast.SelectStmt:
		return classifySelect(raw, s, s.With, s.OrderBy, s.Limit)
	case *ast.SetOprStmt:
		return classifySelect(raw, s, s.With, s.OrderBy, s.Limit)
	case *ast.InsertStmt:
		q := NewQuery(raw, TypeInsert)
		q.Tables = refClauseTables(s.Table)
		return q
	case *ast.UpdateStmt:
		q := NewQuery(raw, TypeUpdate)
		q.Tables = refClauseTables(s.TableRefs)
		q.WhereCols = exprColumns(s.Where)
		return q
	case *ast.DeleteStmt:
		q := NewQuery(raw, TypeDelete)
		q.Tables = refClauseTables(s.TableRefs)
		q.WhereCols = exprColumns(s.Where)
		return q
	case *ast.TruncateTableStmt:
		q := NewQuery(raw, TypeTruncate)
		if s.Table != nil {
			q.Tables = []string{tableNameString(s.Table)}
		}
		return q
	case *ast.DropTableStmt:
		q := NewQuery(raw, TypeDrop)
		for _, t := range s.Tables {
			q.Tables = append(q.Tables, tableNameString(t))
		}
		q.ObjectKind = "table"
		if s.IsView {
			q.ObjectKind = "view"
		}
		return q
	case *ast.DropDatabaseStmt:
		q := NewQuery(raw, TypeDrop)
		q.Tables = []string{s.Name.O}
		q.ObjectKind = "database"
		return q
	case *ast.DropIndexStmt:
		q := NewQuery(raw, TypeDrop)
		q.Tables = []string{s.IndexName}
		q.ObjectKind = "index"
		return q
	case *ast.DropSequenceStmt:
		q := NewQuery(raw, TypeDrop)
		for _, t := range s.Sequences {
			q.Tables = append(q.Tables, tableNameString(t))
		}
		q.ObjectKind = "sequence"
		return q
	default:
		return NewQuery(raw, TypeOther)
	}
}

// classifySelect handles both plain selects and set operations. CTE names,
// ORDER BY columns and LIMIT/OFFSET come from the top-level statement only;
// nested query clauses stay local to their query.
func classifySelect(raw string, body ast.ResultSetNode, with *ast.WithClause, orderBy *ast.OrderByClause, limit *ast.Limit) *Query {
	q := NewQuery(raw, TypeSelect)

	if with != nil {
		for _, cte := range with.CTEs {
			q.CTENames = append(q.CTENames, cte.Name.O)
		}
	}

	if limit != nil {
		q.Limit = literalUint(limit.Count)
		q.Offset = literalUint(limit.Offset)
	}

	if orderBy != nil {
		orderCols := newColSet()
		for _, item := range orderBy.Items {
			extractColumns(item.Expr, orderCols)
		}
		q.OrderCols = orderCols.values()
	}

	tables := newColSet()
	whereCols := newColSet()
	joinCols := newColSet()
	groupCols := newColSet()
	havingCols := newColSet()
	windowFuncs := []WindowFunction{}
	ctx := &extractionContext{
		tables:      tables,
		whereCols:   whereCols,
		joinCols:    joinCols,
		groupCols:   groupCols,
		havingCols:  havingCols,
		windowFuncs: &windowFuncs,
		hasUnion:    &q.HasUnion,
		hasDistinct: &q.HasDistinct,
		hasSubquery: &q.HasSubquery,
	}
	walkResultSet(body, ctx)

	q.Tables = tables.values()
	q.WhereCols = whereCols.values()
	q.JoinCols = joinCols.values()
	q.GroupCols = groupCols.values()
	q.HavingCols = havingCols.values()
	q.WindowFuncs = windowFuncs
	return q
}

// literalUint returns the value of a literal numeric limit expression, or
// nil for anything else (placeholders, arithmetic).
func literalUint(expr ast.ExprNode) *uint64 {
	ve, ok := expr.(*driver.ValueExpr)
	if !ok {
		return nil
	}
	switch v := ve.GetValue().(type) {
	case uint64:
		return &v
	case int64:
		if v < 0 {
			return nil
		}
		u := uint64(v)
		return &u
	default:
		return nil
	}
}

func refClauseTables(refs *ast.TableRefsClause) []string {
	tables := newColSet()
	if refs != nil && refs.TableRefs != nil {
		collectTableNames(refs.TableRefs, tables)
	}
	return tables.values()
}

func collectTableNames(node ast.ResultSetNode, tables *colSet) {
	switch n := node.(type) {
	case nil:
	case *ast.Join:
		collectTableNames(n.Left, tables)
		if n.Right != nil {
			collectTableNames(n.Right, tables)
		}
	case *ast.TableSource:
		if tn, ok := n.Source.(*ast.TableName); ok {
			tables.add(tableNameString(tn))
		}
	}
}

func exprColumns(expr ast.ExprNode) []string {
	cols := newColSet()
	if expr != nil {
		extractColumns(expr, cols)
	}
	return cols.values()
}

func restoreNode(stmt ast.StmtNode) string {
	var sb strings.Builder
	ctx := format.NewRestoreCtx(restoreFlags, &sb)
	if err := stmt.Restore(ctx); err != nil {
		return strings.TrimSpace(stmt.Text())
	}
	return sb.String()
}
