package query

import (
	"github.com/pingcap/tidb/parser/ast"
)

// extractionContext collects model fields while walking one statement.
// Derived tables get a fresh context that shares only the table set.
type extractionContext struct {
	tables      *colSet
	whereCols   *colSet
	joinCols    *colSet
	groupCols   *colSet
	havingCols  *colSet
	windowFuncs *[]WindowFunction
	hasUnion    *bool
	hasDistinct *bool
	hasSubquery *bool
}

// extractColumns walks an expression and records every column reference.
// Compound identifiers contribute their last segment only. Subquery bodies
// are not descended into; their columns belong to the inner query.
func extractColumns(expr ast.ExprNode, cols *colSet) {
	switch e := expr.(type) {
	case *ast.ColumnNameExpr:
		cols.add(e.Name.Name.O)
	case *ast.BinaryOperationExpr:
		extractColumns(e.L, cols)
		extractColumns(e.R, cols)
	case *ast.UnaryOperationExpr:
		extractColumns(e.V, cols)
	case *ast.PatternInExpr:
		extractColumns(e.Expr, cols)
		if e.Sel == nil {
			for _, item := range e.List {
				extractColumns(item, cols)
			}
		}
	case *ast.SubqueryExpr, *ast.ExistsSubqueryExpr:
	case *ast.BetweenExpr:
		extractColumns(e.Expr, cols)
		extractColumns(e.Left, cols)
		extractColumns(e.Right, cols)
	case *ast.IsNullExpr:
		extractColumns(e.Expr, cols)
	case *ast.ParenthesesExpr:
		extractColumns(e.Expr, cols)
	case *ast.FuncCallExpr:
		for _, arg := range e.Args {
			extractColumns(arg, cols)
		}
	case *ast.AggregateFuncExpr:
		for _, arg := range e.Args {
			extractColumns(arg, cols)
		}
	case *ast.CaseExpr:
		if e.Value != nil {
			extractColumns(e.Value, cols)
		}
		for _, when := range e.WhenClauses {
			extractColumns(when.Expr, cols)
			extractColumns(when.Result, cols)
		}
		if e.ElseClause != nil {
			extractColumns(e.ElseClause, cols)
		}
	case *ast.FuncCastExpr:
		extractColumns(e.Expr, cols)
	}
}

// extractWindowFuncs collects window function calls from an expression.
func extractWindowFuncs(expr ast.ExprNode, windows *[]WindowFunction) {
	switch e := expr.(type) {
	case *ast.WindowFuncExpr:
		w := WindowFunction{
			Name:          e.Name,
			PartitionCols: []string{},
			OrderCols:     []string{},
		}
		if e.Spec.PartitionBy != nil {
			for _, item := range e.Spec.PartitionBy.Items {
				if col, ok := item.Expr.(*ast.ColumnNameExpr); ok {
					w.PartitionCols = append(w.PartitionCols, col.Name.Name.O)
				}
			}
		}
		if e.Spec.OrderBy != nil {
			for _, item := range e.Spec.OrderBy.Items {
				if col, ok := item.Expr.(*ast.ColumnNameExpr); ok {
					w.OrderCols = append(w.OrderCols, col.Name.Name.O)
				}
			}
		}
		*windows = append(*windows, w)
		for _, arg := range e.Args {
			extractWindowFuncs(arg, windows)
		}
	case *ast.FuncCallExpr:
		for _, arg := range e.Args {
			extractWindowFuncs(arg, windows)
		}
	case *ast.AggregateFuncExpr:
		for _, arg := range e.Args {
			extractWindowFuncs(arg, windows)
		}
	case *ast.BinaryOperationExpr:
		extractWindowFuncs(e.L, windows)
		extractWindowFuncs(e.R, windows)
	case *ast.ParenthesesExpr:
		extractWindowFuncs(e.Expr, windows)
	case *ast.CaseExpr:
		if e.Value != nil {
			extractWindowFuncs(e.Value, windows)
		}
		for _, when := range e.WhenClauses {
			extractWindowFuncs(when.Expr, windows)
			extractWindowFuncs(when.Result, windows)
		}
		if e.ElseClause != nil {
			extractWindowFuncs(e.ElseClause, windows)
		}
	}
}

// containsSubquery reports whether the expression holds a subquery at any
// depth reachable without entering another query body.
func containsSubquery(expr ast.ExprNode) bool {
	switch e := expr.(type) {
	case *ast.SubqueryExpr, *ast.ExistsSubqueryExpr:
		return true
	case *ast.PatternInExpr:
		if e.Sel != nil {
			return true
		}
		if containsSubquery(e.Expr) {
			return true
		}
		for _, item := range e.List {
			if containsSubquery(item) {
				return true
			}
		}
		return false
	case *ast.BinaryOperationExpr:
		return containsSubquery(e.L) || containsSubquery(e.R)
	case *ast.ParenthesesExpr:
		return containsSubquery(e.Expr)
	case *ast.CaseExpr:
		if e.Value != nil && containsSubquery(e.Value) {
			return true
		}
		for _, when := range e.WhenClauses {
			if containsSubquery(when.Expr) || containsSubquery(when.Result) {
				return true
			}
		}
		return e.ElseClause != nil && containsSubquery(e.ElseClause)
	default:
		return false
	}
}

// walkResultSet dispatches over the select-shaped node kinds: plain
// selects, set operations and their select lists. It takes ast.Node
// because SetOprSelectList entries nest further select lists that are
// not ResultSetNodes themselves.
func walkResultSet(node ast.Node, ctx *extractionContext) {
	switch n := node.(type) {
	case *ast.SelectStmt:
		walkSelect(n, ctx)
	case *ast.SetOprStmt:
		*ctx.hasUnion = true
		if n.SelectList != nil {
			walkSetOprList(n.SelectList, ctx)
		}
	case *ast.SetOprSelectList:
		walkSetOprList(n, ctx)
	}
}

func walkSetOprList(list *ast.SetOprSelectList, ctx *extractionContext) {
	if len(list.Selects) > 1 {
		*ctx.hasUnion = true
	}
	for _, sel := range list.Selects {
		walkResultSet(sel, ctx)
	}
}

func walkSelect(sel *ast.SelectStmt, ctx *extractionContext) {
	*ctx.hasDistinct = sel.Distinct

	if sel.Fields != nil {
		for _, field := range sel.Fields.Fields {
			if field.Expr == nil {
				continue
			}
			extractWindowFuncs(field.Expr, ctx.windowFuncs)
			if containsSubquery(field.Expr) {
				*ctx.hasSubquery = true
			}
		}
	}

	if sel.From != nil && sel.From.TableRefs != nil {
		walkJoin(sel.From.TableRefs, ctx)
	}

	if sel.Where != nil {
		extractColumns(sel.Where, ctx.whereCols)
		if containsSubquery(sel.Where) {
			*ctx.hasSubquery = true
		}
	}

	if sel.GroupBy != nil {
		for _, item := range sel.GroupBy.Items {
			extractColumns(item.Expr, ctx.groupCols)
		}
	}

	if sel.Having != nil && sel.Having.Expr != nil {
		extractColumns(sel.Having.Expr, ctx.havingCols)
	}
}

// walkJoin resolves table factors and join conditions. Only joins with an
// explicit ON condition contribute join columns; CROSS and NATURAL joins
// contribute none.
func walkJoin(join *ast.Join, ctx *extractionContext) {
	walkTableRef(join.Left, ctx)
	if join.Right != nil {
		walkTableRef(join.Right, ctx)
	}
	if join.On != nil && join.On.Expr != nil {
		extractColumns(join.On.Expr, ctx.joinCols)
	}
}

func walkTableRef(node ast.ResultSetNode, ctx *extractionContext) {
	switch n := node.(type) {
	case nil:
	case *ast.Join:
		walkJoin(n, ctx)
	case *ast.TableSource:
		walkTableSource(n, ctx)
	}
}

func walkTableSource(src *ast.TableSource, ctx *extractionContext) {
	switch s := src.Source.(type) {
	case *ast.TableName:
		ctx.tables.add(tableNameString(s))
	case *ast.SelectStmt, *ast.SetOprStmt:
		if src.AsName.O != "" {
			ctx.tables.add("(subquery) AS " + src.AsName.O)
		}
		// Derived table: fresh context sharing only the table set, so
		// inner clause columns do not leak into the outer query.
		sub := newSubContext(ctx.tables)
		walkResultSet(s, sub)
	case *ast.Join:
		walkJoin(s, ctx)
	}
}

func newSubContext(tables *colSet) *extractionContext {
	var hasUnion, hasDistinct, hasSubquery bool
	subWindows := []WindowFunction{}
	return &extractionContext{
		tables:      tables,
		whereCols:   newColSet(),
		joinCols:    newColSet(),
		groupCols:   newColSet(),
		havingCols:  newColSet(),
		windowFuncs: &subWindows,
		hasUnion:    &hasUnion,
		hasDistinct: &hasDistinct,
		hasSubquery: &hasSubquery,
	}
}

func tableNameString(tn *ast.TableName) string {
	if tn.Schema.O != "" {
		return tn.Schema.O + "." + tn.Name.O
	}
	return tn.Name.O
}
