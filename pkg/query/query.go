// Package query turns raw SQL text into a normalized semantic model:
// for every statement it records the tables touched, the columns referenced
// per clause, window functions, set operations and pagination, ready for
// rule-based analysis.
package query

import (
	"fmt"
	"sync"
)

// QueryType classifies a parsed statement.
type QueryType int

const (
	TypeSelect QueryType = iota
	TypeInsert
	TypeUpdate
	TypeDelete
	TypeTruncate
	TypeDrop
	TypeOther
)

func (t QueryType) String() string {
	switch t {
	case TypeSelect:
		return "SELECT"
	case TypeInsert:
		return "INSERT"
	case TypeUpdate:
		return "UPDATE"
	case TypeDelete:
		return "DELETE"
	case TypeTruncate:
		return "TRUNCATE"
	case TypeDrop:
		return "DROP"
	default:
		return "OTHER"
	}
}

// MarshalJSON serializes the type as its display name.
func (t QueryType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// MarshalYAML serializes the type as its display name.
func (t QueryType) MarshalYAML() (interface{}, error) {
	return t.String(), nil
}

// WindowFunction describes one window function call found in a query.
type WindowFunction struct {
	Name          string   `json:"name" yaml:"name"`
	PartitionCols []string `json:"partition_cols" yaml:"partition_cols"`
	OrderCols     []string `json:"order_cols" yaml:"order_cols"`
}

// Complexity holds the derived complexity metrics of a query.
type Complexity struct {
	Score            uint32 `json:"score" yaml:"score"`
	TableCount       uint32 `json:"table_count" yaml:"table_count"`
	JoinCount        uint32 `json:"join_count" yaml:"join_count"`
	SubqueryCount    uint32 `json:"subquery_count" yaml:"subquery_count"`
	ConditionCount   uint32 `json:"condition_count" yaml:"condition_count"`
	AggregationCount uint32 `json:"aggregation_count" yaml:"aggregation_count"`
	WindowCount      uint32 `json:"window_count" yaml:"window_count"`
}

// Query is the normalized model of a single SQL statement.
//
// Column slices are insertion-ordered and duplicate-free. Limit and Offset
// are only set when the statement carries literal numeric values.
type Query struct {
	Raw         string           `json:"raw" yaml:"raw"`
	Type        QueryType        `json:"query_type" yaml:"query_type"`
	Tables      []string         `json:"tables" yaml:"tables"`
	CTENames    []string         `json:"cte_names" yaml:"cte_names"`
	ObjectKind  string           `json:"object_kind,omitempty" yaml:"object_kind,omitempty"`
	WhereCols   []string         `json:"where_cols" yaml:"where_cols"`
	JoinCols    []string         `json:"join_cols" yaml:"join_cols"`
	OrderCols   []string         `json:"order_cols" yaml:"order_cols"`
	GroupCols   []string         `json:"group_cols" yaml:"group_cols"`
	HavingCols  []string         `json:"having_cols" yaml:"having_cols"`
	WindowFuncs []WindowFunction `json:"window_funcs" yaml:"window_funcs"`
	Limit       *uint64          `json:"limit" yaml:"limit"`
	Offset      *uint64          `json:"offset" yaml:"offset"`
	HasUnion    bool             `json:"has_union" yaml:"has_union"`
	HasDistinct bool             `json:"has_distinct" yaml:"has_distinct"`
	HasSubquery bool             `json:"has_subquery" yaml:"has_subquery"`

	complexityOnce sync.Once
	complexity     Complexity
}

// NewQuery creates a query with the given raw text and type.
func NewQuery(raw string, t QueryType) *Query {
	return &Query{Raw: raw, Type: t}
}

// Complexity returns the complexity metrics, computed once on first use.
// Safe for concurrent callers.
func (q *Query) Complexity() Complexity {
	q.complexityOnce.Do(func() {
		q.complexity = calculateComplexity(q)
	})
	return q.complexity
}

func calculateComplexity(q *Query) Complexity {
	c := Complexity{
		TableCount:       uint32(len(q.Tables)),
		JoinCount:        uint32(len(q.JoinCols)),
		ConditionCount:   uint32(len(q.WhereCols) + len(q.HavingCols)),
		WindowCount:      uint32(len(q.WindowFuncs)),
		AggregationCount: uint32(len(q.GroupCols)),
	}
	if q.HasSubquery {
		c.SubqueryCount = 1
	}
	c.Score = c.TableCount +
		c.JoinCount*3 +
		c.ConditionCount +
		c.WindowCount*5 +
		c.SubqueryCount*4 +
		c.AggregationCount*2
	if q.HasUnion {
		c.Score += 3
	}
	if q.HasDistinct {
		c.Score += 1
	}
	return c
}

// ParseError reports a failed parse of a query or schema batch. When the
// parser provides a position it is carried in Line and Column (1-based);
// zero means unknown.
type ParseError struct {
	Kind   string // "query" or "schema"
	Msg    string
	Line   int
	Column int
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s parse error at line %d column %d: %s", e.Kind, e.Line, e.Column, e.Msg)
	}
	return fmt.Sprintf("%s parse error: %s", e.Kind, e.Msg)
}
