package rules

import (
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nsxbet/sql-analyzer/pkg/config"
	"github.com/nsxbet/sql-analyzer/pkg/query"
	"github.com/nsxbet/sql-analyzer/pkg/schema"
)

// Rule analyzes a single query and reports violations. Implementations
// must be safe for concurrent use; the runner calls Check from multiple
// goroutines.
type Rule interface {
	// Info returns metadata about this rule.
	Info() RuleInfo

	// Check analyzes one query. queryIndex is the zero-based position of
	// the query in the input batch.
	Check(q *query.Query, queryIndex int) []Violation
}

// Runner executes a configured rule set over a query batch in parallel.
type Runner struct {
	rules             []Rule
	severityOverrides map[string]Severity
}

func defaultRules() []Rule {
	return []Rule{
		&SelectStarWithoutLimit{},
		&LeadingWildcard{},
		&OrInsteadOfIn{},
		&LargeOffset{},
		&MissingJoinCondition{},
		&DistinctWithOrderBy{},
		&ScalarSubquery{},
		&FunctionOnColumn{},
		&NotInWithSubquery{},
		&UnionWithoutAll{},
		&SelectWithoutWhere{},
		&SelectStar{},
		&MissingTableAlias{},
		&MissingWhereInUpdate{},
		&MissingWhereInDelete{},
		&TruncateDetected{},
		&DropDetected{},
	}
}

// NewRunner builds a runner with the built-in syntactic rules, minus the
// disabled ones, with severity overrides applied at report time.
func NewRunner(cfg config.RulesConfig) *Runner {
	r := &Runner{severityOverrides: map[string]Severity{}}
	for _, rule := range defaultRules() {
		if isDisabled(cfg, rule.Info().ID) {
			continue
		}
		r.addRule(rule, cfg)
	}
	return r
}

// NewRunnerWithSchema builds a runner that additionally carries the
// schema-aware rules. Each schema rule owns its own copy of the schema.
func NewRunnerWithSchema(s *schema.Schema, cfg config.RulesConfig) *Runner {
	r := NewRunner(cfg)
	schemaRules := []Rule{
		NewMissingIndexOnFilterColumn(s.Clone()),
		NewColumnNotInSchema(s.Clone()),
		NewSuggestIndex(s.Clone()),
	}
	for _, rule := range schemaRules {
		if isDisabled(cfg, rule.Info().ID) {
			continue
		}
		r.addRule(rule, cfg)
	}
	return r
}

func (r *Runner) addRule(rule Rule, cfg config.RulesConfig) {
	id := rule.Info().ID
	if raw, ok := cfg.Severity[id]; ok {
		if sev, ok := parseSeverity(raw); ok {
			r.severityOverrides[id] = sev
		}
	}
	r.rules = append(r.rules, rule)
}

func isDisabled(cfg config.RulesConfig, id string) bool {
	for _, d := range cfg.Disabled {
		if strings.EqualFold(d, id) {
			return true
		}
	}
	return false
}

// RuleInfos returns metadata for every enabled rule, in execution order.
func (r *Runner) RuleInfos() []RuleInfo {
	infos := make([]RuleInfo, 0, len(r.rules))
	for _, rule := range r.rules {
		infos = append(infos, rule.Info())
	}
	return infos
}

// Analyze runs every enabled rule against every query. Checks fan out in
// parallel per query and per rule; results land in preallocated slots so
// the report never depends on completion order. Violations are sorted by
// severity (errors first), then by query index.
func (r *Runner) Analyze(queries []*query.Query) *AnalysisReport {
	report := NewReport(len(queries), len(r.rules))
	if len(queries) == 0 || len(r.rules) == 0 {
		return report
	}

	cells := make([][]Violation, len(queries)*len(r.rules))
	var g errgroup.Group
	for qi, q := range queries {
		g.Go(func() error {
			var inner errgroup.Group
			for ri, rule := range r.rules {
				inner.Go(func() error {
					cells[qi*len(r.rules)+ri] = rule.Check(q, qi)
					return nil
				})
			}
			return inner.Wait()
		})
	}
	// Checks never fail; the group is used purely for the fan-out.
	_ = g.Wait()

	for _, vs := range cells {
		for _, v := range vs {
			if sev, ok := r.severityOverrides[v.RuleID]; ok {
				v.Severity = sev
			}
			report.Violations = append(report.Violations, v)
		}
	}

	sort.SliceStable(report.Violations, func(i, j int) bool {
		a, b := report.Violations[i], report.Violations[j]
		if a.Severity != b.Severity {
			return a.Severity > b.Severity
		}
		return a.QueryIndex < b.QueryIndex
	})

	return report
}

func parseSeverity(s string) (Severity, bool) {
	switch strings.ToLower(s) {
	case "error":
		return SeverityError, true
	case "warning", "warn":
		return SeverityWarning, true
	case "info":
		return SeverityInfo, true
	default:
		return SeverityInfo, false
	}
}
