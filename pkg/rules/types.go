// Package rules implements the static analysis rule engine: violation
// types, the Rule interface, the built-in PERF/STYLE/SEC/SCHEMA catalogue
// and a parallel runner that produces deterministic reports.
package rules

// Severity is the level of a rule violation, ordered for sorting and for
// the exit-code contract.
type Severity int

const (
	// SeverityInfo is an informational suggestion; it never affects the
	// exit code.
	SeverityInfo Severity = iota
	// SeverityWarning may indicate a problem (exit code 1).
	SeverityWarning
	// SeverityError must be addressed (exit code 2).
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "ERROR"
	case SeverityWarning:
		return "WARN"
	default:
		return "INFO"
	}
}

// Name returns the serialization name used in JSON and YAML output.
func (s Severity) Name() string {
	switch s {
	case SeverityError:
		return "Error"
	case SeverityWarning:
		return "Warning"
	default:
		return "Info"
	}
}

// MarshalJSON serializes the severity as its name.
func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.Name() + `"`), nil
}

// MarshalYAML serializes the severity as its name.
func (s Severity) MarshalYAML() (interface{}, error) {
	return s.Name(), nil
}

// Category groups rules for display and filtering.
type Category int

const (
	CategoryPerformance Category = iota
	CategoryStyle
	CategorySecurity
)

func (c Category) String() string {
	switch c {
	case CategoryStyle:
		return "Style"
	case CategorySecurity:
		return "Security"
	default:
		return "Performance"
	}
}

// MarshalJSON serializes the category as its name.
func (c Category) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}

// MarshalYAML serializes the category as its name.
func (c Category) MarshalYAML() (interface{}, error) {
	return c.String(), nil
}

// Violation is a single finding produced by a rule for one query.
type Violation struct {
	RuleID     string   `json:"rule_id" yaml:"rule_id"`
	RuleName   string   `json:"rule_name" yaml:"rule_name"`
	Message    string   `json:"message" yaml:"message"`
	Severity   Severity `json:"severity" yaml:"severity"`
	Category   Category `json:"category" yaml:"category"`
	Suggestion string   `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
	QueryIndex int      `json:"query_index" yaml:"query_index"`
}

// RuleInfo is rule metadata used for identification, configuration and
// the SARIF rule catalogue.
type RuleInfo struct {
	ID       string
	Name     string
	Severity Severity
	Category Category
}

// AnalysisReport is the complete result of one analysis run.
type AnalysisReport struct {
	Violations   []Violation `json:"violations" yaml:"violations"`
	QueriesCount int         `json:"queries_count" yaml:"queries_count"`
	RulesCount   int         `json:"rules_count" yaml:"rules_count"`
}

// NewReport creates an empty report for the given run dimensions.
func NewReport(queriesCount, rulesCount int) *AnalysisReport {
	return &AnalysisReport{
		Violations:   []Violation{},
		QueriesCount: queriesCount,
		RulesCount:   rulesCount,
	}
}

func (r *AnalysisReport) countBySeverity(s Severity) int {
	n := 0
	for _, v := range r.Violations {
		if v.Severity == s {
			n++
		}
	}
	return n
}

// ErrorCount returns the number of error-level violations.
func (r *AnalysisReport) ErrorCount() int { return r.countBySeverity(SeverityError) }

// WarningCount returns the number of warning-level violations.
func (r *AnalysisReport) WarningCount() int { return r.countBySeverity(SeverityWarning) }

// InfoCount returns the number of info-level violations.
func (r *AnalysisReport) InfoCount() int { return r.countBySeverity(SeverityInfo) }
