package output

import (
	"encoding/json"

	"github.com/nsxbet/sql-analyzer/pkg/rules"
)

// SARIF 2.1.0 output for code-scanning integrations.
// See: https://docs.github.com/en/code-security/code-scanning/integrating-with-code-scanning/sarif-support-for-code-scanning

const (
	toolName       = "sql-analyzer"
	toolVersion    = "1.0.0"
	toolInfoURI    = "https://github.com/nsxbet/sql-analyzer"
	sarifSchemaURI = "https://json.schemastore.org/sarif-2.1.0.json"
)

type sarifLog struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string              `json:"id"`
	ShortDescription sarifMessage        `json:"shortDescription"`
	Properties       sarifRuleProperties `json:"properties"`
}

type sarifRuleProperties struct {
	Category string `json:"category,omitempty"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           sarifRegion           `json:"region"`
}

type sarifArtifactLocation struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
}

func sarifLevel(s rules.Severity) string {
	switch s {
	case rules.SeverityError:
		return "error"
	case rules.SeverityWarning:
		return "warning"
	default:
		return "note"
	}
}

// toSarif renders the report as a SARIF 2.1.0 log. Queries have no source
// positions of their own, so each result points at the batch position:
// startLine is the one-based query index.
func toSarif(report *rules.AnalysisReport, opts Options) string {
	uri := opts.SourcePath
	if uri == "" {
		uri = "stdin"
	}

	results := make([]sarifResult, 0, len(report.Violations))
	for _, v := range report.Violations {
		message := v.Message
		if v.Suggestion != "" {
			message += ". " + v.Suggestion
		}
		results = append(results, sarifResult{
			RuleID:  v.RuleID,
			Level:   sarifLevel(v.Severity),
			Message: sarifMessage{Text: message},
			Locations: []sarifLocation{{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{URI: uri},
					Region:           sarifRegion{StartLine: v.QueryIndex + 1},
				},
			}},
		})
	}

	log := sarifLog{
		Schema:  sarifSchemaURI,
		Version: "2.1.0",
		Runs: []sarifRun{{
			Tool: sarifTool{
				Driver: sarifDriver{
					Name:           toolName,
					Version:        toolVersion,
					InformationURI: toolInfoURI,
					Rules:          sarifRules(report.Violations),
				},
			},
			Results: results,
		}},
	}

	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return ""
	}
	return string(data)
}

func sarifRules(violations []rules.Violation) []sarifRule {
	seen := make(map[string]bool)
	out := []sarifRule{}

	for _, v := range violations {
		if seen[v.RuleID] {
			continue
		}
		seen[v.RuleID] = true

		out = append(out, sarifRule{
			ID:               v.RuleID,
			ShortDescription: sarifMessage{Text: v.RuleName},
			Properties:       sarifRuleProperties{Category: v.Category.String()},
		})
	}
	return out
}
