// Package preprocessor strips vendor-only DDL syntax before grammar
// parsing. ClickHouse is the only dialect that needs it: CODEC, TTL,
// SETTINGS and PARTITION BY clauses are removed from the SQL text and
// surfaced as metadata instead.
package preprocessor

import (
	"regexp"
	"strings"
)

// Metadata holds the ClickHouse-specific clauses extracted from DDL.
type Metadata struct {
	// Codecs maps column name to its compression codec expression.
	Codecs map[string]string
	// TTLExpressions lists TTL clause bodies in order of appearance.
	TTLExpressions []string
	// Settings holds table-level SETTINGS key/value pairs.
	Settings map[string]string
	// PartitionBy lists PARTITION BY expressions in order of appearance.
	PartitionBy []string
}

// Result is the preprocessed SQL plus the extracted metadata.
type Result struct {
	SQL      string
	Metadata Metadata
}

// Matches CODEC clauses with one level of nested parentheses:
// CODEC(ZSTD), CODEC(Delta, LZ4), CODEC(ZSTD(3)).
var codecRe = regexp.MustCompile(`(?i)\s+CODEC\s*\(([^()]*(?:\([^()]*\)[^()]*)*)\)`)

// Captures the column identifier preceding a CODEC clause.
var columnCodecRe = regexp.MustCompile(`(?i)(\w+)\s+\w+(?:\([^)]*\))?\s+CODEC\s*\(([^()]*(?:\([^()]*\)[^()]*)*)\)`)

// Matches a TTL clause body up to SETTINGS, a semicolon or end of input.
var ttlRe = regexp.MustCompile(`(?i)\bTTL\s+(.+?)(?:\s+SETTINGS\b|;|$)`)

var settingsRe = regexp.MustCompile(`(?i)\bSETTINGS\s+([^;]+)`)

var partitionByRe = regexp.MustCompile(`(?i)\bPARTITION\s+BY\s+(\S+(?:\([^)]*\))?)`)

var settingPairRe = regexp.MustCompile(`(\w+)\s*=\s*('[^']*'|\d+)`)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Preprocess removes ClickHouse-only constructs from sql and extracts
// their content as metadata. The returned SQL parses under the standard
// grammar; already-clean input comes back unchanged.
func Preprocess(sql string) Result {
	meta := Metadata{
		Codecs:         map[string]string{},
		TTLExpressions: []string{},
		Settings:       map[string]string{},
		PartitionBy:    []string{},
	}

	extractCodecs(sql, &meta)
	extractTTL(sql, &meta)
	extractSettings(sql, &meta)
	extractPartitionBy(sql, &meta)

	out := codecRe.ReplaceAllString(sql, "")
	out = ttlRe.ReplaceAllString(out, "")
	out = settingsRe.ReplaceAllString(out, "")
	out = partitionByRe.ReplaceAllString(out, "")
	out = normalizeWhitespace(out)

	return Result{SQL: out, Metadata: meta}
}

func extractCodecs(sql string, meta *Metadata) {
	for _, m := range columnCodecRe.FindAllStringSubmatch(sql, -1) {
		meta.Codecs[m[1]] = strings.TrimSpace(m[2])
	}
}

func extractTTL(sql string, meta *Metadata) {
	for _, m := range ttlRe.FindAllStringSubmatch(sql, -1) {
		meta.TTLExpressions = append(meta.TTLExpressions, strings.TrimSpace(m[1]))
	}
}

func extractSettings(sql string, meta *Metadata) {
	for _, m := range settingsRe.FindAllStringSubmatch(sql, -1) {
		for _, pair := range settingPairRe.FindAllStringSubmatch(m[1], -1) {
			meta.Settings[pair[1]] = strings.Trim(pair[2], "'")
		}
	}
}

func extractPartitionBy(sql string, meta *Metadata) {
	for _, m := range partitionByRe.FindAllStringSubmatch(sql, -1) {
		meta.PartitionBy = append(meta.PartitionBy, strings.TrimSpace(m[1]))
	}
}

func normalizeWhitespace(sql string) string {
	return whitespaceRe.ReplaceAllString(strings.TrimSpace(sql), " ")
}
