package bridge

import (
	"regexp"
	"strings"
)

const redacted = "[REDACTED]"

// sensitivePatterns flags CSV column / step label names whose recorded or
// injected values should never reach a log line, adapted from the
// teacher's HAR-sanitizing internal/scraper/testutil.SensitivePatterns (a
// network-capture redaction list) into a bridge-side guard over replay
// values: a step's recorded value or a CSV row can carry a password or
// token just as easily as a captured HTTP body can.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)password`),
	regexp.MustCompile(`(?i)passwd`),
	regexp.MustCompile(`(?i)secret`),
	regexp.MustCompile(`(?i)token`),
	regexp.MustCompile(`(?i)session`),
	regexp.MustCompile(`(?i)auth`),
	regexp.MustCompile(`(?i)jwt`),
	regexp.MustCompile(`(?i)bearer`),
	regexp.MustCompile(`(?i)api_?key`),
	regexp.MustCompile(`(?i)credential`),
	regexp.MustCompile(`(?i)access_key`),
	regexp.MustCompile(`(?i)private_key`),
}

// isSensitiveField reports whether name (a step label or CSV column name)
// looks like it carries a credential.
func isSensitiveField(name string) bool {
	lower := strings.ToLower(name)
	for _, re := range sensitivePatterns {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

// redactRow returns a copy of row with sensitive-looking values replaced,
// safe to pass to a logger. The original row is never mutated, since it is
// still needed verbatim for value resolution.
func redactRow(row map[string]string) map[string]string {
	out := make(map[string]string, len(row))
	for k, v := range row {
		if isSensitiveField(k) {
			out[k] = redacted
		} else {
			out[k] = v
		}
	}
	return out
}
