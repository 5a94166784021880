// Package sqltext turns raw model output into an executable SQL statement:
// Extract pulls a candidate out of free text, Validate gates it before it
// reaches the warehouse.
package sqltext

import (
	"errors"
	"strings"
)

// ErrNoCandidate reports that extraction found nothing that could be SQL.
var ErrNoCandidate = errors.New("no SQL candidate in model output")

// A strategy tries to pull a SQL candidate out of raw text.
type strategy func(raw string) (string, bool)

// strategies are tried in order; the first hit wins. Append new heuristics
// rather than reordering existing ones.
var strategies = []strategy{
	taggedFence,
	anyFence,
	keywordLines,
	wholeInput,
}

// Extract returns the most plausible SQL candidate in raw. ok is false only
// when raw is empty or whitespace; any other input yields a candidate, with
// Validate left to judge whether it is runnable.
func Extract(raw string) (sql string, ok bool) {
	if strings.TrimSpace(raw) == "" {
		return "", false
	}
	for _, try := range strategies {
		if candidate, hit := try(raw); hit {
			return trimQueryLabel(candidate), true
		}
	}
	return "", false
}

// taggedFence returns the interior of the first fenced block tagged sql.
func taggedFence(raw string) (string, bool) {
	return fencedBlock(raw, func(tag string) bool { return tag == "sql" })
}

// anyFence returns the interior of the first fenced block, whatever the tag.
func anyFence(raw string) (string, bool) {
	return fencedBlock(raw, func(string) bool { return true })
}

// fencedBlock scans for a ``` fence whose lowercased language tag satisfies
// match and returns the trimmed interior. An unterminated fence yields
// everything after its opening line. Fences with empty interiors are
// skipped.
func fencedBlock(raw string, match func(tag string) bool) (string, bool) {
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "```") {
			continue
		}
		tag := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(trimmed, "```")))
		if !match(tag) {
			continue
		}

		interior := lines[i+1:]
		for j := i + 1; j < len(lines); j++ {
			if strings.TrimSpace(lines[j]) == "```" {
				interior = lines[i+1 : j]
				break
			}
		}
		if block := strings.TrimSpace(strings.Join(interior, "\n")); block != "" {
			return block, true
		}
	}
	return "", false
}

// keywordLines keeps only the lines that look like SQL: anything containing
// SELECT, FROM, or WHERE, case-insensitive. Prose around a bare statement
// drops away; multi-line statements survive because their clause lines
// carry the keywords.
func keywordLines(raw string) (string, bool) {
	var kept []string
	for _, line := range strings.Split(raw, "\n") {
		upper := strings.ToUpper(line)
		if strings.Contains(upper, "SELECT") || strings.Contains(upper, "FROM") || strings.Contains(upper, "WHERE") {
			kept = append(kept, line)
		}
	}
	if len(kept) == 0 {
		return "", false
	}
	return strings.TrimSpace(strings.Join(kept, "\n")), true
}

// wholeInput falls back to the entire trimmed text.
func wholeInput(raw string) (string, bool) {
	return strings.TrimSpace(raw), true
}

// trimQueryLabel drops a leading "SQLQuery:" label that models sometimes
// echo from the few-shot format.
func trimQueryLabel(sql string) string {
	const label = "sqlquery:"
	if len(sql) >= len(label) && strings.EqualFold(sql[:len(label)], label) {
		return strings.TrimSpace(sql[len(label):])
	}
	return sql
}
