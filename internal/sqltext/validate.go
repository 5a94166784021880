package sqltext

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidSQL is the umbrella sentinel wrapped by every validation
// failure; callers that only care whether the gate passed match on it.
var ErrInvalidSQL = errors.New("invalid SQL")

// Specific validation failures, each surfaced wrapped in ErrInvalidSQL.
var (
	ErrEmptyStatement     = errors.New("empty statement")
	ErrNotReadOnly        = errors.New("statement is not a read-only query")
	ErrMultipleStatements = errors.New("multiple statements")
)

// mutatingKeyword matches statements that write or alter schema, as whole
// words anywhere in the text. A quoted literal containing one of these is
// rejected too; the gate trades false positives for never executing a
// destructive statement.
var mutatingKeyword = regexp.MustCompile(`(?i)\b(INSERT|UPDATE|DELETE|DROP|ALTER|CREATE|TRUNCATE|GRANT|REVOKE)\b`)

// Validate gates a candidate statement before it reaches the warehouse: it
// must be a single SELECT (or WITH ... SELECT) with no mutating keywords.
// One trailing semicolon is tolerated. Every failure wraps ErrInvalidSQL.
func Validate(sql string) error {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSQL, ErrEmptyStatement)
	}

	body := strings.TrimRight(trimmed, "; \t\n")
	if body == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSQL, ErrEmptyStatement)
	}
	if strings.Contains(body, ";") {
		return fmt.Errorf("%w: %w", ErrInvalidSQL, ErrMultipleStatements)
	}

	leading := strings.Fields(body)[0]
	switch strings.ToUpper(strings.TrimLeft(leading, "(")) {
	case "SELECT", "WITH":
	default:
		return fmt.Errorf("%w: %w: statement begins with %q", ErrInvalidSQL, ErrNotReadOnly, leading)
	}

	if kw := mutatingKeyword.FindString(body); kw != "" {
		return fmt.Errorf("%w: %w: contains %q", ErrInvalidSQL, ErrNotReadOnly, strings.ToUpper(kw))
	}

	return nil
}
