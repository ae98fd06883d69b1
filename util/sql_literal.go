package util

import (
	"regexp"
	"strings"
)

var identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
var nonIdentifierChars = regexp.MustCompile(`[^A-Za-z0-9_]`)

// IsValidIdentifier reports whether s can be used unquoted as a column, table or schema name.
func IsValidIdentifier(s string) bool {
	return identifierRegex.MatchString(s)
}

// QuoteLiteral renders s as a single quoted SQL string literal.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func QuoteLiterals(values []string) []string {
	quoted := make([]string, 0, len(values))
	for _, v := range values {
		quoted = append(quoted, QuoteLiteral(v))
	}
	return quoted
}

// QuoteIdentifierIfNeeded double quotes s unless it is a plain identifier.
func QuoteIdentifierIfNeeded(s string) string {
	if IsValidIdentifier(s) {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// SanitizeIdentifier replaces characters not allowed in plain identifiers with underscores.
func SanitizeIdentifier(s string) string {
	sanitized := nonIdentifierChars.ReplaceAllString(s, "_")
	if sanitized == "" || (sanitized[0] >= '0' && sanitized[0] <= '9') {
		sanitized = "_" + sanitized
	}
	return sanitized
}
