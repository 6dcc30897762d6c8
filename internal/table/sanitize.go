package table

import "strings"

// SanitizeIdentifier maps every character outside [A-Za-z0-9_] to '_'.
// It is a total function and never fails. This is the sole boundary through
// which user-supplied names reach SQL text; value literals always go through
// parameter binding instead.
func SanitizeIdentifier(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// quoteIdent wraps an already-sanitized identifier in double quotes so it can
// never collide with a SQL keyword. Sanitized identifiers cannot contain
// quote characters.
func quoteIdent(name string) string {
	return `"` + name + `"`
}

// quoteLiteral escapes a default literal for use in DDL, where SQLite does
// not accept parameter placeholders. Everything else in the system binds
// values with ?.
func quoteLiteral(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}
