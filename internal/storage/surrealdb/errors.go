package surrealdb

import "strings"

// isNotFoundError reports whether a SurrealDB error indicates a missing
// record or table rather than a real failure.
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") ||
		strings.Contains(msg, "does not exist") ||
		strings.Contains(msg, "no record")
}
