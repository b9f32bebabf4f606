package domain

import "strings"

// ValidTeamID reports whether raw parses as a usable team identifier: a
// non-empty token of letters, digits, hyphens or underscores. Malformed ids
// are dropped before any upstream call is made.
func ValidTeamID(raw string) bool {
	id := strings.TrimSpace(raw)
	if id == "" {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}

// FilterTeamIDs returns the subset of ids that parse as valid team
// identifiers, trimmed of surrounding whitespace.
func FilterTeamIDs(ids []string) []string {
	valid := make([]string, 0, len(ids))
	for _, raw := range ids {
		if ValidTeamID(raw) {
			valid = append(valid, strings.TrimSpace(raw))
		}
	}
	return valid
}
