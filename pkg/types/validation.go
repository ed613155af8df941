package types

import "strings"

// SanitizeFilename replaces filesystem-reserved and control characters with
// underscores and trims trailing spaces and dots. An empty result becomes "_"
// so a destination path can always be formed.
func SanitizeFilename(name string) string {
	const reserved = `\/:*?"<>|`

	var b strings.Builder
	b.Grow(len(name))
	for _, ch := range name {
		if strings.ContainsRune(reserved, ch) || ch < 0x20 || ch == 0x7f {
			b.WriteRune('_')
		} else {
			b.WriteRune(ch)
		}
	}

	sanitized := strings.Trim(strings.TrimSpace(b.String()), ".")
	if sanitized == "" {
		return "_"
	}
	return sanitized
}

// IsValidStudentID accepts 1-50 characters of alphanumerics, underscore and
// hyphen. Student ids appear in upload paths and journal rows, so the charset
// is deliberately narrow.
func IsValidStudentID(id string) bool {
	if len(id) == 0 || len(id) > 50 {
		return false
	}
	for _, ch := range id {
		switch {
		case ch >= 'a' && ch <= 'z':
		case ch >= 'A' && ch <= 'Z':
		case ch >= '0' && ch <= '9':
		case ch == '_' || ch == '-':
		default:
			return false
		}
	}
	return true
}
