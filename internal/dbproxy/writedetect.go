package dbproxy

import "strings"

// writeKeywords are the leading tokens that classify a statement as a
// write.
var writeKeywords = map[string]bool{
	"INSERT":   true,
	"UPDATE":   true,
	"DELETE":   true,
	"DROP":     true,
	"ALTER":    true,
	"TRUNCATE": true,
}

// isWrite reports whether sql is a write statement: its normalized form
// (leading whitespace stripped, uppercased) starts with a write keyword.
// A WITH-CTE prelude is unwrapped by scanning for any write keyword
// appearing later in the text.
func isWrite(sql string) bool {
	trimmed := strings.ToUpper(strings.TrimSpace(sql))
	if trimmed == "" {
		return false
	}

	first := firstWord(trimmed)
	if writeKeywords[first] {
		return true
	}
	if first != "WITH" {
		return false
	}

	for _, word := range strings.Fields(trimmed) {
		word = strings.Trim(word, "(),;")
		if writeKeywords[word] {
			return true
		}
	}
	return false
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.Trim(fields[0], "(),;")
}
