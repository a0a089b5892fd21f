package canon

import (
	"regexp"
	"strings"
)

var (
	lineComment  = regexp.MustCompile(`--[^\n]*`)
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	whitespace   = regexp.MustCompile(`\s+`)
	comparators  = regexp.MustCompile(`\s*(<=|>=|<>|!=|=|<|>)\s*`)
)

// sqlKeywords is the fixed set of keywords uppercased during
// normalization. Kept small and literal; this is not a general SQL
// formatter.
var sqlKeywords = []string{
	"SELECT", "FROM", "WHERE", "INSERT", "INTO", "VALUES", "UPDATE", "SET",
	"DELETE", "DROP", "ALTER", "TRUNCATE", "WITH", "AS", "JOIN", "LEFT",
	"RIGHT", "INNER", "OUTER", "ON", "AND", "OR", "NOT", "NULL", "ORDER",
	"BY", "GROUP", "HAVING", "LIMIT", "OFFSET", "UNION", "ALL", "DISTINCT",
	"IN", "EXISTS", "BETWEEN", "LIKE", "CASE", "WHEN", "THEN", "ELSE", "END",
}

// NormalizeSQL strips comments, collapses whitespace, normalizes spacing
// around comparison operators, and uppercases the fixed keyword set, so
// cosmetic rewrites of a statement keep the same fingerprint.
func NormalizeSQL(sql string) string {
	s := blockComment.ReplaceAllString(sql, " ")
	s = lineComment.ReplaceAllString(s, " ")
	s = comparators.ReplaceAllString(s, " $1 ")
	s = whitespace.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	s = uppercaseKeywords(s)
	return s
}

func uppercaseKeywords(s string) string {
	tokens := strings.Split(s, " ")
	for i, tok := range tokens {
		bare := strings.Trim(tok, "(),;")
		for _, kw := range sqlKeywords {
			if strings.EqualFold(bare, kw) {
				prefix, suffix := splitPunct(tok, bare)
				tokens[i] = prefix + kw + suffix
				break
			}
		}
	}
	return strings.Join(tokens, " ")
}

// splitPunct separates leading/trailing punctuation from bare within tok so
// uppercaseKeywords can reassemble e.g. "(select" -> "(", "SELECT", "".
func splitPunct(tok, bare string) (prefix, suffix string) {
	idx := strings.Index(tok, bare)
	if idx < 0 {
		return "", ""
	}
	return tok[:idx], tok[idx+len(bare):]
}
