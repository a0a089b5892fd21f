// Package diffengine implements the structural comparison of a golden and
// a candidate {status, body} pair, with ignore-path, money-tolerance, and
// float-tolerance rules.
package diffengine

import (
	"fmt"
	"math"
	"regexp"
)

// Response is the {status, body} pair the diff engine compares.
type Response struct {
	Status int
	Body   interface{}
}

// Kind enumerates the reportable difference kinds.
type Kind string

const (
	KindStatusCode           Kind = "status_code"
	KindValueChanged         Kind = "value_changed"
	KindTypeChanged          Kind = "type_changed"
	KindAdded                Kind = "added"
	KindRemoved              Kind = "removed"
	KindMoneyToleranceExceed Kind = "money_tolerance_exceeded"
)

// Difference is one reported structural delta.
type Difference struct {
	Kind           Kind        `json:"kind"`
	Path           string      `json:"path"`
	GoldenValue    interface{} `json:"golden_value,omitempty"`
	CandidateValue interface{} `json:"candidate_value,omitempty"`
	Message        string      `json:"message"`
}

// Config controls tolerance and ignore behavior.
type Config struct {
	// IgnorePaths are bare field names; a path matches if it ends in
	// that field, at any depth. No wildcards in v0.
	IgnorePaths []string
	// MoneyPaths are bare field names compared with MoneyTolerance
	// instead of FloatTolerance.
	MoneyPaths     []string
	MoneyTolerance float64
	FloatTolerance float64
}

// Result is the outcome of diffing one fixture's golden/candidate pair.
type Result struct {
	FixtureID    string       `json:"fixture_id"`
	Endpoint     string       `json:"endpoint"`
	Passed       bool         `json:"passed"`
	Differences  []Difference `json:"differences"`
	IgnoredPaths []string     `json:"ignored_paths"`
}

// Diff compares golden against candidate under cfg, producing a Result
// for the named fixture/endpoint.
func Diff(fixtureID, endpoint string, golden, candidate Response, cfg Config) Result {
	res := Result{FixtureID: fixtureID, Endpoint: endpoint, Passed: true}

	if golden.Status != candidate.Status {
		res.Differences = append(res.Differences, Difference{
			Kind:           KindStatusCode,
			Path:           "status",
			GoldenValue:    golden.Status,
			CandidateValue: candidate.Status,
			Message:        fmt.Sprintf("status code differs: golden=%d candidate=%d", golden.Status, candidate.Status),
		})
	}

	ignoredSet := map[string]bool{}
	walkDiff("", golden.Body, candidate.Body, cfg, &res, ignoredSet)

	for p := range ignoredSet {
		res.IgnoredPaths = append(res.IgnoredPaths, p)
	}
	res.Passed = len(res.Differences) == 0
	return res
}

// matchesAnyField reports whether path's final field is one of fields.
// Patterns are bare field names matched at any depth; no wildcards.
func matchesAnyField(path string, fields []string) bool {
	leaf := lastSegment(path)
	for _, f := range fields {
		if leaf == f {
			return true
		}
	}
	return false
}

func lastSegment(path string) string {
	parts := fieldSplitter.Split(path, -1)
	if len(parts) == 0 {
		return path
	}
	return parts[len(parts)-1]
}

var fieldSplitter = regexp.MustCompile(`[.\[\]]+`)

func isNumeric(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func typeName(v interface{}) string {
	if v == nil {
		return "null"
	}
	switch v.(type) {
	case float64, float32, int, int64:
		return "number"
	case string:
		return "string"
	case bool:
		return "bool"
	case map[string]interface{}:
		return "object"
	case []interface{}:
		return "array"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func approxEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}
