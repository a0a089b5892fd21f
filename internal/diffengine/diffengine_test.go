package diffengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoneyToleranceWithinBoundPasses(t *testing.T) {
	golden := Response{Status: 200, Body: map[string]interface{}{"total": 21.78}}
	candidate := Response{Status: 200, Body: map[string]interface{}{"total": 21.785}}
	cfg := Config{MoneyPaths: []string{"total"}, MoneyTolerance: 0.01}

	res := Diff("fx-1", "checkout", golden, candidate, cfg)
	assert.True(t, res.Passed)
	assert.Contains(t, res.IgnoredPaths, "total")
}

func TestMoneyToleranceExceededFails(t *testing.T) {
	golden := Response{Status: 200, Body: map[string]interface{}{"total": 21.78}}
	candidate := Response{Status: 200, Body: map[string]interface{}{"total": 21.80}}
	cfg := Config{MoneyPaths: []string{"total"}, MoneyTolerance: 0.01}

	res := Diff("fx-1", "checkout", golden, candidate, cfg)
	assert.False(t, res.Passed)
	require.Len(t, res.Differences, 1)
	assert.Equal(t, KindMoneyToleranceExceed, res.Differences[0].Kind)
}

func TestIgnorePathsSuppressDifferences(t *testing.T) {
	golden := Response{Status: 200, Body: map[string]interface{}{
		"request_id": "abc",
		"timestamp":  "2024-01-01T00:00:00Z",
		"total":      float64(10),
	}}
	candidate := Response{Status: 200, Body: map[string]interface{}{
		"request_id": "xyz",
		"timestamp":  "2024-06-01T00:00:00Z",
		"total":      float64(10),
	}}
	cfg := Config{IgnorePaths: []string{"request_id", "timestamp"}}

	res := Diff("fx-1", "checkout", golden, candidate, cfg)
	assert.True(t, res.Passed)
	assert.ElementsMatch(t, []string{"request_id", "timestamp"}, res.IgnoredPaths)
}

func TestStatusCodeMismatchIsRecorded(t *testing.T) {
	golden := Response{Status: 200, Body: map[string]interface{}{}}
	candidate := Response{Status: 500, Body: map[string]interface{}{}}

	res := Diff("fx-1", "checkout", golden, candidate, Config{})
	require.False(t, res.Passed)
	require.Len(t, res.Differences, 1)
	assert.Equal(t, KindStatusCode, res.Differences[0].Kind)
}

func TestTypeChangeIsNotCoercedAcrossNumberAndString(t *testing.T) {
	golden := Response{Status: 200, Body: map[string]interface{}{"amount": float64(10)}}
	candidate := Response{Status: 200, Body: map[string]interface{}{"amount": "10"}}

	res := Diff("fx-1", "checkout", golden, candidate, Config{})
	require.False(t, res.Passed)
	require.Len(t, res.Differences, 1)
	assert.Equal(t, KindTypeChanged, res.Differences[0].Kind)
}

func TestAddedAndRemovedFields(t *testing.T) {
	golden := Response{Status: 200, Body: map[string]interface{}{"a": float64(1)}}
	candidate := Response{Status: 200, Body: map[string]interface{}{"b": float64(2)}}

	res := Diff("fx-1", "checkout", golden, candidate, Config{})
	require.False(t, res.Passed)
	kinds := map[Kind]bool{}
	for _, d := range res.Differences {
		kinds[d.Kind] = true
	}
	assert.True(t, kinds[KindRemoved])
	assert.True(t, kinds[KindAdded])
}

func TestFloatToleranceIgnoresSmallDrift(t *testing.T) {
	golden := Response{Status: 200, Body: map[string]interface{}{"score": 0.1000001}}
	candidate := Response{Status: 200, Body: map[string]interface{}{"score": 0.1000002}}

	res := Diff("fx-1", "checkout", golden, candidate, Config{FloatTolerance: 0.001})
	assert.True(t, res.Passed)
}

func TestIgnorePathWinsOverMoneyToleranceExceeded(t *testing.T) {
	golden := Response{Status: 200, Body: map[string]interface{}{"total": 21.78}}
	candidate := Response{Status: 200, Body: map[string]interface{}{"total": 99.99}}
	cfg := Config{
		IgnorePaths:    []string{"total"},
		MoneyPaths:     []string{"total"},
		MoneyTolerance: 0.01,
	}

	res := Diff("fx-1", "checkout", golden, candidate, cfg)
	assert.True(t, res.Passed)
	assert.Empty(t, res.Differences)
	assert.Contains(t, res.IgnoredPaths, "total")
}

func TestArrayLengthMismatchReportsAddedItems(t *testing.T) {
	golden := Response{Status: 200, Body: map[string]interface{}{"tags": []interface{}{"a"}}}
	candidate := Response{Status: 200, Body: map[string]interface{}{"tags": []interface{}{"a", "b"}}}

	res := Diff("fx-1", "checkout", golden, candidate, Config{})
	require.False(t, res.Passed)
	require.Len(t, res.Differences, 1)
	assert.Equal(t, KindAdded, res.Differences[0].Kind)
	assert.Equal(t, "tags[1]", res.Differences[0].Path)
}

func TestArrayOrderInsensitiveForScalars(t *testing.T) {
	golden := Response{Status: 200, Body: map[string]interface{}{"tags": []interface{}{"a", "b", "c"}}}
	candidate := Response{Status: 200, Body: map[string]interface{}{"tags": []interface{}{"c", "a", "b"}}}

	res := Diff("fx-1", "checkout", golden, candidate, Config{})
	assert.True(t, res.Passed)
}
