package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalgo/simreplay/internal/diffengine"
)

func TestBuildCountersAndExitCode(t *testing.T) {
	results := []diffengine.Result{
		{FixtureID: "fx-1", Endpoint: "checkout", Passed: true},
		{FixtureID: "fx-2", Endpoint: "checkout", Passed: false, Differences: []diffengine.Difference{
			{Kind: diffengine.KindValueChanged, Path: "total", Message: "changed"},
		}},
	}
	r := Build("run-1", results, nil, nil, nil)
	assert.Equal(t, 2, r.Total)
	assert.Equal(t, 1, r.Passed)
	assert.Equal(t, 1, r.Failed)
	assert.Equal(t, 1, r.ExitCode())
}

func TestExitCodeZeroOnCleanRun(t *testing.T) {
	results := []diffengine.Result{{FixtureID: "fx-1", Endpoint: "checkout", Passed: true}}
	r := Build("run-1", results, nil, nil, nil)
	assert.Equal(t, 0, r.ExitCode())
}

func TestExitCodeNonZeroOnStubMissEvenWithNoFailures(t *testing.T) {
	r := Build("run-1", nil, []StubMissDetail{{Endpoint: "checkout", FixtureID: "fx-1", Qualname: "add"}}, nil, nil)
	assert.Equal(t, 1, r.ExitCode())
}

func TestRenderMarkdownIncludesRegressionSection(t *testing.T) {
	results := []diffengine.Result{
		{FixtureID: "fx-2", Endpoint: "checkout", Passed: false, Differences: []diffengine.Difference{
			{Kind: diffengine.KindValueChanged, Path: "total", Message: "changed", GoldenValue: 1, CandidateValue: 2},
		}},
	}
	r := Build("run-1", results, nil, nil, nil)
	md, err := RenderMarkdown(r)
	require.NoError(t, err)
	assert.Contains(t, md, "checkout / fx-2")
	assert.Contains(t, md, "value_changed")
}

func TestRenderHTMLIsSelfContained(t *testing.T) {
	r := Build("run-1", []diffengine.Result{{FixtureID: "fx-1", Endpoint: "checkout", Passed: true}}, nil, nil, nil)
	html, err := RenderHTML(r)
	require.NoError(t, err)
	assert.True(t, strings.Contains(html, "<style>"))
	assert.False(t, strings.Contains(html, "<link"))
	assert.False(t, strings.Contains(html, "<script src"))
}
