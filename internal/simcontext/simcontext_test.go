package simcontext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalgo/simreplay/internal/fixture"
)

func TestParseModeDegradesToOff(t *testing.T) {
	assert.Equal(t, Off, ParseMode(""))
	assert.Equal(t, Off, ParseMode("bogus"))
	assert.Equal(t, Record, ParseMode("record"))
	assert.Equal(t, Replay, ParseMode("replay"))
}

func TestNewAssignsRunIDWhenAbsent(t *testing.T) {
	c := New(Options{Mode: Record})
	assert.NotEmpty(t, c.RunID)
	assert.True(t, c.IsRecording())
	assert.False(t, c.IsReplaying())
	assert.True(t, c.IsActive())
}

func TestOffModeIsNotActive(t *testing.T) {
	c := New(Options{Mode: Off})
	assert.False(t, c.IsActive())
}

func TestNextOrdinalIsGaplessPerFingerprint(t *testing.T) {
	c := New(Options{Mode: Record})
	assert.Equal(t, 0, c.NextOrdinal("fp-a"))
	assert.Equal(t, 1, c.NextOrdinal("fp-a"))
	assert.Equal(t, 0, c.NextOrdinal("fp-b"))
	assert.Equal(t, 2, c.NextOrdinal("fp-a"))
}

func TestStartNewRequestRotatesAndClears(t *testing.T) {
	c := New(Options{Mode: Record})
	c.StartNewRequest()
	firstReq := c.RequestID
	c.NextOrdinal("fp")
	c.PushStub(fixture.Stub{Type: "capture", Name: "x"})

	c.StartNewRequest()
	require.NotEqual(t, firstReq, c.RequestID)
	assert.Equal(t, 0, c.NextOrdinal("fp"))
	assert.Equal(t, 0, c.StubCount())
	assert.Equal(t, 0, c.TraceDepth())
}

func TestResetClearsWithoutRotatingIdentifiers(t *testing.T) {
	c := New(Options{Mode: Record})
	c.StartNewRequest()
	req := c.RequestID
	c.NextOrdinal("fp")
	c.PushStub(fixture.Stub{Type: "db", Name: "y"})

	c.Reset()
	assert.Equal(t, req, c.RequestID)
	assert.Equal(t, 0, c.NextOrdinal("fp"))
	assert.Equal(t, 0, c.StubCount())
}

func TestEnterExitTraceTracksDepthAndDrainsStubsSinceSnapshot(t *testing.T) {
	c := New(Options{Mode: Record})
	c.PushStub(fixture.Stub{Type: "capture", Name: "before"})

	snapshot := c.EnterTrace()
	assert.Equal(t, 1, c.TraceDepth())

	c.PushStub(fixture.Stub{Type: "db", Name: "inside-1"})
	c.PushStub(fixture.Stub{Type: "db", Name: "inside-2"})

	drained := c.DrainStubsSince(snapshot)
	require.Len(t, drained, 2)
	assert.Equal(t, "inside-1", drained[0].Name)
	assert.Equal(t, "inside-2", drained[1].Name)

	// the pre-existing stub remains, the drained ones are gone.
	assert.Equal(t, 1, c.StubCount())

	c.ExitTrace()
	assert.Equal(t, 0, c.TraceDepth())
}

func TestExitTraceNeverGoesNegative(t *testing.T) {
	c := New(Options{Mode: Record})
	c.ExitTrace()
	assert.Equal(t, 0, c.TraceDepth())
}

func TestOrdinalKeyHelpers(t *testing.T) {
	assert.Equal(t, "capture:checkout", OrdinalKeyForCapture("checkout"))
	assert.Equal(t, "db:primary:abc123:def456", OrdinalKeyForDB("primary", "abc123", "def456"))
}

func TestWithContextAndFromContextRoundTrip(t *testing.T) {
	c := New(Options{Mode: Replay})
	ctx := WithContext(context.Background(), c)
	got := FromContext(ctx)
	assert.Same(t, c, got)
}

func TestFromContextFallsBackToProcessDefault(t *testing.T) {
	fallback := New(Options{Mode: Record, RunID: "fallback-run"})
	SetDefault(fallback)
	defer SetDefault(nil)

	got := FromContext(context.Background())
	assert.Same(t, fallback, got)
}
