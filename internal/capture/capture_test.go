package capture

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalgo/simreplay/internal/simcontext"
)

func newCtx(t *testing.T, mode simcontext.Mode) context.Context {
	t.Helper()
	sc := simcontext.New(simcontext.Options{Mode: mode, StoreRoot: t.TempDir()})
	return simcontext.WithContext(context.Background(), sc)
}

func TestOffModeHandleIsInert(t *testing.T) {
	ctx := newCtx(t, simcontext.Off)
	h, closeFn, err := Enter(ctx, "payment")
	require.NoError(t, err)
	assert.False(t, h.Replaying)
	h.SetResult(42)
	closeFn()
	assert.Equal(t, 42, h.Result)
}

func TestRecordThenReplayRoundTrip(t *testing.T) {
	dir := t.TempDir()

	recSC := simcontext.New(simcontext.Options{Mode: simcontext.Record, StoreRoot: dir})
	recCtx := simcontext.WithContext(context.Background(), recSC)
	h, closeFn, err := Enter(recCtx, "payment")
	require.NoError(t, err)
	require.False(t, h.Replaying)
	h.SetResult(map[string]interface{}{"status": "ok"})
	closeFn()
	require.Equal(t, 1, recSC.StubCount())

	replaySC := simcontext.New(simcontext.Options{Mode: simcontext.Replay, StoreRoot: dir})
	replayCtx := simcontext.WithContext(context.Background(), replaySC)
	h2, closeFn2, err := Enter(replayCtx, "payment")
	require.NoError(t, err)
	require.True(t, h2.Replaying)
	closeFn2()

	result, ok := h2.Result.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "ok", result["status"])
}

func TestReplayMissingFixtureIsStubMiss(t *testing.T) {
	ctx := newCtx(t, simcontext.Replay)
	_, _, err := Enter(ctx, "payment")
	require.Error(t, err)
	var miss *simcontext.StubMiss
	assert.True(t, errors.As(err, &miss))
}

func TestSequentialCapturesGetDistinctOrdinals(t *testing.T) {
	dir := t.TempDir()
	sc := simcontext.New(simcontext.Options{Mode: simcontext.Record, StoreRoot: dir})
	ctx := simcontext.WithContext(context.Background(), sc)

	h1, c1, _ := Enter(ctx, "step")
	h1.SetResult(1)
	c1()
	h2, c2, _ := Enter(ctx, "step")
	h2.SetResult(2)
	c2()

	assert.True(t, sc.Store.Exists("__capture__/step_0.json"))
	assert.True(t, sc.Store.Exists("__capture__/step_1.json"))
}
