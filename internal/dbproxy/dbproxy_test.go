package dbproxy

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalgo/simreplay/internal/simcontext"
)

type fakeQuerier struct {
	queryCalled, executeCalled int
	rows                       interface{}
}

func (f *fakeQuerier) Query(ctx context.Context, sql string, params ...interface{}) (interface{}, error) {
	f.queryCalled++
	return f.rows, nil
}

func (f *fakeQuerier) Execute(ctx context.Context, sql string, params ...interface{}) (interface{}, error) {
	f.executeCalled++
	return f.rows, nil
}

func newCtx(t *testing.T, mode simcontext.Mode) context.Context {
	t.Helper()
	sc := simcontext.New(simcontext.Options{Mode: mode, StoreRoot: t.TempDir()})
	return simcontext.WithContext(context.Background(), sc)
}

func TestOffModeForwardsDirectlyWithoutPersistence(t *testing.T) {
	ctx := newCtx(t, simcontext.Off)
	q := &fakeQuerier{rows: []map[string]interface{}{{"id": 1}}}
	p := Wrap(ctx, "primary", q)

	rows, err := p.Query(ctx, "SELECT * FROM users")
	require.NoError(t, err)
	assert.Equal(t, q.rows, rows)
	assert.Equal(t, 1, q.queryCalled)

	entries, err := os.ReadDir(simcontext.FromContext(ctx).StoreRoot)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRecordThenReplayRoundTrip(t *testing.T) {
	dir := t.TempDir()

	recSC := simcontext.New(simcontext.Options{Mode: simcontext.Record, StoreRoot: dir})
	recCtx := simcontext.WithContext(context.Background(), recSC)
	q := &fakeQuerier{rows: []map[string]interface{}{{"id": 1, "name": "ada"}}}
	p := Wrap(recCtx, "primary", q)

	rows, err := p.Query(recCtx, "SELECT * FROM users WHERE id = ?", 1)
	require.NoError(t, err)
	assert.Equal(t, q.rows, rows)

	replaySC := simcontext.New(simcontext.Options{Mode: simcontext.Replay, StoreRoot: dir})
	replayCtx := simcontext.WithContext(context.Background(), replaySC)
	replayP := Wrap(replayCtx, "primary", &fakeQuerier{})

	replayed, err := replayP.Query(replayCtx, "SELECT * FROM users WHERE id = ?", 1)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{map[string]interface{}{"id": float64(1), "name": "ada"}}, replayed)
}

func TestReplayWriteIsAlwaysBlocked(t *testing.T) {
	ctx := newCtx(t, simcontext.Replay)
	p := Wrap(ctx, "primary", &fakeQuerier{})

	_, err := p.Execute(ctx, "INSERT INTO users (name) VALUES ('ada')")
	require.Error(t, err)
	var blocked *WriteBlocked
	require.True(t, errors.As(err, &blocked))
	assert.Contains(t, blocked.Error(), "INSERT INTO users")
	assert.Contains(t, blocked.Error(), "primary")
}

func TestReplayMissingReadFixtureIsStubMiss(t *testing.T) {
	ctx := newCtx(t, simcontext.Replay)
	p := Wrap(ctx, "primary", &fakeQuerier{})

	_, err := p.Query(ctx, "SELECT * FROM users")
	require.Error(t, err)
	var miss *simcontext.StubMiss
	assert.True(t, errors.As(err, &miss))
}

func TestWriteDetectionUnwrapsWithCTE(t *testing.T) {
	assert.True(t, isWrite("INSERT INTO t VALUES (1)"))
	assert.True(t, isWrite("  insert into t values (1)"))
	assert.True(t, isWrite("WITH cte AS (SELECT 1) DELETE FROM t WHERE id IN (SELECT id FROM cte)"))
	assert.False(t, isWrite("SELECT * FROM t"))
	assert.False(t, isWrite("WITH cte AS (SELECT 1) SELECT * FROM cte"))
}
