// Package trace implements the function-boundary record/replay primitive.
// Go has no decorator syntax, so the boundary is expressed as a generic
// higher-order function: wrap a thunk, get back a thunk with identical
// off-mode behavior and record/replay semantics layered on top.
package trace

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/evalgo/simreplay/internal/canon"
	"github.com/evalgo/simreplay/internal/fixture"
	"github.com/evalgo/simreplay/internal/simcontext"
)

// Func is the shape of a traced boundary: a value and an error, the two
// observable outcomes the record/replay contract distinguishes.
type Func[Out any] func() (Out, error)

// Call runs fn under the trace contract for the simreplay Context bound
// to ctx. qualname is the stable boundary name; input is the
// parameter-name-to-value map the caller has already bound.
//
// Off mode: Call(ctx, ...) is semantically identical to fn(); no files
// are created, no context mutation besides lazy creation.
func Call[Out any](ctx context.Context, qualname string, input map[string]interface{}, fn Func[Out]) (Out, error) {
	sc := simcontext.FromContext(ctx)
	if !sc.IsActive() {
		return fn()
	}

	if input == nil {
		input = map[string]interface{}{}
	}
	fp, err := canon.Fingerprint(map[string]interface{}{"qualname": qualname, "input": input})
	if err != nil {
		var zero Out
		return zero, fmt.Errorf("trace: fingerprint input for %s: %w", qualname, err)
	}

	ordinal := sc.NextOrdinal(fp)
	nested := sc.TraceDepth() > 0
	snapshot := sc.EnterTrace()
	defer sc.ExitTrace()

	if sc.IsReplaying() {
		return replay[Out](sc, qualname, fp, ordinal, nested)
	}
	return record[Out](sc, qualname, input, fp, ordinal, snapshot, nested, fn)
}

func record[Out any](sc *simcontext.Context, qualname string, input map[string]interface{}, fp string, ordinal, snapshot int, nested bool, fn Func[Out]) (Out, error) {
	start := time.Now()
	out, callErr := fn()
	duration := float64(time.Since(start)) / float64(time.Millisecond)

	inner := sc.DrainStubsSince(snapshot)

	ev := &fixture.TraceEvent{
		FixtureID:        newFixtureID(),
		Qualname:         qualname,
		RunID:            sc.RunID,
		RecordedAt:       time.Now().UTC(),
		Input:            input,
		InputFingerprint: fp,
		Stubs:            inner,
		Ordinal:          ordinal,
		DurationMS:       duration,
	}
	if callErr != nil {
		ev.Error = callErr.Error()
	} else {
		if ofp, ferr := canon.Fingerprint(out); ferr == nil {
			ev.OutputFingerprint = ofp
		}
		ev.Output = out
	}

	emit(sc, fixture.Event{Trace: ev})

	if nested {
		sc.PushStub(fixture.Stub{
			Type:    fixture.KindTrace,
			Name:    qualname,
			Ordinal: ordinal,
			Output:  ev.Output,
			Source:  fixture.SourceRecord,
		})
	}

	return out, callErr
}

func replay[Out any](sc *simcontext.Context, qualname, fp string, ordinal int, nested bool) (Out, error) {
	var zero Out

	key := fixture.Key{Qualname: qualname, InputFingerprint: fp, Ordinal: ordinal}
	var ev fixture.TraceEvent
	if sc.Store == nil {
		return zero, &simcontext.StubMiss{Qualname: qualname, Fingerprint: fp, Ordinal: ordinal}
	}
	path := fixture.TracePath(key)
	if err := sc.Store.ReadJSON(path, &ev); err != nil {
		return zero, &simcontext.StubMiss{
			Qualname:    qualname,
			Fingerprint: fp,
			Ordinal:     ordinal,
			ExpectedAt:  sc.Store.AbsPath(path),
		}
	}

	out, err := decodeOutput[Out](ev.Output)
	if err != nil {
		return zero, err
	}

	if nested {
		sc.PushStub(fixture.Stub{
			Type:    fixture.KindTrace,
			Name:    qualname,
			Ordinal: ordinal,
			Output:  ev.Output,
			Source:  fixture.SourceReplay,
		})
	}

	return out, nil
}

// decodeOutput round-trips a stored interface{} value through JSON into
// the caller's concrete Out type.
func decodeOutput[Out any](raw interface{}) (Out, error) {
	var out Out
	data, err := json.Marshal(raw)
	if err != nil {
		return out, fmt.Errorf("trace: re-encode stored output: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("trace: decode stored output: %w", err)
	}
	return out, nil
}

func emit(sc *simcontext.Context, ev fixture.Event) {
	if sc.Sink != nil {
		sc.Sink.Emit(ev)
		return
	}
	if sc.Store != nil {
		writeDirect(sc.Store, ev)
	}
}

func writeDirect(store *fixture.Store, ev fixture.Event) {
	if ev.Trace == nil {
		return
	}
	key := fixture.Key{Qualname: ev.Trace.Qualname, InputFingerprint: ev.Trace.InputFingerprint, Ordinal: ev.Trace.Ordinal}
	_ = store.WriteJSON(fixture.TracePath(key), ev.Trace)
}
