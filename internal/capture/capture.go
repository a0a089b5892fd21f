// Package capture implements the opaque, transport-agnostic labeled-block
// primitive: a way to make an arbitrary region of code capturable without
// coupling the SDK to HTTP, DB, or any other transport.
package capture

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/evalgo/simreplay/internal/fixture"
	"github.com/evalgo/simreplay/internal/simcontext"
)

// Handle is yielded to the caller for the lifetime of a captured block.
// The developer gates block behavior on Replaying and, in record mode,
// is responsible for calling SetResult before the block exits.
type Handle struct {
	Replaying bool
	Result    interface{}

	resultSet bool
}

// SetResult records the block's result. Calling it more than once keeps
// the last value, matching an ordinary assignment.
func (h *Handle) SetResult(v interface{}) {
	h.Result = v
	h.resultSet = true
}

// Enter begins a captured block under label. The caller MUST call the
// returned close function (typically via defer) exactly once to commit
// the capture. A non-nil error means replay found no matching fixture (a
// StubMiss): that is fatal for the block, and the close function is a
// no-op.
//
// Off mode: the handle is inert (Replaying=false, Result whatever the
// caller stores); nothing is persisted.
func Enter(ctx context.Context, label string) (*Handle, func(), error) {
	sc := simcontext.FromContext(ctx)

	if !sc.IsActive() {
		h := &Handle{}
		return h, func() {}, nil
	}

	ordinal := sc.NextOrdinal(simcontext.OrdinalKeyForCapture(label))

	if sc.IsReplaying() {
		return enterReplay(sc, label, ordinal)
	}
	h, closeFn := enterRecord(sc, label, ordinal)
	return h, closeFn, nil
}

func enterRecord(sc *simcontext.Context, label string, ordinal int) (*Handle, func()) {
	h := &Handle{Replaying: false}
	closeFn := func() {
		if !h.resultSet {
			log.Warn().Str("label", label).Int("ordinal", ordinal).Msg("capture block exited without setting a result")
		}

		ev := &fixture.CaptureEvent{
			Label:      label,
			Ordinal:    ordinal,
			RunID:      sc.RunID,
			RecordedAt: time.Now().UTC(),
			Result:     h.Result,
		}
		emit(sc, fixture.Event{Capture: ev})

		sc.PushStub(fixture.Stub{
			Type:    fixture.KindCapture,
			Name:    label,
			Ordinal: ordinal,
			Output:  h.Result,
			Source:  fixture.SourceRecord,
		})
	}
	return h, closeFn
}

func enterReplay(sc *simcontext.Context, label string, ordinal int) (*Handle, func(), error) {
	var ev fixture.CaptureEvent
	h := &Handle{Replaying: true}

	path := fixture.CapturePath(label, ordinal)
	if sc.Store == nil {
		return nil, func() {}, &simcontext.StubMiss{Qualname: "capture:" + label, Ordinal: ordinal}
	}
	if err := sc.Store.ReadJSON(path, &ev); err != nil {
		miss := &simcontext.StubMiss{
			Qualname:   "capture:" + label,
			Ordinal:    ordinal,
			ExpectedAt: sc.Store.AbsPath(path),
		}
		return nil, func() {}, miss
	}
	h.Result = ev.Result

	closeFn := func() {
		sc.PushStub(fixture.Stub{
			Type:    fixture.KindCapture,
			Name:    label,
			Ordinal: ordinal,
			Output:  h.Result,
			Source:  fixture.SourceReplay,
		})
	}
	return h, closeFn, nil
}

func emit(sc *simcontext.Context, ev fixture.Event) {
	if sc.Sink != nil {
		sc.Sink.Emit(ev)
		return
	}
	if sc.Store != nil && ev.Capture != nil {
		_ = sc.Store.WriteJSON(fixture.CapturePath(ev.Capture.Label, ev.Capture.Ordinal), ev.Capture)
	}
}
