// Package simcontext implements the per-request scoped state that makes
// capture/replay deterministic under concurrency: mode, run id, ordinal
// counters, collected stubs, and trace depth. It is propagated the
// idiomatic Go way, as a context.Context value explicitly threaded by
// the caller across goroutine spawns, rather than via an implicit
// thread/task-local the language doesn't provide.
package simcontext

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/evalgo/simreplay/internal/fixture"
)

// Sink is the minimal surface Context needs from a sink: emit a fixture
// event without blocking the caller. internal/sink.Sink satisfies this.
type Sink interface {
	Emit(event fixture.Event)
}

// Context is one per logical request/task. It is never shared across
// concurrent requests.
type Context struct {
	mu sync.Mutex

	Mode      Mode
	RunID     string
	RequestID string
	StoreRoot string
	Sink      Sink
	Store     *fixture.Store // direct-I/O fallback when Sink is nil

	ordinalCounters map[string]int
	collectedStubs  []fixture.Stub
	traceDepth      int
}

// Options configures a new Context, mirroring the SIM_* environment
// variables.
type Options struct {
	Mode      Mode
	RunID     string
	StoreRoot string
	Sink      Sink
}

// New constructs a fresh Context; RequestID is unset until
// StartNewRequest is called the first time a request actually begins.
func New(opts Options) *Context {
	runID := opts.RunID
	if runID == "" {
		runID = randomID("run")
	}
	c := &Context{
		Mode:            opts.Mode,
		RunID:           runID,
		StoreRoot:       opts.StoreRoot,
		Sink:            opts.Sink,
		ordinalCounters: make(map[string]int),
	}
	if opts.StoreRoot != "" {
		c.Store = fixture.NewStore(opts.StoreRoot)
	}
	return c
}

// FromEnv builds a Context from the SIM_* environment variables. Invalid
// SIM_MODE values degrade silently to Off.
func FromEnv() *Context {
	return New(Options{
		Mode:      ParseMode(os.Getenv("SIM_MODE")),
		RunID:     os.Getenv("SIM_RUN_ID"),
		StoreRoot: os.Getenv("SIM_STUB_DIR"),
	})
}

func randomID(prefix string) string {
	if u, err := uuid.NewRandom(); err == nil {
		return fmt.Sprintf("%s-%s", prefix, u.String()[:8])
	}
	var b [4]byte
	_, _ = rand.Read(b[:])
	return prefix + "-" + hex.EncodeToString(b[:])
}

// StartNewRequest rotates RequestID and clears ordinals, stubs, and trace
// depth, giving the next request a clean slate.
func (c *Context) StartNewRequest() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.RequestID = randomID("req")
	c.ordinalCounters = make(map[string]int)
	c.collectedStubs = nil
	c.traceDepth = 0
}

// Reset clears per-request state without rotating identifiers.
func (c *Context) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ordinalCounters = make(map[string]int)
	c.collectedStubs = nil
	c.traceDepth = 0
}

// NextOrdinal performs the read-modify-write on the counter for
// fingerprint and returns the assigned ordinal (0-based, gapless per
// fingerprint).
func (c *Context) NextOrdinal(fingerprint string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.ordinalCounters[fingerprint]
	c.ordinalCounters[fingerprint] = n + 1
	return n
}

// IsActive reports whether the context is in record or replay mode.
func (c *Context) IsActive() bool { return c.Mode == Record || c.Mode == Replay }

// IsRecording reports whether the context is in record mode.
func (c *Context) IsRecording() bool { return c.Mode == Record }

// IsReplaying reports whether the context is in replay mode.
func (c *Context) IsReplaying() bool { return c.Mode == Replay }

// EnterTrace increments the trace depth and snapshots the current length
// of the collected-stub list, returning the snapshot for DrainStubsSince.
func (c *Context) EnterTrace() (snapshot int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.traceDepth++
	return len(c.collectedStubs)
}

// ExitTrace decrements the trace depth. Called unconditionally from the
// primitive's deferred cleanup, so the depth is restored even when the
// traced call errors or panics.
func (c *Context) ExitTrace() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.traceDepth > 0 {
		c.traceDepth--
	}
}

// TraceDepth returns the current nesting depth of trace primitives.
func (c *Context) TraceDepth() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.traceDepth
}

// DrainStubsSince removes and returns the stubs collected since snapshot.
// The enclosing trace attaches them to its fixture event before exit
// returns, so each stub is attributed to exactly one boundary.
func (c *Context) DrainStubsSince(snapshot int) []fixture.Stub {
	c.mu.Lock()
	defer c.mu.Unlock()
	if snapshot > len(c.collectedStubs) {
		snapshot = len(c.collectedStubs)
	}
	drained := append([]fixture.Stub(nil), c.collectedStubs[snapshot:]...)
	c.collectedStubs = c.collectedStubs[:snapshot]
	return drained
}

// PushStub appends a stub descriptor to the collected-stub list, in the
// order its primitive completed.
func (c *Context) PushStub(stub fixture.Stub) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.collectedStubs = append(c.collectedStubs, stub)
}

// StubCount returns the number of stubs currently collected (for tests and
// diagnostics).
func (c *Context) StubCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.collectedStubs)
}

// OrdinalKeyForCapture builds the ordinal-counter key for a capture label.
func OrdinalKeyForCapture(label string) string { return "capture:" + label }

// OrdinalKeyForDB builds the ordinal-counter key for a db call from the
// connection label and the truncated statement/parameter fingerprints.
func OrdinalKeyForDB(name, sqlFP16, paramsFP16 string) string {
	return "db:" + name + ":" + sqlFP16 + ":" + paramsFP16
}

type ctxKey struct{}

// WithContext returns a derived context.Context carrying sc. The caller's
// own ctx is left untouched, so whichever context.Context a caller holds
// determines which Context is visible to the primitives it calls.
func WithContext(parent context.Context, sc *Context) context.Context {
	return context.WithValue(parent, ctxKey{}, sc)
}

var (
	defaultMu  sync.Mutex
	defaultCtx *Context
)

// FromContext returns the Context bound to ctx, creating and caching a
// process-wide default from environment if none was explicitly propagated.
func FromContext(ctx context.Context) *Context {
	if sc, ok := ctx.Value(ctxKey{}).(*Context); ok && sc != nil {
		return sc
	}
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultCtx == nil {
		defaultCtx = FromEnv()
	}
	return defaultCtx
}

// SetDefault overrides the process-wide fallback Context returned by
// FromContext when no context.Context carries one explicitly. Intended for
// tests and for services that want one ambient Context instead of explicit
// propagation everywhere.
func SetDefault(c *Context) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultCtx = c
}
