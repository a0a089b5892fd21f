// Package sink implements the bounded, backpressure-aware event buffer
// that sits between the request path and durable fixture storage. Emit
// never blocks on storage latency; a background worker persists batches.
package sink

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/evalgo/simreplay/internal/fixture"
)

// Policy is the backpressure policy applied when the buffer is full at
// emit time.
type Policy string

const (
	DropOldest Policy = "drop-oldest"
	DropNewest Policy = "drop-newest"
	DropRandom Policy = "drop-random"
)

// Config configures a local Sink.
type Config struct {
	// BufferSize is the event-count ceiling of the in-memory buffer.
	BufferSize int
	// BufferBytes is an approximate byte ceiling on buffered event
	// payloads; 0 disables byte-based accounting. SIM_BUFFER_SIZE_KB
	// feeds this.
	BufferBytes int
	// BatchSize triggers a flush signal from within Emit when reached.
	BatchSize int
	// FlushInterval is the background worker's periodic flush period.
	FlushInterval time.Duration
	// Policy selects the drop strategy applied on overflow.
	Policy Policy
	// Store persists events to the filesystem. Required.
	Store *fixture.Store
	// Metrics, if non-nil, records buffer fill and drop counts.
	Metrics *Metrics
	// Logger defaults to the global zerolog logger when nil.
	Logger *zerolog.Logger
	// Sampler, if non-nil, makes a tail-based keep/drop decision on each
	// finished trace event before it is buffered. Capture/DB events are
	// never sampled out. A nil Sampler, or one with
	// SamplingConfig.Enabled false, keeps everything.
	Sampler *Sampler
}

// Stats exposes the sink's counters: how much was queued, how much made
// it to disk, and how much was shed by backpressure or sampling.
type Stats struct {
	Queued    int64
	Persisted int64
	Dropped   int64
	Failed    int64
	Sampled   int64 // trace events kept out by the tail-based sampler, not the overflow policy
}

// entry pairs a buffered event with its approximate encoded size, so the
// byte ceiling can be enforced without re-encoding on every overflow
// check.
type entry struct {
	ev   fixture.Event
	size int
}

// Sink absorbs fixture.Event values from the request path and commits
// them to durable storage without adding latency to that path.
type Sink struct {
	cfg Config

	mu       sync.Mutex
	buf      []entry
	bufBytes int
	closed   bool

	stats struct {
		mu sync.Mutex
		Stats
	}

	flushCh chan struct{}
	doneCh  chan struct{}
	rng     *rand.Rand
}

// New constructs a local Sink and starts its single background
// persistence worker.
func New(cfg Config) *Sink {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 512
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 200 * time.Millisecond
	}
	if cfg.Policy == "" {
		cfg.Policy = DropOldest
	}
	if cfg.Store == nil {
		panic("sink: Config.Store is required")
	}

	s := &Sink{
		cfg:     cfg,
		buf:     make([]entry, 0, cfg.BufferSize),
		flushCh: make(chan struct{}, 1),
		doneCh:  make(chan struct{}),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	go s.worker()
	return s
}

// Emit enqueues an event for persistence. It never waits on storage; the
// size estimate is computed before the lock. Without overflow, the work
// under the lock is an O(1) amortized append. On overflow, each drop
// shifts the buffered slice and writes a warning log line while the lock
// is held.
func (s *Sink) Emit(event fixture.Event) {
	if s.cfg.Sampler != nil && event.Trace != nil {
		if decision := s.cfg.Sampler.Decide(event.Trace); !decision.Keep {
			s.stats.mu.Lock()
			s.stats.Sampled++
			s.stats.mu.Unlock()
			return
		}
	}

	size := eventSize(event)

	s.mu.Lock()
	for len(s.buf) > 0 && s.overCapacityLocked(size) {
		s.applyDropLocked()
	}
	s.buf = append(s.buf, entry{ev: event, size: size})
	s.bufBytes += size
	fill := len(s.buf)
	s.mu.Unlock()

	s.recordQueued()
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.BufferFill.Set(float64(fill))
	}

	if fill >= s.cfg.BatchSize {
		s.triggerFlush()
	}
}

// overCapacityLocked reports whether admitting one more event of the
// given size would exceed the event-count or byte ceiling. Caller holds
// s.mu.
func (s *Sink) overCapacityLocked(size int) bool {
	if len(s.buf) >= s.cfg.BufferSize {
		return true
	}
	return s.cfg.BufferBytes > 0 && s.bufBytes+size > s.cfg.BufferBytes
}

// eventSize approximates an event's on-disk footprint from its compact
// JSON encoding. Encoding here is pure CPU; the result is cached in the
// buffer entry so overflow checks never re-encode.
func eventSize(ev fixture.Event) int {
	var payload interface{}
	switch {
	case ev.Trace != nil:
		payload = ev.Trace
	case ev.Capture != nil:
		payload = ev.Capture
	case ev.DB != nil:
		payload = ev.DB
	default:
		return 0
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return 0
	}
	return len(data)
}

// applyDropLocked removes one event per the configured policy. Caller
// holds s.mu.
func (s *Sink) applyDropLocked() {
	if len(s.buf) == 0 {
		return
	}
	var victim int
	switch s.cfg.Policy {
	case DropNewest:
		victim = len(s.buf) - 1
	case DropRandom:
		victim = s.rng.Intn(len(s.buf))
	default: // DropOldest
		victim = 0
	}
	s.bufBytes -= s.buf[victim].size
	s.buf = append(s.buf[:victim], s.buf[victim+1:]...)

	s.stats.mu.Lock()
	s.stats.Dropped++
	s.stats.mu.Unlock()
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.Dropped.Inc()
	}
	s.logWarn("sink buffer full, dropping event per policy")
}

func (s *Sink) triggerFlush() {
	select {
	case s.flushCh <- struct{}{}:
	default:
	}
}

// Flush blocks until all events accepted before the call are durable.
func (s *Sink) Flush() error {
	return s.persist(s.takeBatch())
}

// takeBatch steals the whole buffer under the lock so persistence runs
// outside it.
func (s *Sink) takeBatch() []entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := s.buf
	s.buf = make([]entry, 0, s.cfg.BufferSize)
	s.bufBytes = 0
	return batch
}

// Close implies Flush and stops the background worker.
func (s *Sink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.doneCh)
	return s.Flush()
}

func (s *Sink) worker() {
	ticker := time.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()

	drain := func() {
		if err := s.persist(s.takeBatch()); err != nil {
			s.logWarn(fmt.Sprintf("sink worker failed to persist batch: %v", err))
		}
	}

	for {
		select {
		case <-s.doneCh:
			drain()
			return
		case <-s.flushCh:
			drain()
		case <-ticker.C:
			drain()
		}
	}
}

// persist writes each event to its per-fixture-file layout atomically.
func (s *Sink) persist(batch []entry) error {
	if len(batch) == 0 {
		return nil
	}
	var firstErr error
	for _, e := range batch {
		if err := s.persistOne(e.ev); err != nil {
			s.stats.mu.Lock()
			s.stats.Failed++
			s.stats.mu.Unlock()
			if s.cfg.Metrics != nil {
				s.cfg.Metrics.PersistErrors.Inc()
			}
			if firstErr == nil {
				firstErr = err
			}
			s.logWarn(fmt.Sprintf("sink: persist event: %v", err))
			continue
		}
		s.stats.mu.Lock()
		s.stats.Persisted++
		s.stats.mu.Unlock()
		if s.cfg.Metrics != nil {
			s.cfg.Metrics.Persisted.Inc()
		}
	}
	return firstErr
}

func (s *Sink) persistOne(ev fixture.Event) error {
	switch {
	case ev.Trace != nil:
		key := fixture.Key{
			Qualname:         ev.Trace.Qualname,
			InputFingerprint: ev.Trace.InputFingerprint,
			Ordinal:          ev.Trace.Ordinal,
		}
		return s.cfg.Store.WriteJSON(fixture.TracePath(key), ev.Trace)
	case ev.Capture != nil:
		return s.cfg.Store.WriteJSON(fixture.CapturePath(ev.Capture.Label, ev.Capture.Ordinal), ev.Capture)
	case ev.DB != nil:
		path := fixture.DBPath(ev.DB.Name, ev.DB.SQLFingerprint, ev.DB.ParamsFingerprint, ev.DB.Ordinal)
		return s.cfg.Store.WriteJSON(path, ev.DB)
	default:
		return fmt.Errorf("sink: empty event")
	}
}

// Stats returns a snapshot of the sink's counters.
func (s *Sink) Stats() Stats {
	s.stats.mu.Lock()
	defer s.stats.mu.Unlock()
	return s.stats.Stats
}

func (s *Sink) recordQueued() {
	s.stats.mu.Lock()
	s.stats.Queued++
	s.stats.mu.Unlock()
}

func (s *Sink) logWarn(msg string) {
	logger := s.cfg.Logger
	if logger == nil {
		logger = &log.Logger
	}
	logger.Warn().Msg(msg)
}
