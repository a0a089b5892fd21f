package sink

import (
	"math/rand"
	"time"

	"github.com/evalgo/simreplay/internal/fixture"
)

// SamplingConfig configures tail-based retention of trace fixtures: once
// a trace has finished and its error/duration are known, decide whether
// it is worth persisting. Off by default; record mode otherwise persists
// every call unconditionally.
type SamplingConfig struct {
	Enabled bool

	// BaseRate is the fraction of ordinary (non-error, non-slow) traces
	// kept, 0.0-1.0. Zero defaults to 0.1; a negative rate keeps none
	// beyond the always-sample rules.
	BaseRate float64

	// AlwaysSampleErrors keeps every trace whose Error field is set.
	AlwaysSampleErrors bool

	// AlwaysSampleSlow keeps every trace at or above SlowThresholdMS.
	AlwaysSampleSlow bool
	SlowThresholdMS  float64

	// AlwaysSampleQualnames names boundaries that are always kept
	// regardless of rate (e.g. checkout flows worth full fidelity).
	AlwaysSampleQualnames []string
}

// SamplingDecision is the outcome of evaluating a finished trace.
type SamplingDecision struct {
	Keep   bool
	Reason string
}

// Sampler makes tail-based sampling decisions over finished trace events.
type Sampler struct {
	cfg    SamplingConfig
	rng    *rand.Rand
	always map[string]bool
}

// NewSampler builds a Sampler from cfg. An unset BaseRate defaults to
// keeping 10% of ordinary traces.
func NewSampler(cfg SamplingConfig) *Sampler {
	if cfg.BaseRate == 0 {
		cfg.BaseRate = 0.1
	}
	if cfg.SlowThresholdMS == 0 {
		cfg.SlowThresholdMS = 5000
	}
	always := make(map[string]bool, len(cfg.AlwaysSampleQualnames))
	for _, q := range cfg.AlwaysSampleQualnames {
		always[q] = true
	}
	return &Sampler{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		always: always,
	}
}

// Decide evaluates a completed trace event against the configured rules.
func (s *Sampler) Decide(ev *fixture.TraceEvent) SamplingDecision {
	if !s.cfg.Enabled {
		return SamplingDecision{Keep: true, Reason: "sampling_disabled"}
	}
	if s.always[ev.Qualname] {
		return SamplingDecision{Keep: true, Reason: "always_sample_qualname"}
	}
	if s.cfg.AlwaysSampleErrors && ev.Error != "" {
		return SamplingDecision{Keep: true, Reason: "error_detected"}
	}
	if s.cfg.AlwaysSampleSlow && ev.DurationMS >= s.cfg.SlowThresholdMS {
		return SamplingDecision{Keep: true, Reason: "slow_trace"}
	}
	if s.rng.Float64() < s.cfg.BaseRate {
		return SamplingDecision{Keep: true, Reason: "base_rate"}
	}
	return SamplingDecision{Keep: false, Reason: "below_base_rate"}
}
