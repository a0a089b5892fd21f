// Package fixture defines the value types persisted by the trace, capture,
// and db primitives, and the on-disk layout they live at. The types here
// carry no behavior beyond (de)serialization: reading a file a writer
// produced must recover the writer's semantics, nothing more.
package fixture

import "time"

// Kind distinguishes the three primitive fixture families that share the
// store root; it also tags the stub descriptors a trace collects.
type Kind string

const (
	KindTrace   Kind = "trace"
	KindCapture Kind = "capture"
	KindDB      Kind = "db"
)

// StubSource marks whether a collected stub was produced while recording
// or while replaying.
type StubSource string

const (
	SourceRecord StubSource = "record"
	SourceReplay StubSource = "replay"
)

// Stub is the structural shape shared by capture and db stub descriptors
// collected inside a trace boundary.
type Stub struct {
	Type    Kind        `json:"type"`
	Name    string      `json:"name"`
	Ordinal int         `json:"ordinal"`
	Output  interface{} `json:"output"`
	Source  StubSource  `json:"source"`

	// DB-specific fields, empty for capture stubs.
	SQL               string `json:"sql,omitempty"`
	SQLFingerprint    string `json:"sql_fingerprint,omitempty"`
	ParamsFingerprint string `json:"params_fingerprint,omitempty"`
}

// TraceEvent is the fixture emitted by the trace primitive at call exit.
type TraceEvent struct {
	FixtureID         string                 `json:"fixture_id"`
	Qualname          string                 `json:"qualname"`
	RunID             string                 `json:"run_id"`
	RecordedAt        time.Time              `json:"recorded_at"`
	Input             map[string]interface{} `json:"input"`
	InputFingerprint  string                 `json:"input_fingerprint"`
	Output            interface{}            `json:"output,omitempty"`
	OutputFingerprint string                 `json:"output_fingerprint"`
	Stubs             []Stub                 `json:"stubs"`
	Ordinal           int                    `json:"ordinal"`
	DurationMS        float64                `json:"duration_ms"`
	Error             string                 `json:"error,omitempty"`
}

// Key identifies a trace fixture on disk:
// {qualname-sanitized}/{fingerprint16}_{ordinal}.json under the store
// root.
type Key struct {
	Qualname         string
	InputFingerprint string
	Ordinal          int
}

// CaptureEvent is the fixture emitted by the capture primitive.
type CaptureEvent struct {
	Label      string      `json:"label"`
	Ordinal    int         `json:"ordinal"`
	RunID      string      `json:"run_id"`
	RecordedAt time.Time   `json:"recorded_at"`
	Result     interface{} `json:"result"`
}

// DBEvent is the fixture emitted by the db primitive.
type DBEvent struct {
	Name              string      `json:"name"`
	SQL               string      `json:"sql"`
	Params            interface{} `json:"params"`
	Rows              interface{} `json:"rows"`
	SQLFingerprint    string      `json:"sql_fingerprint"`
	ParamsFingerprint string      `json:"params_fingerprint"`
	Ordinal           int         `json:"ordinal"`
	RecordedAt        time.Time   `json:"recorded_at"`
}

// Event is the sum type accepted by a Sink: exactly one of the three
// pointer fields is non-nil.
type Event struct {
	Trace   *TraceEvent
	Capture *CaptureEvent
	DB      *DBEvent
}

// EndpointInput is the recorded input envelope for a trace-oriented,
// endpoint-level fixture, consumed by the runner.
type EndpointInput struct {
	FixtureID   string                 `json:"fixture_id"`
	Name        string                 `json:"name"`
	Args        map[string]interface{} `json:"args"`
	Fingerprint string                 `json:"fingerprint"`
}

// EndpointOutput is the golden output envelope for an endpoint-level
// fixture.
type EndpointOutput struct {
	FixtureID   string      `json:"fixture_id"`
	StatusCode  int         `json:"status_code"`
	Output      interface{} `json:"output"`
	Fingerprint string      `json:"fingerprint"`
}

// EndpointStubs is the collected child-stub envelope for an endpoint-level
// fixture.
type EndpointStubs struct {
	FixtureID string `json:"fixture_id"`
	DBCalls   []Stub `json:"db_calls"`
	HTTPCalls []Stub `json:"http_calls"`
	Captures  []Stub `json:"captures"`
}

// EndpointMetadata is the recording metadata envelope for an endpoint-level
// fixture.
type EndpointMetadata struct {
	FixtureID     string    `json:"fixture_id"`
	Name          string    `json:"name"`
	RecordedAt    time.Time `json:"recorded_at"`
	RecordingMode string    `json:"recording_mode"`
	RunID         string    `json:"run_id"`
	DurationMS    float64   `json:"duration_ms"`
	SchemaVersion string    `json:"schema_version"`
}

// SchemaVersion is the current on-disk schema version.
const SchemaVersion = "1.0"

// EndpointFixture bundles the four files that make up one endpoint-level
// fixture directory, loaded together by the fetcher.
type EndpointFixture struct {
	Input    EndpointInput
	Output   EndpointOutput
	Stubs    EndpointStubs
	Metadata EndpointMetadata
}
