package envconfig

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenUnset(t *testing.T) {
	for _, k := range []string{"SIM_MODE", "SIM_RUN_ID", "SIM_STUB_DIR", "SIM_BUFFER_SIZE_KB", "SIM_FLUSH_INTERVAL_MS", "SIM_FROZEN_TIME"} {
		t.Setenv(k, "")
	}
	env := Load()
	assert.Equal(t, "off", env.Mode)
	assert.Equal(t, 512, env.BufferSizeKB)
	assert.Equal(t, 200, env.FlushIntervalMS)
	assert.Equal(t, 200*time.Millisecond, env.FlushInterval())
	assert.Equal(t, 512*1024, env.BufferSizeBytes())
}

func TestLoadReadsOverrides(t *testing.T) {
	t.Setenv("SIM_MODE", "record")
	t.Setenv("SIM_RUN_ID", "run-123")
	t.Setenv("SIM_STUB_DIR", "/tmp/fixtures")
	t.Setenv("SIM_BUFFER_SIZE_KB", "1024")
	t.Setenv("SIM_FLUSH_INTERVAL_MS", "50")

	env := Load()
	assert.Equal(t, "record", env.Mode)
	assert.Equal(t, "run-123", env.RunID)
	assert.Equal(t, "/tmp/fixtures", env.StubDir)
	assert.Equal(t, 1024, env.BufferSizeKB)
	assert.Equal(t, 50*time.Millisecond, env.FlushInterval())
}

func TestParseFrozenTimeEmptyIsZeroValue(t *testing.T) {
	env := SimEnv{}
	ts, err := env.ParseFrozenTime()
	require.NoError(t, err)
	assert.True(t, ts.IsZero())
}

func TestParseFrozenTimeAcceptsEpochSeconds(t *testing.T) {
	env := SimEnv{FrozenTime: "1704110400"}
	ts, err := env.ParseFrozenTime()
	require.NoError(t, err)
	assert.Equal(t, int64(1704110400), ts.Unix())
}

func TestParseFrozenTimeRejectsMalformed(t *testing.T) {
	env := SimEnv{FrozenTime: "not-a-time"}
	_, err := env.ParseFrozenTime()
	require.Error(t, err)
}

func TestValidateRejectsUnknownMode(t *testing.T) {
	env := SimEnv{Mode: "bogus"}
	require.Error(t, env.Validate())

	for _, m := range []string{"off", "record", "replay", ""} {
		assert.NoError(t, SimEnv{Mode: m}.Validate())
	}
}
