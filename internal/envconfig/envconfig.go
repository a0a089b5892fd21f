// Package envconfig loads the SIM_* environment variables that configure
// an instrumented service's record/replay behavior, using a prefixed-key
// environment loader with typed getters and defaults.
package envconfig

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// EnvConfig retrieves typed values from environment variables under an
// optional prefix, defaulting when unset or malformed rather than failing
// the process outright.
type EnvConfig struct {
	prefix string
}

// NewEnvConfig creates a loader that reads PREFIX_KEY (or KEY when prefix
// is empty).
func NewEnvConfig(prefix string) *EnvConfig {
	return &EnvConfig{prefix: prefix}
}

func (ec *EnvConfig) buildKey(key string) string {
	if ec.prefix != "" {
		return ec.prefix + "_" + key
	}
	return key
}

// GetString retrieves a string value with a default.
func (ec *EnvConfig) GetString(key, defaultValue string) string {
	if v := os.Getenv(ec.buildKey(key)); v != "" {
		return v
	}
	return defaultValue
}

// GetInt retrieves an integer value with a default, ignoring unparsable
// values.
func (ec *EnvConfig) GetInt(key string, defaultValue int) int {
	if v := os.Getenv(ec.buildKey(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

// GetBool retrieves a boolean value with a default.
func (ec *EnvConfig) GetBool(key string, defaultValue bool) bool {
	if v := os.Getenv(ec.buildKey(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

// GetDuration retrieves a duration value with a default.
func (ec *EnvConfig) GetDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(ec.buildKey(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

// SimEnv is the full set of SIM_* environment variables recognized by the
// SDK.
type SimEnv struct {
	Mode            string // SIM_MODE: "off" | "record" | "replay"
	RunID           string // SIM_RUN_ID
	StubDir         string // SIM_STUB_DIR
	BufferSizeKB    int    // SIM_BUFFER_SIZE_KB: sink in-memory buffer budget
	FlushIntervalMS int    // SIM_FLUSH_INTERVAL_MS: sink periodic flush cadence
	FrozenTime      string // SIM_FROZEN_TIME: RFC3339 or epoch seconds, clock override
}

// Load reads all SIM_* variables, defaulting unset ones.
func Load() SimEnv {
	env := NewEnvConfig("SIM")
	return SimEnv{
		Mode:            env.GetString("MODE", "off"),
		RunID:           env.GetString("RUN_ID", ""),
		StubDir:         env.GetString("STUB_DIR", ""),
		BufferSizeKB:    env.GetInt("BUFFER_SIZE_KB", 512),
		FlushIntervalMS: env.GetInt("FLUSH_INTERVAL_MS", 200),
		FrozenTime:      env.GetString("FROZEN_TIME", ""),
	}
}

// FlushInterval converts FlushIntervalMS to a time.Duration.
func (e SimEnv) FlushInterval() time.Duration {
	return time.Duration(e.FlushIntervalMS) * time.Millisecond
}

// BufferSizeBytes converts BufferSizeKB to bytes.
func (e SimEnv) BufferSizeBytes() int {
	return e.BufferSizeKB * 1024
}

// ParseFrozenTime parses FrozenTime, accepting RFC3339 timestamps or
// integer epoch seconds. It returns the zero time and no error when
// unset.
func (e SimEnv) ParseFrozenTime() (time.Time, error) {
	if e.FrozenTime == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, e.FrozenTime); err == nil {
		return t, nil
	}
	if secs, err := strconv.ParseInt(e.FrozenTime, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("envconfig: SIM_FROZEN_TIME %q is neither RFC3339 nor epoch seconds", e.FrozenTime)
}

// Validate reports whether Mode is one of the recognized values. Unlike
// simcontext.ParseMode (which degrades silently for the hot path), this is
// meant for startup-time diagnostics where a loud complaint is preferable.
func (e SimEnv) Validate() error {
	switch e.Mode {
	case "off", "record", "replay", "":
		return nil
	default:
		return fmt.Errorf("envconfig: SIM_MODE %q is not one of off|record|replay", e.Mode)
	}
}
