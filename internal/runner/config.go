// Package runner implements the end-to-end orchestrator: fetch fixtures,
// drive them against a candidate, diff responses, emit a report, and
// return a pass/fail exit code.
package runner

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EndpointConfig names one endpoint to replay fixtures against.
type EndpointConfig struct {
	Name   string `yaml:"name"`
	Method string `yaml:"method"`
	Path   string `yaml:"path"`
}

// SourceConfig selects and configures the fixture fetch source.
type SourceConfig struct {
	Type   string `yaml:"type"` // "local", "s3", "redis"
	Root   string `yaml:"root,omitempty"`
	Bucket string `yaml:"bucket,omitempty"`
	Prefix string `yaml:"prefix,omitempty"`

	// Endpoint, AccessKey, and SecretKey override the default AWS
	// credential chain for S3-compatible stores (e.g. MinIO) that sit
	// behind a custom endpoint rather than real AWS. Left blank, the
	// source falls back to the ambient AWS config (env/profile/role).
	Endpoint  string `yaml:"endpoint,omitempty"`
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
}

// DiffConfig mirrors diffengine.Config in the YAML configuration file.
type DiffConfig struct {
	IgnorePaths    []string `yaml:"ignore_paths"`
	MoneyPaths     []string `yaml:"money_paths"`
	MoneyTolerance float64  `yaml:"money_tolerance"`
	FloatTolerance float64  `yaml:"float_tolerance"`
}

// SimConfig is the runner's YAML configuration: service name and port,
// candidate URL, endpoints, storage source, and diff settings.
type SimConfig struct {
	Service string `yaml:"service"`
	// Port is the local port the candidate listens on; used to derive the
	// candidate base URL when candidate_url is not set explicitly.
	Port         int              `yaml:"port,omitempty"`
	CandidateURL string           `yaml:"candidate_url"`
	FixturesDir  string           `yaml:"fixtures_dir"`
	CacheDir     string           `yaml:"cache_dir"`
	ManifestPath string           `yaml:"manifest_path,omitempty"`
	Endpoints    []EndpointConfig `yaml:"endpoints"`
	Source       SourceConfig     `yaml:"source"`
	Diff         DiffConfig       `yaml:"diff"`
}

// DefaultConfig is the configuration written by --init.
func DefaultConfig() SimConfig {
	return SimConfig{
		Service:      "my-service",
		CandidateURL: "http://localhost:8080",
		FixturesDir:  "./fixtures",
		CacheDir:     "./.simreplay-cache",
		Endpoints: []EndpointConfig{
			{Name: "example", Method: "GET", Path: "/v1/example"},
		},
		Source: SourceConfig{Type: "local", Root: "./fixtures"},
		Diff: DiffConfig{
			IgnorePaths:    []string{"request_id", "timestamp"},
			MoneyPaths:     []string{},
			MoneyTolerance: 0.01,
			FloatTolerance: 0.0001,
		},
	}
}

// LoadConfig reads and parses a SimConfig from path.
func LoadConfig(path string) (SimConfig, error) {
	var cfg SimConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("runner: read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("runner: parse config %s: %w", path, err)
	}
	if cfg.Service == "" {
		return cfg, fmt.Errorf("runner: config error: %q missing required field 'service'", path)
	}
	if cfg.CandidateURL == "" && cfg.Port == 0 {
		return cfg, fmt.Errorf("runner: config error: %q needs 'candidate_url' or 'port'", path)
	}
	return cfg, nil
}

// CandidateBaseURL resolves the candidate's base URL: candidate_url when
// set, otherwise the local listener implied by port.
func (c SimConfig) CandidateBaseURL() string {
	if c.CandidateURL != "" {
		return c.CandidateURL
	}
	if c.Port != 0 {
		return fmt.Sprintf("http://localhost:%d", c.Port)
	}
	return ""
}

// WriteDefaultConfig writes DefaultConfig to path, failing if a file
// already exists there.
func WriteDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("runner: config error: %q already exists", path)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("runner: marshal default config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
