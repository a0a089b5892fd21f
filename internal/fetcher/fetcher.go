// Package fetcher materializes a fixture set for a (service, endpoint)
// pair from a pluggable source into a local cache directory, then loads
// the cached files into memory as value objects.
package fetcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/evalgo/simreplay/internal/fixture"
)

// Source lists and materializes fixture directories for one (service,
// endpoint) pair. Local-directory copy, S3 list-and-download, and Redis
// scan-and-download are all Sources; the Fetcher is agnostic to which.
type Source interface {
	// ListFixtureIDs returns every fixture id available for the endpoint.
	ListFixtureIDs(ctx context.Context, service, endpoint string) ([]string, error)
	// FetchFixture copies the four conventional files for one fixture id
	// into destDir. A missing individual file is returned as an error;
	// FetchEndpoint logs it and skips that fixture.
	FetchFixture(ctx context.Context, service, endpoint, fixtureID, destDir string) error
}

// Options configures one fetch.
type Options struct {
	CacheRoot string
	// Force bypasses the idempotent cache reuse and re-fetches even when
	// the cache directory is already populated.
	Force bool
}

// Fetcher drives a Source against a local cache. Fetching is idempotent:
// a non-empty cache directory is reused unless Force is set.
type Fetcher struct {
	source   Source
	manifest *Manifest
}

// New builds a Fetcher over source, backed by an optional idempotency
// manifest (nil disables manifest-based short-circuiting; cache directory
// presence is still checked).
func New(source Source, manifest *Manifest) *Fetcher {
	return &Fetcher{source: source, manifest: manifest}
}

// FetchEndpoint materializes every fixture for (service, endpoint) into
// opts.CacheRoot/service/endpoint/, then loads each into memory. Missing
// individual files within a fixture directory cause that fixture to be
// skipped with a warning rather than aborting the whole set.
func (f *Fetcher) FetchEndpoint(ctx context.Context, service, endpoint string, opts Options) ([]fixture.EndpointFixture, error) {
	endpointDir := filepath.Join(opts.CacheRoot, service, endpoint)

	if !opts.Force && f.manifest != nil && f.manifest.IsFetched(service, endpoint) {
		return f.loadAll(endpointDir)
	}
	if !opts.Force && dirNonEmpty(endpointDir) {
		return f.loadAll(endpointDir)
	}

	ids, err := f.source.ListFixtureIDs(ctx, service, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetcher: list fixtures for %s/%s: %w", service, endpoint, err)
	}

	for _, id := range ids {
		dest := filepath.Join(opts.CacheRoot, fixture.EndpointDir(service, endpoint, id))
		if err := os.MkdirAll(dest, 0o755); err != nil {
			return nil, fmt.Errorf("fetcher: mkdir %s: %w", dest, err)
		}
		if err := f.source.FetchFixture(ctx, service, endpoint, id, dest); err != nil {
			log.Warn().Str("service", service).Str("endpoint", endpoint).Str("fixture_id", id).
				Err(err).Msg("fetcher: skipping fixture, fetch failed")
			continue
		}
	}

	if f.manifest != nil {
		if err := f.manifest.MarkFetched(service, endpoint); err != nil {
			log.Warn().Err(err).Msg("fetcher: failed to record manifest entry")
		}
	}

	return f.loadAll(endpointDir)
}

func dirNonEmpty(dir string) bool {
	entries, err := os.ReadDir(dir)
	return err == nil && len(entries) > 0
}

// loadAll reads every fixture subdirectory of endpointDir into memory.
// A fixture missing one of its four conventional files is skipped with a
// warning rather than aborting the whole set.
func (f *Fetcher) loadAll(endpointDir string) ([]fixture.EndpointFixture, error) {
	entries, err := os.ReadDir(endpointDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetcher: read cache dir %s: %w", endpointDir, err)
	}

	var out []fixture.EndpointFixture
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		fixtureDir := filepath.Join(endpointDir, e.Name())
		ef, ok := loadOne(fixtureDir)
		if !ok {
			log.Warn().Str("dir", fixtureDir).Msg("fetcher: skipping incomplete fixture directory")
			continue
		}
		if v := ef.Metadata.SchemaVersion; v != "" && v != fixture.SchemaVersion {
			log.Warn().Str("dir", fixtureDir).Str("schema_version", v).
				Msg("fetcher: fixture was recorded with a different schema version")
		}
		out = append(out, ef)
	}
	return out, nil
}

func loadOne(dir string) (fixture.EndpointFixture, bool) {
	var ef fixture.EndpointFixture

	if !readJSONFile(filepath.Join(dir, "input.json"), &ef.Input) {
		return ef, false
	}
	if !readJSONFile(filepath.Join(dir, "golden_output.json"), &ef.Output) {
		return ef, false
	}
	if !readJSONFile(filepath.Join(dir, "stubs.json"), &ef.Stubs) {
		return ef, false
	}
	if !readJSONFile(filepath.Join(dir, "metadata.json"), &ef.Metadata) {
		return ef, false
	}
	return ef, true
}
