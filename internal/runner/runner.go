package runner

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/evalgo/simreplay/internal/diffengine"
	"github.com/evalgo/simreplay/internal/fetcher"
	"github.com/evalgo/simreplay/internal/fixture"
	"github.com/evalgo/simreplay/internal/report"
)

// Options configures one runner invocation, layered over SimConfig by
// CLI flags.
type Options struct {
	CandidateURL   string
	EndpointAllow  []string
	RequestTimeout time.Duration
	ForceRefetch   bool
}

// Run is the end-to-end operation: for each configured (allow-listed)
// endpoint, fetch its fixtures, replay each fixture's recorded input
// against the candidate, diff the observed response against the golden
// output, and aggregate everything into a SimulationReport. Candidate
// responses that surface a replay fault (stub miss or blocked write) are
// reported in their own sections instead of being diffed.
func Run(ctx context.Context, cfg SimConfig, source fetcher.Source, manifest *fetcher.Manifest, opts Options) (report.SimulationReport, error) {
	candidateURL := opts.CandidateURL
	if candidateURL == "" {
		candidateURL = cfg.CandidateBaseURL()
	}

	client := newUnpatchedClient(opts.RequestTimeout)
	f := fetcher.New(source, manifest)

	allow := toSet(opts.EndpointAllow)

	var (
		results    []diffengine.Result
		errs       []string
		stubMisses []report.StubMissDetail
		blocked    []report.BlockedWriteDetail
	)

	diffCfg := diffengine.Config{
		IgnorePaths:    cfg.Diff.IgnorePaths,
		MoneyPaths:     cfg.Diff.MoneyPaths,
		MoneyTolerance: cfg.Diff.MoneyTolerance,
		FloatTolerance: cfg.Diff.FloatTolerance,
	}

	for _, ep := range cfg.Endpoints {
		if len(allow) > 0 && !allow[ep.Name] {
			continue
		}

		fixtures, err := f.FetchEndpoint(ctx, cfg.Service, ep.Name, fetcher.Options{
			CacheRoot: cfg.CacheDir,
			Force:     opts.ForceRefetch,
		})
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: fetch failed: %v", ep.Name, err))
			continue
		}

		for _, fx := range fixtures {
			candidate, err := sendFixture(ctx, client, candidateURL, ep, fx)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s/%s: %v", ep.Name, fx.Input.FixtureID, err))
				log.Warn().Str("endpoint", ep.Name).Str("fixture_id", fx.Input.FixtureID).Err(err).Msg("runner: fixture replay failed")
				continue
			}

			if miss, blockedWrite := replayFault(ep.Name, fx.Input.FixtureID, candidate); miss != nil || blockedWrite != nil {
				if miss != nil {
					stubMisses = append(stubMisses, *miss)
				} else {
					blocked = append(blocked, *blockedWrite)
				}
				log.Warn().Str("endpoint", ep.Name).Str("fixture_id", fx.Input.FixtureID).Msg("runner: candidate surfaced a replay fault")
				continue
			}

			golden := diffengine.Response{Status: fx.Output.StatusCode, Body: fx.Output.Output}
			if golden.Status == 0 {
				golden.Status = candidate.Status
			}
			results = append(results, diffengine.Diff(fx.Input.FixtureID, ep.Name, golden, candidate, diffCfg))
		}
	}

	r := report.Build(cfg.Service+"-"+time.Now().UTC().Format("20060102T150405"), results, stubMisses, blocked, errs)
	return r, nil
}

// sendFixture sends the fixture's recorded input against candidateURL and
// returns the parsed response.
func sendFixture(ctx context.Context, client *http.Client, candidateURL string, ep EndpointConfig, fx fixture.EndpointFixture) (diffengine.Response, error) {
	req, err := buildRequest(ctx, candidateURL, ep, fx.Input.Args)
	if err != nil {
		return diffengine.Response{}, err
	}
	return doRequest(client, req)
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, i := range items {
		set[i] = true
	}
	return set
}
