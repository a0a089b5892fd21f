package runner

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/evalgo/simreplay/internal/diffengine"
	"github.com/evalgo/simreplay/internal/report"
)

// The replay-mode primitives format their faults deterministically, so a
// candidate running in replay mode that bubbles one up as its error
// response can be classified here instead of producing a meaningless
// body diff.
var (
	stubMissPattern     = regexp.MustCompile(`stub miss: (\S+) fingerprint=(\S*) ordinal=(\d+) expected at (.*)`)
	writeBlockedPattern = regexp.MustCompile(`write blocked on connection "([^"]*)": (.*)`)
)

// replayFault classifies a candidate error response as a stub miss or a
// blocked write. Both return values are nil for ordinary responses.
func replayFault(endpoint, fixtureID string, resp diffengine.Response) (*report.StubMissDetail, *report.BlockedWriteDetail) {
	if resp.Status < http.StatusInternalServerError {
		return nil, nil
	}
	msg := errorMessage(resp.Body)
	if msg == "" {
		return nil, nil
	}

	if m := stubMissPattern.FindStringSubmatch(msg); m != nil {
		ordinal, _ := strconv.Atoi(m[3])
		return &report.StubMissDetail{
			Endpoint:    endpoint,
			FixtureID:   fixtureID,
			Qualname:    m[1],
			Fingerprint: m[2],
			Ordinal:     ordinal,
			ExpectedAt:  m[4],
		}, nil
	}
	if strings.Contains(msg, "stub miss") {
		return &report.StubMissDetail{Endpoint: endpoint, FixtureID: fixtureID, Qualname: msg}, nil
	}

	if m := writeBlockedPattern.FindStringSubmatch(msg); m != nil {
		return nil, &report.BlockedWriteDetail{
			Endpoint:  endpoint,
			FixtureID: fixtureID,
			Label:     m[1],
			SQL:       m[2],
		}
	}
	if strings.Contains(msg, "write blocked") {
		return nil, &report.BlockedWriteDetail{Endpoint: endpoint, FixtureID: fixtureID, SQL: msg}
	}

	return nil, nil
}

// errorMessage extracts a human-readable error string from a candidate
// response body, accepting either an {"error": "..."} envelope or a bare
// string body.
func errorMessage(body interface{}) string {
	switch b := body.(type) {
	case map[string]interface{}:
		if s, ok := b["error"].(string); ok {
			return s
		}
		if s, ok := b["message"].(string); ok {
			return s
		}
	case string:
		return b
	}
	return ""
}
