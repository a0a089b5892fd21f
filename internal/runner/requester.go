package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/evalgo/simreplay/internal/diffengine"
)

// RequestEnvelope is the optional shape fixture.EndpointInput.Args may
// take: a full request description. Args without the envelope's keys are
// sent verbatim as the request body, with method/path taken from the
// endpoint configuration.
type RequestEnvelope struct {
	Method  string            `json:"method"`
	Path    string            `json:"path"`
	Body    interface{}       `json:"body"`
	Headers map[string]string `json:"headers"`
}

// newUnpatchedClient constructs a fresh, unconfigured http.Client. The
// runner builds its HTTP client this way rather than reusing any client
// the instrumented application wired through the SDK's adapters, so the
// runner's own traffic is never intercepted by instrumentation active in
// the same process.
func newUnpatchedClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: http.DefaultTransport,
	}
}

// buildRequest constructs an *http.Request from an endpoint's configured
// method/path and the fixture's recorded args.
func buildRequest(ctx context.Context, baseURL string, ep EndpointConfig, args map[string]interface{}) (*http.Request, error) {
	method := ep.Method
	path := ep.Path
	var bodyValue interface{} = args
	var headers map[string]string

	if env, ok := asEnvelope(args); ok {
		if env.Method != "" {
			method = env.Method
		}
		if env.Path != "" {
			path = env.Path
		}
		bodyValue = env.Body
		headers = env.Headers
	}
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if bodyValue != nil {
		data, err := json.Marshal(bodyValue)
		if err != nil {
			return nil, fmt.Errorf("runner: encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("runner: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// asEnvelope reports whether args looks like a RequestEnvelope (has at
// least one of the envelope's recognized keys) rather than a verbatim
// request body.
func asEnvelope(args map[string]interface{}) (RequestEnvelope, bool) {
	_, hasMethod := args["method"]
	_, hasPath := args["path"]
	_, hasBody := args["body"]
	_, hasHeaders := args["headers"]
	if !hasMethod && !hasPath && !hasBody && !hasHeaders {
		return RequestEnvelope{}, false
	}

	var env RequestEnvelope
	data, err := json.Marshal(args)
	if err != nil {
		return RequestEnvelope{}, false
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return RequestEnvelope{}, false
	}
	return env, true
}

// doRequest sends req and parses the response into a diffengine.Response.
func doRequest(client *http.Client, req *http.Request) (diffengine.Response, error) {
	resp, err := client.Do(req)
	if err != nil {
		return diffengine.Response{}, fmt.Errorf("runner: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return diffengine.Response{}, fmt.Errorf("runner: read response body: %w", err)
	}

	var body interface{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &body); err != nil {
			body = string(data)
		}
	}
	return diffengine.Response{Status: resp.StatusCode, Body: body}, nil
}
