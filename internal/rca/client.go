package rca

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/dmitriimaksimovdevelop/rcawatch/internal/errs"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

const (
	backoffBase   = 2 * time.Second
	backoffJitter = 500 * time.Millisecond
	maxRetries    = 2
)

// Client talks to the external LLM collaborator (spec §4.5, §6 "LLM
// request"). Grounded on the spec's retry policy: base-2s ±500ms jitter,
// ≤2 retries, transport/5xx retryable, 4xx fatal.
type Client struct {
	endpoint string
	http     *retryablehttp.Client
	timeout  time.Duration
}

// NewClient builds a Client posting to endpoint with the given request
// timeout (spec default 20s).
func NewClient(endpoint string, timeout time.Duration, log *zap.Logger) *Client {
	hc := retryablehttp.NewClient()
	hc.RetryMax = maxRetries
	hc.RetryWaitMin = backoffBase - backoffJitter
	hc.RetryWaitMax = backoffBase + backoffJitter
	hc.Logger = nil // zap is threaded explicitly at call sites, not via the retry client's own logger
	hc.Backoff = jitteredBackoff
	hc.CheckRetry = checkRetry
	return &Client{endpoint: endpoint, http: hc, timeout: timeout}
}

// jitteredBackoff ignores attemptNum beyond bounding into [min, max] and
// returns base ± up to jitter, matching the spec's fixed (not exponential)
// backoff window rather than retryablehttp's default exponential curve.
func jitteredBackoff(min, max time.Duration, attemptNum int, resp *http.Response) time.Duration {
	jitter := time.Duration(rand.Int63n(int64(2*backoffJitter))) - backoffJitter
	d := backoffBase + jitter
	if d < min {
		return min
	}
	if d > max {
		return max
	}
	return d
}

// checkRetry retries on transport errors and 5xx-equivalent responses only;
// 4xx-equivalent responses are fatal for the incident (spec §4.5).
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return true, nil
	}
	if resp.StatusCode >= 500 {
		return true, nil
	}
	if resp.StatusCode >= 400 {
		return false, nil
	}
	return false, nil
}

// Request sends payload with an idempotency key equal to the incident id
// (spec §6: "carries an idempotency key equal to the incident id so
// retries are safe") and returns the raw response body for validation.
func (c *Client) Request(ctx context.Context, incidentID int64, payload EvidencePayload) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errs.New(errs.MalformedInput, "rca.client.marshal", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errs.New(errs.LlmUnavailable, "rca.client.new_request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", fmt.Sprintf("%d", incidentID))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errs.New(errs.LlmUnavailable, "rca.client.do", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, errs.New(errs.LlmUnavailable, "rca.client.status",
			fmt.Errorf("llm collaborator returned status %d", resp.StatusCode))
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, errs.New(errs.LlmUnavailable, "rca.client.read_body", err)
	}
	return buf.Bytes(), nil
}
