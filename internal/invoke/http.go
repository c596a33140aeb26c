package invoke

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"surveyagg/internal/faults"
)

// Client invokes methods over HTTP: POST <base>/<name> with the JSON
// payload, expecting the result envelope back.
type Client struct {
	base string
	hc   *http.Client
}

// NewClient builds an HTTP invoker for the given base URL. A nil transport
// timeout defaults to 30 seconds, matching the one-blocking-call-per-run
// model; there is no retry here.
func NewClient(base string, timeout time.Duration) (*Client, error) {
	if _, err := url.Parse(base); err != nil || base == "" {
		return nil, fmt.Errorf("invoke: invalid base URL %q", base)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: timeout},
	}, nil
}

// Invoke POSTs the payload and decodes the envelope. Non-2xx statuses and
// undecodable bodies are transport errors; a decoded envelope with
// Success=false is returned as-is for the caller to classify.
func (c *Client) Invoke(ctx context.Context, name string, payload any) (faults.Result, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return faults.Result{}, fmt.Errorf("invoke: marshal payload for %q: %w", name, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/"+name, bytes.NewReader(b))
	if err != nil {
		return faults.Result{}, fmt.Errorf("invoke: build request for %q: %w", name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return faults.Result{}, fmt.Errorf("invoke: call %q: %w", name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return faults.Result{}, fmt.Errorf("invoke: read %q response: %w", name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return faults.Result{}, fmt.Errorf("invoke: %q returned %s", name, resp.Status)
	}

	var res faults.Result
	if err := json.Unmarshal(body, &res); err != nil {
		return faults.Result{}, fmt.Errorf("invoke: decode %q response: %w", name, err)
	}
	return res, nil
}
