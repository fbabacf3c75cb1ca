package liveness

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// PingSink POSTs each record as JSON to a monitoring URL
// (healthchecks-style dead man's switch).
type PingSink struct {
	url    string
	client *retryablehttp.Client
}

func NewPingSink(url string, timeout time.Duration, retries int) *PingSink {
	c := retryablehttp.NewClient()
	c.RetryMax = retries
	c.RetryWaitMin = 200 * time.Millisecond
	c.RetryWaitMax = 2 * time.Second
	if timeout > 0 {
		c.HTTPClient.Timeout = timeout
	}
	c.Logger = nil // suppress retryablehttp's default logging
	return &PingSink{url: url, client: c}
}

func (*PingSink) Name() string { return "ping" }

func (s *PingSink) Emit(ctx context.Context, r Record) error {
	body, err := json.Marshal(r)
	if err != nil {
		return err
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", s.url, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("POST %s: status %d", s.url, resp.StatusCode)
	}
	return nil
}
