package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mcpfinder/mcpfinder/internal/mcferrors"

	"golang.org/x/time/rate"
)

const requestTimeout = 30 * time.Second

// rateLimitedClient wraps an http.Client with a per-puller token bucket so
// each source is a polite, bounded-rate citizen of its upstream API.
type rateLimitedClient struct {
	http    *http.Client
	limiter *rate.Limiter
}

func newRateLimitedClient() *rateLimitedClient {
	return &rateLimitedClient{
		http:    &http.Client{Timeout: requestTimeout},
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 1),
	}
}

// getJSON waits for the limiter, issues a GET against url, and decodes the
// JSON body into out. A non-2xx status or transport failure is returned as
// *mcferrors.ErrSourceUnavailable so callers can stop pagination and record
// it verbatim in the SyncLog.
func (c *rateLimitedClient) getJSON(ctx context.Context, source, url string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &mcferrors.ErrSourceUnavailable{Source: source, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &mcferrors.ErrSourceUnavailable{Source: source, Status: resp.StatusCode, Message: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &mcferrors.ErrSourceUnavailable{Source: source, Message: fmt.Sprintf("decode response: %v", err)}
	}
	return nil
}
