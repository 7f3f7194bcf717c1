package summarizer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-Id"

// send issues one request, records its duration and turns non-2xx responses
// into HTTPStatusError. The caller owns the returned body.
func (c *Client) send(ctx context.Context, client *http.Client, req *http.Request, operation string) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("summarizer %s throttle: %w", operation, err)
		}
	}
	req.Header.Set(requestIDHeader, uuid.NewString())

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		c.metrics.ObserveBackendRequest(operation, "error", time.Since(start))
		return nil, fmt.Errorf("summarizer %s request: %w", operation, err)
	}
	c.metrics.ObserveBackendRequest(operation, strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, formatHTTPError(operation, resp)
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any, operation string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.send(ctx, c.httpClient, req, operation)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func formatHTTPError(operation string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &HTTPStatusError{
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       strings.TrimSpace(string(body)),
	}
}
