package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"github.com/yourorg/listing-relay/internal/logger"
	"github.com/yourorg/listing-relay/listing"
)

const (
	maxResponseBytes = 1 << 20
	truncatedMarker  = "...[truncated]"
)

// StatusError is returned when the insert endpoint answers outside 2xx.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("supabase insert failed: status %d", e.Code)
	if e.Body != "" {
		msg += " response body: " + e.Body
	}
	return msg
}

type Options struct {
	Timeout  time.Duration
	RetryMax int
	// Prefer is sent as the PostgREST Prefer header when set,
	// e.g. "resolution=merge-duplicates".
	Prefer string
	Logger zerolog.Logger
}

// Client bulk-inserts rows through the PostgREST table endpoint.
type Client struct {
	url    string
	key    string
	prefer string
	http   *retryablehttp.Client
	log    zerolog.Logger
}

func NewClient(tableURL, apiKey string, opts Options) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = 900 * time.Millisecond
	rc.RetryMax = opts.RetryMax
	rc.HTTPClient.Timeout = opts.Timeout
	if rc.HTTPClient.Timeout <= 0 {
		rc.HTTPClient.Timeout = 30 * time.Second
	}
	rc.Logger = logger.Leveled{L: opts.Logger}
	rc.ErrorHandler = func(resp *http.Response, err error, _ int) (*http.Response, error) {
		if resp != nil {
			return resp, nil
		}
		return nil, err
	}

	return &Client{
		url:    tableURL,
		key:    apiKey,
		prefer: opts.Prefer,
		http:   rc,
		log:    opts.Logger,
	}
}

// WriteRows sends the whole batch in one POST.
func (c *Client) WriteRows(ctx context.Context, rows []listing.Row) error {
	body, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode rows: %w", err)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)
	if c.prefer != "" {
		req.Header.Set("Prefer", c.prefer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	c.log.Info().Int("status", resp.StatusCode).Msg("response status")

	// PostgREST answers 201 with an empty body unless asked to return rows,
	// so read text first and only parse what is there.
	text, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	truncated := len(text) > maxResponseBytes
	if truncated {
		text = text[:maxResponseBytes]
	}
	body = bytes.TrimSpace(text)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(body)
		if truncated {
			msg += truncatedMarker
		}
		return &StatusError{Code: resp.StatusCode, Body: msg}
	}
	if truncated {
		c.log.Warn().Int("rows", len(rows)).Int("limit", maxResponseBytes).Msg("batch insert successful, response body truncated")
		return nil
	}
	if len(body) == 0 {
		c.log.Info().Int("rows", len(rows)).Msg("batch insert successful")
		return nil
	}
	var result any
	if err := json.Unmarshal(body, &result); err != nil {
		c.log.Warn().Err(err).Int("rows", len(rows)).Msg("batch insert successful, response body is not JSON")
		return nil
	}
	c.log.Info().Int("rows", len(rows)).Interface("result", result).Msg("batch insert successful")
	return nil
}
