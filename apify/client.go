package apify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/yourorg/listing-relay/internal/logger"
	"github.com/yourorg/listing-relay/listing"
)

var ErrPayloadTooLarge = errors.New("payload too large")

// StatusError is returned for any non-2xx answer from the dataset endpoint.
type StatusError struct {
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("apify error %d: %s", e.Code, e.Status)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

type Options struct {
	Timeout  time.Duration
	RetryMax int
	MaxBytes int64
	RPS      float64
	Logger   zerolog.Logger
}

type Client struct {
	url      string
	http     *retryablehttp.Client
	limiter  *rate.Limiter
	maxBytes int64
}

func NewClient(datasetURL string, opts Options) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = 900 * time.Millisecond
	rc.RetryMax = opts.RetryMax
	rc.HTTPClient.Timeout = opts.Timeout
	if rc.HTTPClient.Timeout <= 0 {
		rc.HTTPClient.Timeout = 30 * time.Second
	}
	rc.Logger = logger.Leveled{L: opts.Logger}
	rc.ErrorHandler = lastResponse

	c := &Client{
		url:      datasetURL,
		http:     rc,
		maxBytes: opts.MaxBytes,
	}
	if c.maxBytes <= 0 {
		c.maxBytes = 64 << 20
	}
	if opts.RPS > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RPS), 1)
	}
	return c
}

// Fetch reads the dataset once and returns its top-level elements.
// Transport errors, non-2xx answers, oversized bodies and bodies that are not
// a JSON array are all errors.
func (c *Client) Fetch(ctx context.Context) (listing.Batch, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<10))
		return nil, &StatusError{
			Code:   resp.StatusCode,
			Status: statusText(resp),
			Body:   strings.TrimSpace(string(excerpt)),
		}
	}
	raw, err := ioReadAllLimit(resp.Body, c.maxBytes)
	if err != nil {
		return nil, err
	}
	batch, err := listing.DecodeBatch(raw)
	if err != nil {
		return nil, fmt.Errorf("decode apify payload: %w", err)
	}
	return batch, nil
}

// lastResponse hands the final response back once retries run out so the
// status code and body reach the caller instead of a "giving up" error.
func lastResponse(resp *http.Response, err error, _ int) (*http.Response, error) {
	if resp != nil {
		return resp, nil
	}
	return nil, err
}

func statusText(resp *http.Response) string {
	// resp.Status is "404 Not Found"
	if _, text, ok := strings.Cut(resp.Status, " "); ok && text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

func ioReadAllLimit(r io.Reader, limit int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, ErrPayloadTooLarge
	}
	return b, nil
}
