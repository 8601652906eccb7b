package itmonitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultLatestLimit = 100
	MaxLatestLimit     = 1000
)

// ErrUnsuccessful is returned when the API answers 200 with success=false.
var ErrUnsuccessful = errors.New("api reported failure")

type Client struct {
	baseURL string
	http    *http.Client
	retries int
}

type ClientOption func(*Client)

// WithRetries retries transport errors and 5xx responses up to n times with
// exponential backoff. Zero disables retrying.
func WithRetries(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.retries = n
		}
	}
}

func NewClient(baseURL string, httpClient *http.Client, opts ...ClientOption) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func (c *Client) Status(ctx context.Context) (Status, error) {
	var resp struct {
		envelope
		Status Status `json:"status"`
	}
	if err := c.getJSON(ctx, http.MethodGet, "/api/feeds/status", "status", &resp, &resp.envelope); err != nil {
		return Status{}, err
	}
	return resp.Status, nil
}

func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var resp struct {
		envelope
		Categories map[string]categoryPayload `json:"categories"`
	}
	if err := c.getJSON(ctx, http.MethodGet, "/api/feeds/categories", "categories", &resp, &resp.envelope); err != nil {
		return nil, err
	}
	return sortedCategories(resp.Categories), nil
}

func (c *Client) Latest(ctx context.Context, limit int) ([]Entry, error) {
	if limit < 1 {
		limit = DefaultLatestLimit
	}
	if limit > MaxLatestLimit {
		limit = MaxLatestLimit
	}

	q := make(url.Values)
	q.Set("limit", strconv.Itoa(limit))

	var resp struct {
		envelope
		Entries []Entry `json:"entries"`
	}
	if err := c.getJSON(ctx, http.MethodGet, "/api/feeds/latest?"+q.Encode(), "latest entries", &resp, &resp.envelope); err != nil {
		return nil, err
	}
	if resp.Entries == nil {
		return []Entry{}, nil
	}
	return resp.Entries, nil
}

// ForceFetch asks the aggregator to refresh its feeds server side.
func (c *Client) ForceFetch(ctx context.Context) error {
	var resp envelope
	return c.getJSON(ctx, http.MethodPost, "/api/admin/force-fetch", "force fetch", &resp, &resp)
}

func (c *Client) getJSON(ctx context.Context, method, path, resource string, out any, env *envelope) error {
	op := func() error {
		return c.doJSON(ctx, method, path, resource, out)
	}

	// With zero retries the policy stops after the first attempt.
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.retries)), ctx)
	err := backoff.RetryNotify(op, policy, func(err error, next time.Duration) {
		log.WithField("endpoint", path).WithError(err).Warnf("retrying %s in %s", resource, next)
	})
	if err != nil {
		return err
	}

	if !env.Success {
		if env.Error != "" {
			return fmt.Errorf("%s: %w: %s", resource, ErrUnsuccessful, env.Error)
		}
		return fmt.Errorf("%s: %w", resource, ErrUnsuccessful)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path, resource string, out any) error {
	req, err := c.newRequest(ctx, method, path, nil)
	if err != nil {
		return backoff.Permanent(err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return backoff.Permanent(fmt.Errorf("%s request failed: %w", resource, err))
		}
		return fmt.Errorf("%s request failed: %w", resource, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		statusErr := fmt.Errorf("%s failed with status %d: %s", resource, resp.StatusCode, strings.TrimSpace(string(body)))
		if resp.StatusCode >= http.StatusInternalServerError {
			return statusErr
		}
		return backoff.Permanent(statusErr)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return backoff.Permanent(fmt.Errorf("decode %s response: %w", resource, err))
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	fullURL := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}
