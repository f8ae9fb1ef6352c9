package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/tidwall/gjson"
)

const (
	searchEndpoint   = "/api/v1/search"
	trendingEndpoint = "/api/v1/trending"

	// maxBodySize caps how much of a response is read.
	maxBodySize = 8 << 20
)

// APIOptions configures an APIClient
type APIOptions struct {
	APIKey     string
	Timeout    time.Duration // per-request transport bound; the call ctx still applies
	Retries    uint          // extra attempts on transient failures
	RetryDelay time.Duration
}

// APIClient queries one site through the torrent-api-py style JSON API.
type APIClient struct {
	info Info
	opts APIOptions
}

// NewAPIClient creates a client for a registry entry of KindAPI.
func NewAPIClient(info Info, opts APIOptions) *APIClient {
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 500 * time.Millisecond
	}
	return &APIClient{info: info, opts: opts}
}

// ID returns the source ID.
func (c *APIClient) ID() ID {
	return c.info.ID
}

// Query fetches search or trending results for the client's site.
func (c *APIClient) Query(ctx context.Context, q Query) ([]RawItem, error) {
	reqURL, err := c.buildURL(q)
	if err != nil {
		return nil, Unavailable(c.info.ID, err)
	}

	var items []RawItem
	err = retry.Do(
		func() error {
			var fetchErr error
			items, fetchErr = c.fetch(ctx, reqURL)
			return fetchErr
		},
		retry.Context(ctx),
		retry.Attempts(c.opts.Retries+1),
		retry.Delay(c.opts.RetryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransient),
	)
	if err != nil {
		return nil, Classify(c.info.ID, err)
	}
	return items, nil
}

func (c *APIClient) buildURL(q Query) (string, error) {
	base, err := url.Parse(c.info.Endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint: %w", err)
	}

	params := url.Values{}
	params.Set("site", string(c.info.ID))
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if c.info.Categories && q.Category != "" && q.Category != "all" {
		params.Set("category", q.Category)
	}

	if q.Trending {
		base.Path = strings.TrimRight(base.Path, "/") + trendingEndpoint
	} else {
		base.Path = strings.TrimRight(base.Path, "/") + searchEndpoint
		params.Set("query", strings.TrimSpace(q.Term))
	}
	base.RawQuery = params.Encode()
	return base.String(), nil
}

// fetch runs one HTTP round trip on a transport owned by this call.
func (c *APIClient) fetch(ctx context.Context, reqURL string) ([]RawItem, error) {
	client, release := newHTTPClient(c.opts.Timeout)
	defer release()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, Unavailable(c.info.ID, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if c.opts.APIKey != "" {
		req.Header.Set("X-API-Key", c.opts.APIKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, Classify(c.info.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, Unavailable(c.info.ID, &StatusError{Code: resp.StatusCode})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, Classify(c.info.ID, err)
	}
	return parseAPIResponse(c.info.ID, body)
}

// parseAPIResponse extracts result objects from an API payload. The API
// wraps results in "data" or "results" and reports failures through
// "success": false or an "error" field.
func parseAPIResponse(id ID, body []byte) ([]RawItem, error) {
	if !gjson.ValidBytes(body) {
		return nil, Malformed(id, errors.New("invalid JSON"))
	}
	root := gjson.ParseBytes(body)

	if root.IsArray() {
		return collectObjects(root), nil
	}
	if !root.IsObject() {
		return nil, Malformed(id, fmt.Errorf("unexpected JSON %s", root.Type))
	}

	if msg := apiError(root); msg != "" {
		return nil, Unavailable(id, errors.New(msg))
	}

	for _, key := range []string{"data", "results"} {
		if list := root.Get(key); list.IsArray() {
			return collectObjects(list), nil
		}
	}
	// No result list at all: the site simply had nothing.
	return nil, nil
}

func apiError(root gjson.Result) string {
	if success := root.Get("success"); success.Exists() && !success.Bool() {
		if msg := firstString(root, "error", "message"); msg != "" {
			return msg
		}
		return "request was not successful"
	}

	errVal := root.Get("error")
	switch errVal.Type {
	case gjson.String:
		return errVal.String()
	case gjson.True:
		if msg := root.Get("message").String(); msg != "" {
			return msg
		}
		return "unknown API error"
	}
	return ""
}

func firstString(root gjson.Result, keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(root.Get(key).String()); v != "" {
			return v
		}
	}
	return ""
}

func collectObjects(list gjson.Result) []RawItem {
	var items []RawItem
	list.ForEach(func(_, value gjson.Result) bool {
		if value.IsObject() {
			items = append(items, RawItem{value})
		}
		return true
	})
	return items
}

// StatusError reports a non-200 HTTP response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.Code)
}

// isTransient reports whether a failed attempt is worth retrying.
// Format errors and client errors are not.
func isTransient(err error) bool {
	if errors.Is(err, ErrSourceFormat) || errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests || statusErr.Code >= 500
	}
	if errors.Is(err, ErrSourceUnavailable) {
		// API-reported errors carry no status; only transport failures are retried.
		var se *Error
		if errors.As(err, &se) && se.Err != nil {
			lower := strings.ToLower(se.Err.Error())
			return strings.Contains(lower, "connection reset") ||
				strings.Contains(lower, "connection refused") ||
				strings.Contains(lower, "eof")
		}
		return false
	}
	return errors.Is(err, ErrSourceTimeout)
}
