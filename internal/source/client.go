package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

// Source failure kinds. They are never fatal to an aggregation.
var (
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrSourceTimeout     = errors.New("source timed out")
	ErrSourceFormat      = errors.New("source returned an unparseable response")
)

// Error is a classified failure of one source call.
type Error struct {
	Source ID
	Kind   error // one of ErrSourceUnavailable, ErrSourceTimeout, ErrSourceFormat
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Source, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Source, e.Kind, e.Err)
}

// Is matches the failure kind, so errors.Is(err, ErrSourceTimeout) works.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Unavailable wraps err as a transport-level failure of id.
func Unavailable(id ID, err error) error {
	return &Error{Source: id, Kind: ErrSourceUnavailable, Err: err}
}

// Timeout wraps err as a deadline failure of id.
func Timeout(id ID, err error) error {
	return &Error{Source: id, Kind: ErrSourceTimeout, Err: err}
}

// Malformed wraps err as a response format failure of id.
func Malformed(id ID, err error) error {
	return &Error{Source: id, Kind: ErrSourceFormat, Err: err}
}

// Classify maps an arbitrary error from a source call onto the failure
// taxonomy. Already classified errors pass through unchanged.
func Classify(id ID, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	for _, kind := range []error{ErrSourceUnavailable, ErrSourceTimeout, ErrSourceFormat} {
		if errors.Is(err, kind) {
			return &Error{Source: id, Kind: kind, Err: err}
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout(id, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Timeout(id, err)
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return Malformed(id, err)
	}
	return Unavailable(id, err)
}

// Query is one request to a source. Term is ignored in trending mode.
type Query struct {
	Term     string
	Trending bool
	Category string // category key; "" or "all" means unfiltered
	Limit    int
}

// RawItem is one source-native result object.
type RawItem struct {
	gjson.Result
}

// ParseRaw parses a single JSON object into a RawItem.
func ParseRaw(js string) RawItem {
	return RawItem{gjson.Parse(js)}
}

// RawFromMap encodes fields as a JSON object RawItem. Values that cannot be
// encoded produce an empty item.
func RawFromMap(fields map[string]any) RawItem {
	data, err := json.Marshal(fields)
	if err != nil {
		return RawItem{}
	}
	return RawItem{gjson.ParseBytes(data)}
}

// Client performs one query against one source. Implementations must honour
// the context deadline and must not share transport state between calls.
type Client interface {
	ID() ID
	Query(ctx context.Context, q Query) ([]RawItem, error)
}

const userAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0"

// newHTTPClient returns a client backed by its own transport. Callers must
// invoke the returned release func when the query completes so the transport's
// connections are dropped instead of being reused by a later query.
func newHTTPClient(timeout time.Duration) (*http.Client, func()) {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: -1,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		DisableKeepAlives:     true,
		ForceAttemptHTTP2:     true,
	}
	client := &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
	return client, transport.CloseIdleConnections
}
