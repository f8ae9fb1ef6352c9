package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/litescript/torrenthunt/internal/metrics"
	"github.com/litescript/torrenthunt/internal/source"
)

var (
	// ErrInvalidRequest is returned for caller errors. It is never retried.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrAllSourcesFailed is returned, together with the result, when the
	// request sets RequireSuccess and no source succeeded.
	ErrAllSourcesFailed = errors.New("all sources failed")
)

const (
	MinQueryLength        = 2
	DefaultPerSourceLimit = 20
	DefaultPerCallTimeout = 20 * time.Second
)

// Options tunes an Engine. Zero values select the defaults.
type Options struct {
	PerCallTimeout time.Duration
	MaxConcurrent  int     // 0 means one goroutine per selected source
	RatePerSecond  float64 // per source; 0 disables limiting
	Logger         *zerolog.Logger
}

// Request describes one aggregation.
type Request struct {
	Query          string
	Trending       bool
	Sources        []source.ID
	Category       Category
	PerSourceLimit int
	RequireSuccess bool
}

// Engine fans a request out to the selected sources and merges what comes
// back. It is safe for concurrent use; each Aggregate call owns its state.
type Engine struct {
	registry   *source.Registry
	clients    map[source.ID]source.Client
	normalizer *Normalizer
	limiters   map[source.ID]*rate.Limiter
	timeout    time.Duration
	maxConc    int
	logger     zerolog.Logger
}

// NewEngine creates an engine over the clients registered in reg.
func NewEngine(reg *source.Registry, clients map[source.ID]source.Client, opts Options) *Engine {
	e := &Engine{
		registry:   reg,
		clients:    clients,
		normalizer: NewNormalizer(reg),
		limiters:   make(map[source.ID]*rate.Limiter, len(clients)),
		timeout:    opts.PerCallTimeout,
		maxConc:    opts.MaxConcurrent,
		logger:     log.Logger,
	}
	if e.timeout <= 0 {
		e.timeout = DefaultPerCallTimeout
	}
	if opts.Logger != nil {
		e.logger = *opts.Logger
	}
	if opts.RatePerSecond > 0 {
		for id := range clients {
			e.limiters[id] = rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1)
		}
	}
	return e
}

// Registry returns the registry the engine resolves sources against.
func (e *Engine) Registry() *source.Registry {
	return e.registry
}

type slot struct {
	items  []Torrent
	status SourceStatus
}

// Aggregate queries every selected source concurrently, each under its own
// timeout, and concatenates the surviving records in source order.
//
// Source failures never fail the aggregation; they are counted in the
// result's Tally. Only ErrInvalidRequest is returned as an error, unless
// RequireSuccess is set and every source failed, in which case the result is
// returned alongside ErrAllSourcesFailed.
func (e *Engine) Aggregate(ctx context.Context, req Request) (AggregatedResult, error) {
	mode := "search"
	if req.Trending {
		mode = "trending"
	}

	ids, err := e.validate(&req)
	if err != nil {
		metrics.AggregationsTotal.WithLabelValues(mode, "invalid").Inc()
		return AggregatedResult{}, err
	}

	started := time.Now()
	q := source.Query{
		Term:     req.Query,
		Trending: req.Trending,
		Category: string(req.Category),
		Limit:    req.PerSourceLimit,
	}

	slots := make([]slot, len(ids))
	var g errgroup.Group
	if e.maxConc > 0 {
		g.SetLimit(e.maxConc)
	}
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			slots[i] = e.querySource(ctx, id, q, req)
			return nil
		})
	}
	_ = g.Wait()

	result := AggregatedResult{
		Query:    req.Query,
		Trending: req.Trending,
		Category: req.Category,
		Sources:  ids,
		Statuses: make([]SourceStatus, 0, len(slots)),
	}
	for _, s := range slots {
		result.Items = append(result.Items, s.items...)
		result.Statuses = append(result.Statuses, s.status)
		result.Tally.record(s.status.Err)
	}
	result.Elapsed = time.Since(started)

	outcome := "ok"
	switch {
	case result.Tally.AllFailed():
		outcome = "failed"
	case result.Tally.Failed() > 0:
		outcome = "partial"
	}
	metrics.AggregationsTotal.WithLabelValues(mode, outcome).Inc()
	metrics.AggregationDuration.Observe(result.Elapsed.Seconds())

	e.logger.Debug().
		Str("mode", mode).
		Str("query", req.Query).
		Str("category", string(req.Category)).
		Int("items", len(result.Items)).
		Int("succeeded", result.Tally.Succeeded).
		Int("failed", result.Tally.Failed()).
		Dur("elapsed", result.Elapsed).
		Msg("aggregation finished")

	if req.RequireSuccess && result.Tally.Succeeded == 0 {
		return result, ErrAllSourcesFailed
	}
	return result, nil
}

// validate checks req, fills in defaults and returns the selected sources
// in registry order.
func (e *Engine) validate(req *Request) ([]source.ID, error) {
	if len(req.Sources) == 0 {
		return nil, fmt.Errorf("%w: no sources selected", ErrInvalidRequest)
	}

	ids, unknown := e.registry.Ordered(req.Sources)
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: unknown source %q", ErrInvalidRequest, unknown[0])
	}
	for _, id := range ids {
		if e.clients[id] == nil {
			return nil, fmt.Errorf("%w: no client for source %q", ErrInvalidRequest, id)
		}
	}

	if req.Category == "" {
		req.Category = CategoryAll
	}
	if !req.Category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidRequest, req.Category)
	}

	if req.Trending {
		req.Query = ""
	} else {
		req.Query = strings.TrimSpace(req.Query)
		if utf8.RuneCountInString(req.Query) < MinQueryLength {
			return nil, fmt.Errorf("%w: query must be at least %d characters", ErrInvalidRequest, MinQueryLength)
		}
	}

	if req.PerSourceLimit <= 0 {
		req.PerSourceLimit = DefaultPerSourceLimit
	}
	return ids, nil
}

func (e *Engine) querySource(ctx context.Context, id source.ID, q source.Query, req Request) slot {
	started := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	raw, err := e.call(callCtx, id, q)
	elapsed := time.Since(started)

	outcome := outcomeOf(err)
	metrics.SourceRequestsTotal.WithLabelValues(string(id), outcome).Inc()
	metrics.SourceRequestDuration.WithLabelValues(string(id)).Observe(elapsed.Seconds())

	status := SourceStatus{ID: id, OK: err == nil, Err: err, Elapsed: elapsed}
	if err != nil {
		e.logger.Warn().
			Err(err).
			Str("source", string(id)).
			Str("outcome", outcome).
			Dur("elapsed", elapsed).
			Msg("source query failed")
		return slot{status: status}
	}

	if len(raw) > req.PerSourceLimit {
		raw = raw[:req.PerSourceLimit]
	}
	items := make([]Torrent, 0, len(raw))
	for _, r := range raw {
		t := e.normalizer.Normalize(r, id)
		if req.Category != CategoryAll && !Matches(t.Name, t.Category, req.Category) {
			continue
		}
		items = append(items, t)
	}

	status.Count = len(items)
	metrics.SourceItemsTotal.WithLabelValues(string(id)).Add(float64(len(items)))
	return slot{items: items, status: status}
}

type reply struct {
	items []source.RawItem
	err   error
}

// call runs one client query bounded by ctx. A client that ignores its
// context is abandoned once the deadline passes; its goroutine finishes on
// its own and the late reply is dropped.
func (e *Engine) call(ctx context.Context, id source.ID, q source.Query) ([]source.RawItem, error) {
	if limiter := e.limiters[id]; limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, source.Classify(id, ctx.Err())
			}
			// The limiter refuses waits that would outlast the deadline.
			return nil, source.Timeout(id, err)
		}
	}

	done := make(chan reply, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- reply{err: source.Unavailable(id, fmt.Errorf("client panic: %v", p))}
			}
		}()
		items, err := e.clients[id].Query(ctx, q)
		done <- reply{items: items, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, source.Classify(id, r.err)
		}
		return r.items, nil
	case <-ctx.Done():
		return nil, source.Classify(id, ctx.Err())
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, source.ErrSourceTimeout):
		return metrics.OutcomeTimeout
	case errors.Is(err, source.ErrSourceFormat):
		return metrics.OutcomeFormat
	default:
		return metrics.OutcomeUnavailable
	}
}
