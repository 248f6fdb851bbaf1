package igdb

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"vg-game-logger-go/internal/app/batch"
	"vg-game-logger-go/internal/app/cache"
	"vg-game-logger-go/internal/app/config"
	"vg-game-logger-go/internal/app/domain"
	"vg-game-logger-go/internal/app/logging"
)

// Client is the entry point for catalog queries. Each call builds its own record
// set; the only state shared between calls is the optional response cache.
//
// Every query comes in two forms. The blocking form takes a context and returns the
// result. The Async form runs the same query on a new goroutine and calls completion
// exactly once: with the records on success, or with nil and the error when the
// query could not be built, the transport or parse step failed, or ctx ended first.
type Client struct {
	builder        Builder
	parser         *Parser
	transport      *transport
	images         domain.ImageSource
	prefetchCovers bool
	log            *logging.Loggers
}

type Option func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
	images     domain.ImageSource
	cache      *cache.Responses
	retryDelay time.Duration
	log        *logging.Loggers
}

// WithHTTPClient sends catalog requests through hc.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = hc }
}

// WithImageSource sets where covers are fetched from when prefetching is enabled.
func WithImageSource(src domain.ImageSource) Option {
	return func(o *clientOptions) { o.images = src }
}

// WithResponseCache serves repeated catalog URLs from c for the configured TTL.
func WithResponseCache(c *cache.Responses) Option {
	return func(o *clientOptions) { o.cache = c }
}

// WithRetryDelay sets the base delay between transport retries.
func WithRetryDelay(d time.Duration) Option {
	return func(o *clientOptions) { o.retryDelay = d }
}

func WithLoggers(l *logging.Loggers) Option {
	return func(o *clientOptions) { o.log = l }
}

// New creates a client from cfg. The user key is required.
func New(cfg config.Config, opts ...Option) (*Client, error) {
	if cfg.UserKey == "" {
		return nil, config.ErrMissingUserKey
	}
	o := clientOptions{retryDelay: 200 * time.Millisecond}
	for _, opt := range opts {
		opt(&o)
	}
	log := logging.OrDiscard(o.log)

	attempts := cfg.RetryAttempts
	if attempts == 0 {
		attempts = 1
	}
	return &Client{
		builder: Builder{BaseURL: cfg.BaseURL, PopularSince: cfg.PopularSince},
		parser:  &Parser{ImageSize: cfg.ImageSize, Log: log},
		transport: &transport{
			client:   newTransport(o.httpClient, cfg.UserKey, cfg.Timeout),
			attempts: attempts,
			delay:    o.retryDelay,
			cache:    o.cache,
			cacheTTL: cfg.CacheTTL,
			log:      log,
		},
		images:         o.images,
		prefetchCovers: cfg.PrefetchCovers && o.images != nil,
		log:            log,
	}, nil
}

// Search finds games matching term, best rated first.
func (c *Client) Search(ctx context.Context, term string) ([]*domain.GameRecord, error) {
	ctx, req := beginRequest(ctx, SearchQuery.String(), c.log, attribute.String("igdb.term", term))
	gameURL, err := c.builder.Search(term)
	if err != nil {
		return nil, req.fail(err)
	}
	return c.run(ctx, req, gameURL)
}

// PopularListing lists recent highly rated games, most popular first.
func (c *Client) PopularListing(ctx context.Context) ([]*domain.GameRecord, error) {
	ctx, req := beginRequest(ctx, PopularQuery.String(), c.log)
	gameURL, err := c.builder.Popular()
	if err != nil {
		return nil, req.fail(err)
	}
	return c.run(ctx, req, gameURL)
}

func (c *Client) run(ctx context.Context, req *request, gameURL string) ([]*domain.GameRecord, error) {
	req.to(StateURLBuilt)
	records, err := c.roundTrip(ctx, req, gameURL)
	if err != nil {
		return nil, req.fail(err)
	}
	if err := c.attachCovers(ctx, req, records); err != nil {
		return nil, req.fail(err)
	}
	req.complete(len(records))
	return records, nil
}

func (c *Client) roundTrip(ctx context.Context, req *request, gameURL string) ([]*domain.GameRecord, error) {
	req.to(StateAwaitingTransport)
	body, err := c.transport.get(ctx, gameURL)
	if err != nil {
		return nil, err
	}
	req.to(StateParsingResponse)
	records, err := c.parser.Parse(body)
	if err != nil {
		var malformed *MalformedResponseError
		if errors.As(err, &malformed) {
			malformed.URL = gameURL
		}
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// MissingID is an id from a batch that produced no record.
type MissingID struct {
	ID  int64
	Err error
}

// ByIDResult holds the records found by FetchByIDs, in the order the ids were given,
// and the ids that could not be fetched. Failed ids are not retried beyond the
// transport's own retries.
type ByIDResult struct {
	Records []*domain.GameRecord
	Missing []MissingID
}

// FetchByIDs fetches each id with its own request, all in flight at once. One id
// failing does not affect the others: it is listed in Missing instead. The call
// only fails as a whole when an id is not a valid query or ctx ends first.
func (c *Client) FetchByIDs(ctx context.Context, ids []int64) (ByIDResult, error) {
	ctx, req := beginRequest(ctx, "by_id_batch", c.log, attribute.Int("igdb.ids", len(ids)))

	gameURLs := make([]string, len(ids))
	for i, id := range ids {
		gameURL, err := c.builder.ByID(id)
		if err != nil {
			return ByIDResult{}, req.fail(err)
		}
		gameURLs[i] = gameURL
	}
	req.to(StateURLBuilt)
	req.to(StateAwaitingTransport)

	done := make(chan batch.Result[*domain.GameRecord], 1)
	agg := batch.New(len(ids), func(result batch.Result[*domain.GameRecord]) {
		done <- result
	})
	for i := range ids {
		go func(i int) {
			record, err := c.fetchOne(ctx, ids[i], gameURLs[i])
			if err != nil {
				c.log.Warn.Printf("Fetching IGDB game %d failed! %s\n", ids[i], err)
				agg.Fail(i, err)
				return
			}
			agg.Succeed(i, record)
		}(i)
	}

	var result batch.Result[*domain.GameRecord]
	select {
	case result = <-done:
	case <-ctx.Done():
		return ByIDResult{}, req.fail(ctx.Err())
	}
	if err := ctx.Err(); err != nil {
		return ByIDResult{}, req.fail(err)
	}

	byID := ByIDResult{Records: result.Values}
	for _, failure := range result.Failures {
		byID.Missing = append(byID.Missing, MissingID{ID: ids[failure.Index], Err: failure.Err})
	}

	if err := c.attachCovers(ctx, req, byID.Records); err != nil {
		return ByIDResult{}, req.fail(err)
	}
	req.complete(len(byID.Records))
	return byID, nil
}

func (c *Client) fetchOne(ctx context.Context, id int64, gameURL string) (*domain.GameRecord, error) {
	ctx, req := beginRequest(ctx, ByIDQuery.String(), c.log, attribute.Int64("igdb.id", id))
	req.to(StateURLBuilt)
	records, err := c.roundTrip(ctx, req, gameURL)
	if err != nil {
		return nil, req.fail(err)
	}
	if len(records) == 0 {
		return nil, req.fail(ErrNotFound)
	}
	record := records[0]
	if record.ID == nil {
		record.ID = &id
	}
	req.complete(1)
	return record, nil
}

// attachCovers resolves every record's cover before the request completes, when
// prefetching is enabled. Cover failures become placeholders; only ctx ending is an error.
func (c *Client) attachCovers(ctx context.Context, req *request, records []*domain.GameRecord) error {
	if !c.prefetchCovers || len(records) == 0 {
		return nil
	}
	req.to(StateAwaitingImages)

	done := make(chan struct{})
	agg := batch.New(len(records), func(batch.Result[*domain.GameRecord]) {
		close(done)
	})
	for i, record := range records {
		go func(i int, record *domain.GameRecord) {
			if _, err := record.ResolveCover(ctx, c.images); err != nil {
				agg.Fail(i, err)
				return
			}
			agg.Succeed(i, record)
		}(i, record)
	}

	select {
	case <-done:
		return ctx.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SearchAsync runs Search on its own goroutine.
func (c *Client) SearchAsync(ctx context.Context, term string, completion func([]*domain.GameRecord, error)) {
	go func() {
		records, err := c.Search(ctx, term)
		deliver(ctx, records, err, completion)
	}()
}

// PopularListingAsync runs PopularListing on its own goroutine.
func (c *Client) PopularListingAsync(ctx context.Context, completion func([]*domain.GameRecord, error)) {
	go func() {
		records, err := c.PopularListing(ctx)
		deliver(ctx, records, err, completion)
	}()
}

// FetchByIDsAsync runs FetchByIDs on its own goroutine.
func (c *Client) FetchByIDsAsync(ctx context.Context, ids []int64, completion func(ByIDResult, error)) {
	go func() {
		result, err := c.FetchByIDs(ctx, ids)
		deliver(ctx, result, err, completion)
	}()
}

// deliver drops results that arrive after ctx has ended.
func deliver[T any](ctx context.Context, result T, err error, completion func(T, error)) {
	if err == nil && ctx.Err() != nil {
		var zero T
		result, err = zero, ctx.Err()
	}
	completion(result, err)
}
