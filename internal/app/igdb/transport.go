package igdb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/go-resty/resty/v2"

	"vg-game-logger-go/internal/app/cache"
	"vg-game-logger-go/internal/app/logging"
	"vg-game-logger-go/internal/app/metrics"
)

// transport performs catalog GETs. Every request carries the user-key credential and
// asks for JSON.
type transport struct {
	client   *resty.Client
	attempts uint
	delay    time.Duration
	cache    *cache.Responses
	cacheTTL time.Duration
	log      *logging.Loggers
}

func newTransport(httpClient *http.Client, userKey string, timeout time.Duration) *resty.Client {
	var client *resty.Client
	if httpClient != nil {
		client = resty.NewWithClient(httpClient)
	} else {
		client = resty.New()
	}
	return client.
		SetTimeout(timeout).
		SetHeader("user-key", userKey).
		SetHeader("Accept", "application/json")
}

// get returns the response body for rawURL, retrying transient failures.
func (t *transport) get(ctx context.Context, rawURL string) ([]byte, error) {
	if t.cache != nil {
		if body, ok := t.cache.Get(rawURL); ok {
			metrics.CacheHits.Inc()
			return body, nil
		}
	}

	var body []byte
	err := retry.Do(
		func() error {
			resp, respErr := t.client.R().SetContext(ctx).Get(rawURL)
			if respErr != nil {
				return &TransportError{URL: rawURL, Err: respErr}
			}
			if !resp.IsSuccess() {
				return &TransportError{URL: rawURL, StatusCode: resp.StatusCode(), Err: fmt.Errorf("unexpected status %s: %s", resp.Status(), resp.String())}
			}
			body = resp.Body()
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(t.attempts),
		retry.Delay(t.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransient),
		retry.OnRetry(func(n uint, err error) {
			t.log.Warn.Printf("retry count = %d error = %s\n", n, err)
		}),
	)
	if err != nil {
		var transportErr *TransportError
		if errors.As(err, &transportErr) {
			return nil, transportErr
		}
		return nil, &TransportError{URL: rawURL, Err: err}
	}

	if t.cache != nil {
		if putErr := t.cache.Put(rawURL, body, t.cacheTTL); putErr != nil {
			t.log.Warn.Println("Failed to cache catalog response: " + putErr.Error())
		}
	}
	return body, nil
}

func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		return false
	}
	return transportErr.StatusCode == 0 ||
		transportErr.StatusCode == http.StatusTooManyRequests ||
		transportErr.StatusCode >= http.StatusInternalServerError
}
