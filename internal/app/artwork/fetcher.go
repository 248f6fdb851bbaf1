// Package artwork downloads and decodes cover art and screenshots.
package artwork

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"net/url"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/go-resty/resty/v2"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"vg-game-logger-go/internal/app/domain"
	"vg-game-logger-go/internal/app/logging"
	"vg-game-logger-go/internal/app/metrics"
)

// ImageFetchError is returned when an image could not be retrieved or decoded.
// StatusCode is zero when no response was received.
type ImageFetchError struct {
	Kind       domain.ArtworkType
	URL        string
	StatusCode int
	Err        error
}

func (e *ImageFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s image %s: status %d: %v", e.Kind, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s image %s: %v", e.Kind, e.URL, e.Err)
}

func (e *ImageFetchError) Unwrap() error {
	return e.Err
}

var errNoURL = errors.New("no image url")

// Fetcher retrieves images over HTTP. It is safe for concurrent use.
type Fetcher struct {
	client     *resty.Client
	httpClient *http.Client
	timeout    time.Duration
	attempts   uint
	delay      time.Duration
	maxWidth   int
	log        *logging.Loggers
}

var _ domain.ImageSource = (*Fetcher)(nil)

type Option func(*Fetcher)

// WithHTTPClient sends requests through hc instead of a default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(f *Fetcher) { f.httpClient = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.timeout = d }
}

// WithRetry sets how many attempts are made for transient failures and the base delay between them.
func WithRetry(attempts uint, delay time.Duration) Option {
	return func(f *Fetcher) {
		if attempts > 0 {
			f.attempts = attempts
		}
		f.delay = delay
	}
}

// WithMaxWidth downscales decoded images wider than w, keeping the aspect ratio.
func WithMaxWidth(w int) Option {
	return func(f *Fetcher) { f.maxWidth = w }
}

func WithLoggers(l *logging.Loggers) Option {
	return func(f *Fetcher) { f.log = l }
}

func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		timeout:  10 * time.Second,
		attempts: 3,
		delay:    200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.log = logging.OrDiscard(f.log)
	if f.httpClient != nil {
		f.client = resty.NewWithClient(f.httpClient)
	} else {
		f.client = resty.New()
	}
	f.client.SetTimeout(f.timeout)
	return f
}

// Placeholder returns the shared fallback image.
func (f *Fetcher) Placeholder() image.Image {
	return Placeholder()
}

// Fetch downloads ref and decodes it. Any failure is an *ImageFetchError.
func (f *Fetcher) Fetch(ctx context.Context, kind domain.ArtworkType, ref *url.URL) (image.Image, error) {
	img, err := f.fetch(ctx, kind, ref)
	metrics.RecordImage(kind.String(), err)
	return img, err
}

// FetchOrPlaceholder is Fetch with failures replaced by the placeholder.
func (f *Fetcher) FetchOrPlaceholder(ctx context.Context, kind domain.ArtworkType, ref *url.URL) image.Image {
	img, err := f.Fetch(ctx, kind, ref)
	if err != nil {
		f.log.Warn.Println("Failed to load " + kind.String() + " image, using placeholder: " + err.Error())
		return f.Placeholder()
	}
	return img
}

func (f *Fetcher) fetch(ctx context.Context, kind domain.ArtworkType, ref *url.URL) (image.Image, error) {
	if ref == nil {
		return nil, &ImageFetchError{Kind: kind, Err: errNoURL}
	}
	imageURL := ref.String()

	var body []byte
	err := retry.Do(
		func() error {
			resp, respErr := f.client.R().SetContext(ctx).Get(imageURL)
			if respErr != nil {
				return &ImageFetchError{Kind: kind, URL: imageURL, Err: respErr}
			}
			if !resp.IsSuccess() {
				return &ImageFetchError{Kind: kind, URL: imageURL, StatusCode: resp.StatusCode(), Err: fmt.Errorf("unexpected status %s", resp.Status())}
			}
			body = resp.Body()
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(f.attempts),
		retry.Delay(f.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransient),
		retry.OnRetry(func(n uint, err error) {
			f.log.Warn.Printf("retry count = %d error = %s\n", n, err)
		}),
	)
	if err != nil {
		var fetchErr *ImageFetchError
		if errors.As(err, &fetchErr) {
			return nil, fetchErr
		}
		return nil, &ImageFetchError{Kind: kind, URL: imageURL, Err: err}
	}

	img, _, decodeErr := image.Decode(bytes.NewReader(body))
	if decodeErr != nil {
		return nil, &ImageFetchError{Kind: kind, URL: imageURL, Err: fmt.Errorf("decode: %w", decodeErr)}
	}
	return resize(img, f.maxWidth), nil
}

// isTransient reports whether a failed attempt is worth repeating: no response at
// all (unless the context ended), a 5xx, or 429.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var fetchErr *ImageFetchError
	if !errors.As(err, &fetchErr) {
		return false
	}
	return fetchErr.StatusCode == 0 ||
		fetchErr.StatusCode == http.StatusTooManyRequests ||
		fetchErr.StatusCode >= http.StatusInternalServerError
}

func resize(img image.Image, maxWidth int) image.Image {
	bounds := img.Bounds()
	if maxWidth <= 0 || bounds.Dx() <= maxWidth {
		return img
	}
	newHeight := bounds.Dy() * maxWidth / bounds.Dx()
	if newHeight < 1 {
		newHeight = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, newHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
