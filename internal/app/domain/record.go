package domain

import (
	"context"
	"errors"
	"image"
	"net/url"
	"sync"
	"sync/atomic"

	"vg-game-logger-go/internal/app/batch"
)

// CoverState is the lifecycle of a record's lazily loaded cover.
type CoverState int32

const (
	CoverNotFetched CoverState = iota
	CoverFetching
	CoverResolved
	CoverFailed
)

func (s CoverState) String() string {
	switch s {
	case CoverNotFetched:
		return "NotFetched"
	case CoverFetching:
		return "Fetching"
	case CoverResolved:
		return "Resolved"
	case CoverFailed:
		return "Failed"
	}
	return "Unknown"
}

// GameRecord is one parsed catalog entry together with the images resolved for it.
// The metadata in GameFields is read-only once the record has been handed out.
type GameRecord struct {
	GameFields

	screenshotRefs []*url.URL

	coverState atomic.Int32
	coverMu    sync.Mutex
	coverWait  chan struct{}
	cover      image.Image

	shotsMu     sync.Mutex
	shotsWait   chan struct{} // set while a resolution is in flight
	shotStored  []bool        // per ref
	screenshots []image.Image
}

// NewGameRecord builds a record from parsed fields and its screenshot references.
// The references are copied so later changes to screenshotRefs do not leak into the record.
func NewGameRecord(fields GameFields, screenshotRefs []*url.URL) *GameRecord {
	refs := make([]*url.URL, len(screenshotRefs))
	copy(refs, screenshotRefs)
	return &GameRecord{
		GameFields:     fields,
		screenshotRefs: refs,
		shotStored:     make([]bool, len(refs)),
	}
}

// ScreenshotRefs returns a copy of the screenshot references.
func (r *GameRecord) ScreenshotRefs() []*url.URL {
	refs := make([]*url.URL, len(r.screenshotRefs))
	copy(refs, r.screenshotRefs)
	return refs
}

// CoverState reports where the cover is in its lifecycle.
func (r *GameRecord) CoverState() CoverState {
	return CoverState(r.coverState.Load())
}

// Cover returns the cover if it has been resolved (or replaced by the placeholder).
func (r *GameRecord) Cover() (image.Image, bool) {
	switch r.CoverState() {
	case CoverResolved, CoverFailed:
		r.coverMu.Lock()
		defer r.coverMu.Unlock()
		return r.cover, true
	}
	return nil, false
}

// ResolveCover returns the record's cover, fetching it from src the first time.
//
// Only one fetch is ever started per record: callers arriving while it is in flight
// wait for it and get the same image. A failed fetch leaves the placeholder in
// place for good. If ctx is cancelled while this caller owns the fetch, the state
// goes back to NotFetched so a later call can try again.
func (r *GameRecord) ResolveCover(ctx context.Context, src ImageSource) (image.Image, error) {
	for {
		if img, ok := r.Cover(); ok {
			return img, nil
		}

		r.coverMu.Lock()
		if r.coverState.CompareAndSwap(int32(CoverNotFetched), int32(CoverFetching)) {
			wait := make(chan struct{})
			r.coverWait = wait
			r.coverMu.Unlock()
			return r.fetchCover(ctx, src, wait)
		}
		wait := r.coverWait
		r.coverMu.Unlock()

		if wait == nil {
			// resolved between the fast path and the lock
			continue
		}
		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (r *GameRecord) fetchCover(ctx context.Context, src ImageSource, wait chan struct{}) (image.Image, error) {
	var (
		img image.Image
		err error
	)
	if r.CoverRef == nil {
		err = errNoCoverRef
	} else {
		img, err = src.Fetch(ctx, Cover, r.CoverRef)
	}

	r.coverMu.Lock()
	defer func() {
		r.coverWait = nil
		r.coverMu.Unlock()
		close(wait)
	}()

	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		r.coverState.Store(int32(CoverNotFetched))
		return nil, ctx.Err()
	}
	if err != nil {
		r.cover = src.Placeholder()
		r.coverState.Store(int32(CoverFailed))
		return r.cover, nil
	}
	r.cover = img
	r.coverState.Store(int32(CoverResolved))
	return r.cover, nil
}

var errNoCoverRef = errors.New("record has no cover reference")

// Screenshots returns a snapshot of the screenshots resolved so far, in arrival order.
func (r *GameRecord) Screenshots() []image.Image {
	r.shotsMu.Lock()
	defer r.shotsMu.Unlock()
	return r.screenshotsLocked()
}

func (r *GameRecord) screenshotsLocked() []image.Image {
	shots := make([]image.Image, len(r.screenshots))
	copy(shots, r.screenshots)
	return shots
}

func (r *GameRecord) storeScreenshot(i int, img image.Image) {
	r.shotsMu.Lock()
	r.shotStored[i] = true
	r.screenshots = append(r.screenshots, img)
	r.shotsMu.Unlock()
}

// ResolveScreenshots fetches every screenshot reference concurrently and calls onImage
// as each one arrives. Failed fetches contribute the placeholder. It returns once all
// references have been accounted for, with the full list in arrival order.
//
// Only one resolution runs at a time per record. Callers arriving while it is in flight
// wait for it. Images already stored are replayed to onImage first. If ctx ends before
// every reference is stored, the call returns the partial list with ctx.Err(), and the
// next call fetches only the references still missing.
func (r *GameRecord) ResolveScreenshots(ctx context.Context, src ImageSource, onImage func(image.Image)) ([]image.Image, error) {
	for {
		r.shotsMu.Lock()
		if len(r.screenshots) == len(r.screenshotRefs) {
			shots := r.screenshotsLocked()
			r.shotsMu.Unlock()
			if onImage != nil {
				for _, img := range shots {
					onImage(img)
				}
			}
			return shots, nil
		}

		if wait := r.shotsWait; wait != nil {
			r.shotsMu.Unlock()
			select {
			case <-wait:
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		wait := make(chan struct{})
		r.shotsWait = wait
		var missing []int
		for i, stored := range r.shotStored {
			if !stored {
				missing = append(missing, i)
			}
		}
		stored := r.screenshotsLocked()
		r.shotsMu.Unlock()
		return r.fetchScreenshots(ctx, src, onImage, stored, missing, wait)
	}
}

func (r *GameRecord) fetchScreenshots(ctx context.Context, src ImageSource, onImage func(image.Image), stored []image.Image, missing []int, wait chan struct{}) ([]image.Image, error) {
	defer func() {
		r.shotsMu.Lock()
		r.shotsWait = nil
		r.shotsMu.Unlock()
		close(wait)
	}()

	var deliverMu sync.Mutex
	deliver := func(img image.Image) {
		if onImage == nil {
			return
		}
		deliverMu.Lock()
		onImage(img)
		deliverMu.Unlock()
	}
	for _, img := range stored {
		deliver(img)
	}

	var cancelled int
	finished := make(chan struct{})
	agg := batch.New(len(missing), func(result batch.Result[image.Image]) {
		cancelled = len(result.Failures)
		close(finished)
	})
	for slot, i := range missing {
		go func(slot, i int) {
			img, err := src.Fetch(ctx, ScreenShot, r.screenshotRefs[i])
			if err != nil {
				if ctx.Err() != nil {
					agg.Fail(slot, ctx.Err())
					return
				}
				img = src.Placeholder()
			}
			r.storeScreenshot(i, img)
			deliver(img)
			agg.Succeed(slot, img)
		}(slot, i)
	}

	// fetches honour ctx, so this returns promptly after cancellation too
	<-finished
	if cancelled > 0 {
		return r.Screenshots(), ctx.Err()
	}
	return r.Screenshots(), nil
}

// ResolveCoverAsync runs ResolveCover on its own goroutine and calls completion once.
func (r *GameRecord) ResolveCoverAsync(ctx context.Context, src ImageSource, completion func(image.Image, error)) {
	go func() {
		completion(r.ResolveCover(ctx, src))
	}()
}

// ResolveScreenshotsAsync runs ResolveScreenshots on its own goroutine. onImage sees each
// image as it arrives and completion is called once at the end.
func (r *GameRecord) ResolveScreenshotsAsync(ctx context.Context, src ImageSource, onImage func(image.Image), completion func([]image.Image, error)) {
	go func() {
		completion(r.ResolveScreenshots(ctx, src, onImage))
	}()
}
