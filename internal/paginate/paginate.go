// package paginate drives offset-paginated collection endpoints through the request queue.
//
// Pages are fetched strictly one after another: offset 0, then offset+PageSize, until the continuation
// predicate declines. A page that fails for good ends paging early and the items gathered so far are returned.
package paginate

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/desertthunder/livewatch/internal/queue"
)

// RequestFunc fetches one page URL.
type RequestFunc func(ctx context.Context, url string) (*queue.Response, error)

// Config describes one paginated collection.
type Config[T any] struct {
	URL       string      // prefix; the numeric offset is appended
	PageSize  int         // offset step, defaults to 100
	Request   RequestFunc // fetches pages after the first
	FirstPage RequestFunc // optional; fetches offset 0, e.g. at a higher priority

	// Next reports whether another page should be fetched. Defaults to "page was full".
	Next func(resp *queue.Response, items int) bool
	// Items extracts the page's items in order.
	Items func(resp *queue.Response) []T
}

// DefaultPageSize is the page size used when none is configured.
const DefaultPageSize = 100

// Collect fetches every page and returns the accumulated items.
//
// Only a context error is returned as an error; the items collected before it are still returned.
func Collect[T any](ctx context.Context, cfg Config[T]) ([]T, error) {
	size := cfg.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	next := cfg.Next
	if next == nil {
		next = func(_ *queue.Response, n int) bool { return n == size }
	}

	var items []T
	for offset := 0; ; offset += size {
		request := cfg.Request
		if offset == 0 && cfg.FirstPage != nil {
			request = cfg.FirstPage
		}

		resp, err := request(ctx, cfg.URL+strconv.Itoa(offset))
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return items, err
			}
			return items, nil
		}
		if !resp.OK() {
			return items, nil
		}

		page := cfg.Items(resp)
		items = append(items, page...)

		if !next(resp, len(page)) {
			return items, nil
		}
	}
}

// Run pages through the collection in the background and calls onComplete once with everything gathered.
// The returned channel closes after onComplete returns.
func Run[T any](ctx context.Context, cfg Config[T], onComplete func([]T)) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		items, _ := Collect(ctx, cfg)
		onComplete(items)
	}()
	return done
}

// Queued builds a [RequestFunc] that sends page requests through q with retry and priority fixed.
func Queued(q *queue.Queue, headers http.Header, retry queue.RetryFunc, priority queue.Priority) RequestFunc {
	return func(ctx context.Context, url string) (*queue.Response, error) {
		return q.Do(ctx, url, headers, retry, priority)
	}
}
