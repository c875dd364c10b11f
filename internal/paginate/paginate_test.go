package paginate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/livewatch/internal/queue"
)

// pages serves a collection of total items in pages of size, failing at offset failAt when set.
func pages(total, size, failAt int, requested *[]int) RequestFunc {
	return func(_ context.Context, url string) (*queue.Response, error) {
		offset, err := strconv.Atoi(url[strings.LastIndex(url, "=")+1:])
		if err != nil {
			return nil, err
		}
		*requested = append(*requested, offset)

		if failAt >= 0 && offset == failAt {
			return queue.NewResponse(404, nil, []byte(`{"error":"Not Found"}`)), nil
		}

		n := min(size, max(total-offset, 0))
		ids := make([]string, n)
		for i := range n {
			ids[i] = strconv.Itoa(offset + i)
		}
		body := fmt.Sprintf(`{"items":[%s]}`, strings.Join(ids, ","))
		return queue.NewResponse(200, nil, []byte(body)), nil
	}
}

func itemsOf(resp *queue.Response) []int {
	var items []int
	resp.Field("items", &items)
	return items
}

func TestCollect(t *testing.T) {
	ctx := context.Background()

	t.Run("Stops After Short Page", func(t *testing.T) {
		var requested []int
		items, err := Collect(ctx, Config[int]{
			URL:      "https://api.test/follows?limit=100&offset=",
			PageSize: 100,
			Request:  pages(237, 100, -1, &requested),
			Items:    itemsOf,
		})

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !slices.Equal(requested, []int{0, 100, 200}) {
			t.Errorf("expected offsets [0 100 200], got %v", requested)
		}
		if len(items) != 237 {
			t.Errorf("expected 237 items, got %d", len(items))
		}
		if items[0] != 0 || items[236] != 236 {
			t.Error("expected items in page order")
		}
	})

	t.Run("Exact Multiple Fetches Empty Page", func(t *testing.T) {
		var requested []int
		items, _ := Collect(ctx, Config[int]{
			URL:      "x?offset=",
			PageSize: 100,
			Request:  pages(200, 100, -1, &requested),
			Items:    itemsOf,
		})

		if !slices.Equal(requested, []int{0, 100, 200}) {
			t.Errorf("expected offsets [0 100 200], got %v", requested)
		}
		if len(items) != 200 {
			t.Errorf("expected 200 items, got %d", len(items))
		}
	})

	t.Run("Hard Failure Returns Partial Result", func(t *testing.T) {
		var requested []int
		items, err := Collect(ctx, Config[int]{
			URL:      "x?offset=",
			PageSize: 100,
			Request:  pages(500, 100, 200, &requested),
			Items:    itemsOf,
		})

		if err != nil {
			t.Fatalf("expected partial result without error, got %v", err)
		}
		if len(items) != 200 {
			t.Errorf("expected 200 items before failure, got %d", len(items))
		}
		if !slices.Equal(requested, []int{0, 100, 200}) {
			t.Errorf("expected paging to stop at failed page, got %v", requested)
		}
	})

	t.Run("Transport Error Returns Partial Result", func(t *testing.T) {
		calls := 0
		items, err := Collect(ctx, Config[int]{
			URL:      "x?offset=",
			PageSize: 2,
			Request: func(context.Context, string) (*queue.Response, error) {
				calls++
				if calls > 1 {
					return nil, errors.New("connection reset")
				}
				return queue.NewResponse(200, nil, []byte(`{"items":[1,2]}`)), nil
			},
			Items: itemsOf,
		})

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !slices.Equal(items, []int{1, 2}) {
			t.Errorf("expected [1 2], got %v", items)
		}
	})

	t.Run("Context Error Is Returned", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := Collect(cctx, Config[int]{
			URL: "x?offset=",
			Request: func(ctx context.Context, _ string) (*queue.Response, error) {
				return nil, ctx.Err()
			},
			Items: itemsOf,
		})

		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("First Page Uses Dedicated Request", func(t *testing.T) {
		var first, rest []int
		_, _ = Collect(ctx, Config[int]{
			URL:       "x?offset=",
			PageSize:  10,
			FirstPage: pages(15, 10, -1, &first),
			Request:   pages(15, 10, -1, &rest),
			Items:     itemsOf,
		})

		if !slices.Equal(first, []int{0}) || !slices.Equal(rest, []int{10}) {
			t.Errorf("expected first [0] and rest [10], got %v and %v", first, rest)
		}
	})

	t.Run("Custom Continuation", func(t *testing.T) {
		var requested []int
		items, _ := Collect(ctx, Config[int]{
			URL:      "x?offset=",
			PageSize: 10,
			Request:  pages(100, 10, -1, &requested),
			Next:     func(_ *queue.Response, _ int) bool { return len(requested) < 2 },
			Items:    itemsOf,
		})

		if len(requested) != 2 || len(items) != 20 {
			t.Errorf("expected 2 pages and 20 items, got %d pages and %d items", len(requested), len(items))
		}
	})
}

func TestRun(t *testing.T) {
	t.Run("Calls OnComplete Once", func(t *testing.T) {
		var requested []int
		results := make(chan []int, 2)

		done := Run(context.Background(), Config[int]{
			URL:      "x?offset=",
			PageSize: 5,
			Request:  pages(7, 5, -1, &requested),
			Items:    itemsOf,
		}, func(items []int) { results <- items })

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("pagination never completed")
		}

		if len(results) != 1 {
			t.Fatalf("expected one completion, got %d", len(results))
		}
		if items := <-results; len(items) != 7 {
			t.Errorf("expected 7 items, got %d", len(items))
		}
	})
}

func TestQueued(t *testing.T) {
	t.Run("Routes Through Queue", func(t *testing.T) {
		var urls []string
		q := queue.New(queue.TransportFunc(func(_ context.Context, url string, _ http.Header) (*queue.Response, error) {
			urls = append(urls, url)
			return queue.NewResponse(200, nil, []byte(`{"items":[1]}`)), nil
		}), queue.Options{})

		items, err := Collect(context.Background(), Config[int]{
			URL:      "https://api.test/streams?offset=",
			PageSize: 2,
			Request:  Queued(q, nil, nil, queue.Low),
			Items:    itemsOf,
		})

		if err != nil || len(items) != 1 {
			t.Fatalf("expected 1 item, got %v (err %v)", items, err)
		}
		if !slices.Equal(urls, []string{"https://api.test/streams?offset=0"}) {
			t.Errorf("unexpected urls %v", urls)
		}
	})
}
