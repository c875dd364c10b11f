// package queue implements the prioritized, concurrency-bounded HTTP request dispatcher shared by providers.
//
// Requests wait in one of two FIFO tiers. Every queued [High] request is dispatched before any queued [Low]
// request, and at most [Options.Concurrency] requests are in flight at once. After each attempt the caller's
// [RetryFunc] decides whether the request goes back to the tail of its tier or resolves its [Handle].
package queue

import (
	"context"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/livewatch/internal/shared"
	"golang.org/x/time/rate"
)

// Priority is the dispatch tier of a request.
type Priority int

const (
	High Priority = iota
	Low
)

func (p Priority) String() string {
	switch p {
	case High:
		return "high"
	case Low:
		return "low"
	default:
		return ""
	}
}

// RetryFunc inspects the outcome of one attempt and returns true to requeue it.
//
// resp is nil when the transport failed. The queue imposes no attempt cap; a predicate that needs one must
// count attempts itself.
type RetryFunc func(resp *Response) bool

// NeverRetry resolves every request after its first attempt.
func NeverRetry(*Response) bool { return false }

// Options configures a [Queue].
type Options struct {
	Concurrency int           // max in-flight requests, defaults to 1
	Limiter     *rate.Limiter // optional token bucket applied before each attempt
	Metrics     *Metrics      // optional
	Logger      *log.Logger   // optional
}

// Queue dispatches requests through a [Transport] by priority, then FIFO within a tier.
type Queue struct {
	transport Transport
	limit     int
	limiter   *rate.Limiter
	metrics   *Metrics
	logger    *log.Logger

	mu       sync.Mutex
	tiers    [2][]*pending
	seq      uint64
	inFlight int
	closed   bool
}

type pending struct {
	ctx      context.Context
	url      string
	headers  http.Header
	retry    RetryFunc
	priority Priority
	seq      uint64
	attempts int
	done     chan result
}

type result struct {
	resp *Response
	err  error
}

func (p *pending) resolve(resp *Response, err error) {
	p.done <- result{resp: resp, err: err}
}

// Handle is the eventual outcome of one enqueued request.
type Handle struct {
	done chan result
}

// Wait blocks until the request resolves or ctx ends.
//
// A nil response with a nil error cannot occur; a hard failure is returned as the final response, and only
// transport errors, context errors, or [shared.ErrQueueClosed] come back as errors.
func (h *Handle) Wait(ctx context.Context) (*Response, error) {
	select {
	case r := <-h.done:
		return r.resp, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// New creates a queue that fetches through transport.
func New(transport Transport, opts Options) *Queue {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Queue{
		transport: transport,
		limit:     opts.Concurrency,
		limiter:   opts.Limiter,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
	}
}

// Enqueue schedules a GET of url and returns a handle to its final response.
//
// If ctx ends before the request is dispatched, it is dropped and resolved with the context error.
func (q *Queue) Enqueue(ctx context.Context, url string, headers http.Header, retry RetryFunc, priority Priority) *Handle {
	if retry == nil {
		retry = NeverRetry
	}
	if priority != High {
		priority = Low
	}

	p := &pending{
		ctx:      ctx,
		url:      url,
		headers:  headers,
		retry:    retry,
		priority: priority,
		done:     make(chan result, 1),
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		p.resolve(nil, shared.ErrQueueClosed)
		return &Handle{done: p.done}
	}
	q.pushLocked(p)
	q.mu.Unlock()

	q.dispatch()
	return &Handle{done: p.done}
}

// Do enqueues a request and waits for it.
func (q *Queue) Do(ctx context.Context, url string, headers http.Header, retry RetryFunc, priority Priority) (*Response, error) {
	return q.Enqueue(ctx, url, headers, retry, priority).Wait(ctx)
}

// EnqueueBatch schedules every url and hands each final response to onEach as it arrives.
//
// Failures are dropped per URL. The returned channel closes once every URL has resolved.
func (q *Queue) EnqueueBatch(ctx context.Context, urls []string, priority Priority, onEach func(*Response), headers http.Header, retry RetryFunc) <-chan struct{} {
	done := make(chan struct{})
	var wg sync.WaitGroup

	for _, url := range urls {
		h := q.Enqueue(ctx, url, headers, retry, priority)
		wg.Add(1)
		go func(url string) {
			defer wg.Done()
			resp, err := h.Wait(ctx)
			if err != nil {
				q.logger.Debug("batch request dropped", "url", url, "error", err)
				return
			}
			onEach(resp)
		}(url)
	}

	go func() {
		wg.Wait()
		close(done)
	}()

	return done
}

// Close rejects all queued requests with [shared.ErrQueueClosed]. In-flight requests resolve normally but
// are not requeued.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	var dropped []*pending
	for i := range q.tiers {
		dropped = append(dropped, q.tiers[i]...)
		q.tiers[i] = nil
	}
	q.updateGaugesLocked()
	q.mu.Unlock()

	for _, p := range dropped {
		p.resolve(nil, shared.ErrQueueClosed)
	}
}

// Pending returns the number of queued requests per tier.
func (q *Queue) Pending() (high, low int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tiers[High]), len(q.tiers[Low])
}

func (q *Queue) pushLocked(p *pending) {
	q.seq++
	p.seq = q.seq
	q.tiers[p.priority] = append(q.tiers[p.priority], p)
}

func (q *Queue) popLocked() *pending {
	for i := range q.tiers {
		if len(q.tiers[i]) == 0 {
			continue
		}
		p := q.tiers[i][0]
		q.tiers[i][0] = nil
		q.tiers[i] = q.tiers[i][1:]
		return p
	}
	return nil
}

func (q *Queue) updateGaugesLocked() {
	q.metrics.gauges(q.inFlight, len(q.tiers[High]), len(q.tiers[Low]))
}

// dispatch starts queued requests until the concurrency bound is reached.
func (q *Queue) dispatch() {
	var cancelled []*pending

	q.mu.Lock()
	for q.inFlight < q.limit {
		p := q.popLocked()
		if p == nil {
			break
		}
		if p.ctx.Err() != nil {
			cancelled = append(cancelled, p)
			continue
		}
		q.inFlight++
		go q.run(p)
	}
	q.updateGaugesLocked()
	q.mu.Unlock()

	for _, p := range cancelled {
		p.resolve(nil, p.ctx.Err())
	}
}

func (q *Queue) run(p *pending) {
	resp, fetched, err := q.attempt(p)
	if !fetched {
		// The limiter cannot admit the request before its deadline.
		q.mu.Lock()
		q.inFlight--
		q.mu.Unlock()
		q.logger.Debug("rate limit wait failed", "url", p.url, "priority", p.priority, "error", err)
		p.resolve(nil, err)
		q.dispatch()
		return
	}
	p.attempts++
	q.metrics.observe(p.priority, resp)

	retry := p.ctx.Err() == nil && p.retry(resp)

	q.mu.Lock()
	q.inFlight--
	closed := q.closed
	if retry && !closed {
		q.pushLocked(p)
	}
	q.mu.Unlock()

	switch {
	case p.ctx.Err() != nil:
		p.resolve(nil, p.ctx.Err())
	case retry && closed:
		p.resolve(nil, shared.ErrQueueClosed)
	case retry:
		q.metrics.retried(p.priority)
		q.logger.Debug("requeued request", "url", p.url, "priority", p.priority, "status", statusOf(resp), "attempts", p.attempts)
	default:
		if resp != nil {
			err = nil
		}
		p.resolve(resp, err)
	}

	q.dispatch()
}

// attempt waits for the limiter and performs one fetch. fetched is false when the limiter refused the wait, in
// which case the request is never handed to the retry predicate.
func (q *Queue) attempt(p *pending) (resp *Response, fetched bool, err error) {
	if q.limiter != nil {
		if err := q.limiter.Wait(p.ctx); err != nil {
			return nil, false, err
		}
	}

	resp, err = q.transport.Fetch(p.ctx, p.url, p.headers)
	if err != nil {
		q.logger.Debug("transport failure", "url", p.url, "error", err)
		return nil, true, err
	}
	return resp, true, nil
}

func statusOf(resp *Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}
