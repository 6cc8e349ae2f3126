package linkhealth

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/MrSnakeDoc/marks/internal/logger"
)

const (
	DefaultConcurrency  = 20
	DefaultBatchTimeout = 5 * time.Second
)

// Target is one bookmark to check.
type Target struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Source tells where a result came from.
type Source string

const (
	SourceInvalid Source = "invalid"
	SourceCache   Source = "cache"
	SourceNetwork Source = "network"
	// SourceSkipped marks a target the run never completed. Its status is a dead placeholder.
	SourceSkipped Source = "skipped"
)

// Result is the outcome for one target.
type Result struct {
	ID            string    `json:"id"`
	URL           string    `json:"url"`
	NormalizedURL string    `json:"normalizedUrl,omitempty"`
	Status        Status    `json:"status"`
	Source        Source    `json:"source"`
	CheckedAt     time.Time `json:"checkedAt,omitzero"`
}

// Aborted reports whether a run left any target unchecked.
func Aborted(results []Result) bool {
	return slices.ContainsFunc(results, func(r Result) bool { return r.Source == SourceSkipped })
}

// ProgressFunc receives the processed count after each resolved target.
// It is called serially and must not block for long.
type ProgressFunc func(processed, total int)

type BatchOptions struct {
	Concurrency  int
	Timeout      time.Duration
	CacheTTL     time.Duration
	ForceRefresh bool
}

func (o BatchOptions) withDefaults() BatchOptions {
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultBatchTimeout
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = DefaultCacheTTL
	}
	return o
}

// Checker resolves a single URL. *Client implements it.
type Checker interface {
	Check(ctx context.Context, raw string, timeout time.Duration) Verdict
}

// Batcher checks many targets with bounded concurrency and a shared cache.
type Batcher struct {
	checker Checker
	cache   Cache
	log     logger.Logger
	now     func() time.Time
}

func NewBatcher(checker Checker, cache Cache, log logger.Logger) *Batcher {
	if log == nil {
		log = logger.NewNop()
	}
	return &Batcher{checker: checker, cache: cache, log: log, now: time.Now}
}

// Run checks targets and returns one result per target in input order.
//
// Invalid URLs and fresh cache hits are resolved before any network work
// and reported to onProgress first. Verdicts go into a per-run overlay that
// is merged into the cache and flushed only when every queued target
// completed. When ctx is cancelled no new target is claimed, unfinished
// targets stay dead placeholders and the overlay is dropped.
func (b *Batcher) Run(ctx context.Context, targets []Target, onProgress ProgressFunc, opts BatchOptions) []Result {
	opts = opts.withDefaults()
	runLog := b.log.With(logger.String("run_id", uuid.NewString()))
	started := b.now()

	results := make([]Result, len(targets))
	queue := make([]int, 0, len(targets))
	var invalid, cached int

	for i, t := range targets {
		results[i] = Result{ID: t.ID, URL: t.URL, Status: StatusDead, Source: SourceSkipped}

		norm, ok := Normalize(t.URL)
		if !ok {
			results[i].Source = SourceInvalid
			invalid++
			continue
		}
		results[i].NormalizedURL = norm

		if !opts.ForceRefresh {
			if e, hit := b.cache.Get(norm); hit && e.Fresh(started, opts.CacheTTL) {
				results[i].Status = e.Status.Final()
				results[i].Source = SourceCache
				results[i].CheckedAt = e.CheckedAt
				cached++
				continue
			}
		}
		queue = append(queue, i)
	}

	runLog.Info("link check started",
		logger.Int("targets", len(targets)),
		logger.Int("queued", len(queue)),
		logger.Int("cached", cached),
		logger.Int("invalid", invalid),
		logger.Int("concurrency", opts.Concurrency),
	)

	progress := &progressCounter{total: len(targets), fn: onProgress}
	for range invalid + cached {
		progress.advance()
	}

	overlay := &runOverlay{entries: make(map[string]CacheEntry, len(queue))}
	jobs := make(chan int, len(queue))
	for _, i := range queue {
		jobs <- i
	}
	close(jobs)

	var g errgroup.Group
	for range min(opts.Concurrency, len(queue)) {
		g.Go(func() error {
			for {
				if ctx.Err() != nil {
					return nil
				}
				i, ok := <-jobs
				if !ok {
					return nil
				}
				b.checkOne(ctx, &results[i], opts.Timeout, overlay, progress)
			}
		})
	}
	_ = g.Wait()

	aborted := overlay.completed() < len(queue)
	if aborted {
		progress.finish()
	} else {
		for k, e := range overlay.entries {
			b.cache.Set(k, e)
		}
		if err := b.cache.Flush(context.WithoutCancel(ctx)); err != nil {
			runLog.Warn("link-health cache flush failed", logger.Error(err))
		}
	}

	runLog.Info("link check finished",
		logger.Int("processed", progress.processed),
		logger.Bool("aborted", aborted),
		logger.Duration("elapsed", b.now().Sub(started)),
	)
	return results
}

func (b *Batcher) checkOne(ctx context.Context, r *Result, timeout time.Duration, overlay *runOverlay, progress *progressCounter) {
	v := b.checker.Check(ctx, r.NormalizedURL, timeout)
	if v.Aborted {
		return
	}

	now := b.now()
	overlay.set(r.NormalizedURL, CacheEntry{Status: v.Status, CheckedAt: now})
	r.Status = v.Status
	r.Source = SourceNetwork
	r.CheckedAt = now
	progress.advance()
}

// runOverlay collects one run's verdicts. done counts completed checks,
// which can exceed len(entries) when targets share a normalized URL.
type runOverlay struct {
	mu      sync.Mutex
	entries map[string]CacheEntry
	done    int
}

func (o *runOverlay) set(key string, e CacheEntry) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries[key] = e
	o.done++
}

func (o *runOverlay) completed() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.done
}

type progressCounter struct {
	mu        sync.Mutex
	processed int
	total     int
	fn        ProgressFunc
}

func (p *progressCounter) advance() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processed++
	if p.fn != nil {
		p.fn(p.processed, p.total)
	}
}

// finish jumps to total so the consumer sees completion after an abort.
func (p *progressCounter) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.processed >= p.total {
		return
	}
	p.processed = p.total
	if p.fn != nil {
		p.fn(p.processed, p.total)
	}
}
