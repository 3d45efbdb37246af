package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/reelscan/reelscan/internal/metadata"
)

const (
	defaultMaxThreads       = 1
	defaultMaxResults       = 50
	defaultDiscoverInterval = 5 * time.Minute
	defaultDispatchInterval = time.Second
)

// Source returns up to maxResults stale items, oldest first.
type Source func(ctx context.Context, maxResults int) ([]metadata.QueueItem, error)

// Processor handles single queue items.
type Processor interface {
	// Process handles one item and commits its result.
	Process(ctx context.Context, item metadata.QueueItem) error

	// Fail records a processing failure for one item.
	Fail(ctx context.Context, item metadata.QueueItem, err error)
}

// Settings is the configuration read on every tick.
type Settings interface {
	GetInt(key string, def int) int
	GetDuration(key string, def time.Duration) time.Duration
}

// TryLocker is a lock that can be attempted without blocking.
type TryLocker interface {
	TryLock() bool
	Unlock()
}

type queueState int

const (
	stateUnknown queueState = iota
	stateEnabled
	stateDisabled
)

// WorkQueue discovers stale items on one timer and hands them to a bounded
// worker pool on another. Dispatch cycles sharing a lock never run
// concurrently.
type WorkQueue struct {
	name      string
	prefix    string
	source    Source
	processor Processor
	settings  Settings
	lock      TryLocker
	logger    zerolog.Logger

	mu      sync.Mutex
	state   queueState
	pending bool
	batch   []metadata.QueueItem
}

// NewWorkQueue creates a work queue whose limits are read from
// scheduler.<name>.maxThreads and scheduler.<name>.maxResults. lock guards
// the dispatch cycle; nil gives the queue its own.
func NewWorkQueue(name string, source Source, processor Processor, settings Settings, lock TryLocker, logger zerolog.Logger) *WorkQueue {
	if lock == nil {
		lock = &sync.Mutex{}
	}
	return &WorkQueue{
		name:      name,
		prefix:    "scheduler." + name,
		source:    source,
		processor: processor,
		settings:  settings,
		lock:      lock,
		logger:    logger.With().Str("component", "workqueue").Str("queue", name).Logger(),
	}
}

// Name returns the queue name.
func (q *WorkQueue) Name() string {
	return q.name
}

// Pending reports whether items are waiting for dispatch.
func (q *WorkQueue) Pending() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending
}

func (q *WorkQueue) maxThreads() int {
	return q.settings.GetInt(q.prefix+".maxThreads", defaultMaxThreads)
}

func (q *WorkQueue) maxResults() int {
	return q.settings.GetInt(q.prefix+".maxResults", defaultMaxResults)
}

// Discover queries the source for stale items and stores them for the next
// dispatch. A queue with maxThreads <= 0 is disabled and drops its batch.
func (q *WorkQueue) Discover(ctx context.Context) error {
	threads := q.maxThreads()

	q.mu.Lock()
	if threads <= 0 {
		if q.state != stateDisabled {
			q.logger.Info().Msg("Work queue disabled")
		}
		q.state = stateDisabled
		q.pending = false
		q.batch = nil
		q.mu.Unlock()
		return nil
	}
	if q.state != stateEnabled {
		q.logger.Info().Int("maxThreads", threads).Msg("Work queue enabled")
	}
	q.state = stateEnabled
	q.mu.Unlock()

	items, err := q.source(ctx, q.maxResults())
	if err != nil {
		return fmt.Errorf("failed to discover %s items: %w", q.name, err)
	}

	q.mu.Lock()
	q.batch = items
	q.pending = len(items) > 0
	q.mu.Unlock()

	q.logger.Debug().Int("found", len(items)).Msg("Discovery completed")
	return nil
}

// Dispatch processes the stored batch with up to maxThreads workers. It
// returns immediately when another dispatch cycle holds the lock or
// nothing is pending. An empty stored batch is refilled from the source.
func (q *WorkQueue) Dispatch(ctx context.Context) error {
	if !q.lock.TryLock() {
		q.logger.Debug().Msg("Dispatch already running")
		return nil
	}
	defer q.lock.Unlock()

	threads := q.maxThreads()
	if threads <= 0 {
		return nil
	}

	q.mu.Lock()
	if !q.pending {
		q.mu.Unlock()
		return nil
	}
	items := q.batch
	q.batch = nil
	q.mu.Unlock()

	if len(items) == 0 {
		var err error
		items, err = q.source(ctx, q.maxResults())
		if err != nil {
			return fmt.Errorf("failed to refill %s items: %w", q.name, err)
		}
		if len(items) == 0 {
			q.mu.Lock()
			q.pending = false
			q.mu.Unlock()
			return nil
		}
	}

	return q.runCycle(ctx, items, threads)
}

func (q *WorkQueue) runCycle(ctx context.Context, items []metadata.QueueItem, threads int) error {
	logger := q.logger.With().Str("cycle", uuid.NewString()).Logger()
	start := time.Now()

	ch := make(chan metadata.QueueItem, len(items))
	for _, item := range items {
		ch <- item
	}
	close(ch)

	workers := min(threads, len(items))
	logger.Debug().Int("items", len(items)).Int("workers", workers).Msg("Dispatch cycle started")

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for item := range ch {
				if err := gctx.Err(); err != nil {
					return err
				}
				q.processItem(gctx, logger, item)
			}
			return nil
		})
	}
	err := g.Wait()

	logger.Info().
		Int("items", len(items)).
		Int("workers", workers).
		Dur("duration", time.Since(start)).
		Msg("Dispatch cycle completed")
	return err
}

// processItem runs the processor for one item. Errors and panics are
// contained to the item.
func (q *WorkQueue) processItem(ctx context.Context, logger zerolog.Logger, item metadata.QueueItem) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Int64("id", item.ID).
				Str("mediaType", string(item.MediaType)).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("Processor panicked")
			q.processor.Fail(context.WithoutCancel(ctx), item, fmt.Errorf("panic: %v", r))
		}
	}()

	if err := q.processor.Process(ctx, item); err != nil {
		logger.Error().Err(err).
			Int64("id", item.ID).
			Str("mediaType", string(item.MediaType)).
			Msg("Failed to process item")
		q.processor.Fail(context.WithoutCancel(ctx), item, err)
	}
}

// Register adds the discovery and dispatch jobs of the queue to a
// scheduler. Intervals come from scheduler.<name>.discoverInterval and
// scheduler.<name>.dispatchInterval.
func (q *WorkQueue) Register(s *Scheduler) error {
	discover := q.settings.GetDuration(q.prefix+".discoverInterval", defaultDiscoverInterval)
	dispatch := q.settings.GetDuration(q.prefix+".dispatchInterval", defaultDispatchInterval)

	if err := s.RegisterTask(TaskConfig{
		ID:           q.name + "-discover",
		Name:         q.name + " discovery",
		Description:  "Finds stale items for the " + q.name + " queue",
		Interval:     discover,
		InitialDelay: time.Second,
		RunOnStart:   true,
		Quiet:        true,
		Func:         q.Discover,
	}); err != nil {
		return err
	}

	return s.RegisterTask(TaskConfig{
		ID:           q.name + "-dispatch",
		Name:         q.name + " dispatch",
		Description:  "Processes discovered items of the " + q.name + " queue",
		Interval:     dispatch,
		InitialDelay: 2 * time.Second,
		Quiet:        true,
		Func:         q.Dispatch,
	})
}
