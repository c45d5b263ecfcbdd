package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pulsefeed/pulsefeed/internal/database"
	"github.com/pulsefeed/pulsefeed/internal/feed"
)

const (
	// tickMS bounds how stale the scheduler's view of newly-subscribed
	// feeds can get even when nothing is currently due.
	tickMS = 60_000

	concurrency = 5
)

// Scheduler is the single long-running control loop that drives feed
// polling. At most one instance should run against a given database.
type Scheduler struct {
	processor    *feed.Processor
	feeds        database.FeedStore
	fetchTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(processor *feed.Processor, feeds database.FeedStore, fetchTimeout time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		processor:    processor,
		feeds:        feeds,
		fetchTimeout: fetchTimeout,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Start runs the scheduling loop in the background. Stop must be called to
// release resources.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.loop()
}

// Stop cancels the loop and waits for the current tick to finish.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	for {
		s.tick()

		select {
		case <-s.ctx.Done():
			return
		case <-time.After(s.nextWake()):
		}
	}
}

func (s *Scheduler) tick() {
	start := time.Now()
	defer func() { tickDuration.Observe(time.Since(start).Seconds()) }()

	now := time.Now()
	due, err := s.feeds.SelectDueFeeds(now)
	if err != nil {
		slog.Error("failed to select due feeds", "error", err)
		return
	}
	if len(due) == 0 {
		return
	}

	slog.Debug("processing due feeds", "count", len(due))

	for batchStart := 0; batchStart < len(due); batchStart += concurrency {
		end := min(batchStart+concurrency, len(due))
		s.processBatch(due[batchStart:end])

		select {
		case <-s.ctx.Done():
			return
		default:
		}
	}
}

// processBatch processes a batch of feeds in parallel and waits for every
// result before returning, Promise.allSettled-style: one feed's failure
// never cancels another's work.
func (s *Scheduler) processBatch(batch []database.Feed) {
	var wg sync.WaitGroup
	for _, f := range batch {
		wg.Add(1)
		go func(f database.Feed) {
			defer wg.Done()
			s.processOne(f)
		}(f)
	}
	wg.Wait()
}

func (s *Scheduler) processOne(f database.Feed) {
	ctx, cancel := context.WithTimeout(s.ctx, s.fetchTimeout)
	defer cancel()

	result, err := s.processor.ProcessFeed(ctx, f.FeedURL, time.Now())
	if err != nil {
		feedsProcessed.WithLabelValues("failure").Inc()
		slog.Warn("feed processing failed", "feed", f.FeedURL, "error", err)
		return
	}

	feedsProcessed.WithLabelValues("success").Inc()
	itemsInserted.Add(float64(result.Inserted))
	slog.Debug("feed processed", "feed", result.FinalURL, "inserted", result.Inserted)
}

// nextWake mirrors the wake-time calculation: wake at the next due feed,
// clamped to at most tickMS so newly-added feeds are never missed for long.
func (s *Scheduler) nextWake() time.Duration {
	now := time.Now()
	earliest, err := s.feeds.SelectEarliestFutureFetch(now)
	if err != nil {
		slog.Error("failed to select earliest future fetch", "error", err)
		return tickMS * time.Millisecond
	}
	if earliest == nil {
		return tickMS * time.Millisecond
	}

	wait := earliest.Sub(now)
	return clampDuration(wait, 0, tickMS*time.Millisecond)
}

func clampDuration(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
}
