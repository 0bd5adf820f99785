// Package scheduler drives the two periodic actions of the pipeline: collect
// (pull a snapshot, push each record into the buffer) and flush (drain the
// buffer, dispatch the batch to the send callback). The two timers run on
// independent periods; a flush dispatches its send in a goroutine so that
// sender latency and retries never delay either timer.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/operion/sentinel-agent/internal/buffer"
	"github.com/operion/sentinel-agent/internal/collector"
	"github.com/operion/sentinel-agent/internal/models"
)

// collectTimeout bounds a single collection tick so a stalled MetricSource
// contributes zero records instead of stalling the collect timer.
const collectTimeout = 10 * time.Second

// Scheduler manages periodic metric collection and flushing.
type Scheduler struct {
	registry        *collector.Registry
	buf             *buffer.Buffer
	collectInterval time.Duration
	flushInterval   time.Duration
	logger          *zap.Logger

	onFlush  func(context.Context, []models.DiskMetric)
	inFlight sync.WaitGroup
}

// New creates a Scheduler with the given collect and flush periods.
func New(registry *collector.Registry, buf *buffer.Buffer, collectInterval, flushInterval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		registry:        registry,
		buf:             buf,
		collectInterval: collectInterval,
		flushInterval:   flushInterval,
		logger:          logger,
	}
}

// OnFlush sets the callback invoked with each drained, non-empty batch.
// The callback runs on its own goroutine and is responsible for delivery;
// records handed to it are never returned to the buffer.
func (s *Scheduler) OnFlush(fn func(context.Context, []models.DiskMetric)) {
	s.onFlush = fn
}

// Start begins the collection and flush loops. It blocks until the context
// is cancelled, then performs one final flush and returns. In-flight sends
// keep running; bound them with WaitInFlight.
func (s *Scheduler) Start(ctx context.Context) {
	collectTicker := time.NewTicker(s.collectInterval)
	flushTicker := time.NewTicker(s.flushInterval)

	defer collectTicker.Stop()
	defer flushTicker.Stop()

	// Do an initial collection immediately
	s.collect(ctx)

	for {
		select {
		case <-ctx.Done():
			s.flush()
			return
		case <-collectTicker.C:
			s.collect(ctx)
		case <-flushTicker.C:
			s.flush()
		}
	}
}

// WaitInFlight blocks until all dispatched sends complete or the context
// expires, reporting whether everything finished in time.
func (s *Scheduler) WaitInFlight(ctx context.Context) bool {
	done := make(chan struct{})
	go func() {
		s.inFlight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

// collect runs all collectors with a timeout and pushes each record into the
// buffer. A failed tick contributes nothing and never stops the timer.
func (s *Scheduler) collect(ctx context.Context) {
	collectCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), collectTimeout)
	defer cancel()

	metrics := s.registry.CollectAll(collectCtx)
	for _, m := range metrics {
		s.buf.Push(m)
	}

	if len(metrics) > 0 {
		s.logger.Debug("Collected metrics",
			zap.Int("count", len(metrics)),
			zap.Int("buffered", s.buf.Len()))
	}
}

// flush drains the buffer and dispatches the batch asynchronously.
func (s *Scheduler) flush() {
	batch := s.buf.DrainAll()
	if len(batch) == 0 {
		return
	}

	s.logger.Info("Flushing batch", zap.Int("count", len(batch)))

	if s.onFlush == nil {
		return
	}

	s.inFlight.Add(1)
	go func() {
		defer s.inFlight.Done()
		s.onFlush(context.Background(), batch)
	}()
}
