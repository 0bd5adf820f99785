// Package buffer provides a bounded in-memory FIFO for unsent metrics.
// When full, the oldest record is evicted to make room for the newest,
// favoring freshness of telemetry over completeness. Evictions are counted
// so that silent data loss stays observable.
package buffer

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/operion/sentinel-agent/internal/models"
)

// Buffer is a fixed-capacity FIFO ring of metric records. Push is O(1) and
// DrainAll is O(size); both are safe to call concurrently. The buffer is the
// only shared mutable structure between the collect and flush paths.
type Buffer struct {
	mu       sync.Mutex
	records  []models.DiskMetric // fixed-length ring storage
	head     int                 // index of the oldest record
	size     int
	capacity int
	evicted  uint64
	logger   *zap.Logger
}

// New creates a buffer holding at most capacity records.
// A capacity below 1 is a configuration error.
func New(capacity int, logger *zap.Logger) (*Buffer, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("buffer capacity must be at least 1, got %d", capacity)
	}
	return &Buffer{
		records:  make([]models.DiskMetric, capacity),
		capacity: capacity,
		logger:   logger,
	}, nil
}

// Push inserts one record. It never rejects input: at capacity, the single
// oldest resident record is overwritten.
func (b *Buffer) Push(m models.DiskMetric) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.size == b.capacity {
		b.records[b.head] = m
		b.head = (b.head + 1) % b.capacity
		b.evicted++
		b.logger.Warn("Buffer full, dropping oldest metric",
			zap.Int("capacity", b.capacity),
			zap.Uint64("total_evicted", b.evicted))
		return
	}

	b.records[(b.head+b.size)%b.capacity] = m
	b.size++
}

// DrainAll atomically removes and returns every resident record in insertion
// order. Returns nil if the buffer is empty.
func (b *Buffer) DrainAll() []models.DiskMetric {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.size == 0 {
		return nil
	}

	drained := make([]models.DiskMetric, b.size)
	for i := 0; i < b.size; i++ {
		drained[i] = b.records[(b.head+i)%b.capacity]
	}
	b.head = 0
	b.size = 0
	return drained
}

// Len returns the number of resident records.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Evicted returns the number of records dropped to make room since creation.
func (b *Buffer) Evicted() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.evicted
}
