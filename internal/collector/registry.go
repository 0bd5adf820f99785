package collector

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/operion/sentinel-agent/internal/models"
)

// Registry manages all registered collectors and orchestrates concurrent collection.
type Registry struct {
	collectors []Collector
	logger     *zap.Logger
}

// NewRegistry creates a new collector registry with the given logger.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		collectors: make([]Collector, 0),
		logger:     logger,
	}
}

// Register adds a collector if it is enabled by configuration.
// Disabled collectors are logged and skipped.
func (r *Registry) Register(c Collector) {
	if c.Enabled() {
		r.collectors = append(r.collectors, c)
		r.logger.Info("Registered collector", zap.String("name", c.Name()))
	} else {
		r.logger.Info("Collector disabled, skipping", zap.String("name", c.Name()))
	}
}

// CollectAll runs all registered collectors concurrently and returns their
// records as one sequence. A failed collector is logged and contributes no
// records for the tick; it never prevents other collectors from completing.
func (r *Registry) CollectAll(ctx context.Context) []models.DiskMetric {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results []models.DiskMetric
	)

	for _, c := range r.collectors {
		wg.Add(1)
		go func(col Collector) {
			defer wg.Done()
			metrics, err := col.Collect(ctx)
			if err != nil {
				r.logger.Error("Collection failed",
					zap.String("collector", col.Name()),
					zap.Error(err))
				return
			}
			mu.Lock()
			results = append(results, metrics...)
			mu.Unlock()
		}(c)
	}

	wg.Wait()
	return results
}
