// Package collector defines the Collector interface and provides the disk
// usage collector plus a registry that runs all enabled collectors.
package collector

import (
	"context"

	"github.com/operion/sentinel-agent/internal/models"
)

// Collector is the interface that all metric collectors implement.
// Each collector gathers one kind of measurement and returns it as a set of
// metric records sharing a collection timestamp.
type Collector interface {
	// Name returns the unique identifier for this collector.
	Name() string

	// Collect gathers the metric data for one tick.
	// The context allows for cancellation and timeout control.
	Collect(ctx context.Context) ([]models.DiskMetric, error)

	// Enabled reports whether this collector is switched on by configuration.
	// Disabled collectors are not registered.
	Enabled() bool
}
