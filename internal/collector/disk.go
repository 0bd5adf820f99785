// Disk usage collector — gathers per-mount disk usage information.
// Uses gopsutil for cross-platform disk metrics.
package collector

import (
	"context"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"go.uber.org/zap"

	"github.com/operion/sentinel-agent/internal/config"
	"github.com/operion/sentinel-agent/internal/models"
)

// DiskCollector collects disk usage metrics per mount point, filtered by the
// configured include/exclude mount-point lists.
type DiskCollector struct {
	cfg    config.DiskConfig
	logger *zap.Logger
}

// NewDiskCollector creates a new disk collector.
func NewDiskCollector(cfg config.DiskConfig, logger *zap.Logger) *DiskCollector {
	return &DiskCollector{cfg: cfg, logger: logger}
}

// Name returns the collector identifier.
func (c *DiskCollector) Name() string { return "disk" }

// Enabled reports whether disk collection is switched on.
func (c *DiskCollector) Enabled() bool { return c.cfg.Enabled }

// Collect gathers disk usage for all mounted partitions that pass the
// mount-point filter. Inaccessible partitions are silently skipped; every
// record from one tick shares the same collection timestamp.
func (c *DiskCollector) Collect(ctx context.Context) ([]models.DiskMetric, error) {
	partitions, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil, err
	}

	timestamp := time.Now().UTC().Unix()

	var metrics []models.DiskMetric
	for _, p := range partitions {
		if !c.includeMountPoint(p.Mountpoint) {
			c.logger.Debug("Skipping filtered mount point",
				zap.String("mount", p.Mountpoint))
			continue
		}

		usage, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil {
			continue // Skip inaccessible partitions
		}
		// Skip partitions with 0 total bytes (some virtual mounts report 0 size)
		if usage.Total == 0 {
			continue
		}

		metrics = append(metrics, models.NewDiskMetric(
			timestamp,
			p.Device,
			p.Mountpoint,
			usage.Total,
			usage.Used,
			usage.Free,
		))
	}

	return metrics, nil
}

// includeMountPoint applies the include list first, then the exclude list.
// Both match by substring, so "/dev" excludes "/dev/shm" as well.
func (c *DiskCollector) includeMountPoint(mountPoint string) bool {
	if len(c.cfg.IncludeMountPoints) > 0 {
		included := false
		for _, pattern := range c.cfg.IncludeMountPoints {
			if strings.Contains(mountPoint, pattern) {
				included = true
				break
			}
		}
		if !included {
			return false
		}
	}

	for _, pattern := range c.cfg.ExcludeMountPoints {
		if strings.Contains(mountPoint, pattern) {
			return false
		}
	}

	return true
}
