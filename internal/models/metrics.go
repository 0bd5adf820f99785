// Package models defines the metric data structures used throughout the agent.
// These structures are serialized to JSON for transmission to the API.
package models

import "time"

// DiskMetric represents one disk-usage measurement for a single mount point.
// A metric is immutable once created.
type DiskMetric struct {
	Timestamp      int64   `json:"timestamp"`
	Device         string  `json:"device"`
	MountPoint     string  `json:"mount_point"`
	TotalBytes     uint64  `json:"total_space_bytes"`
	UsedBytes      uint64  `json:"used_space_bytes"`
	AvailableBytes uint64  `json:"available_space_bytes"`
	UsageRatio     float64 `json:"usage_percentage"`
}

// NewDiskMetric builds a metric from raw usage numbers, computing the usage
// ratio. Mounts that report a total of zero get a ratio of 0.0.
func NewDiskMetric(timestamp int64, device, mountPoint string, total, used, available uint64) DiskMetric {
	ratio := 0.0
	if total > 0 {
		ratio = float64(used) / float64(total)
	}
	return DiskMetric{
		Timestamp:      timestamp,
		Device:         device,
		MountPoint:     mountPoint,
		TotalBytes:     total,
		UsedBytes:      used,
		AvailableBytes: available,
		UsageRatio:     ratio,
	}
}

// MetricBatch is the payload sent to the API via POST /api/v1/metrics.
// Timestamp is the batch assembly time in unix seconds; metric order matches
// collection order.
type MetricBatch struct {
	ResourceID string       `json:"resource_id"`
	Hostname   string       `json:"hostname"`
	Timestamp  int64        `json:"timestamp"`
	Metrics    []DiskMetric `json:"metrics"`
	Session    *SessionInfo `json:"session,omitempty"`
}

// NewMetricBatch assembles a batch envelope around the given metrics.
func NewMetricBatch(resourceID, hostname string, metrics []DiskMetric, session *SessionInfo) MetricBatch {
	return MetricBatch{
		ResourceID: resourceID,
		Hostname:   hostname,
		Timestamp:  time.Now().UTC().Unix(),
		Metrics:    metrics,
		Session:    session,
	}
}

// SessionInfo identifies one agent process run on one booted host. It lets
// the API distinguish agent restarts from host reboots.
type SessionInfo struct {
	SessionID      string `json:"session_id"`
	BootTime       int64  `json:"boot_time"`
	AgentStartTime int64  `json:"agent_start_time"`
	UptimeSeconds  uint64 `json:"uptime_seconds"`
}
