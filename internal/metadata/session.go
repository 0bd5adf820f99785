package metadata

import (
	"time"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/host"

	"github.com/operion/sentinel-agent/internal/models"
)

// NewSessionInfo captures the identity of this agent run: a fresh session id,
// the host's boot time, and the process start instant. Boot time lets the
// platform tell an agent restart apart from a host reboot.
func NewSessionInfo() *models.SessionInfo {
	bootTime, err := host.BootTime()
	if err != nil {
		bootTime = 0
	}
	uptime, err := host.Uptime()
	if err != nil {
		uptime = 0
	}

	return &models.SessionInfo{
		SessionID:      uuid.NewString(),
		BootTime:       int64(bootTime),
		AgentStartTime: time.Now().UTC().Unix(),
		UptimeSeconds:  uptime,
	}
}
