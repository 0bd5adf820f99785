// Package agent wires the metrics pipeline together and owns its lifecycle:
// Initializing -> Running -> Draining -> Stopped. Network and remote-API
// failures degrade to dropped batches; they never take the process down.
package agent

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/operion/sentinel-agent/internal/buffer"
	"github.com/operion/sentinel-agent/internal/collector"
	"github.com/operion/sentinel-agent/internal/config"
	"github.com/operion/sentinel-agent/internal/metadata"
	"github.com/operion/sentinel-agent/internal/models"
	"github.com/operion/sentinel-agent/internal/registration"
	"github.com/operion/sentinel-agent/internal/scheduler"
	"github.com/operion/sentinel-agent/internal/sender"
	"github.com/operion/sentinel-agent/internal/state"
)

// State is the agent lifecycle state.
type State int32

const (
	StateInitializing State = iota
	StateRunning
	StateDraining
	StateStopped
)

// String implements fmt.Stringer for log fields.
func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// drainGracePeriod bounds the final flush and any in-flight sends during
// shutdown; the agent stops unconditionally once it elapses.
const drainGracePeriod = 5 * time.Second

// Agent owns the buffer, scheduler, and sender, and runs them until a
// termination signal cancels its context.
type Agent struct {
	cfg     *config.Config
	version string
	logger  *zap.Logger

	buf   *buffer.Buffer
	snd   *sender.Sender
	sched *scheduler.Scheduler

	state atomic.Int32
}

// New validates the configuration and assembles the pipeline. Extra
// collectors may be supplied for tests or future metric kinds; when none are
// given the disk collector is registered.
func New(cfg *config.Config, version string, logger *zap.Logger, collectors ...collector.Collector) (*Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	buf, err := buffer.New(cfg.Collection.BatchSize, logger)
	if err != nil {
		return nil, err
	}

	registry := collector.NewRegistry(logger)
	if len(collectors) == 0 {
		collectors = []collector.Collector{
			collector.NewDiskCollector(cfg.Collection.Disk, logger),
		}
	}
	for _, c := range collectors {
		registry.Register(c)
	}

	a := &Agent{
		cfg:     cfg,
		version: version,
		logger:  logger,
		buf:     buf,
		snd:     sender.New(cfg, logger),
		sched:   scheduler.New(registry, buf, cfg.CollectInterval(), cfg.FlushInterval(), logger),
	}
	a.state.Store(int32(StateInitializing))
	return a, nil
}

// State returns the current lifecycle state.
func (a *Agent) State() State {
	return State(a.state.Load())
}

// Run executes the agent until ctx is cancelled, then drains: one final
// flush plus a bounded grace period for in-flight sends. It always reaches
// Stopped, whether or not the final deliveries succeeded.
func (a *Agent) Run(ctx context.Context) {
	session := metadata.NewSessionInfo()
	hostname := a.cfg.Hostname()

	registrar := registration.New(a.cfg, state.DefaultPath(), a.version, a.logger)
	resourceID := registrar.Register(ctx, session)

	a.sched.OnFlush(func(sendCtx context.Context, metrics []models.DiskMetric) {
		batch := models.NewMetricBatch(resourceID, hostname, metrics, session)
		if err := a.snd.Send(sendCtx, batch); err != nil {
			a.logger.Error("Batch delivery failed", zap.Error(err))
		}
	})

	a.state.Store(int32(StateRunning))
	a.logger.Info("Agent running",
		zap.String("resource_id", resourceID),
		zap.String("hostname", hostname),
		zap.Duration("collect_interval", a.cfg.CollectInterval()),
		zap.Duration("flush_interval", a.cfg.FlushInterval()))

	a.sched.Start(ctx)

	a.state.Store(int32(StateDraining))
	a.logger.Info("Draining, waiting for in-flight deliveries",
		zap.Duration("grace", drainGracePeriod))

	graceCtx, cancel := context.WithTimeout(context.Background(), drainGracePeriod)
	defer cancel()
	if !a.sched.WaitInFlight(graceCtx) {
		a.logger.Warn("Grace period elapsed with deliveries still in flight")
	}

	a.state.Store(int32(StateStopped))
	a.logger.Info("Agent stopped",
		zap.Uint64("batches_delivered", a.snd.Delivered()),
		zap.Uint64("batches_failed", a.snd.Failed()),
		zap.Uint64("metrics_evicted", a.buf.Evicted()))
}
