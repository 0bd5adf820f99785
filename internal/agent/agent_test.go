package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/operion/sentinel-agent/internal/config"
	"github.com/operion/sentinel-agent/internal/models"
)

type stubCollector struct{}

func (s *stubCollector) Name() string  { return "stub" }
func (s *stubCollector) Enabled() bool { return true }
func (s *stubCollector) Collect(ctx context.Context) ([]models.DiskMetric, error) {
	return []models.DiskMetric{
		models.NewDiskMetric(time.Now().Unix(), "/dev/stub", "/", 1000, 400, 600),
	}, nil
}

func testConfig(endpoint string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Agent.ID = "agent-under-test"
	cfg.Agent.Hostname = "test-host"
	cfg.API.Endpoint = endpoint
	cfg.API.TimeoutSeconds = 2
	cfg.API.RetryBackoffSeconds = 1
	cfg.Collection.IntervalSeconds = 60
	cfg.Collection.FlushIntervalSeconds = 60
	cfg.Collection.BatchSize = 10
	return cfg
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig("https://api.example.com")
	cfg.Collection.IntervalSeconds = 0

	_, err := New(cfg, "test", zap.NewNop())
	assert.Error(t, err)
}

func TestNew_StartsInitializing(t *testing.T) {
	a, err := New(testConfig("https://api.example.com"), "test", zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, StateInitializing, a.State())
}

func TestRun_DrainsOnShutdown(t *testing.T) {
	var batches atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var batch models.MetricBatch
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&batch)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, "agent-under-test", batch.ResourceID)
		assert.Equal(t, "test-host", batch.Hostname)
		assert.NotEmpty(t, batch.Metrics)
		batches.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a, err := New(testConfig(srv.URL), "test", zap.NewNop(), &stubCollector{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()

	// Give the initial collection a moment, then trigger the drain. Neither
	// periodic timer fires within the test window (both are 60s).
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, StateRunning, a.State())
	cancel()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("agent did not stop")
	}

	assert.Equal(t, StateStopped, a.State())
	assert.Equal(t, int32(1), batches.Load())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "initializing", StateInitializing.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "draining", StateDraining.String())
	assert.Equal(t, "stopped", StateStopped.String())
}
