// Package sender implements the HTTP batch sender with retry logic.
// It marshals metric batches to JSON and POSTs them to the API ingestion
// endpoint with exponential backoff on transient failure. A batch whose
// retries are exhausted is dropped, never requeued: bounded memory under a
// sustained outage is worth more than completeness here.
package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/operion/sentinel-agent/internal/config"
	"github.com/operion/sentinel-agent/internal/models"
)

// Sender handles batch transmission of metrics to the API with retry logic.
// Each Send call is independent; concurrent deliveries are allowed and may
// arrive at the endpoint out of production order.
type Sender struct {
	client      *http.Client
	endpoint    string
	apiKey      string
	maxRetries  int
	baseBackoff time.Duration
	logger      *zap.Logger

	delivered atomic.Uint64
	failed    atomic.Uint64
}

// New creates a new Sender from the API section of the configuration.
func New(cfg *config.Config, logger *zap.Logger) *Sender {
	return &Sender{
		client: &http.Client{
			Timeout: cfg.APITimeout(),
		},
		endpoint:    cfg.API.Endpoint,
		apiKey:      cfg.API.APIKey,
		maxRetries:  cfg.API.MaxRetries,
		baseBackoff: cfg.RetryBackoff(),
		logger:      logger,
	}
}

// permanentError marks a response that will not improve with retries, such as
// a malformed payload or a rejected credential.
type permanentError struct {
	statusCode int
	body       string
}

func (e *permanentError) Error() string {
	return fmt.Sprintf("api returned %d: %s", e.statusCode, e.body)
}

func isPermanent(err error) bool {
	_, ok := err.(*permanentError)
	return ok
}

// Send delivers one batch. Transport errors and server errors are retried
// with exponential backoff up to the configured attempt limit; client errors
// fail immediately. On terminal failure the batch is dropped and an error
// returned for reporting — the caller must not requeue it.
func (s *Sender) Send(ctx context.Context, batch models.MetricBatch) error {
	data, err := json.Marshal(batch)
	if err != nil {
		s.failed.Add(1)
		return fmt.Errorf("marshal batch: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		if attempt > 1 {
			delay := s.baseBackoff << (attempt - 2)
			s.logger.Warn("Retrying send",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", s.maxRetries),
				zap.Duration("delay", delay))

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				s.failed.Add(1)
				return fmt.Errorf("send cancelled: %w", ctx.Err())
			}
		}

		err := s.doSend(ctx, data)
		if err == nil {
			s.delivered.Add(1)
			s.logger.Debug("Batch delivered",
				zap.Int("metrics", len(batch.Metrics)),
				zap.Int("attempt", attempt))
			return nil
		}

		if isPermanent(err) {
			s.failed.Add(1)
			s.logger.Error("Batch rejected, not retrying", zap.Error(err))
			return err
		}

		lastErr = err
		s.logger.Warn("Send failed",
			zap.Int("attempt", attempt),
			zap.Error(err))
	}

	s.failed.Add(1)
	s.logger.Error("All attempts exhausted, dropping batch",
		zap.Int("metrics", len(batch.Metrics)),
		zap.Error(lastErr))
	return fmt.Errorf("send failed after %d attempts: %w", s.maxRetries, lastErr)
}

// doSend performs a single HTTP POST to the ingest endpoint.
func (s *Sender) doSend(ctx context.Context, data []byte) error {
	url := fmt.Sprintf("%s/api/v1/metrics", s.endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	// 429 is the one client error worth retrying; the server is telling us
	// to slow down, not that the payload is wrong.
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return &permanentError{statusCode: resp.StatusCode, body: string(body)}
	}

	return fmt.Errorf("api returned %d: %s", resp.StatusCode, body)
}

// Delivered returns the number of successfully delivered batches.
func (s *Sender) Delivered() uint64 { return s.delivered.Load() }

// Failed returns the number of batches dropped after terminal failure.
func (s *Sender) Failed() uint64 { return s.failed.Load() }
