// Package registration performs the one-shot resource registration handshake
// with the platform. A successful registration is persisted so later runs
// reuse the assigned resource ID instead of registering again. Registration
// failures are never fatal: the agent reports under its configured ID until
// a later run succeeds.
package registration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime"

	"go.uber.org/zap"

	"github.com/operion/sentinel-agent/internal/config"
	"github.com/operion/sentinel-agent/internal/metadata"
	"github.com/operion/sentinel-agent/internal/models"
	"github.com/operion/sentinel-agent/internal/state"
)

// Registrar negotiates and persists the agent's platform resource ID.
type Registrar struct {
	client       *http.Client
	cfg          *config.Config
	detector     *metadata.Detector
	statePath    string
	agentVersion string
	logger       *zap.Logger
}

// New creates a Registrar persisting state at statePath.
func New(cfg *config.Config, statePath, agentVersion string, logger *zap.Logger) *Registrar {
	return &Registrar{
		client:       &http.Client{Timeout: cfg.APITimeout()},
		cfg:          cfg,
		detector:     metadata.NewDetector(logger),
		statePath:    statePath,
		agentVersion: agentVersion,
		logger:       logger,
	}
}

// Register returns the resource ID to stamp on outgoing batches. Order of
// preference: persisted state, fresh registration, configured agent ID.
// Without an API key, registration is skipped entirely.
func (r *Registrar) Register(ctx context.Context, session *models.SessionInfo) string {
	if r.cfg.API.APIKey == "" {
		r.logger.Info("API key not configured, skipping resource registration")
		return r.cfg.Agent.ID
	}

	if st, err := state.Load(r.statePath); err != nil {
		r.logger.Warn("Failed to load resource state, will re-register",
			zap.String("path", r.statePath),
			zap.Error(err))
	} else if st != nil {
		r.logger.Info("Reusing existing resource registration",
			zap.String("resource_id", st.ResourceID),
			zap.String("registered_at", st.RegisteredAt))
		return st.ResourceID
	}

	resourceID, err := r.register(ctx, session)
	if err != nil {
		r.logger.Warn("Resource registration failed, continuing unregistered",
			zap.Error(err))
		return r.cfg.Agent.ID
	}
	return resourceID
}

func (r *Registrar) register(ctx context.Context, session *models.SessionInfo) (string, error) {
	instanceMeta := r.detector.Detect(ctx)

	payload := models.ResourceRegistration{
		Hostname:         r.cfg.Hostname(),
		AgentVersion:     r.agentVersion,
		Platform:         runtime.GOOS,
		Arch:             runtime.GOARCH,
		InstanceMetadata: instanceMeta,
		Session:          session,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal registration: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/resources", r.cfg.API.Endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.cfg.API.APIKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send registration: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("registration returned %d: %s", resp.StatusCode, body)
	}

	var regResp models.RegistrationResponse
	if err := json.NewDecoder(resp.Body).Decode(&regResp); err != nil {
		return "", fmt.Errorf("parse registration response: %w", err)
	}
	if regResp.ResourceID == "" {
		return "", fmt.Errorf("registration response missing resource_id")
	}

	r.logger.Info("Resource registered",
		zap.String("resource_id", regResp.ResourceID),
		zap.String("status", regResp.Status))

	if err := state.New(regResp.ResourceID, r.agentVersion).Save(r.statePath); err != nil {
		// Not fatal: the agent just re-registers on the next restart.
		r.logger.Warn("Failed to save resource state",
			zap.String("path", r.statePath),
			zap.Error(err))
	}

	return regResp.ResourceID, nil
}
