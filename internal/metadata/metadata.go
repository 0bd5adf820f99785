// Package metadata detects the cloud environment the agent runs in and
// captures per-process session information. Detection probes the well-known
// instance metadata endpoints with short timeouts; off-cloud, every probe
// fails fast and the result is empty.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/operion/sentinel-agent/internal/models"
)

// probeTimeout keeps metadata probes from delaying startup on hosts that are
// not in any cloud: the link-local endpoint simply does not answer there.
const probeTimeout = 500 * time.Millisecond

// Detector probes cloud instance metadata services.
type Detector struct {
	client  *http.Client
	baseURL string // overridable for tests
	logger  *zap.Logger
}

// NewDetector creates a Detector with the standard probe timeout.
func NewDetector(logger *zap.Logger) *Detector {
	return &Detector{
		client:  &http.Client{Timeout: probeTimeout},
		baseURL: "http://169.254.169.254",
		logger:  logger,
	}
}

// Detect tries AWS, Azure, GCP, and DigitalOcean in order and returns the
// first match. An empty struct means on-premises or an unrecognized
// environment; detection never fails.
func (d *Detector) Detect(ctx context.Context) *models.InstanceMetadata {
	probes := []struct {
		provider string
		fn       func(context.Context) (*models.InstanceMetadata, error)
	}{
		{"aws", d.detectAWS},
		{"azure", d.detectAzure},
		{"gcp", d.detectGCP},
		{"digitalocean", d.detectDigitalOcean},
	}

	for _, p := range probes {
		meta, err := p.fn(ctx)
		if err != nil {
			d.logger.Debug("Cloud probe missed",
				zap.String("provider", p.provider),
				zap.Error(err))
			continue
		}
		d.logger.Info("Detected cloud environment",
			zap.String("provider", meta.CloudProvider),
			zap.String("instance_id", meta.InstanceID))
		return meta
	}

	d.logger.Info("No cloud environment detected, assuming on-premises")
	return &models.InstanceMetadata{}
}

// detectAWS uses IMDSv2 (token-based) with an IMDSv1 fallback.
func (d *Detector) detectAWS(ctx context.Context) (*models.InstanceMetadata, error) {
	token, err := d.fetch(ctx, http.MethodPut, "/latest/api/token", map[string]string{
		"X-aws-ec2-metadata-token-ttl-seconds": "21600",
	})
	if err != nil {
		// IMDSv1 fallback: instance ID only.
		instanceID, v1err := d.fetch(ctx, http.MethodGet, "/latest/meta-data/instance-id", nil)
		if v1err != nil {
			return nil, err
		}
		return &models.InstanceMetadata{
			InstanceID:    instanceID,
			CloudProvider: "aws",
		}, nil
	}

	headers := map[string]string{"X-aws-ec2-metadata-token": token}

	instanceID, err := d.fetch(ctx, http.MethodGet, "/latest/meta-data/instance-id", headers)
	if err != nil {
		return nil, err
	}
	instanceType, _ := d.fetch(ctx, http.MethodGet, "/latest/meta-data/instance-type", headers)
	region, _ := d.fetch(ctx, http.MethodGet, "/latest/meta-data/placement/region", headers)

	return &models.InstanceMetadata{
		InstanceID:    instanceID,
		CloudProvider: "aws",
		Region:        region,
		InstanceType:  instanceType,
	}, nil
}

func (d *Detector) detectAzure(ctx context.Context) (*models.InstanceMetadata, error) {
	body, err := d.fetch(ctx, http.MethodGet, "/metadata/instance?api-version=2021-02-01", map[string]string{
		"Metadata": "true",
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Compute struct {
			VMID     string `json:"vmId"`
			Location string `json:"location"`
			VMSize   string `json:"vmSize"`
		} `json:"compute"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return nil, fmt.Errorf("parse azure metadata: %w", err)
	}
	if payload.Compute.VMID == "" {
		return nil, fmt.Errorf("azure metadata missing vmId")
	}

	return &models.InstanceMetadata{
		InstanceID:    payload.Compute.VMID,
		CloudProvider: "azure",
		Region:        payload.Compute.Location,
		InstanceType:  payload.Compute.VMSize,
	}, nil
}

func (d *Detector) detectGCP(ctx context.Context) (*models.InstanceMetadata, error) {
	headers := map[string]string{"Metadata-Flavor": "Google"}

	instanceID, err := d.fetchURL(ctx, http.MethodGet, d.gcpBase()+"/computeMetadata/v1/instance/id", headers)
	if err != nil {
		return nil, err
	}
	zone, _ := d.fetchURL(ctx, http.MethodGet, d.gcpBase()+"/computeMetadata/v1/instance/zone", headers)

	return &models.InstanceMetadata{
		InstanceID:    instanceID,
		CloudProvider: "gcp",
		Region:        gcpRegionFromZone(zone),
	}, nil
}

func (d *Detector) detectDigitalOcean(ctx context.Context) (*models.InstanceMetadata, error) {
	body, err := d.fetch(ctx, http.MethodGet, "/metadata/v1.json", nil)
	if err != nil {
		return nil, err
	}

	var payload struct {
		DropletID uint64 `json:"droplet_id"`
		Region    string `json:"region"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return nil, fmt.Errorf("parse digitalocean metadata: %w", err)
	}
	if payload.DropletID == 0 {
		return nil, fmt.Errorf("digitalocean metadata missing droplet_id")
	}

	return &models.InstanceMetadata{
		InstanceID:    fmt.Sprintf("%d", payload.DropletID),
		CloudProvider: "digitalocean",
		Region:        payload.Region,
	}, nil
}

func (d *Detector) fetch(ctx context.Context, method, path string, headers map[string]string) (string, error) {
	return d.fetchURL(ctx, method, d.baseURL+path, headers)
}

func (d *Detector) fetchURL(ctx context.Context, method, url string, headers map[string]string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return "", err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("metadata endpoint returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}

// gcpBase returns the GCP metadata host. GCP uses a hostname rather than the
// link-local address, except when the base URL is overridden in tests.
func (d *Detector) gcpBase() string {
	if d.baseURL != "http://169.254.169.254" {
		return d.baseURL
	}
	return "http://metadata.google.internal"
}

// gcpRegionFromZone extracts "us-central1" from
// "projects/123/zones/us-central1-a".
func gcpRegionFromZone(zone string) string {
	if zone == "" {
		return ""
	}
	parts := strings.Split(zone, "/")
	last := parts[len(parts)-1]
	idx := strings.LastIndex(last, "-")
	if idx <= 0 {
		return ""
	}
	return last[:idx]
}
