// Package state persists the resource registration assigned by the platform
// so the agent keeps its identity across restarts. The state is a single
// JSON file written atomically with owner-only permissions.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ResourceState records a completed resource registration.
type ResourceState struct {
	ResourceID   string `json:"resource_id"`
	RegisteredAt string `json:"registered_at"`
	AgentVersion string `json:"agent_version"`
}

// New creates a ResourceState stamped with the current time.
func New(resourceID, agentVersion string) *ResourceState {
	return &ResourceState{
		ResourceID:   resourceID,
		RegisteredAt: time.Now().UTC().Format(time.RFC3339),
		AgentVersion: agentVersion,
	}
}

// DefaultPath returns where the state file lives: the system-wide location
// when /etc/operion exists (service installs), the user config directory
// otherwise.
func DefaultPath() string {
	if _, err := os.Stat("/etc/operion"); err == nil {
		return "/etc/operion/resource-state.json"
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = "."
	}
	return filepath.Join(configDir, "operion", "resource-state.json")
}

// Load reads the state file at path. A missing file is not an error; it
// returns (nil, nil) so callers can fall through to registration.
func Load(path string) (*ResourceState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading state file %s: %w", path, err)
	}

	var st ResourceState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parsing state file %s: %w", path, err)
	}
	return &st, nil
}

// Save writes the state to path via a temp file and rename, so a crash never
// leaves a half-written state behind. The file is owner read/write only.
func (s *ResourceState) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming state file: %w", err)
	}
	return nil
}
