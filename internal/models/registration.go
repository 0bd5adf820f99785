package models

// ResourceRegistration is the payload sent to POST /api/v1/resources when the
// agent registers itself with the platform.
type ResourceRegistration struct {
	Hostname         string            `json:"hostname"`
	AgentVersion     string            `json:"agent_version"`
	Platform         string            `json:"platform"`
	Arch             string            `json:"arch"`
	InstanceMetadata *InstanceMetadata `json:"instance_metadata"`
	Session          *SessionInfo      `json:"session,omitempty"`
}

// RegistrationResponse is the platform's answer to a registration request.
type RegistrationResponse struct {
	ResourceID string `json:"resource_id"`
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
}

// InstanceMetadata describes the cloud instance the agent runs on, when one
// can be detected. All fields are empty for on-premises hosts.
type InstanceMetadata struct {
	InstanceID    string `json:"instance_id,omitempty"`
	CloudProvider string `json:"cloud_provider,omitempty"`
	Region        string `json:"region,omitempty"`
	InstanceType  string `json:"instance_type,omitempty"`
}
