package registration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/operion/sentinel-agent/internal/config"
	"github.com/operion/sentinel-agent/internal/models"
	"github.com/operion/sentinel-agent/internal/state"
)

func testConfig(endpoint, apiKey string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Agent.ID = "agent-42"
	cfg.Agent.Hostname = "test-host"
	cfg.API.Endpoint = endpoint
	cfg.API.APIKey = apiKey
	cfg.API.TimeoutSeconds = 2
	return cfg
}

func TestRegister_NewRegistration(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/resources" {
			// Cloud metadata probes may land here through the endpoint; 404 them.
			http.NotFound(w, r)
			return
		}
		requests.Add(1)

		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var reg models.ResourceRegistration
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&reg)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, "test-host", reg.Hostname)
		assert.NotEmpty(t, reg.Platform)
		assert.NotEmpty(t, reg.Arch)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(models.RegistrationResponse{
			ResourceID: "res_987",
			Status:     "registered",
		})
	}))
	defer srv.Close()

	statePath := filepath.Join(t.TempDir(), "resource-state.json")
	reg := New(testConfig(srv.URL, "secret"), statePath, "1.0.0", zap.NewNop())

	resourceID := reg.Register(context.Background(), nil)
	assert.Equal(t, "res_987", resourceID)
	assert.Equal(t, int32(1), requests.Load())

	st, err := state.Load(statePath)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, "res_987", st.ResourceID)
	assert.Equal(t, "1.0.0", st.AgentVersion)
}

func TestRegister_ReusesPersistedState(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer srv.Close()

	statePath := filepath.Join(t.TempDir(), "resource-state.json")
	require.NoError(t, state.New("res_existing", "0.9.0").Save(statePath))

	reg := New(testConfig(srv.URL, "secret"), statePath, "1.0.0", zap.NewNop())
	resourceID := reg.Register(context.Background(), nil)

	assert.Equal(t, "res_existing", resourceID)
	assert.Equal(t, int32(0), requests.Load())
}

func TestRegister_SkippedWithoutAPIKey(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "resource-state.json")
	reg := New(testConfig("https://api.example.com", ""), statePath, "1.0.0", zap.NewNop())

	resourceID := reg.Register(context.Background(), nil)
	assert.Equal(t, "agent-42", resourceID)
}

func TestRegister_FailureFallsBackToAgentID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	statePath := filepath.Join(t.TempDir(), "resource-state.json")
	reg := New(testConfig(srv.URL, "secret"), statePath, "1.0.0", zap.NewNop())

	resourceID := reg.Register(context.Background(), nil)
	assert.Equal(t, "agent-42", resourceID)

	st, err := state.Load(statePath)
	require.NoError(t, err)
	assert.Nil(t, st)
}
