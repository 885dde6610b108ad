package http_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	httpAdapter "github.com/chiillbro/aether-incident-response-sub000/internal/adapters/primary/http"
	"github.com/chiillbro/aether-incident-response-sub000/internal/core/mocks"
	"github.com/chiillbro/aether-incident-response-sub000/internal/core/ports"
)

type fixedStats struct{ clients, channels int }

func (s fixedStats) GetClientCount() int  { return s.clients }
func (s fixedStats) GetChannelCount() int { return s.channels }

func healthRouter(checkers map[string]ports.HealthChecker) http.Handler {
	h := httpAdapter.NewHealthHandler("1.2.3", fixedStats{clients: 3, channels: 5}, checkers)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func TestHealthHandler_Liveness(t *testing.T) {
	rec := get(t, healthRouter(nil), "/health/live", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"healthy"`)
}

func TestHealthHandler_ReadinessHealthy(t *testing.T) {
	db := &mocks.MockHealthChecker{}
	db.On("Ping", mock.Anything).Return(nil)
	nats := &mocks.MockHealthChecker{}
	nats.On("Ping", mock.Anything).Return(nil)

	rec := get(t, healthRouter(map[string]ports.HealthChecker{"database": db, "nats": nats}), "/health/ready", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body httpAdapter.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "1.2.3", body.Version)
	assert.Equal(t, "healthy", body.Checks["database"].Status)
	assert.Equal(t, "healthy", body.Checks["nats"].Status)
}

func TestHealthHandler_ReadinessUnhealthy(t *testing.T) {
	db := &mocks.MockHealthChecker{}
	db.On("Ping", mock.Anything).Return(errors.New("connection refused"))

	rec := get(t, healthRouter(map[string]ports.HealthChecker{"database": db}), "/health/ready", "")

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body httpAdapter.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "connection refused", body.Checks["database"].Message)
}

func TestHealthHandler_DetailedIncludesRealtimeStats(t *testing.T) {
	db := &mocks.MockHealthChecker{}
	db.On("Ping", mock.Anything).Return(nil)

	rec := get(t, healthRouter(map[string]ports.HealthChecker{"database": db}), "/health", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Status   string `json:"status"`
		Realtime struct {
			Connections int `json:"connections"`
			Channels    int `json:"channels"`
		} `json:"realtime"`
		Goroutines int `json:"goroutines"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, 3, body.Realtime.Connections)
	assert.Equal(t, 5, body.Realtime.Channels)
	assert.Positive(t, body.Goroutines)
}

func TestHealthHandler_MissingCheckerIsUnhealthy(t *testing.T) {
	rec := get(t, healthRouter(map[string]ports.HealthChecker{"nats": nil}), "/health", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "degraded")
}
