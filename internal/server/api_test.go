package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kypin00-web/KAM-Sentinel/internal/metrics"
	"github.com/kypin00-web/KAM-Sentinel/internal/sampler"
	"github.com/kypin00-web/KAM-Sentinel/internal/server"
	"github.com/kypin00-web/KAM-Sentinel/internal/sysinfo"
	"github.com/kypin00-web/KAM-Sentinel/internal/thresholds"
	"github.com/kypin00-web/KAM-Sentinel/internal/warnings"
)

func newTestRouter(t *testing.T) (*gin.Engine, *server.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mgr, err := thresholds.NewManager(thresholds.NewStore(t.TempDir()), "AMD Ryzen 9 5900X", "")
	require.NoError(t, err)

	info := &sysinfo.Info{CPUName: "AMD Ryzen 9 5900X", Hostname: "testbox"}
	store, err := server.OpenStore(filepath.Join(t.TempDir(), "test.db"), info, 100, 100)
	require.NoError(t, err)

	// An unstarted sampler: Latest() is nil until a loop would publish.
	loop := sampler.New(nil, mgr, store, time.Second, 10, 1)

	server.SetJWTSecret("test-secret")
	server.SetAdminCredentials("admin", "hunter2")
	server.Configure(loop, mgr, store, info, "v0.0.0-test")

	r := gin.New()
	server.RegisterRoutes(r)
	return r, store
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, r *gin.Engine) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/login", "",
		gin.H{"username": "admin", "password": "hunter2"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/login", "",
		gin.H{"username": "admin", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/login", "", gin.H{"username": "admin"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatsWarmingUp(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/api/stats", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetThresholds(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/api/thresholds", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var p thresholds.Profile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	require.NotNil(t, p.CPU)
	assert.Equal(t, 90.0, p.CPU.TempCrit, "hardware-detected Ryzen 5000 limit")
}

func TestUpdateThresholdsRequiresToken(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/thresholds", "",
		gin.H{"cpu": gin.H{"temp_warn": 70}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/thresholds", "not-a-jwt",
		gin.H{"cpu": gin.H{"temp_warn": 70}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateAndResetThresholds(t *testing.T) {
	r, _ := newTestRouter(t)
	token := login(t, r)

	w := doJSON(t, r, http.MethodPost, "/api/thresholds", token,
		gin.H{"cpu": gin.H{"temp_warn": 70}})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/thresholds", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var p thresholds.Profile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, 70.0, p.CPU.TempWarn)

	w = doJSON(t, r, http.MethodPost, "/api/thresholds/reset", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/thresholds", "", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, 75.0, p.CPU.TempWarn)
}

func TestUpdateThresholdsValidation(t *testing.T) {
	r, _ := newTestRouter(t)
	token := login(t, r)

	// Unknown section.
	w := doJSON(t, r, http.MethodPost, "/api/thresholds", token,
		gin.H{"disk": gin.H{"usage_warn": 90}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Out-of-range value.
	w = doJSON(t, r, http.MethodPost, "/api/thresholds", token,
		gin.H{"cpu": gin.H{"temp_warn": 99999}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Non-numeric value fails binding.
	w = doJSON(t, r, http.MethodPost, "/api/thresholds", token,
		gin.H{"cpu": gin.H{"temp_warn": "hot"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Empty body.
	w = doJSON(t, r, http.MethodPost, "/api/thresholds", token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Nothing stuck.
	w = doJSON(t, r, http.MethodGet, "/api/thresholds", "", nil)
	var p thresholds.Profile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, 75.0, p.CPU.TempWarn)
}

func TestBaselineAndEvents(t *testing.T) {
	r, store := newTestRouter(t)
	token := login(t, r)

	// Nothing recorded yet.
	w := doJSON(t, r, http.MethodGet, "/api/baseline", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	sample := metrics.Sample{
		CPU:   metrics.CPUMetrics{Usage: 50, Temp: metrics.Float(95)},
		Taken: time.Now(),
	}
	require.NoError(t, store.SaveBaselineOnce(sample))
	require.NoError(t, store.RecordBatch([]sampler.LogEntry{{
		Sample: sample,
		Warnings: []warnings.Warning{{
			ID: "cpu_temp_crit", Level: warnings.LevelCritical, Component: "CPU",
			Message: "CPU temperature critical", Value: 95, Threshold: 90,
		}},
	}}))

	w = doJSON(t, r, http.MethodGet, "/api/baseline", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/events", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data []struct {
			WarningID string `json:"warning_id"`
			Level     string `json:"level"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "cpu_temp_crit", resp.Data[0].WarningID)
	assert.Equal(t, "critical", resp.Data[0].Level)
}

func TestEventsRequireToken(t *testing.T) {
	r, _ := newTestRouter(t)
	w := doJSON(t, r, http.MethodGet, "/api/events", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestVersionAndHealth(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodGet, "/api/version", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "v0.0.0-test")

	w = doJSON(t, r, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
