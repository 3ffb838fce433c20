// Package server provides the KAM Sentinel Gin-based REST API: live stats,
// system inventory, warning events, and the threshold configuration surface.
package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/kypin00-web/KAM-Sentinel/internal/sampler"
	"github.com/kypin00-web/KAM-Sentinel/internal/sysinfo"
	"github.com/kypin00-web/KAM-Sentinel/internal/thresholds"
)

// Shared handler state, set once at startup before route registration.
var (
	stats    *sampler.Sampler
	profiles *thresholds.Manager
	store    *Store
	system   *sysinfo.Info
	version  string
)

// Configure injects the collaborators the handlers read from.
func Configure(s *sampler.Sampler, p *thresholds.Manager, st *Store, info *sysinfo.Info, ver string) {
	stats = s
	profiles = p
	store = st
	system = info
	version = ver
}

// RegisterRoutes wires up the API.
//
//	Public:          GET  stats/system/thresholds/baseline/version/health, POST login
//	Protected (JWT): POST thresholds, POST thresholds/reset, GET events
func RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")

	// ── Public endpoints ──────────────────────────────────────────────────────
	api.POST("/login", handleLogin)

	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	})

	api.GET("/stats", handleStats)
	api.GET("/system", handleSystem)
	api.GET("/thresholds", handleGetThresholds)
	api.GET("/baseline", handleBaseline)
	api.GET("/version", handleVersion)

	// ── JWT-protected endpoints ───────────────────────────────────────────────
	auth := api.Group("/", JWTMiddleware())
	{
		auth.POST("/thresholds", handleUpdateThresholds)
		auth.POST("/thresholds/reset", handleResetThresholds)
		auth.GET("/events", handleEvents)
	}
}

// ── Handlers ──────────────────────────────────────────────────────────────────

// handleLogin accepts username + password and returns a signed JWT.
//
//	POST /api/login
//	Body: { "username": "admin", "password": "admin" }
func handleLogin(c *gin.Context) {
	var body struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password required"})
		return
	}

	if !checkCredentials(body.Username, body.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := GenerateJWT(body.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_in": 86400, // seconds
		"type":       "Bearer",
	})
}

// handleStats serves the latest published sampler snapshot. Returns 503
// while the first poll cycle has not completed yet.
func handleStats(c *gin.Context) {
	latest := stats.Latest()
	if latest == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "warming up, please retry"})
		return
	}
	c.JSON(http.StatusOK, latest)
}

// handleSystem serves the startup hardware inventory.
func handleSystem(c *gin.Context) {
	c.JSON(http.StatusOK, system)
}

// handleGetThresholds returns the live threshold profile.
func handleGetThresholds(c *gin.Context) {
	c.JSON(http.StatusOK, profiles.Current())
}

// handleUpdateThresholds applies a validated partial update. The whole patch
// is rejected — and the live profile untouched — on any unknown section/key
// or out-of-range value.
//
//	POST /api/thresholds
//	Body: { "cpu": { "temp_warn": 70 }, "ram": { "usage_crit": 95 } }
func handleUpdateThresholds(c *gin.Context) {
	var patch map[string]map[string]float64
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "threshold values must be numeric"})
		return
	}
	if len(patch) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no data"})
		return
	}

	updated, err := profiles.Update(patch)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, thresholds.ErrStorage) {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "saved", "thresholds": updated})
}

// handleResetThresholds discards user customization and re-detects defaults.
func handleResetThresholds(c *gin.Context) {
	p, err := profiles.Reset()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset", "thresholds": p})
}

// handleBaseline serves the write-once first-run snapshot.
func handleBaseline(c *gin.Context) {
	if store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no baseline found"})
		return
	}
	b, err := store.GetBaseline()
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no baseline found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, b)
}

// handleEvents returns recent persisted warning events, newest first.
//
//	GET /api/events?limit=100
func handleEvents(c *gin.Context) {
	if store == nil {
		c.JSON(http.StatusOK, gin.H{"data": []any{}})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	events, err := store.RecentEvents(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": events})
}

// handleVersion reports the build version.
func handleVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"version": version})
}
