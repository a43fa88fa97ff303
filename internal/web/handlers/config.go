package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/config"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config *config.Config
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{
		config: cfg,
	}
}

// ConfigResponse is the matching and kiosk configuration shown to clients.
type ConfigResponse struct {
	Metric            string  `json:"metric"`
	DistanceThreshold float64 `json:"distance_threshold"`
	CooldownMillis    int64   `json:"cooldown_millis"`
	ResultHoldMillis  int64   `json:"result_hold_millis"`
	EmbeddingDim      int     `json:"embedding_dim"`
	Timezone          string  `json:"timezone"`
	AuthEnabled       bool    `json:"auth_enabled"`
}

// Get returns the public configuration
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	ac := h.config.AttendanceConfig()
	respondJSON(w, http.StatusOK, ConfigResponse{
		Metric:            h.config.Matching.Metric,
		DistanceThreshold: ac.DistanceThreshold,
		CooldownMillis:    ac.CooldownMillis,
		ResultHoldMillis:  h.config.Kiosk.ResultHold.Milliseconds(),
		EmbeddingDim:      h.config.Embedding.Dim,
		Timezone:          h.config.Attendance.Timezone,
		AuthEnabled:       h.config.Auth.JWTSecret != "",
	})
}
