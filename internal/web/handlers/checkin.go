package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/kiosk"
)

// CheckInHandler handles check-in and kiosk endpoints
type CheckInHandler struct {
	service  *attendance.Service
	pipeline *kiosk.Pipeline
	logger   *slog.Logger
}

// NewCheckInHandler creates a new check-in handler
func NewCheckInHandler(service *attendance.Service, pipeline *kiosk.Pipeline, logger *slog.Logger) *CheckInHandler {
	return &CheckInHandler{service: service, pipeline: pipeline, logger: logger}
}

type checkInRequest struct {
	Embedding []float32 `json:"embedding"`
}

// CheckIn checks in a JSON embedding or the best face of an uploaded image.
// Cooldown and not-recognized results are returned with 200 and their outcome.
func (h *CheckInHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var (
		result *attendance.CheckInResult
		err    error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req checkInRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		result, err = h.service.CheckIn(r.Context(), req.Embedding)
	} else {
		imageData, ok := readImageBody(w, r)
		if !ok {
			return
		}
		result, err = h.service.CheckInImage(r.Context(), imageData)
	}
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// stationFromRequest reads the kiosk station from the query or X-Station header.
func stationFromRequest(r *http.Request) string {
	if s := r.URL.Query().Get("station"); s != "" {
		return sanitizeForLog(s)
	}
	return sanitizeForLog(r.Header.Get("X-Station"))
}

// Frame runs one camera frame through the kiosk pipeline.
// Dropped frames return 429; frames without a face return 422 with the attempt.
func (h *CheckInHandler) Frame(w http.ResponseWriter, r *http.Request) {
	frame, ok := readImageBody(w, r)
	if !ok {
		return
	}
	attempt, err := h.pipeline.Process(r.Context(), stationFromRequest(r), frame)
	if errors.Is(err, kiosk.ErrNoFace) {
		respondJSON(w, http.StatusUnprocessableEntity, attempt)
		return
	}
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, attempt)
}

// KioskStatusResponse describes a station.
type KioskStatusResponse struct {
	Station string         `json:"station"`
	Busy    bool           `json:"busy"`
	Held    bool           `json:"held"`
	Last    *kiosk.Attempt `json:"last,omitempty"`
}

// Last returns the last completed attempt of a station.
func (h *CheckInHandler) Last(w http.ResponseWriter, r *http.Request) {
	station := stationFromRequest(r)
	if station == "" {
		station = constants.DefaultStation
	}
	last, _ := h.pipeline.LastAttempt(station)
	respondJSON(w, http.StatusOK, KioskStatusResponse{
		Station: station,
		Busy:    h.pipeline.Busy(),
		Held:    h.pipeline.Held(station),
		Last:    last,
	})
}

// Events streams kiosk events as server-sent events, optionally filtered by station.
func (h *CheckInHandler) Events(w http.ResponseWriter, r *http.Request) {
	streamKioskEvents(w, r, h.pipeline.Events(), stationFromRequest(r))
}
