package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// AttendanceHandler handles attendance record endpoints
type AttendanceHandler struct {
	service *attendance.Service
	logger  *slog.Logger
}

// NewAttendanceHandler creates a new attendance handler
func NewAttendanceHandler(service *attendance.Service, logger *slog.Logger) *AttendanceHandler {
	return &AttendanceHandler{service: service, logger: logger}
}

// parseTimeParam accepts milliseconds since epoch or RFC 3339.
func parseTimeParam(value string) (int64, bool) {
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		return ms, true
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return 0, false
	}
	return t.UnixMilli(), true
}

// RecordsResponse is the attendance list payload.
type RecordsResponse struct {
	Start   int64                      `json:"start"`
	End     int64                      `json:"end"`
	Count   int                        `json:"count"`
	Entries []database.AttendanceEntry `json:"entries"`
}

// List returns records between the start and end query parameters (inclusive).
// end defaults to now and start to 24 hours before end.
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	end := time.Now().UnixMilli()
	if v := q.Get("end"); v != "" {
		var ok bool
		if end, ok = parseTimeParam(v); !ok {
			respondError(w, http.StatusBadRequest, "invalid end")
			return
		}
	}
	start := end - (24 * time.Hour).Milliseconds()
	if v := q.Get("start"); v != "" {
		var ok bool
		if start, ok = parseTimeParam(v); !ok {
			respondError(w, http.StatusBadRequest, "invalid start")
			return
		}
	}

	entries, err := h.service.Records(r.Context(), start, end)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, RecordsResponse{Start: start, End: end, Count: len(entries), Entries: entries})
}

// Day returns the report of the date query parameter (YYYY-MM-DD, default today)
// in the configured timezone.
func (h *AttendanceHandler) Day(w http.ResponseWriter, r *http.Request) {
	loc := h.service.Location()
	day := time.Now().In(loc)
	if v := r.URL.Query().Get("date"); v != "" {
		d, err := time.ParseInLocation(time.DateOnly, v, loc)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
		day = d
	}

	report, err := h.service.DayReport(r.Context(), day)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

type updateRecordRequest struct {
	Timestamp int64 `json:"timestamp"`
}

// Update changes the timestamp of a record.
func (h *AttendanceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	var req updateRecordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	record, err := h.service.UpdateRecordTime(r.Context(), id, req.Timestamp)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, record)
}

// Delete removes a record.
func (h *AttendanceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteRecord(r.Context(), id); err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
