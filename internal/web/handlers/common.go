package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/faceimage"
	"github.com/kozaktomas/face-attendance/internal/kiosk"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

const errInvalidID = "invalid id"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// validationErrorResponse lists failed fields next to the error message.
type validationErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

// respondServiceError maps service errors to HTTP responses. Unknown errors are logged
// and returned as 500 without details.
func respondServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var ve *attendance.ValidationError
	switch {
	case errors.As(err, &ve):
		respondJSON(w, http.StatusBadRequest, validationErrorResponse{Error: "validation failed", Fields: ve.Fields})
	case errors.Is(err, database.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, database.ErrDuplicateKey):
		respondError(w, http.StatusConflict, "external key already enrolled")
	case errors.Is(err, attendance.ErrNoFace):
		respondError(w, http.StatusUnprocessableEntity, "no face detected")
	case errors.Is(err, attendance.ErrInvalidEmbedding):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, faceimage.ErrDecode):
		respondError(w, http.StatusBadRequest, "unsupported image")
	case errors.Is(err, attendance.ErrEmbedderUnavailable):
		respondError(w, http.StatusServiceUnavailable, "face embedding service is not configured")
	case errors.Is(err, kiosk.ErrBusy), errors.Is(err, kiosk.ErrHold):
		w.Header().Set("Retry-After", "1")
		respondError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, context.Canceled):
		// client went away
	default:
		logger.Error("request failed", "method", r.Method, "path", sanitizeForLog(r.URL.Path), "error", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeJSON decodes a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxJSONBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return false
	}
	return true
}

// parseIDParam reads a positive int64 chi URL parameter.
func parseIDParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, errInvalidID)
		return 0, false
	}
	return id, true
}

// isMultipart reports whether the request carries a multipart form.
func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// readFormImage reads the "image" file of a parsed multipart form.
func readFormImage(r *http.Request) ([]byte, error) {
	file, _, err := r.FormFile("image")
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(io.LimitReader(file, constants.MaxUploadSize))
}

// readImageBody returns the uploaded image from a multipart "image" field or a raw image body.
func readImageBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	if isMultipart(r) {
		if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
			respondError(w, http.StatusBadRequest, "failed to parse multipart form")
			return nil, false
		}
		data, err := readFormImage(r)
		if err != nil {
			respondError(w, http.StatusBadRequest, "image file is required")
			return nil, false
		}
		return data, true
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, constants.MaxUploadSize))
	if err != nil {
		respondError(w, http.StatusRequestEntityTooLarge, "image too large")
		return nil, false
	}
	if len(data) == 0 {
		respondError(w, http.StatusBadRequest, "image is required")
		return nil, false
	}
	return data, true
}
