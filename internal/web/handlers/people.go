package handlers

import (
	"log/slog"
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// PhotoReader reads stored face images.
type PhotoReader interface {
	Read(path string) ([]byte, error)
}

// PeopleHandler handles enrollment and identity management endpoints
type PeopleHandler struct {
	service *attendance.Service
	photos  PhotoReader
	logger  *slog.Logger
}

// NewPeopleHandler creates a new people handler
func NewPeopleHandler(service *attendance.Service, photos PhotoReader, logger *slog.Logger) *PeopleHandler {
	return &PeopleHandler{service: service, photos: photos, logger: logger}
}

// PeopleListResponse is the people list payload.
type PeopleListResponse struct {
	Count  int                 `json:"count"`
	People []database.Identity `json:"people"`
}

// List returns enrolled people, filtered by the optional q parameter.
func (h *PeopleHandler) List(w http.ResponseWriter, r *http.Request) {
	people, err := h.service.SearchPeople(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, PeopleListResponse{Count: len(people), People: people})
}

// Get returns one identity.
func (h *PeopleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	identity, err := h.service.GetIdentity(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	if identity == nil {
		respondError(w, http.StatusNotFound, "person not found")
		return
	}
	respondJSON(w, http.StatusOK, identity)
}

// enrollEmbeddingRequest enrolls a person from a precomputed embedding.
type enrollEmbeddingRequest struct {
	attendance.EnrollRequest
	Embedding []float32 `json:"embedding"`
}

// Create enrolls a person. A multipart form with external_key, given_name, family_name
// and an image file runs face detection; a JSON body with an embedding skips it.
func (h *PeopleHandler) Create(w http.ResponseWriter, r *http.Request) {
	if isMultipart(r) {
		if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
			respondError(w, http.StatusBadRequest, "failed to parse multipart form")
			return
		}
		imageData, err := readFormImage(r)
		if err != nil {
			respondError(w, http.StatusBadRequest, "image file is required")
			return
		}
		req := attendance.EnrollRequest{
			ExternalKey: r.FormValue("external_key"),
			GivenName:   r.FormValue("given_name"),
			FamilyName:  r.FormValue("family_name"),
		}
		identity, err := h.service.Enroll(r.Context(), req, imageData)
		if err != nil {
			respondServiceError(w, r, h.logger, err)
			return
		}
		respondJSON(w, http.StatusCreated, identity)
		return
	}

	var req enrollEmbeddingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	identity, err := h.service.EnrollEmbedding(r.Context(), req.EnrollRequest, req.Embedding)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, identity)
}

// Update changes a person's names.
func (h *PeopleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	var req attendance.UpdateNamesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	identity, err := h.service.UpdateNames(r.Context(), id, req)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, identity)
}

// Delete removes a person with their attendance and photo.
func (h *PeopleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteIdentity(r.Context(), id); err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Photo serves the stored face crop.
func (h *PeopleHandler) Photo(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	identity, err := h.service.GetIdentity(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	if identity == nil || identity.FacePhotoPath == "" || h.photos == nil {
		respondError(w, http.StatusNotFound, "photo not found")
		return
	}
	data, err := h.photos.Read(identity.FacePhotoPath)
	if err != nil {
		h.logger.Warn("failed to read face image", "identity_id", id, "error", err)
		respondError(w, http.StatusNotFound, "photo not found")
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// LastAttendance returns the most recent record of a person.
func (h *PeopleHandler) LastAttendance(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	record, err := h.service.LastRecord(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, h.logger, err)
		return
	}
	if record == nil {
		respondError(w, http.StatusNotFound, "no attendance recorded")
		return
	}
	respondJSON(w, http.StatusOK, record)
}
