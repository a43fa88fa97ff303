package handlers

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/web/middleware"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	config   *config.AuthConfig
	tokens   *middleware.TokenManager
	validate *validator.Validate
	logger   *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(cfg *config.AuthConfig, tokens *middleware.TokenManager, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		config:   cfg,
		tokens:   tokens,
		validate: validator.New(),
		logger:   logger,
	}
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

// Login exchanges operator credentials for a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	if !h.tokens.Enabled() || h.config.PasswordHash == "" {
		respondError(w, http.StatusNotFound, "authentication is disabled")
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.config.Username)) == 1
	passErr := bcrypt.CompareHashAndPassword([]byte(h.config.PasswordHash), []byte(req.Password))
	if !userOK || passErr != nil {
		h.logger.Warn("failed login", "username", sanitizeForLog(req.Username), "remote", r.RemoteAddr)
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, expiresAt, err := h.tokens.Issue(req.Username)
	if err != nil {
		h.logger.Error("failed to issue token", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	respondJSON(w, http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	})
}

// StatusResponse represents the auth status response
type StatusResponse struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
}

// Status reports the user of the request. It is mounted behind RequireAuth.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	respondJSON(w, http.StatusOK, StatusResponse{
		Authenticated: user != "" || !h.tokens.Enabled(),
		Username:      user,
	})
}
