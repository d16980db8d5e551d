package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pillme/nutrition-service/internal/adapters/middleware"
	"github.com/pillme/nutrition-service/internal/core/domain"
	"github.com/pillme/nutrition-service/internal/core/ports"
)

// ProfileHandler handles HTTP requests for profile operations
type ProfileHandler struct {
	profileService ports.ProfileService
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profileService ports.ProfileService) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
	}
}

// UpdateProfileRequest represents the request body for updating a profile
type UpdateProfileRequest struct {
	Birthdate string `json:"birthdate"` // ISO date, YYYY-MM-DD
	Sex       string `json:"sex"`
	Pregnant  bool   `json:"pregnant"`
	Lactating bool   `json:"lactating"`
}

// GetProfile handles GET /profile
// Returns the caller's resolved profile: derived age plus demographic flags
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	requestID := generateRequestID()

	userIDStr, ok := middleware.GetUserID(r.Context())
	if !ok {
		log.Printf("[%s] Failed to get user ID from context", requestID)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		log.Printf("[%s] Invalid user ID: %v", requestID, err)
		http.Error(w, "invalid user ID", http.StatusBadRequest)
		return
	}

	isAdmin := middleware.IsAdmin(r.Context())

	profile, err := h.profileService.GetProfileBasic(r.Context(), userID)
	if err != nil {
		log.Printf("[%s] Failed to get profile: user_id=%s, error=%v", requestID, userIDStr, err)
		if strings.Contains(err.Error(), "profile not found") {
			http.Error(w, "profile not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	logStructured(requestID, userIDStr, isAdmin, "GET", "/profile", http.StatusOK, time.Since(startTime))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(profile)
}

// UpdateProfile handles PUT /profile
// Replaces the caller's demographic fields
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	requestID := generateRequestID()

	userIDStr, ok := middleware.GetUserID(r.Context())
	if !ok {
		log.Printf("[%s] Failed to get user ID from context", requestID)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		log.Printf("[%s] Invalid user ID: %v", requestID, err)
		http.Error(w, "invalid user ID", http.StatusBadRequest)
		return
	}

	isAdmin := middleware.IsAdmin(r.Context())

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[%s] Failed to decode request: %v", requestID, err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	birthdate, err := time.Parse("2006-01-02", req.Birthdate)
	if err != nil {
		log.Printf("[%s] Invalid birthdate: %v", requestID, err)
		http.Error(w, "birthdate must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	profile, err := h.profileService.UpdateProfile(r.Context(), userID, birthdate, domain.Sex(req.Sex), req.Pregnant, req.Lactating)
	if err != nil {
		log.Printf("[%s] Failed to update profile: user_id=%s, error=%v", requestID, userIDStr, err)
		if strings.Contains(err.Error(), "profile not found") {
			http.Error(w, "profile not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	logStructured(requestID, userIDStr, isAdmin, "PUT", "/profile", http.StatusOK, time.Since(startTime))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(profile)
}
