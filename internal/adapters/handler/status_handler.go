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

// StatusHandler handles HTTP requests for the nutrient status engine
type StatusHandler struct {
	statusService ports.StatusService
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(statusService ports.StatusService) *StatusHandler {
	return &StatusHandler{
		statusService: statusService,
	}
}

// UpsertReferenceStandardRequest represents the request body for storing
// one reference standard row
type UpsertReferenceStandardRequest struct {
	NutrientID      int64   `json:"nutrient_id"`
	NutrientName    string  `json:"nutrient_name"`
	Unit            string  `json:"unit"`
	SexBucket       string  `json:"sex_bucket"`
	AgeMin          int     `json:"age_min"`
	AgeMax          int     `json:"age_max"`
	State           string  `json:"state"`
	AverageNeed     float64 `json:"average_need"`
	RecommendIntake float64 `json:"recommend_intake"`
	AdequateIntake  float64 `json:"adequate_intake"`
	LimitIntake     float64 `json:"limit_intake"`
	DeficiencyRisk  *string `json:"deficiency_risk"`
	ExcessRisk      *string `json:"excess_risk"`
}

// ListNutrientStatus handles GET /nutrients/status
// Returns one entry per reference nutrient for the caller's resolved
// profile, ordered by nutrient id
func (h *StatusHandler) ListNutrientStatus(w http.ResponseWriter, r *http.Request) {
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

	statuses, err := h.statusService.ListUserNutrientStatus(r.Context(), userID)
	if err != nil {
		log.Printf("[%s] Failed to list nutrient status: user_id=%s, error=%v", requestID, userIDStr, err)
		if strings.Contains(err.Error(), "profile not found") {
			http.Error(w, "profile not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	logStructured(requestID, userIDStr, isAdmin, "GET", "/nutrients/status", http.StatusOK, time.Since(startTime))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(statuses)
}

// UpsertReferenceStandard handles POST /reference-standards
// ADMIN only - stores one reference standard row
func (h *StatusHandler) UpsertReferenceStandard(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	requestID := generateRequestID()

	userIDStr, ok := middleware.GetUserID(r.Context())
	if !ok {
		log.Printf("[%s] Failed to get user ID from context", requestID)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	isAdmin := middleware.IsAdmin(r.Context())

	var req UpsertReferenceStandardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[%s] Failed to decode request: %v", requestID, err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	std := &domain.NutrientReferenceStandard{
		NutrientID:      req.NutrientID,
		NutrientName:    req.NutrientName,
		Unit:            req.Unit,
		SexBucket:       domain.SexBucket(req.SexBucket),
		AgeMin:          req.AgeMin,
		AgeMax:          req.AgeMax,
		State:           domain.LifeState(req.State),
		AverageNeed:     req.AverageNeed,
		RecommendIntake: req.RecommendIntake,
		AdequateIntake:  req.AdequateIntake,
		LimitIntake:     req.LimitIntake,
		DeficiencyRisk:  req.DeficiencyRisk,
		ExcessRisk:      req.ExcessRisk,
	}

	if err := h.statusService.UpsertReferenceStandard(r.Context(), std, isAdmin); err != nil {
		log.Printf("[%s] Failed to upsert reference standard: user_id=%s, error=%v", requestID, userIDStr, err)
		if strings.HasPrefix(err.Error(), "forbidden") {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	logStructured(requestID, userIDStr, isAdmin, "POST", "/reference-standards", http.StatusCreated, time.Since(startTime))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(std)
}
