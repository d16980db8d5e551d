package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pillme/nutrition-service/internal/adapters/middleware"
	"github.com/pillme/nutrition-service/internal/core/ports"
)

// GroupHandler handles HTTP requests for nutrient group operations
type GroupHandler struct {
	groupService ports.GroupService
}

// NewGroupHandler creates a new group handler
func NewGroupHandler(groupService ports.GroupService) *GroupHandler {
	return &GroupHandler{
		groupService: groupService,
	}
}

// GroupRequest represents the request body for creating or updating a group
type GroupRequest struct {
	Name    string                     `json:"name"`
	Entries []ports.IntakeEntryRequest `json:"entries"`
}

// CreateGroup handles POST /nutrient-groups
// Creates a group owned by the caller with its intake entries, atomically
func (h *GroupHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
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

	var req GroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[%s] Failed to decode request: %v", requestID, err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	group, err := h.groupService.CreateGroupWithIntakes(r.Context(), userID, req.Name, req.Entries)
	if err != nil {
		log.Printf("[%s] Failed to create group: user_id=%s, error=%v", requestID, userIDStr, err)
		if strings.Contains(err.Error(), "failed to create nutrient group") {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	logStructured(requestID, userIDStr, isAdmin, "POST", "/nutrient-groups", http.StatusCreated, time.Since(startTime))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(group)
}

// ListGroups handles GET /nutrient-groups
// Lists the caller's groups
func (h *GroupHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
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

	groups, err := h.groupService.ListGroups(r.Context(), userID)
	if err != nil {
		log.Printf("[%s] Failed to list groups: user_id=%s, error=%v", requestID, userIDStr, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	logStructured(requestID, userIDStr, isAdmin, "GET", "/nutrient-groups", http.StatusOK, time.Since(startTime))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(groups)
}

// GetGroup handles GET /nutrient-groups/{group_id}
// Owner only - a foreign group id reads as not found
func (h *GroupHandler) GetGroup(w http.ResponseWriter, r *http.Request) {
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

	groupIDStr := r.PathValue("group_id")
	groupID, err := uuid.Parse(groupIDStr)
	if err != nil {
		log.Printf("[%s] Invalid group ID: %v", requestID, err)
		http.Error(w, "invalid group ID", http.StatusBadRequest)
		return
	}

	group, err := h.groupService.GetGroup(r.Context(), groupID, userID)
	if err != nil {
		log.Printf("[%s] Failed to get group: user_id=%s, group_id=%s, error=%v", requestID, userIDStr, groupIDStr, err)
		if strings.Contains(err.Error(), "group not found") {
			http.Error(w, "group not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	logStructured(requestID, userIDStr, isAdmin, "GET", "/nutrient-groups/"+groupIDStr, http.StatusOK, time.Since(startTime))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(group)
}

// UpdateGroup handles PUT /nutrient-groups/{group_id}
// Owner only - renames the group and updates its existing entries
func (h *GroupHandler) UpdateGroup(w http.ResponseWriter, r *http.Request) {
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

	groupIDStr := r.PathValue("group_id")
	groupID, err := uuid.Parse(groupIDStr)
	if err != nil {
		log.Printf("[%s] Invalid group ID: %v", requestID, err)
		http.Error(w, "invalid group ID", http.StatusBadRequest)
		return
	}

	var req GroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("[%s] Failed to decode request: %v", requestID, err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.groupService.UpdateGroupWithIntakes(r.Context(), groupID, userID, req.Name, req.Entries); err != nil {
		log.Printf("[%s] Failed to update group: user_id=%s, group_id=%s, error=%v", requestID, userIDStr, groupIDStr, err)
		if strings.Contains(err.Error(), "group not found") {
			http.Error(w, "group not found", http.StatusNotFound)
			return
		}
		if strings.Contains(err.Error(), "failed to update nutrient group") {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	logStructured(requestID, userIDStr, isAdmin, "PUT", "/nutrient-groups/"+groupIDStr, http.StatusOK, time.Since(startTime))

	w.WriteHeader(http.StatusNoContent)
}

// DeleteGroup handles DELETE /nutrient-groups/{group_id}
// Owner only - removes the group and its entries
func (h *GroupHandler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
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

	groupIDStr := r.PathValue("group_id")
	groupID, err := uuid.Parse(groupIDStr)
	if err != nil {
		log.Printf("[%s] Invalid group ID: %v", requestID, err)
		http.Error(w, "invalid group ID", http.StatusBadRequest)
		return
	}

	if err := h.groupService.DeleteGroup(r.Context(), groupID, userID); err != nil {
		log.Printf("[%s] Failed to delete group: user_id=%s, group_id=%s, error=%v", requestID, userIDStr, groupIDStr, err)
		if strings.Contains(err.Error(), "group not found") {
			http.Error(w, "group not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	logStructured(requestID, userIDStr, isAdmin, "DELETE", "/nutrient-groups/"+groupIDStr, http.StatusNoContent, time.Since(startTime))

	w.WriteHeader(http.StatusNoContent)
}
