package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pillme/nutrition-service/internal/adapters/handler"
	"github.com/pillme/nutrition-service/internal/core/domain"
	"github.com/pillme/nutrition-service/internal/core/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockGroupService is a mock implementation of ports.GroupService
type MockGroupService struct {
	mock.Mock
}

func (m *MockGroupService) CreateGroupWithIntakes(ctx context.Context, userID uuid.UUID, name string, entries []ports.IntakeEntryRequest) (*domain.NutrientGroup, error) {
	args := m.Called(ctx, userID, name, entries)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.NutrientGroup), args.Error(1)
}

func (m *MockGroupService) UpdateGroupWithIntakes(ctx context.Context, groupID uuid.UUID, userID uuid.UUID, name string, entries []ports.IntakeEntryRequest) error {
	args := m.Called(ctx, groupID, userID, name, entries)
	return args.Error(0)
}

func (m *MockGroupService) GetGroup(ctx context.Context, groupID uuid.UUID, userID uuid.UUID) (*domain.GroupWithEntries, error) {
	args := m.Called(ctx, groupID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GroupWithEntries), args.Error(1)
}

func (m *MockGroupService) ListGroups(ctx context.Context, userID uuid.UUID) ([]*domain.NutrientGroup, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.NutrientGroup), args.Error(1)
}

func (m *MockGroupService) DeleteGroup(ctx context.Context, groupID uuid.UUID, userID uuid.UUID) error {
	args := m.Called(ctx, groupID, userID)
	return args.Error(0)
}

// groupMux routes requests through the same patterns main.go registers so
// r.PathValue("group_id") resolves in tests
func groupMux(groupHandler *handler.GroupHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /nutrient-groups", groupHandler.CreateGroup)
	mux.HandleFunc("GET /nutrient-groups", groupHandler.ListGroups)
	mux.HandleFunc("GET /nutrient-groups/{group_id}", groupHandler.GetGroup)
	mux.HandleFunc("PUT /nutrient-groups/{group_id}", groupHandler.UpdateGroup)
	mux.HandleFunc("DELETE /nutrient-groups/{group_id}", groupHandler.DeleteGroup)
	return mux
}

func TestGroupHandler_CreateGroup_Success(t *testing.T) {
	mockService := new(MockGroupService)
	groupHandler := handler.NewGroupHandler(mockService)

	userID := uuid.New()
	created := &domain.NutrientGroup{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      "Morning supplements",
		CreatedAt: time.Now(),
	}
	entries := []ports.IntakeEntryRequest{{NutrientID: 1, Intake: 30}}
	mockService.On("CreateGroupWithIntakes", mock.Anything, userID, "Morning supplements", entries).Return(created, nil)

	reqBody := handler.GroupRequest{Name: "Morning supplements", Entries: entries}
	body, _ := json.Marshal(reqBody)
	req := httptest.NewRequest("POST", "/nutrient-groups", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req = authedRequest(req, userID, "USER")

	w := httptest.NewRecorder()
	groupMux(groupHandler).ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp domain.NutrientGroup
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, created.ID, resp.ID)
	mockService.AssertExpectations(t)
}

func TestGroupHandler_CreateGroup_ValidationError(t *testing.T) {
	mockService := new(MockGroupService)
	groupHandler := handler.NewGroupHandler(mockService)

	userID := uuid.New()
	mockService.On("CreateGroupWithIntakes", mock.Anything, userID, "", mock.Anything).
		Return(nil, fmt.Errorf("group name cannot be empty"))

	reqBody := handler.GroupRequest{Name: "", Entries: []ports.IntakeEntryRequest{{NutrientID: 1, Intake: 30}}}
	body, _ := json.Marshal(reqBody)
	req := httptest.NewRequest("POST", "/nutrient-groups", bytes.NewBuffer(body))
	req = authedRequest(req, userID, "USER")

	w := httptest.NewRecorder()
	groupMux(groupHandler).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGroupHandler_GetGroup_Success(t *testing.T) {
	mockService := new(MockGroupService)
	groupHandler := handler.NewGroupHandler(mockService)

	userID := uuid.New()
	groupID := uuid.New()
	group := &domain.GroupWithEntries{
		NutrientGroup: domain.NutrientGroup{ID: groupID, UserID: userID, Name: "Morning"},
		Entries:       []domain.IntakeEntry{{NutrientID: 1, Intake: 30}},
	}
	mockService.On("GetGroup", mock.Anything, groupID, userID).Return(group, nil)

	req := httptest.NewRequest("GET", "/nutrient-groups/"+groupID.String(), nil)
	req = authedRequest(req, userID, "USER")

	w := httptest.NewRecorder()
	groupMux(groupHandler).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp domain.GroupWithEntries
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, groupID, resp.ID)
	assert.Len(t, resp.Entries, 1)
	mockService.AssertExpectations(t)
}

func TestGroupHandler_GetGroup_NotFound(t *testing.T) {
	mockService := new(MockGroupService)
	groupHandler := handler.NewGroupHandler(mockService)

	userID := uuid.New()
	groupID := uuid.New()
	mockService.On("GetGroup", mock.Anything, groupID, userID).Return(nil, fmt.Errorf("group not found"))

	req := httptest.NewRequest("GET", "/nutrient-groups/"+groupID.String(), nil)
	req = authedRequest(req, userID, "USER")

	w := httptest.NewRecorder()
	groupMux(groupHandler).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGroupHandler_GetGroup_InvalidID(t *testing.T) {
	mockService := new(MockGroupService)
	groupHandler := handler.NewGroupHandler(mockService)

	req := httptest.NewRequest("GET", "/nutrient-groups/not-a-uuid", nil)
	req = authedRequest(req, uuid.New(), "USER")

	w := httptest.NewRecorder()
	groupMux(groupHandler).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "GetGroup")
}

func TestGroupHandler_UpdateGroup_Success(t *testing.T) {
	mockService := new(MockGroupService)
	groupHandler := handler.NewGroupHandler(mockService)

	userID := uuid.New()
	groupID := uuid.New()
	entries := []ports.IntakeEntryRequest{{NutrientID: 1, Intake: 40}}
	mockService.On("UpdateGroupWithIntakes", mock.Anything, groupID, userID, "Renamed", entries).Return(nil)

	reqBody := handler.GroupRequest{Name: "Renamed", Entries: entries}
	body, _ := json.Marshal(reqBody)
	req := httptest.NewRequest("PUT", "/nutrient-groups/"+groupID.String(), bytes.NewBuffer(body))
	req = authedRequest(req, userID, "USER")

	w := httptest.NewRecorder()
	groupMux(groupHandler).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	mockService.AssertExpectations(t)
}

func TestGroupHandler_DeleteGroup_NotOwned(t *testing.T) {
	mockService := new(MockGroupService)
	groupHandler := handler.NewGroupHandler(mockService)

	userID := uuid.New()
	groupID := uuid.New()
	mockService.On("DeleteGroup", mock.Anything, groupID, userID).Return(fmt.Errorf("group not found"))

	req := httptest.NewRequest("DELETE", "/nutrient-groups/"+groupID.String(), nil)
	req = authedRequest(req, userID, "USER")

	w := httptest.NewRecorder()
	groupMux(groupHandler).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGroupHandler_ListGroups_Success(t *testing.T) {
	mockService := new(MockGroupService)
	groupHandler := handler.NewGroupHandler(mockService)

	userID := uuid.New()
	groups := []*domain.NutrientGroup{
		{ID: uuid.New(), UserID: userID, Name: "Morning"},
		{ID: uuid.New(), UserID: userID, Name: "Evening"},
	}
	mockService.On("ListGroups", mock.Anything, userID).Return(groups, nil)

	req := httptest.NewRequest("GET", "/nutrient-groups", nil)
	req = authedRequest(req, userID, "USER")

	w := httptest.NewRecorder()
	groupMux(groupHandler).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp []*domain.NutrientGroup
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Len(t, resp, 2)
}
