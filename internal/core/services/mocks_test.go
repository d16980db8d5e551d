package services_test

import (
	"context"

	"github.com/google/uuid"
	"github.com/pillme/nutrition-service/internal/core/domain"
	"github.com/stretchr/testify/mock"
)

// MockProfileRepository is a mock implementation of ports.ProfileRepository
type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) CreateUserProfile(ctx context.Context, profile *domain.UserProfile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *MockProfileRepository) GetUserProfile(ctx context.Context, userID uuid.UUID) (*domain.UserProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserProfile), args.Error(1)
}

func (m *MockProfileRepository) UpdateUserProfile(ctx context.Context, profile *domain.UserProfile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

// MockReferenceRepository is a mock implementation of ports.ReferenceRepository
type MockReferenceRepository struct {
	mock.Mock
}

func (m *MockReferenceRepository) GetReferenceStandards(ctx context.Context, bucket domain.SexBucket, age int, state domain.LifeState) ([]*domain.NutrientReferenceStandard, error) {
	args := m.Called(ctx, bucket, age, state)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.NutrientReferenceStandard), args.Error(1)
}

func (m *MockReferenceRepository) NutrientExists(ctx context.Context, nutrientID int64) (bool, error) {
	args := m.Called(ctx, nutrientID)
	return args.Bool(0), args.Error(1)
}

func (m *MockReferenceRepository) UpsertReferenceStandard(ctx context.Context, std *domain.NutrientReferenceStandard) error {
	args := m.Called(ctx, std)
	return args.Error(0)
}

// MockIntakeRepository is a mock implementation of ports.IntakeRepository
type MockIntakeRepository struct {
	mock.Mock
}

func (m *MockIntakeRepository) GetUserNutrientTotals(ctx context.Context, userID uuid.UUID) (map[int64]float64, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]float64), args.Error(1)
}

func (m *MockIntakeRepository) CreateGroupWithEntries(ctx context.Context, group *domain.NutrientGroup, entries []domain.IntakeEntry) error {
	args := m.Called(ctx, group, entries)
	return args.Error(0)
}

func (m *MockIntakeRepository) UpdateGroupWithEntries(ctx context.Context, groupID uuid.UUID, name string, entries []domain.IntakeEntry) error {
	args := m.Called(ctx, groupID, name, entries)
	return args.Error(0)
}

func (m *MockIntakeRepository) GetGroupByID(ctx context.Context, groupID uuid.UUID) (*domain.NutrientGroup, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.NutrientGroup), args.Error(1)
}

func (m *MockIntakeRepository) GetGroupEntries(ctx context.Context, groupID uuid.UUID) ([]domain.IntakeEntry, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.IntakeEntry), args.Error(1)
}

func (m *MockIntakeRepository) ListGroups(ctx context.Context, userID uuid.UUID) ([]*domain.NutrientGroup, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.NutrientGroup), args.Error(1)
}

func (m *MockIntakeRepository) CheckGroupOwnership(ctx context.Context, groupID uuid.UUID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, groupID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockIntakeRepository) DeleteGroup(ctx context.Context, groupID uuid.UUID) error {
	args := m.Called(ctx, groupID)
	return args.Error(0)
}

// MockAlertPublisher is a mock implementation of ports.AlertPublisher
type MockAlertPublisher struct {
	mock.Mock
}

func (m *MockAlertPublisher) PublishRiskAlert(ctx context.Context, userID uuid.UUID, status *domain.NutrientStatus) error {
	args := m.Called(ctx, userID, status)
	return args.Error(0)
}
