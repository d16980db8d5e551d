package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/pillme/nutrition-service/internal/core/domain"
	"github.com/pillme/nutrition-service/internal/core/ports"
)

// GroupService implements business logic for nutrient group operations.
// Enforces ownership and validates payloads at the boundary: malformed
// entries are rejected, never coerced to 0, since a silently-coerced value
// would misclassify the nutrient as "not consumed".
type GroupService struct {
	intakeRepo    ports.IntakeRepository
	referenceRepo ports.ReferenceRepository
}

// NewGroupService creates a new group service
func NewGroupService(intakeRepo ports.IntakeRepository, referenceRepo ports.ReferenceRepository) *GroupService {
	return &GroupService{
		intakeRepo:    intakeRepo,
		referenceRepo: referenceRepo,
	}
}

// CreateGroupWithIntakes creates a group owned by the user with one entry per
// pair. The write is all-or-nothing: if entry insertion fails the group must
// not persist.
func (s *GroupService) CreateGroupWithIntakes(ctx context.Context, userID uuid.UUID, name string, entries []ports.IntakeEntryRequest) (*domain.NutrientGroup, error) {
	if name == "" {
		return nil, fmt.Errorf("group name cannot be empty")
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("group requires at least one intake entry")
	}

	validated, err := s.validateEntries(ctx, entries)
	if err != nil {
		return nil, err
	}

	group := &domain.NutrientGroup{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      name,
		CreatedAt: time.Now(),
	}

	if err := s.intakeRepo.CreateGroupWithEntries(ctx, group, validated); err != nil {
		return nil, fmt.Errorf("failed to create nutrient group: %w", err)
	}

	return group, nil
}

// UpdateGroupWithIntakes renames the group and updates its existing entries
// matched on nutrient id. Entries absent from the payload keep their prior
// value; payload nutrient ids not present in the group are ignored.
func (s *GroupService) UpdateGroupWithIntakes(ctx context.Context, groupID uuid.UUID, userID uuid.UUID, name string, entries []ports.IntakeEntryRequest) error {
	if name == "" {
		return fmt.Errorf("group name cannot be empty")
	}

	owned, err := s.intakeRepo.CheckGroupOwnership(ctx, groupID, userID)
	if err != nil {
		return fmt.Errorf("failed to check ownership: %w", err)
	}
	if !owned {
		// Don't leak existence info
		return fmt.Errorf("group %w", domain.ErrNotFound)
	}

	validated, err := s.validateEntries(ctx, entries)
	if err != nil {
		return err
	}

	if err := s.intakeRepo.UpdateGroupWithEntries(ctx, groupID, name, validated); err != nil {
		return fmt.Errorf("failed to update nutrient group: %w", err)
	}

	return nil
}

// GetGroup retrieves a group with its entries. Ownership enforced.
func (s *GroupService) GetGroup(ctx context.Context, groupID uuid.UUID, userID uuid.UUID) (*domain.GroupWithEntries, error) {
	owned, err := s.intakeRepo.CheckGroupOwnership(ctx, groupID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check ownership: %w", err)
	}
	if !owned {
		return nil, fmt.Errorf("group %w", domain.ErrNotFound)
	}

	group, err := s.intakeRepo.GetGroupByID(ctx, groupID)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("group %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	entries, err := s.intakeRepo.GetGroupEntries(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group entries: %w", err)
	}

	return &domain.GroupWithEntries{
		NutrientGroup: *group,
		Entries:       entries,
	}, nil
}

// ListGroups retrieves the user's groups
func (s *GroupService) ListGroups(ctx context.Context, userID uuid.UUID) ([]*domain.NutrientGroup, error) {
	groups, err := s.intakeRepo.ListGroups(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return groups, nil
}

// DeleteGroup deletes a group and its entries. Ownership enforced.
func (s *GroupService) DeleteGroup(ctx context.Context, groupID uuid.UUID, userID uuid.UUID) error {
	owned, err := s.intakeRepo.CheckGroupOwnership(ctx, groupID, userID)
	if err != nil {
		return fmt.Errorf("failed to check ownership: %w", err)
	}
	if !owned {
		return fmt.Errorf("group %w", domain.ErrNotFound)
	}

	if err := s.intakeRepo.DeleteGroup(ctx, groupID); err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}

	return nil
}

// validateEntries rejects malformed pairs: non-positive nutrient ids,
// negative or non-finite intakes, duplicate nutrient ids within one payload,
// and nutrient ids missing from the reference catalog.
func (s *GroupService) validateEntries(ctx context.Context, entries []ports.IntakeEntryRequest) ([]domain.IntakeEntry, error) {
	seen := make(map[int64]bool, len(entries))
	validated := make([]domain.IntakeEntry, 0, len(entries))

	for _, e := range entries {
		if e.NutrientID <= 0 {
			return nil, fmt.Errorf("nutrient id must be positive, got %d", e.NutrientID)
		}
		if e.Intake < 0 || math.IsNaN(e.Intake) || math.IsInf(e.Intake, 0) {
			return nil, fmt.Errorf("intake for nutrient %d must be a non-negative number", e.NutrientID)
		}
		if seen[e.NutrientID] {
			return nil, fmt.Errorf("duplicate nutrient id in payload: %d", e.NutrientID)
		}
		seen[e.NutrientID] = true

		exists, err := s.referenceRepo.NutrientExists(ctx, e.NutrientID)
		if err != nil {
			return nil, fmt.Errorf("failed to check nutrient %d: %w", e.NutrientID, err)
		}
		if !exists {
			return nil, fmt.Errorf("unknown nutrient id: %d", e.NutrientID)
		}

		validated = append(validated, domain.IntakeEntry{
			NutrientID: e.NutrientID,
			Intake:     e.Intake,
		})
	}

	return validated, nil
}
