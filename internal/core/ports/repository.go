package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/pillme/nutrition-service/internal/core/domain"
)

// ProfileRepository defines the interface for user profile persistence
type ProfileRepository interface {
	// CreateUserProfile inserts a new profile row
	// (driven by identity-service registration events)
	CreateUserProfile(ctx context.Context, profile *domain.UserProfile) error

	// GetUserProfile retrieves a profile by user id.
	// Returns an error if the profile doesn't exist; there is no default profile.
	GetUserProfile(ctx context.Context, userID uuid.UUID) (*domain.UserProfile, error)

	// UpdateUserProfile replaces birthdate, sex and life-state flags
	UpdateUserProfile(ctx context.Context, profile *domain.UserProfile) error
}

// ReferenceRepository reads the immutable nutrient reference intake data
type ReferenceRepository interface {
	// GetReferenceStandards returns the standards matching the lookup key,
	// ordered by nutrient id. Age is in years, or months for the infant bucket.
	GetReferenceStandards(ctx context.Context, bucket domain.SexBucket, age int, state domain.LifeState) ([]*domain.NutrientReferenceStandard, error)

	// NutrientExists checks whether a nutrient id appears in the reference catalog
	NutrientExists(ctx context.Context, nutrientID int64) (bool, error)

	// UpsertReferenceStandard inserts or replaces one reference row (ADMIN tooling)
	UpsertReferenceStandard(ctx context.Context, std *domain.NutrientReferenceStandard) error
}

// IntakeRepository defines the interface for nutrient group persistence.
// The composite writes are transactional: partial failure leaves prior state intact.
type IntakeRepository interface {
	// GetUserNutrientTotals sums logged intake per nutrient across all of the
	// user's groups. Nutrients with no entries are absent from the map, not 0.
	GetUserNutrientTotals(ctx context.Context, userID uuid.UUID) (map[int64]float64, error)

	// CreateGroupWithEntries creates the group row and one entry per pair in
	// a single transaction; the group must not persist without its entries.
	CreateGroupWithEntries(ctx context.Context, group *domain.NutrientGroup, entries []domain.IntakeEntry) error

	// UpdateGroupWithEntries renames the group and updates existing entries
	// matched on nutrient id, in a single transaction. Payload entries whose
	// nutrient id is not present in the group are ignored.
	UpdateGroupWithEntries(ctx context.Context, groupID uuid.UUID, name string, entries []domain.IntakeEntry) error

	// GetGroupByID retrieves a group row
	GetGroupByID(ctx context.Context, groupID uuid.UUID) (*domain.NutrientGroup, error)

	// GetGroupEntries retrieves a group's intake rows ordered by nutrient id
	GetGroupEntries(ctx context.Context, groupID uuid.UUID) ([]domain.IntakeEntry, error)

	// ListGroups retrieves all groups owned by a user, newest first
	ListGroups(ctx context.Context, userID uuid.UUID) ([]*domain.NutrientGroup, error)

	// CheckGroupOwnership checks if a group belongs to a specific user
	CheckGroupOwnership(ctx context.Context, groupID uuid.UUID, userID uuid.UUID) (bool, error)

	// DeleteGroup deletes a group and its entries
	DeleteGroup(ctx context.Context, groupID uuid.UUID) error
}

// AlertPublisher defines the interface for publishing nutrient risk alerts
// to RabbitMQ (consumed downstream by the notification service)
type AlertPublisher interface {
	// PublishRiskAlert publishes an alert event for an excess-intake or
	// deficiency-risk nutrient status
	PublishRiskAlert(ctx context.Context, userID uuid.UUID, status *domain.NutrientStatus) error
}
