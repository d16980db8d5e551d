package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pillme/nutrition-service/internal/core/domain"
)

// ProfileBasic is the resolved profile summary returned to the client:
// the derived age pair plus the stored demographic flags
type ProfileBasic struct {
	AgeYears  int        `json:"age_years"`
	AgeMonths int        `json:"age_months"`
	Sex       domain.Sex `json:"sex"`
	Pregnant  bool       `json:"pregnant"`
	Lactating bool       `json:"lactating"`
}

// ProfileService defines the business logic interface for profile operations
type ProfileService interface {
	// GetProfileBasic resolves the stored profile into its derived age and flags.
	// A missing profile is an error, never a default.
	GetProfileBasic(ctx context.Context, userID uuid.UUID) (*ProfileBasic, error)

	// CreateProfile creates the profile row for a newly registered user
	CreateProfile(ctx context.Context, userID uuid.UUID, birthdate time.Time, sex domain.Sex, pregnant, lactating bool) (*domain.UserProfile, error)

	// UpdateProfile replaces the profile's demographic fields
	UpdateProfile(ctx context.Context, userID uuid.UUID, birthdate time.Time, sex domain.Sex, pregnant, lactating bool) (*domain.UserProfile, error)
}

// StatusService defines the business logic interface for the nutrient
// intake status engine
type StatusService interface {
	// ListUserNutrientStatus resolves the user's profile, looks up the
	// reference standards for their bucket, aggregates logged intake and
	// classifies every reference nutrient. Ordered by nutrient id.
	// Publishes risk alerts for excess/deficiency statuses.
	ListUserNutrientStatus(ctx context.Context, userID uuid.UUID) ([]*domain.NutrientStatus, error)

	// UpsertReferenceStandard stores one reference row (ADMIN only)
	UpsertReferenceStandard(ctx context.Context, std *domain.NutrientReferenceStandard, isAdmin bool) error
}

// IntakeEntryRequest is one (nutrient, amount) pair in a group payload
type IntakeEntryRequest struct {
	NutrientID int64   `json:"nutrient_id"`
	Intake     float64 `json:"intake"`
}

// GroupService defines the business logic interface for nutrient group
// operations. All composite writes are all-or-nothing.
type GroupService interface {
	// CreateGroupWithIntakes creates a group owned by the user with one entry
	// per pair, atomically
	CreateGroupWithIntakes(ctx context.Context, userID uuid.UUID, name string, entries []IntakeEntryRequest) (*domain.NutrientGroup, error)

	// UpdateGroupWithIntakes renames the group and updates its existing
	// entries matched on nutrient id, atomically. Ownership enforced.
	UpdateGroupWithIntakes(ctx context.Context, groupID uuid.UUID, userID uuid.UUID, name string, entries []IntakeEntryRequest) error

	// GetGroup retrieves a group with its entries. Ownership enforced.
	GetGroup(ctx context.Context, groupID uuid.UUID, userID uuid.UUID) (*domain.GroupWithEntries, error)

	// ListGroups retrieves the user's groups
	ListGroups(ctx context.Context, userID uuid.UUID) ([]*domain.NutrientGroup, error)

	// DeleteGroup deletes a group and its entries. Ownership enforced.
	DeleteGroup(ctx context.Context, groupID uuid.UUID, userID uuid.UUID) error
}
