package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pillme/nutrition-service/internal/core/domain"
	"github.com/pillme/nutrition-service/internal/core/ports"
)

// ProfileService implements business logic for user profile operations
type ProfileService struct {
	profileRepo ports.ProfileRepository
}

// NewProfileService creates a new profile service
func NewProfileService(profileRepo ports.ProfileRepository) *ProfileService {
	return &ProfileService{
		profileRepo: profileRepo,
	}
}

// GetProfileBasic resolves the stored profile into its derived age and flags.
// A missing profile is a propagated failure; there is no default profile.
func (s *ProfileService) GetProfileBasic(ctx context.Context, userID uuid.UUID) (*ports.ProfileBasic, error) {
	profile, err := s.profileRepo.GetUserProfile(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("profile %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	age := domain.ResolveAge(profile.Birthdate, time.Now())
	return &ports.ProfileBasic{
		AgeYears:  age.Years,
		AgeMonths: age.Months,
		Sex:       profile.Sex,
		Pregnant:  profile.Pregnant,
		Lactating: profile.Lactating,
	}, nil
}

// CreateProfile creates the profile row for a newly registered user
func (s *ProfileService) CreateProfile(ctx context.Context, userID uuid.UUID, birthdate time.Time, sex domain.Sex, pregnant, lactating bool) (*domain.UserProfile, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user id cannot be empty")
	}
	if !domain.IsValidSex(sex) {
		return nil, fmt.Errorf("invalid sex: %s", sex)
	}
	if birthdate.IsZero() || birthdate.After(time.Now()) {
		return nil, fmt.Errorf("birthdate must be a past date")
	}

	profile := &domain.UserProfile{
		UserID:    userID,
		Birthdate: birthdate,
		Sex:       sex,
		Pregnant:  pregnant,
		Lactating: lactating,
		CreatedAt: time.Now(),
	}

	if err := s.profileRepo.CreateUserProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	return profile, nil
}

// UpdateProfile replaces the profile's demographic fields
func (s *ProfileService) UpdateProfile(ctx context.Context, userID uuid.UUID, birthdate time.Time, sex domain.Sex, pregnant, lactating bool) (*domain.UserProfile, error) {
	if !domain.IsValidSex(sex) {
		return nil, fmt.Errorf("invalid sex: %s", sex)
	}
	if birthdate.IsZero() || birthdate.After(time.Now()) {
		return nil, fmt.Errorf("birthdate must be a past date")
	}

	existing, err := s.profileRepo.GetUserProfile(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("profile %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	existing.Birthdate = birthdate
	existing.Sex = sex
	existing.Pregnant = pregnant
	existing.Lactating = lactating

	if err := s.profileRepo.UpdateUserProfile(ctx, existing); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return existing, nil
}

// isNotFound reports whether an error is a missing-row condition
func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound) || errors.Is(err, sql.ErrNoRows)
}
