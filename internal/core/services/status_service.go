package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/pillme/nutrition-service/internal/core/domain"
	"github.com/pillme/nutrition-service/internal/core/ports"
)

// StatusService implements the nutrient intake status engine:
// profile resolution, reference lookup, intake aggregation and
// classification. Publishes alerts for risk statuses.
type StatusService struct {
	profileRepo    ports.ProfileRepository
	referenceRepo  ports.ReferenceRepository
	intakeRepo     ports.IntakeRepository
	alertPublisher ports.AlertPublisher
}

// NewStatusService creates a new status service
func NewStatusService(
	profileRepo ports.ProfileRepository,
	referenceRepo ports.ReferenceRepository,
	intakeRepo ports.IntakeRepository,
	alertPublisher ports.AlertPublisher,
) *StatusService {
	return &StatusService{
		profileRepo:    profileRepo,
		referenceRepo:  referenceRepo,
		intakeRepo:     intakeRepo,
		alertPublisher: alertPublisher,
	}
}

// ListUserNutrientStatus builds the per-nutrient status list for a user:
// 1) resolve the profile into (bucket, age, state)
// 2) fetch the reference standards for that key
// 3) aggregate logged intake across all groups (missing nutrient = 0)
// 4) classify each reference nutrient and attach its risk text
// A missing profile is a propagated failure, never a default.
func (s *StatusService) ListUserNutrientStatus(ctx context.Context, userID uuid.UUID) ([]*domain.NutrientStatus, error) {
	profile, err := s.profileRepo.GetUserProfile(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("profile %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	bucket, age, state := profile.ResolveLookup(time.Now())

	standards, err := s.referenceRepo.GetReferenceStandards(ctx, bucket, age, state)
	if err != nil {
		return nil, fmt.Errorf("failed to get reference standards: %w", err)
	}

	totals, err := s.intakeRepo.GetUserNutrientTotals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate intake: %w", err)
	}

	statuses := make([]*domain.NutrientStatus, 0, len(standards))
	for _, std := range standards {
		// Nutrients with no logged entries are absent from the totals map
		intake := totals[std.NutrientID]
		status := std.Classify(intake)
		statuses = append(statuses, status)

		// Publish risk alerts asynchronously so they never block the response
		if domain.IsRiskStatus(status.Status) {
			go func(st *domain.NutrientStatus) {
				bgCtx := context.Background()
				if err := s.alertPublisher.PublishRiskAlert(bgCtx, userID, st); err != nil {
					log.Printf("Failed to publish risk alert for nutrient %d: %v", st.NutrientID, err)
				} else {
					s.logStatus(userID, st, "alert_published")
				}
			}(status)
		}
	}

	return statuses, nil
}

// UpsertReferenceStandard stores one reference row (ADMIN only)
func (s *StatusService) UpsertReferenceStandard(ctx context.Context, std *domain.NutrientReferenceStandard, isAdmin bool) error {
	if !isAdmin {
		return fmt.Errorf("forbidden: only ADMIN can manage reference standards")
	}
	if std.NutrientID <= 0 {
		return fmt.Errorf("nutrient id must be positive")
	}
	if std.NutrientName == "" {
		return fmt.Errorf("nutrient name cannot be empty")
	}
	if std.AgeMin < 0 || std.AgeMax < std.AgeMin {
		return fmt.Errorf("invalid age range: %d-%d", std.AgeMin, std.AgeMax)
	}
	if std.AverageNeed < 0 || std.RecommendIntake < 0 || std.AdequateIntake < 0 || std.LimitIntake < 0 {
		return fmt.Errorf("reference thresholds cannot be negative")
	}

	if err := s.referenceRepo.UpsertReferenceStandard(ctx, std); err != nil {
		return fmt.Errorf("failed to upsert reference standard: %w", err)
	}
	return nil
}

// logStatus logs structured JSON for status-engine events
func (s *StatusService) logStatus(userID uuid.UUID, status *domain.NutrientStatus, event string) {
	logEntry := map[string]interface{}{
		"event":       event,
		"user_id":     userID.String(),
		"nutrient_id": status.NutrientID,
		"status":      int(status.Status),
		"intake":      status.Intake,
		"timestamp":   time.Now().Format(time.RFC3339),
	}
	if status.Risk != nil {
		logEntry["risk"] = *status.Risk
	}

	jsonBytes, err := json.Marshal(logEntry)
	if err != nil {
		log.Printf("Failed to marshal status log entry: %v", err)
		return
	}
	log.Printf("%s", string(jsonBytes))
}
