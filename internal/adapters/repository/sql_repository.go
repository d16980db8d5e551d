package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pillme/nutrition-service/internal/core/domain"
	"github.com/pillme/nutrition-service/internal/core/ports"
	"github.com/sony/gobreaker"
)

// SQLRepository implements ProfileRepository, ReferenceRepository and
// IntakeRepository using PostgreSQL. Includes retry logic and circuit
// breakers for resilience.
type SQLRepository struct {
	db          *sql.DB
	profileCB   *gobreaker.CircuitBreaker
	referenceCB *gobreaker.CircuitBreaker
	intakeCB    *gobreaker.CircuitBreaker
	maxRetries  int
	retryDelay  time.Duration
}

// NewSQLRepository creates a new PostgreSQL repository with circuit breakers
func NewSQLRepository(db *sql.DB) *SQLRepository {
	settings := gobreaker.Settings{
		Name:        "database",
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	}

	return &SQLRepository{
		db:          db,
		profileCB:   gobreaker.NewCircuitBreaker(settings),
		referenceCB: gobreaker.NewCircuitBreaker(settings),
		intakeCB:    gobreaker.NewCircuitBreaker(settings),
		maxRetries:  3,
		retryDelay:  1 * time.Second,
	}
}

// executeWithRetry executes a database operation with retry logic.
// Not-found is never retried; it is not a transient error.
func (r *SQLRepository) executeWithRetry(ctx context.Context, operation func() error) error {
	var lastErr error
	for i := 0; i < r.maxRetries; i++ {
		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err
		if errors.Is(err, sql.ErrNoRows) || errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if i < r.maxRetries-1 {
			time.Sleep(r.retryDelay)
		}
	}
	return fmt.Errorf("operation failed after %d retries: %w", r.maxRetries, lastErr)
}

// ProfileRepository implementation

func (r *SQLRepository) CreateUserProfile(ctx context.Context, profile *domain.UserProfile) error {
	_, err := r.profileCB.Execute(func() (interface{}, error) {
		return nil, r.executeWithRetry(ctx, func() error {
			query := `INSERT INTO user_profiles (user_id, birthdate, sex, pregnant, lactating, created_at) VALUES ($1, $2, $3, $4, $5, $6)`
			_, err := r.db.ExecContext(ctx, query, profile.UserID, profile.Birthdate, string(profile.Sex), profile.Pregnant, profile.Lactating, profile.CreatedAt)
			return err
		})
	})
	return err
}

func (r *SQLRepository) GetUserProfile(ctx context.Context, userID uuid.UUID) (*domain.UserProfile, error) {
	result, err := r.profileCB.Execute(func() (interface{}, error) {
		var profile domain.UserProfile
		var sexStr string
		err := r.executeWithRetry(ctx, func() error {
			query := `SELECT user_id, birthdate, sex, pregnant, lactating, created_at FROM user_profiles WHERE user_id = $1`
			row := r.db.QueryRowContext(ctx, query, userID)
			return row.Scan(&profile.UserID, &profile.Birthdate, &sexStr, &profile.Pregnant, &profile.Lactating, &profile.CreatedAt)
		})
		if err != nil {
			return nil, err
		}
		profile.Sex = domain.Sex(sexStr)
		return &profile, nil
	})

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile %w", domain.ErrNotFound)
		}
		return nil, err
	}

	return result.(*domain.UserProfile), nil
}

func (r *SQLRepository) UpdateUserProfile(ctx context.Context, profile *domain.UserProfile) error {
	_, err := r.profileCB.Execute(func() (interface{}, error) {
		return nil, r.executeWithRetry(ctx, func() error {
			query := `UPDATE user_profiles SET birthdate = $2, sex = $3, pregnant = $4, lactating = $5 WHERE user_id = $1`
			result, err := r.db.ExecContext(ctx, query, profile.UserID, profile.Birthdate, string(profile.Sex), profile.Pregnant, profile.Lactating)
			if err != nil {
				return err
			}
			rowsAffected, err := result.RowsAffected()
			if err != nil {
				return err
			}
			if rowsAffected == 0 {
				return fmt.Errorf("profile %w", domain.ErrNotFound)
			}
			return nil
		})
	})
	return err
}

// ReferenceRepository implementation

func (r *SQLRepository) GetReferenceStandards(ctx context.Context, bucket domain.SexBucket, age int, state domain.LifeState) ([]*domain.NutrientReferenceStandard, error) {
	result, err := r.referenceCB.Execute(func() (interface{}, error) {
		var standards []*domain.NutrientReferenceStandard
		err := r.executeWithRetry(ctx, func() error {
			query := `SELECT nutrient_id, nutrient_name, unit, sex_bucket, age_min, age_max, state,
				average_need, recommend_intake, adequate_intake, limit_intake, deficiency_risk, excess_risk
				FROM nutrient_reference_standards
				WHERE sex_bucket = $1 AND $2 BETWEEN age_min AND age_max AND state = $3
				ORDER BY nutrient_id`

			rows, queryErr := r.db.QueryContext(ctx, query, string(bucket), age, string(state))
			if queryErr != nil {
				return queryErr
			}
			defer rows.Close()

			standards = standards[:0]
			for rows.Next() {
				std, err := scanReferenceStandard(rows)
				if err != nil {
					return err
				}
				standards = append(standards, std)
			}

			return rows.Err()
		})
		if err != nil {
			return nil, err
		}
		return standards, nil
	})

	if err != nil {
		return nil, err
	}

	return result.([]*domain.NutrientReferenceStandard), nil
}

func (r *SQLRepository) NutrientExists(ctx context.Context, nutrientID int64) (bool, error) {
	result, err := r.referenceCB.Execute(func() (interface{}, error) {
		var exists bool
		err := r.executeWithRetry(ctx, func() error {
			var count int
			query := `SELECT COUNT(*) FROM nutrient_reference_standards WHERE nutrient_id = $1`
			err := r.db.QueryRowContext(ctx, query, nutrientID).Scan(&count)
			exists = count > 0
			return err
		})
		if err != nil {
			return nil, err
		}
		return exists, nil
	})

	if err != nil {
		return false, err
	}

	return result.(bool), nil
}

func (r *SQLRepository) UpsertReferenceStandard(ctx context.Context, std *domain.NutrientReferenceStandard) error {
	_, err := r.referenceCB.Execute(func() (interface{}, error) {
		return nil, r.executeWithRetry(ctx, func() error {
			query := `INSERT INTO nutrient_reference_standards
				(nutrient_id, nutrient_name, unit, sex_bucket, age_min, age_max, state,
				 average_need, recommend_intake, adequate_intake, limit_intake, deficiency_risk, excess_risk)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
				ON CONFLICT (nutrient_id, sex_bucket, age_min, age_max, state) DO UPDATE SET
				 nutrient_name = EXCLUDED.nutrient_name,
				 unit = EXCLUDED.unit,
				 average_need = EXCLUDED.average_need,
				 recommend_intake = EXCLUDED.recommend_intake,
				 adequate_intake = EXCLUDED.adequate_intake,
				 limit_intake = EXCLUDED.limit_intake,
				 deficiency_risk = EXCLUDED.deficiency_risk,
				 excess_risk = EXCLUDED.excess_risk`
			_, err := r.db.ExecContext(ctx, query,
				std.NutrientID, std.NutrientName, std.Unit, string(std.SexBucket),
				std.AgeMin, std.AgeMax, string(std.State),
				std.AverageNeed, std.RecommendIntake, std.AdequateIntake, std.LimitIntake,
				std.DeficiencyRisk, std.ExcessRisk)
			return err
		})
	})
	return err
}

// scanReferenceStandard scans one reference row
func scanReferenceStandard(rows *sql.Rows) (*domain.NutrientReferenceStandard, error) {
	var std domain.NutrientReferenceStandard
	var bucketStr, stateStr string
	var deficiencyRisk, excessRisk sql.NullString

	err := rows.Scan(
		&std.NutrientID, &std.NutrientName, &std.Unit, &bucketStr, &std.AgeMin, &std.AgeMax, &stateStr,
		&std.AverageNeed, &std.RecommendIntake, &std.AdequateIntake, &std.LimitIntake,
		&deficiencyRisk, &excessRisk,
	)
	if err != nil {
		return nil, err
	}

	std.SexBucket = domain.SexBucket(bucketStr)
	std.State = domain.LifeState(stateStr)
	if deficiencyRisk.Valid {
		std.DeficiencyRisk = &deficiencyRisk.String
	}
	if excessRisk.Valid {
		std.ExcessRisk = &excessRisk.String
	}

	return &std, nil
}

// IntakeRepository implementation

func (r *SQLRepository) GetUserNutrientTotals(ctx context.Context, userID uuid.UUID) (map[int64]float64, error) {
	result, err := r.intakeCB.Execute(func() (interface{}, error) {
		totals := make(map[int64]float64)
		err := r.executeWithRetry(ctx, func() error {
			query := `SELECT ni.nutrient_id, SUM(ni.intake)
				FROM nutrient_intakes ni
				JOIN nutrient_groups g ON ni.group_id = g.id
				WHERE g.user_id = $1
				GROUP BY ni.nutrient_id`

			rows, queryErr := r.db.QueryContext(ctx, query, userID)
			if queryErr != nil {
				return queryErr
			}
			defer rows.Close()

			clear(totals)
			for rows.Next() {
				var nutrientID int64
				var sum float64
				if err := rows.Scan(&nutrientID, &sum); err != nil {
					return err
				}
				totals[nutrientID] = sum
			}

			return rows.Err()
		})
		if err != nil {
			return nil, err
		}
		return totals, nil
	})

	if err != nil {
		return nil, err
	}

	return result.(map[int64]float64), nil
}

// CreateGroupWithEntries creates the group and its entries in one
// transaction. If any entry insert fails the whole operation rolls back;
// the group never persists without its entries.
func (r *SQLRepository) CreateGroupWithEntries(ctx context.Context, group *domain.NutrientGroup, entries []domain.IntakeEntry) error {
	_, err := r.intakeCB.Execute(func() (interface{}, error) {
		return nil, r.executeWithRetry(ctx, func() error {
			tx, err := r.db.BeginTx(ctx, nil)
			if err != nil {
				return fmt.Errorf("failed to begin transaction: %w", err)
			}
			defer tx.Rollback()

			_, err = tx.ExecContext(ctx,
				`INSERT INTO nutrient_groups (id, user_id, name, created_at) VALUES ($1, $2, $3, $4)`,
				group.ID, group.UserID, group.Name, group.CreatedAt)
			if err != nil {
				return fmt.Errorf("failed to insert group: %w", err)
			}

			for _, e := range entries {
				_, err = tx.ExecContext(ctx,
					`INSERT INTO nutrient_intakes (group_id, nutrient_id, intake) VALUES ($1, $2, $3)`,
					group.ID, e.NutrientID, e.Intake)
				if err != nil {
					return fmt.Errorf("failed to insert intake entry: %w", err)
				}
			}

			return tx.Commit()
		})
	})
	return err
}

// UpdateGroupWithEntries renames the group and updates existing entries
// matched on nutrient id, in one transaction. Payload entries whose nutrient
// id is not present in the group are ignored; update never inserts missing
// rows, only create does.
func (r *SQLRepository) UpdateGroupWithEntries(ctx context.Context, groupID uuid.UUID, name string, entries []domain.IntakeEntry) error {
	_, err := r.intakeCB.Execute(func() (interface{}, error) {
		return nil, r.executeWithRetry(ctx, func() error {
			tx, err := r.db.BeginTx(ctx, nil)
			if err != nil {
				return fmt.Errorf("failed to begin transaction: %w", err)
			}
			defer tx.Rollback()

			result, err := tx.ExecContext(ctx,
				`UPDATE nutrient_groups SET name = $2 WHERE id = $1`, groupID, name)
			if err != nil {
				return fmt.Errorf("failed to rename group: %w", err)
			}
			rowsAffected, err := result.RowsAffected()
			if err != nil {
				return err
			}
			if rowsAffected == 0 {
				return fmt.Errorf("group %w", domain.ErrNotFound)
			}

			for _, e := range entries {
				_, err = tx.ExecContext(ctx,
					`UPDATE nutrient_intakes SET intake = $3 WHERE group_id = $1 AND nutrient_id = $2`,
					groupID, e.NutrientID, e.Intake)
				if err != nil {
					return fmt.Errorf("failed to update intake entry: %w", err)
				}
			}

			return tx.Commit()
		})
	})
	return err
}

func (r *SQLRepository) GetGroupByID(ctx context.Context, groupID uuid.UUID) (*domain.NutrientGroup, error) {
	result, err := r.intakeCB.Execute(func() (interface{}, error) {
		var group domain.NutrientGroup
		err := r.executeWithRetry(ctx, func() error {
			query := `SELECT id, user_id, name, created_at FROM nutrient_groups WHERE id = $1`
			row := r.db.QueryRowContext(ctx, query, groupID)
			return row.Scan(&group.ID, &group.UserID, &group.Name, &group.CreatedAt)
		})
		if err != nil {
			return nil, err
		}
		return &group, nil
	})

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("group %w", domain.ErrNotFound)
		}
		return nil, err
	}

	return result.(*domain.NutrientGroup), nil
}

func (r *SQLRepository) GetGroupEntries(ctx context.Context, groupID uuid.UUID) ([]domain.IntakeEntry, error) {
	result, err := r.intakeCB.Execute(func() (interface{}, error) {
		var entries []domain.IntakeEntry
		err := r.executeWithRetry(ctx, func() error {
			query := `SELECT nutrient_id, intake FROM nutrient_intakes WHERE group_id = $1 ORDER BY nutrient_id`

			rows, queryErr := r.db.QueryContext(ctx, query, groupID)
			if queryErr != nil {
				return queryErr
			}
			defer rows.Close()

			entries = entries[:0]
			for rows.Next() {
				var e domain.IntakeEntry
				if err := rows.Scan(&e.NutrientID, &e.Intake); err != nil {
					return err
				}
				entries = append(entries, e)
			}

			return rows.Err()
		})
		if err != nil {
			return nil, err
		}
		return entries, nil
	})

	if err != nil {
		return nil, err
	}

	return result.([]domain.IntakeEntry), nil
}

func (r *SQLRepository) ListGroups(ctx context.Context, userID uuid.UUID) ([]*domain.NutrientGroup, error) {
	result, err := r.intakeCB.Execute(func() (interface{}, error) {
		var groups []*domain.NutrientGroup
		err := r.executeWithRetry(ctx, func() error {
			query := `SELECT id, user_id, name, created_at FROM nutrient_groups WHERE user_id = $1 ORDER BY created_at DESC`

			rows, queryErr := r.db.QueryContext(ctx, query, userID)
			if queryErr != nil {
				return queryErr
			}
			defer rows.Close()

			groups = groups[:0]
			for rows.Next() {
				var g domain.NutrientGroup
				if err := rows.Scan(&g.ID, &g.UserID, &g.Name, &g.CreatedAt); err != nil {
					return err
				}
				groups = append(groups, &g)
			}

			return rows.Err()
		})
		if err != nil {
			return nil, err
		}
		return groups, nil
	})

	if err != nil {
		return nil, err
	}

	return result.([]*domain.NutrientGroup), nil
}

func (r *SQLRepository) CheckGroupOwnership(ctx context.Context, groupID uuid.UUID, userID uuid.UUID) (bool, error) {
	result, err := r.intakeCB.Execute(func() (interface{}, error) {
		var owned bool
		err := r.executeWithRetry(ctx, func() error {
			var count int
			query := `SELECT COUNT(*) FROM nutrient_groups WHERE id = $1 AND user_id = $2`
			err := r.db.QueryRowContext(ctx, query, groupID, userID).Scan(&count)
			owned = count > 0
			return err
		})
		if err != nil {
			return nil, err
		}
		return owned, nil
	})

	if err != nil {
		return false, err
	}

	return result.(bool), nil
}

func (r *SQLRepository) DeleteGroup(ctx context.Context, groupID uuid.UUID) error {
	_, err := r.intakeCB.Execute(func() (interface{}, error) {
		return nil, r.executeWithRetry(ctx, func() error {
			// Entries cascade via the FK
			result, err := r.db.ExecContext(ctx, `DELETE FROM nutrient_groups WHERE id = $1`, groupID)
			if err != nil {
				return err
			}
			rowsAffected, err := result.RowsAffected()
			if err != nil {
				return err
			}
			if rowsAffected == 0 {
				return fmt.Errorf("group %w", domain.ErrNotFound)
			}
			return nil
		})
	})
	return err
}

// Ensure SQLRepository implements the interfaces
var _ ports.ProfileRepository = (*SQLRepository)(nil)
var _ ports.ReferenceRepository = (*SQLRepository)(nil)
var _ ports.IntakeRepository = (*SQLRepository)(nil)
