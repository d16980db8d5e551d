package domain

import (
	"time"

	"github.com/google/uuid"
)

// NutrientGroup is a user-named collection of intake entries, e.g. one
// multivitamin product. Created, renamed and deleted as a unit.
type NutrientGroup struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// IntakeEntry is one nutrient amount inside a group. The unit is implied by
// the nutrient id. Within one group, nutrient id is unique.
type IntakeEntry struct {
	NutrientID int64   `json:"nutrient_id"`
	Intake     float64 `json:"intake"`
}

// GroupWithEntries bundles a group with its intake rows for read responses
type GroupWithEntries struct {
	NutrientGroup
	Entries []IntakeEntry `json:"entries"`
}
