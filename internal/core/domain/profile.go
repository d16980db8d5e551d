package domain

import (
	"time"

	"github.com/google/uuid"
)

// Sex is the biological sex stored on a user profile
type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

// IsValidSex checks if a sex value is one we store
func IsValidSex(sex Sex) bool {
	return sex == SexMale || sex == SexFemale
}

// SexBucket is the reference-table lookup dimension.
// It matches the profile's sex except for children under 1 year,
// which use a dedicated infant bucket regardless of sex.
type SexBucket string

const (
	BucketMale   SexBucket = "male"
	BucketFemale SexBucket = "female"
	BucketInfant SexBucket = "infant"
)

// LifeState modifies reference thresholds for applicable nutrients
type LifeState string

const (
	StateGeneral   LifeState = "general"
	StatePregnant  LifeState = "pregnant"
	StateLactating LifeState = "lactating"
)

// UserProfile represents the demographic profile owned by a user record.
// The engine only reads it; edits come through the profile-edit flow.
type UserProfile struct {
	UserID    uuid.UUID `json:"user_id"`
	Birthdate time.Time `json:"birthdate"`
	Sex       Sex       `json:"sex"`
	Pregnant  bool      `json:"pregnant"`
	Lactating bool      `json:"lactating"`
	CreatedAt time.Time `json:"created_at"`
}

// AgeValue is the derived (years, months) pair, recomputed on every call
type AgeValue struct {
	Years  int `json:"years"`
	Months int `json:"months"`
}

// ResolveAge computes the international age (completed years and months)
// between birthdate and now. Only the day-of-month is compared at day level:
// the month counter is decremented when the birthday has not been reached yet
// in the current month. Assumes birthdate is a valid calendar date <= now.
func ResolveAge(birthdate, now time.Time) AgeValue {
	totalMonths := (now.Year()-birthdate.Year())*12 + int(now.Month()) - int(birthdate.Month())
	if now.Day() < birthdate.Day() {
		totalMonths--
	}
	if totalMonths < 0 {
		totalMonths = 0
	}
	return AgeValue{
		Years:  totalMonths / 12,
		Months: totalMonths % 12,
	}
}

// DeriveLifeState applies the fixed priority lactating > pregnant > general.
// Lactation need supersedes pregnancy in the reference tables.
func DeriveLifeState(pregnant, lactating bool) LifeState {
	if lactating {
		return StateLactating
	}
	if pregnant {
		return StatePregnant
	}
	return StateGeneral
}

// LifeState derives the profile's life state from its flags
func (p *UserProfile) LifeState() LifeState {
	return DeriveLifeState(p.Pregnant, p.Lactating)
}

// ResolveLookup computes the reference-table lookup key for the profile at
// the given time. Children under 1 year switch to the infant bucket and are
// looked up by age in months; the infant bucket always uses the general state.
func (p *UserProfile) ResolveLookup(now time.Time) (SexBucket, int, LifeState) {
	age := ResolveAge(p.Birthdate, now)
	if age.Years < 1 {
		return BucketInfant, age.Months, StateGeneral
	}
	return SexBucket(p.Sex), age.Years, p.LifeState()
}
