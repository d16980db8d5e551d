package domain

// IntakeStatus classifies a nutrient's aggregate intake against its
// clinical reference values
type IntakeStatus int

const (
	StatusNotConsumed          IntakeStatus = 0 // no logged intake, or no thresholds defined
	StatusAdequateRNI          IntakeStatus = 1 // intake >= RNI
	StatusAdequateAI           IntakeStatus = 2 // AI-based nutrient, intake >= AI
	StatusPossiblyInsufficient IntakeStatus = 3 // EAR <= intake < RNI
	StatusBelowAI              IntakeStatus = 4 // AI-based nutrient, intake < AI (adequacy uncertain)
	StatusExcessRisk           IntakeStatus = 5 // intake > UL
	StatusDeficiencyRisk       IntakeStatus = 6 // intake < EAR
)

// NutrientReferenceStandard is one row of immutable reference data for a
// (nutrient, sex bucket, age range, life state) combination. A threshold of 0
// means "not defined" for that nutrient.
type NutrientReferenceStandard struct {
	NutrientID      int64     `json:"nutrient_id"`
	NutrientName    string    `json:"nutrient_name"`
	Unit            string    `json:"unit"`
	SexBucket       SexBucket `json:"sex_bucket"`
	AgeMin          int       `json:"age_min"` // years, or months for the infant bucket
	AgeMax          int       `json:"age_max"`
	State           LifeState `json:"state"`
	AverageNeed     float64   `json:"average_need"`     // EAR
	RecommendIntake float64   `json:"recommend_intake"` // RNI
	AdequateIntake  float64   `json:"adequate_intake"`  // AI
	LimitIntake     float64   `json:"limit_intake"`     // UL
	DeficiencyRisk  *string   `json:"deficiency_risk"`
	ExcessRisk      *string   `json:"excess_risk"`
}

// NutrientStatus is the per-nutrient result DTO. Derived at read time,
// never persisted.
type NutrientStatus struct {
	NutrientID      int64        `json:"nutrient_id"`
	NutrientName    string       `json:"nutrient_name"`
	Unit            string       `json:"unit"`
	Status          IntakeStatus `json:"status"`
	Intake          float64      `json:"intake"`
	AverageNeed     float64      `json:"average_need"`
	RecommendIntake float64      `json:"recommend_intake"`
	AdequateIntake  float64      `json:"adequate_intake"`
	LimitIntake     float64      `json:"limit_intake"`
	Risk            *string      `json:"risk"`
}

// ClassifyIntake maps an aggregate intake and its four reference thresholds
// to a status code. The priority order is fixed: zero intake first, then the
// upper limit, then the AI model, then the EAR/RNI model.
//
// Boundary semantics: AI, RNI and EAR comparisons are inclusive (>=); UL is
// strict (>) since the limit itself is still tolerable. Off-by-one here
// silently reclassifies a user's nutrient status.
func ClassifyIntake(intake, averageNeed, recommendIntake, adequateIntake, limitIntake float64) IntakeStatus {
	if intake == 0 {
		return StatusNotConsumed
	}
	if limitIntake > 0 && intake > limitIntake {
		return StatusExcessRisk
	}
	if adequateIntake > 0 {
		if intake >= adequateIntake {
			return StatusAdequateAI
		}
		return StatusBelowAI
	}
	if averageNeed > 0 && recommendIntake > 0 {
		if intake >= recommendIntake {
			return StatusAdequateRNI
		}
		if intake >= averageNeed {
			return StatusPossiblyInsufficient
		}
		return StatusDeficiencyRisk
	}
	return StatusNotConsumed
}

// RiskForStatus selects the risk annotation for a status: the excess-risk
// text for status 5, the deficiency-risk text for statuses 3, 4 and 6,
// nil otherwise. Risk text is opaque pass-through from reference data.
func (s *NutrientReferenceStandard) RiskForStatus(status IntakeStatus) *string {
	switch status {
	case StatusExcessRisk:
		return s.ExcessRisk
	case StatusPossiblyInsufficient, StatusBelowAI, StatusDeficiencyRisk:
		return s.DeficiencyRisk
	default:
		return nil
	}
}

// Classify evaluates an aggregate intake against this standard and builds
// the result DTO
func (s *NutrientReferenceStandard) Classify(intake float64) *NutrientStatus {
	status := ClassifyIntake(intake, s.AverageNeed, s.RecommendIntake, s.AdequateIntake, s.LimitIntake)
	return &NutrientStatus{
		NutrientID:      s.NutrientID,
		NutrientName:    s.NutrientName,
		Unit:            s.Unit,
		Status:          status,
		Intake:          intake,
		AverageNeed:     s.AverageNeed,
		RecommendIntake: s.RecommendIntake,
		AdequateIntake:  s.AdequateIntake,
		LimitIntake:     s.LimitIntake,
		Risk:            s.RiskForStatus(status),
	}
}

// IsRiskStatus reports whether a status warrants an alert event
// (excess intake or deficiency risk)
func IsRiskStatus(status IntakeStatus) bool {
	return status == StatusExcessRisk || status == StatusDeficiencyRisk
}
