package domain_test

import (
	"testing"

	"github.com/pillme/nutrition-service/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

func TestClassifyIntake_ZeroIntake(t *testing.T) {
	// Zero intake always wins, even with every threshold defined
	status := domain.ClassifyIntake(0, 570, 800, 10, 3000)
	assert.Equal(t, domain.StatusNotConsumed, status)
}

func TestClassifyIntake_EARRNIModel(t *testing.T) {
	// EAR=570, RNI=800, no AI, UL=3000
	tests := []struct {
		name   string
		intake float64
		want   domain.IntakeStatus
	}{
		{"above RNI is adequate", 900, domain.StatusAdequateRNI},
		{"exactly RNI is adequate", 800, domain.StatusAdequateRNI},
		{"between EAR and RNI is possibly insufficient", 600, domain.StatusPossiblyInsufficient},
		{"exactly EAR is possibly insufficient", 570, domain.StatusPossiblyInsufficient},
		{"below EAR is deficiency risk", 400, domain.StatusDeficiencyRisk},
		{"above UL is excess risk", 3500, domain.StatusExcessRisk},
		{"exactly UL is not excess", 3000, domain.StatusAdequateRNI},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := domain.ClassifyIntake(tt.intake, 570, 800, 0, 3000)
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestClassifyIntake_AIModel(t *testing.T) {
	// AI=10, UL=100, no EAR/RNI
	tests := []struct {
		name   string
		intake float64
		want   domain.IntakeStatus
	}{
		{"exactly AI is adequate", 10, domain.StatusAdequateAI},
		{"above AI is adequate", 50, domain.StatusAdequateAI},
		{"below AI is uncertain", 9.9, domain.StatusBelowAI},
		{"above UL is excess risk", 150, domain.StatusExcessRisk},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := domain.ClassifyIntake(tt.intake, 0, 0, 10, 100)
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestClassifyIntake_AIWinsOverEARRNI(t *testing.T) {
	// When both models are defined the AI branch is evaluated first
	status := domain.ClassifyIntake(5, 570, 800, 10, 0)
	assert.Equal(t, domain.StatusBelowAI, status)
}

func TestClassifyIntake_NoThresholds(t *testing.T) {
	// Nonzero intake with no usable thresholds falls through to 0
	status := domain.ClassifyIntake(42, 0, 0, 0, 0)
	assert.Equal(t, domain.StatusNotConsumed, status)
}

func TestClassifyIntake_EAROnlyIsNotEnough(t *testing.T) {
	// The EAR/RNI model requires both thresholds
	status := domain.ClassifyIntake(600, 570, 0, 0, 0)
	assert.Equal(t, domain.StatusNotConsumed, status)
}

func TestClassifyIntake_NoULMeansNoExcess(t *testing.T) {
	status := domain.ClassifyIntake(1e9, 570, 800, 0, 0)
	assert.Equal(t, domain.StatusAdequateRNI, status)
}

func TestRiskForStatus(t *testing.T) {
	deficiency := "deficiency text"
	excess := "excess text"
	std := &domain.NutrientReferenceStandard{
		DeficiencyRisk: &deficiency,
		ExcessRisk:     &excess,
	}

	assert.Equal(t, &excess, std.RiskForStatus(domain.StatusExcessRisk))
	assert.Equal(t, &deficiency, std.RiskForStatus(domain.StatusPossiblyInsufficient))
	assert.Equal(t, &deficiency, std.RiskForStatus(domain.StatusBelowAI))
	assert.Equal(t, &deficiency, std.RiskForStatus(domain.StatusDeficiencyRisk))
	assert.Nil(t, std.RiskForStatus(domain.StatusNotConsumed))
	assert.Nil(t, std.RiskForStatus(domain.StatusAdequateRNI))
	assert.Nil(t, std.RiskForStatus(domain.StatusAdequateAI))
}

func TestRiskForStatus_NilTexts(t *testing.T) {
	// Risk texts are nullable in reference data; nil passes through
	std := &domain.NutrientReferenceStandard{}
	assert.Nil(t, std.RiskForStatus(domain.StatusExcessRisk))
	assert.Nil(t, std.RiskForStatus(domain.StatusDeficiencyRisk))
}

func TestClassify_BuildsResult(t *testing.T) {
	deficiency := "Increased risk of nutrient deficiency"
	std := &domain.NutrientReferenceStandard{
		NutrientID:      2,
		NutrientName:    "calcium",
		Unit:            "mg",
		AverageNeed:     570,
		RecommendIntake: 700,
		LimitIntake:     2500,
		DeficiencyRisk:  &deficiency,
	}

	result := std.Classify(400)

	assert.Equal(t, int64(2), result.NutrientID)
	assert.Equal(t, "calcium", result.NutrientName)
	assert.Equal(t, "mg", result.Unit)
	assert.Equal(t, domain.StatusDeficiencyRisk, result.Status)
	assert.Equal(t, 400.0, result.Intake)
	assert.Equal(t, &deficiency, result.Risk)
}

func TestIsRiskStatus(t *testing.T) {
	assert.True(t, domain.IsRiskStatus(domain.StatusExcessRisk))
	assert.True(t, domain.IsRiskStatus(domain.StatusDeficiencyRisk))
	assert.False(t, domain.IsRiskStatus(domain.StatusNotConsumed))
	assert.False(t, domain.IsRiskStatus(domain.StatusAdequateRNI))
	assert.False(t, domain.IsRiskStatus(domain.StatusAdequateAI))
	assert.False(t, domain.IsRiskStatus(domain.StatusPossiblyInsufficient))
	assert.False(t, domain.IsRiskStatus(domain.StatusBelowAI))
}
