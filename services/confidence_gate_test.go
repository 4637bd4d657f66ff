package services

import (
	"testing"

	"aegis/models"

	"github.com/stretchr/testify/assert"
)

func highConfidenceClassification() models.Classification {
	return models.Classification{
		Category:     models.EmergencyTypeMedical,
		DetectedType: "heart_attack",
		Confidence:   0.92,
		RiskLevel:    models.SeverityCritical,
		Reasoning:    "chest pain and shortness of breath",
	}
}

func nonEmptyGuidance() models.GuidanceBundle {
	return models.GuidanceBundle{
		Category:     models.EmergencyTypeMedical,
		DetectedType: "heart_attack",
		Steps: []models.GuidanceStep{
			{StepNumber: 1, Title: "Call emergency services", Description: "Dial 911", EstimatedTime: 30, Priority: models.SeverityCritical},
		},
		KnowledgeBaseUsed: true,
	}
}

func TestApplyConfidenceGate(t *testing.T) {
	t.Run("trusts high confidence results", func(t *testing.T) {
		result := ApplyConfidenceGate(highConfidenceClassification(), nonEmptyGuidance())

		assert.False(t, result.UsedFallback)
		assert.Equal(t, models.EmergencyTypeMedical, result.Classification.Category)
		assert.Equal(t, "heart_attack", result.Classification.DetectedType)
		assert.True(t, result.Guidance.KnowledgeBaseUsed)
	})

	t.Run("substitutes safe default below threshold", func(t *testing.T) {
		classification := highConfidenceClassification()
		classification.Confidence = 0.69

		result := ApplyConfidenceGate(classification, nonEmptyGuidance())

		assert.True(t, result.UsedFallback)
		assert.Equal(t, models.EmergencyTypeOther, result.Classification.Category)
		assert.Equal(t, "emergency", result.Classification.DetectedType)
		assert.Equal(t, DefaultGuidance(), result.Guidance)
	})

	t.Run("confidence exactly at threshold is trusted", func(t *testing.T) {
		classification := highConfidenceClassification()
		classification.Confidence = ConfidenceThreshold

		result := ApplyConfidenceGate(classification, nonEmptyGuidance())

		assert.False(t, result.UsedFallback)
		assert.Equal(t, models.EmergencyTypeMedical, result.Classification.Category)
	})

	t.Run("empty guidance falls back even with high confidence", func(t *testing.T) {
		guidance := nonEmptyGuidance()
		guidance.Steps = nil

		result := ApplyConfidenceGate(highConfidenceClassification(), guidance)

		assert.True(t, result.UsedFallback)
		assert.Equal(t, models.EmergencyTypeMedical, result.Classification.Category)
		assert.NotEmpty(t, result.Guidance.Steps)
	})

	t.Run("low confidence keeps original risk and confidence values", func(t *testing.T) {
		classification := highConfidenceClassification()
		classification.Confidence = 0.2
		classification.RiskLevel = models.SeverityHigh

		result := ApplyConfidenceGate(classification, nonEmptyGuidance())

		assert.Equal(t, 0.2, result.Classification.Confidence)
		assert.Equal(t, models.SeverityHigh, result.Classification.RiskLevel)
	})
}

func TestDefaultGuidance(t *testing.T) {
	guidance := DefaultGuidance()

	assert.Len(t, guidance.Steps, 1)
	assert.Equal(t, 1, guidance.Steps[0].StepNumber)
	assert.Equal(t, "Call Emergency Services", guidance.Steps[0].Title)
	assert.Equal(t, models.SeverityCritical, guidance.Steps[0].Priority)
	assert.False(t, guidance.KnowledgeBaseUsed)
}

func TestDefaultClassification(t *testing.T) {
	classification := DefaultClassification()

	assert.Equal(t, models.EmergencyTypeOther, classification.Category)
	assert.Equal(t, "emergency", classification.DetectedType)
	assert.Equal(t, 0.5, classification.Confidence)
	assert.Equal(t, models.SeverityMedium, classification.RiskLevel)
	assert.NotEmpty(t, classification.ImmediateActions)
}
