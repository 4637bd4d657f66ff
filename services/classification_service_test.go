package services

import (
	"context"
	"errors"
	"testing"

	"aegis/models"
	"aegis/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validClassificationJSON = `{
  "emergencyType": "medical",
  "detectedEmergencyType": "heart_attack",
  "confidenceScore": 0.88,
  "reasoning": "chest pain radiating to the arm",
  "riskAssessment": "critical",
  "immediateActions": ["Call 911", "Help the person sit down"]
}`

func TestClassify(t *testing.T) {
	ctx := context.Background()

	t.Run("parses valid provider output", func(t *testing.T) {
		service := NewClassificationService(&fakeGenerator{response: validClassificationJSON})

		classification, err := service.Classify(ctx, "my father collapsed holding his chest")
		require.NoError(t, err)

		assert.Equal(t, models.EmergencyTypeMedical, classification.Category)
		assert.Equal(t, "heart_attack", classification.DetectedType)
		assert.Equal(t, 0.88, classification.Confidence)
		assert.Equal(t, models.SeverityCritical, classification.RiskLevel)
		assert.Len(t, classification.ImmediateActions, 2)
	})

	t.Run("strips markdown code fences", func(t *testing.T) {
		fenced := "```json\n" + validClassificationJSON + "\n```"
		service := NewClassificationService(&fakeGenerator{response: fenced})

		classification, err := service.Classify(ctx, "chest pain")
		require.NoError(t, err)
		assert.Equal(t, models.EmergencyTypeMedical, classification.Category)
	})

	t.Run("tolerates prose around the JSON object", func(t *testing.T) {
		wrapped := "Here is the analysis:\n" + validClassificationJSON + "\nStay safe."
		service := NewClassificationService(&fakeGenerator{response: wrapped})

		classification, err := service.Classify(ctx, "chest pain")
		require.NoError(t, err)
		assert.Equal(t, "heart_attack", classification.DetectedType)
	})

	t.Run("empty detected type falls back to category", func(t *testing.T) {
		service := NewClassificationService(&fakeGenerator{response: `{
			"emergencyType": "fire",
			"confidenceScore": 0.8,
			"riskAssessment": "high"
		}`})

		classification, err := service.Classify(ctx, "smoke everywhere")
		require.NoError(t, err)
		assert.Equal(t, models.EmergencyTypeFire, classification.DetectedType)
	})

	t.Run("rejects empty input", func(t *testing.T) {
		service := NewClassificationService(&fakeGenerator{response: validClassificationJSON})

		_, err := service.Classify(ctx, "   ")
		assert.True(t, utils.IsErrorCode(err, utils.ErrCodeValidation))
	})

	t.Run("provider transport failure is an upstream error", func(t *testing.T) {
		service := NewClassificationService(&fakeGenerator{err: errors.New("connection refused")})

		_, err := service.Classify(ctx, "help")
		assert.True(t, utils.IsErrorCode(err, utils.ErrCodeUpstream))
	})

	t.Run("non-JSON output is malformed", func(t *testing.T) {
		service := NewClassificationService(&fakeGenerator{response: "I cannot classify this."})

		_, err := service.Classify(ctx, "help")
		assert.True(t, utils.IsErrorCode(err, utils.ErrCodeMalformed))
	})

	t.Run("missing required fields are malformed", func(t *testing.T) {
		service := NewClassificationService(&fakeGenerator{response: `{"emergencyType": "medical"}`})

		_, err := service.Classify(ctx, "help")
		assert.True(t, utils.IsErrorCode(err, utils.ErrCodeMalformed))
	})

	t.Run("unknown category is malformed", func(t *testing.T) {
		service := NewClassificationService(&fakeGenerator{response: `{
			"emergencyType": "alien_invasion",
			"confidenceScore": 0.9,
			"riskAssessment": "high"
		}`})

		_, err := service.Classify(ctx, "help")
		assert.True(t, utils.IsErrorCode(err, utils.ErrCodeMalformed))
	})

	t.Run("confidence outside unit interval is malformed", func(t *testing.T) {
		service := NewClassificationService(&fakeGenerator{response: `{
			"emergencyType": "medical",
			"confidenceScore": 1.7,
			"riskAssessment": "high"
		}`})

		_, err := service.Classify(ctx, "help")
		assert.True(t, utils.IsErrorCode(err, utils.ErrCodeMalformed))
	})

	t.Run("prompt embeds the user text", func(t *testing.T) {
		generator := &fakeGenerator{response: validClassificationJSON}
		service := NewClassificationService(generator)

		_, err := service.Classify(ctx, "the kitchen is on fire")
		require.NoError(t, err)
		require.Len(t, generator.prompts, 1)
		assert.Contains(t, generator.prompts[0], "the kitchen is on fire")
	})
}
