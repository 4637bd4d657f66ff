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

const validGuidanceJSON = `{
  "emergencyType": "medical",
  "detectedEmergencyType": "heart_attack",
  "steps": [
    {"stepNumber": 3, "title": "Call 911", "description": "Dial now", "estimatedTime": 30, "priority": "critical"},
    {"stepNumber": 7, "title": "", "description": "", "estimatedTime": 0, "priority": "urgent"}
  ],
  "emergencyServicesContact": "Call 911 immediately",
  "precautions": ["Stay calm"],
  "monitoringInstructions": "Watch breathing"
}`

func TestGuidanceGenerate(t *testing.T) {
	ctx := context.Background()
	kb := NewKnowledgeBase()

	t.Run("normalizes step numbering and defaults", func(t *testing.T) {
		service := NewGuidanceService(&fakeGenerator{response: validGuidanceJSON}, kb)

		bundle, err := service.Generate(ctx, "medical", "heart_attack", "")
		require.NoError(t, err)

		require.Len(t, bundle.Steps, 2)
		assert.Equal(t, 1, bundle.Steps[0].StepNumber)
		assert.Equal(t, 2, bundle.Steps[1].StepNumber)
		assert.Equal(t, "Step 2", bundle.Steps[1].Title)
		assert.Equal(t, "Follow instructions carefully", bundle.Steps[1].Description)
		assert.Equal(t, 30, bundle.Steps[1].EstimatedTime)
		assert.Equal(t, models.SeverityMedium, bundle.Steps[1].Priority)
	})

	t.Run("marks knowledge base usage for known pairs", func(t *testing.T) {
		generator := &fakeGenerator{response: validGuidanceJSON}
		service := NewGuidanceService(generator, kb)

		bundle, err := service.Generate(ctx, "medical", "heart_attack", "")
		require.NoError(t, err)
		assert.True(t, bundle.KnowledgeBaseUsed)

		require.Len(t, generator.prompts, 1)
		assert.Contains(t, generator.prompts[0], "Call emergency services immediately")
	})

	t.Run("unknown pair proceeds without grounding", func(t *testing.T) {
		service := NewGuidanceService(&fakeGenerator{response: validGuidanceJSON}, kb)

		bundle, err := service.Generate(ctx, "other", "unknown_situation", "")
		require.NoError(t, err)
		assert.False(t, bundle.KnowledgeBaseUsed)
	})

	t.Run("empty steps are replaced with the default step", func(t *testing.T) {
		service := NewGuidanceService(&fakeGenerator{response: `{
			"emergencyType": "medical",
			"detectedEmergencyType": "heart_attack",
			"steps": []
		}`}, kb)

		bundle, err := service.Generate(ctx, "medical", "heart_attack", "")
		require.NoError(t, err)

		require.Len(t, bundle.Steps, 1)
		assert.Equal(t, "Call Emergency Services", bundle.Steps[0].Title)
	})

	t.Run("fills category and subtype when provider omits them", func(t *testing.T) {
		service := NewGuidanceService(&fakeGenerator{response: `{
			"steps": [{"title": "Act", "description": "Do", "estimatedTime": 10, "priority": "high"}]
		}`}, kb)

		bundle, err := service.Generate(ctx, "fire", "kitchen_fire", "")
		require.NoError(t, err)
		assert.Equal(t, "fire", bundle.Category)
		assert.Equal(t, "kitchen_fire", bundle.DetectedType)
	})

	t.Run("provider failure is an upstream error", func(t *testing.T) {
		service := NewGuidanceService(&fakeGenerator{err: errors.New("timeout")}, kb)

		_, err := service.Generate(ctx, "medical", "heart_attack", "")
		assert.True(t, utils.IsErrorCode(err, utils.ErrCodeUpstream))
	})

	t.Run("non-JSON output is malformed", func(t *testing.T) {
		service := NewGuidanceService(&fakeGenerator{response: "follow your instincts"}, kb)

		_, err := service.Generate(ctx, "medical", "heart_attack", "")
		assert.True(t, utils.IsErrorCode(err, utils.ErrCodeMalformed))
	})

	t.Run("user context is embedded in the prompt", func(t *testing.T) {
		generator := &fakeGenerator{response: validGuidanceJSON}
		service := NewGuidanceService(generator, kb)

		_, err := service.Generate(ctx, "medical", "heart_attack", "age: 67; medication: nitroglycerin")
		require.NoError(t, err)
		require.Len(t, generator.prompts, 1)
		assert.Contains(t, generator.prompts[0], "age: 67")
	})
}
