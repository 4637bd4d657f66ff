package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKnowledgeBaseLookup(t *testing.T) {
	kb := NewKnowledgeBase()

	t.Run("returns procedures for known pair", func(t *testing.T) {
		procedures := kb.Lookup("medical", "heart_attack")
		assert.NotEmpty(t, procedures)
		assert.True(t, kb.Has("medical", "heart_attack"))
	})

	t.Run("unknown subtype yields empty list", func(t *testing.T) {
		assert.Empty(t, kb.Lookup("medical", "paper_cut"))
		assert.False(t, kb.Has("medical", "paper_cut"))
	})

	t.Run("unknown category yields empty list", func(t *testing.T) {
		assert.Empty(t, kb.Lookup("cosmic", "meteor"))
		assert.False(t, kb.Has("cosmic", "meteor"))
	})

	t.Run("covers the documented categories", func(t *testing.T) {
		assert.True(t, kb.Has("fire", "building_fire"))
		assert.True(t, kb.Has("fire", "kitchen_fire"))
		assert.True(t, kb.Has("police", "burglary"))
		assert.True(t, kb.Has("natural_disaster", "earthquake"))
	})
}
