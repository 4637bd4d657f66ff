package services

import "aegis/models"

// ConfidenceThreshold is the minimum classification confidence required to
// trust AI-generated guidance. Below it the intake pipeline substitutes the
// fixed safe default: low-confidence guesses must not drive incorrect
// instructions or notify contacts under the wrong pretext.
const ConfidenceThreshold = 0.70

// GateResult is the Confidence Gate's decision for one intake.
type GateResult struct {
	Classification models.Classification
	Guidance       models.GuidanceBundle
	UsedFallback   bool
}

// ApplyConfidenceGate decides whether to trust the classification and
// guidance or substitute the safe default. Pure function, no I/O.
func ApplyConfidenceGate(classification models.Classification, guidance models.GuidanceBundle) GateResult {
	result := GateResult{
		Classification: classification,
		Guidance:       guidance,
	}

	if classification.Confidence < ConfidenceThreshold {
		result.Classification.Category = models.EmergencyTypeOther
		result.Classification.DetectedType = "emergency"
		result.Guidance = DefaultGuidance()
		result.UsedFallback = true
		return result
	}

	if len(guidance.Steps) == 0 {
		result.Guidance = DefaultGuidance()
		result.UsedFallback = true
	}

	return result
}

// DefaultClassification is the safe-default classification used when the
// provider is unavailable or returned unusable output.
func DefaultClassification() models.Classification {
	return models.Classification{
		Category:     models.EmergencyTypeOther,
		DetectedType: "emergency",
		Confidence:   0.5,
		RiskLevel:    models.SeverityMedium,
		Reasoning:    "AI analysis unavailable",
		ImmediateActions: []string{
			"Call emergency services",
			"Ensure personal safety",
		},
	}
}

// DefaultGuidance is the fixed safe-default bundle substituted whenever
// automated guidance cannot be trusted.
func DefaultGuidance() models.GuidanceBundle {
	return models.GuidanceBundle{
		Category:     models.EmergencyTypeOther,
		DetectedType: "emergency",
		Steps: []models.GuidanceStep{
			defaultGuidanceStep(),
		},
		EmergencyContact: "Call 911 (or your local emergency number) immediately",
		Precautions: []string{
			"Stay calm",
			"Ensure personal safety first",
		},
		Monitoring:        "Wait for professional help to arrive",
		KnowledgeBaseUsed: false,
	}
}
