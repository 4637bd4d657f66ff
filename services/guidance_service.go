package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"aegis/models"
	"aegis/utils"

	"github.com/sirupsen/logrus"
)

const guidanceTimeout = 15 * time.Second

// GuidanceService produces the step-by-step bundle for an emergency. It
// grounds the generation prompt with knowledge-base procedures when the
// (category, subtype) pair is known, and guarantees the returned bundle is
// never empty.
type GuidanceService struct {
	generator     TextGenerator
	knowledgeBase *KnowledgeBase
}

func NewGuidanceService(generator TextGenerator, knowledgeBase *KnowledgeBase) *GuidanceService {
	return &GuidanceService{
		generator:     generator,
		knowledgeBase: knowledgeBase,
	}
}

// Generate builds guidance for the detected emergency. The knowledge-base
// lookup is pure and never fails; provider errors surface to the caller,
// which owns fallback policy.
func (gs *GuidanceService) Generate(ctx context.Context, category, subtype, userContext string) (*models.GuidanceBundle, error) {
	ctx, cancel := context.WithTimeout(ctx, guidanceTimeout)
	defer cancel()

	procedures := gs.knowledgeBase.Lookup(category, subtype)

	prompt := buildGuidancePrompt(category, subtype, userContext, procedures)

	raw, err := gs.generator.Generate(ctx, prompt)
	if err != nil {
		logrus.Warnf("Guidance provider call failed: %v", err)
		return nil, utils.NewUpstreamUnavailableError("guidance", err)
	}

	bundle, err := parseGuidance(raw, category, subtype)
	if err != nil {
		logrus.Warnf("Guidance parse failed: %v", err)
		return nil, err
	}

	bundle.KnowledgeBaseUsed = len(procedures) > 0

	// Guidance must never be empty.
	if len(bundle.Steps) == 0 {
		bundle.Steps = []models.GuidanceStep{defaultGuidanceStep()}
	}

	return bundle, nil
}

func buildGuidancePrompt(category, subtype, userContext string, procedures []string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Provide emergency guidance for a %s situation (%s emergency).\n\n", subtype, category)

	if userContext != "" {
		fmt.Fprintf(&sb, "Additional context: %s\n\n", userContext)
	}

	fmt.Fprintf(&sb, "Available standard procedures: %s\n\n", strings.Join(procedures, " | "))

	sb.WriteString(`Generate comprehensive step-by-step instructions including:
1. Immediate life-saving actions
2. Safety precautions for responder
3. When to call emergency services
4. What information to provide to dispatcher
5. Ongoing monitoring instructions

Return ONLY a JSON object with this structure:
{
`)
	fmt.Fprintf(&sb, "  \"emergencyType\": %q,\n  \"detectedEmergencyType\": %q,\n", category, subtype)
	sb.WriteString(`  "steps": [
    {
      "stepNumber": 1,
      "title": "Clear action title",
      "description": "Detailed instruction",
      "estimatedTime": 30,
      "priority": "critical|high|medium|low",
      "safetyNote": "Important safety warning if any"
    }
  ],
  "emergencyServicesContact": "When and how to contact emergency services",
  "precautions": ["Array of safety precautions"],
  "monitoringInstructions": "What to monitor while waiting for help"
}

Respond with ONLY the JSON object, no other text.`)

	return sb.String()
}

func parseGuidance(raw, category, subtype string) (*models.GuidanceBundle, error) {
	payload, err := extractJSON(raw)
	if err != nil {
		return nil, utils.NewMalformedResponseError("guidance", err.Error())
	}

	var bundle models.GuidanceBundle
	if err := json.Unmarshal([]byte(payload), &bundle); err != nil {
		return nil, utils.NewMalformedResponseError("guidance", err.Error())
	}

	if bundle.Category == "" {
		bundle.Category = category
	}
	if bundle.DetectedType == "" {
		bundle.DetectedType = subtype
	}

	normalizeSteps(bundle.Steps)

	return &bundle, nil
}

// normalizeSteps enforces contiguous 1-based numbering and fills defaults
// for fields the provider omitted.
func normalizeSteps(steps []models.GuidanceStep) {
	for i := range steps {
		steps[i].StepNumber = i + 1
		if steps[i].Title == "" {
			steps[i].Title = fmt.Sprintf("Step %d", i+1)
		}
		if steps[i].Description == "" {
			steps[i].Description = "Follow instructions carefully"
		}
		if steps[i].EstimatedTime <= 0 {
			steps[i].EstimatedTime = 30
		}
		if !models.ValidSeverity(steps[i].Priority) {
			steps[i].Priority = models.SeverityMedium
		}
	}
}

func defaultGuidanceStep() models.GuidanceStep {
	return models.GuidanceStep{
		StepNumber:    1,
		Title:         "Call Emergency Services",
		Description:   "Dial local emergency number (911/112/100)",
		EstimatedTime: 30,
		Priority:      models.SeverityCritical,
		SafetyNote:    "Provide clear location and situation details",
	}
}
