package services

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"aegis/models"
	"aegis/utils"

	"github.com/sirupsen/logrus"
)

const classificationTimeout = 15 * time.Second

// ClassificationService turns free-text emergency descriptions into a
// structured Classification. Parsing is strict: partial or non-conforming
// provider output fails rather than producing guessed fields. Retry and
// fallback policy lives in the intake orchestrator, not here.
type ClassificationService struct {
	generator TextGenerator
}

func NewClassificationService(generator TextGenerator) *ClassificationService {
	return &ClassificationService{
		generator: generator,
	}
}

// Classify analyzes the text and returns a validated classification.
func (cs *ClassificationService) Classify(ctx context.Context, text string) (*models.Classification, error) {
	if strings.TrimSpace(text) == "" {
		return nil, utils.NewValidationError("Text input is required")
	}

	ctx, cancel := context.WithTimeout(ctx, classificationTimeout)
	defer cancel()

	prompt := buildClassificationPrompt(text)

	raw, err := cs.generator.Generate(ctx, prompt)
	if err != nil {
		logrus.Warnf("Classification provider call failed: %v", err)
		return nil, utils.NewUpstreamUnavailableError("classification", err)
	}

	classification, err := parseClassification(raw)
	if err != nil {
		logrus.Warnf("Classification parse failed: %v", err)
		return nil, err
	}

	return classification, nil
}

func buildClassificationPrompt(text string) string {
	return fmt.Sprintf(`Analyze this emergency situation and classify it. Return ONLY a JSON object with this exact structure:
{
  "emergencyType": "medical|fire|police|natural_disaster|accident|other",
  "detectedEmergencyType": "specific type like heart_attack, building_fire, etc.",
  "confidenceScore": 0.0-1.0,
  "reasoning": "brief explanation of classification",
  "riskAssessment": "low|medium|high|critical",
  "immediateActions": ["array of 2-3 immediate actions"]
}

User input: "%s"

Emergency types:
- medical: health emergencies, injuries, medical conditions
- fire: fires, smoke, burns
- police: crimes, safety threats, suspicious activities
- natural_disaster: earthquakes, floods, storms
- accident: car crashes, falls, industrial accidents
- other: anything else

Respond with ONLY the JSON object, no other text.`, text)
}

// rawClassification uses pointers so missing fields are distinguishable
// from zero values during validation.
type rawClassification struct {
	EmergencyType         *string  `json:"emergencyType"`
	DetectedEmergencyType *string  `json:"detectedEmergencyType"`
	ConfidenceScore       *float64 `json:"confidenceScore"`
	Reasoning             string   `json:"reasoning"`
	RiskAssessment        *string  `json:"riskAssessment"`
	ImmediateActions      []string `json:"immediateActions"`
}

func parseClassification(raw string) (*models.Classification, error) {
	payload, err := extractJSON(raw)
	if err != nil {
		return nil, utils.NewMalformedResponseError("classification", err.Error())
	}

	var parsed rawClassification
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, utils.NewMalformedResponseError("classification", err.Error())
	}

	if parsed.EmergencyType == nil || parsed.ConfidenceScore == nil || parsed.RiskAssessment == nil {
		return nil, utils.NewMalformedResponseError("classification", "missing required fields")
	}

	category := strings.ToLower(strings.TrimSpace(*parsed.EmergencyType))
	if !models.ValidEmergencyType(category) {
		return nil, utils.NewMalformedResponseError("classification",
			fmt.Sprintf("unknown emergency type %q", *parsed.EmergencyType))
	}

	confidence := *parsed.ConfidenceScore
	if confidence < 0 || confidence > 1 {
		return nil, utils.NewMalformedResponseError("classification",
			fmt.Sprintf("confidence %v outside [0,1]", confidence))
	}

	risk := strings.ToLower(strings.TrimSpace(*parsed.RiskAssessment))
	if !models.ValidSeverity(risk) {
		return nil, utils.NewMalformedResponseError("classification",
			fmt.Sprintf("unknown risk level %q", *parsed.RiskAssessment))
	}

	detected := ""
	if parsed.DetectedEmergencyType != nil {
		detected = strings.TrimSpace(*parsed.DetectedEmergencyType)
	}
	if detected == "" {
		detected = category
	}

	return &models.Classification{
		Category:         category,
		DetectedType:     detected,
		Confidence:       confidence,
		RiskLevel:        risk,
		Reasoning:        parsed.Reasoning,
		ImmediateActions: parsed.ImmediateActions,
	}, nil
}

var (
	codeFencePattern = regexp.MustCompile("```json\n?|\n?```")
	jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)
)

// extractJSON strips code-fence markers and pulls the outermost JSON object
// from provider output. Anything beyond that is treated as malformed, not
// creatively recovered.
func extractJSON(text string) (string, error) {
	cleaned := strings.TrimSpace(codeFencePattern.ReplaceAllString(text, ""))
	match := jsonObjectPattern.FindString(cleaned)
	if match == "" {
		return "", fmt.Errorf("no JSON object found in response")
	}
	return match, nil
}
