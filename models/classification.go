package models

// Classification is the structured result of one intake analysis. It is
// produced once per trigger call and never persisted on its own; the
// Emergency record embeds a summary of it.
type Classification struct {
	Category         string   `json:"emergencyType"`
	DetectedType     string   `json:"detectedEmergencyType"`
	Confidence       float64  `json:"confidenceScore"`
	RiskLevel        string   `json:"riskAssessment"`
	Reasoning        string   `json:"reasoning"`
	ImmediateActions []string `json:"immediateActions"`
}

// GuidanceStep is one ordered, actionable instruction.
type GuidanceStep struct {
	StepNumber    int    `json:"stepNumber"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	EstimatedTime int    `json:"estimatedTime"`
	Priority      string `json:"priority"`
	SafetyNote    string `json:"safetyNote,omitempty"`
}

// GuidanceBundle is the full guidance payload for one emergency.
type GuidanceBundle struct {
	Category          string         `json:"emergencyType"`
	DetectedType      string         `json:"detectedEmergencyType"`
	Steps             []GuidanceStep `json:"steps"`
	EmergencyContact  string         `json:"emergencyServicesContact"`
	Precautions       []string       `json:"precautions"`
	Monitoring        string         `json:"monitoringInstructions"`
	KnowledgeBaseUsed bool           `json:"knowledgeBaseUsed"`
}

// ==================== AI endpoint requests ====================

type ClassifyRequest struct {
	Text        string            `json:"text" validate:"required,min=3"`
	UserContext map[string]string `json:"userContext,omitempty"`
}

type GuidanceRequest struct {
	EmergencyType string            `json:"emergencyType" validate:"required,emergency_type"`
	DetectedType  string            `json:"detectedType,omitempty"`
	UserContext   map[string]string `json:"userContext,omitempty"`
}

// AnalyzeResponse bundles classification and guidance for POST /ai/analyze.
type AnalyzeResponse struct {
	Classification Classification `json:"classification"`
	Guidance       GuidanceBundle `json:"guidance"`
	UsedFallback   bool           `json:"usedFallback"`
}
