package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// TextGenerator produces free-form text for a prompt. Both AI-backed
// services consume this interface so tests can substitute fakes.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

const geminiModelName = "gemini-2.5-flash"

// GeminiClient wraps the Gemini API with two preconfigured models, one for
// classification and one for guidance generation.
type GeminiClient struct {
	client         *genai.Client
	classification *genai.GenerativeModel
	guidance       *genai.GenerativeModel
}

func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	classification := client.GenerativeModel(geminiModelName)
	classification.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(
			"You are an emergency response AI specialist. Analyze user input to determine the type of emergency and provide appropriate guidance.",
		)},
	}

	guidance := client.GenerativeModel(geminiModelName)
	guidance.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(
			"You are an emergency procedures expert. Provide step-by-step instructions for emergency situations based on established protocols.",
		)},
	}

	return &GeminiClient{
		client:         client,
		classification: classification,
		guidance:       guidance,
	}, nil
}

// ClassificationModel returns the generator used for intake classification.
func (gc *GeminiClient) ClassificationModel() TextGenerator {
	return &geminiModel{model: gc.classification}
}

// GuidanceModel returns the generator used for guidance generation.
func (gc *GeminiClient) GuidanceModel() TextGenerator {
	return &geminiModel{model: gc.guidance}
}

// Close releases the underlying API connection.
func (gc *GeminiClient) Close() error {
	return gc.client.Close()
}

// DisabledGenerator stands in when no API key is configured. Every call
// fails, which routes the intake pipeline onto the safe default.
type DisabledGenerator struct{}

func (DisabledGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return "", fmt.Errorf("AI provider is not configured")
}

type geminiModel struct {
	model *genai.GenerativeModel
}

func (gm *geminiModel) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := gm.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response from model")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	return sb.String(), nil
}
