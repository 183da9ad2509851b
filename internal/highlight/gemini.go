package highlight

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const highlightPrompt = `Analyze this video transcript and identify 3-5 key highlights that would make engaging 30-60 second shorts. Return only a JSON array with start and end times in seconds and a brief description.

Transcript: %s

Format: [{"start": 30, "end": 90, "description": "Brief highlight description"}, ...]`

// GeminiOracle asks Gemini for highlight windows
type GeminiOracle struct {
	apiKey string
	model  string
}

// NewGeminiOracle creates a new GeminiOracle
func NewGeminiOracle(apiKey, model string) *GeminiOracle {
	return &GeminiOracle{
		apiKey: apiKey,
		model:  model,
	}
}

// Highlights sends the transcript to Gemini and parses the returned windows
func (o *GeminiOracle) Highlights(ctx context.Context, transcript string) ([]Window, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  o.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	prompt := fmt.Sprintf(highlightPrompt, transcript)

	result, err := client.Models.GenerateContent(ctx, o.model, genai.Text(prompt), nil)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	var text string
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			text += part.Text
		}
	}

	return ParseWindows(text)
}
