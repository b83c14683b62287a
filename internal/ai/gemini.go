package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiClassifier implements Classifier using Google's Gemini models.
type GeminiClassifier struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiClassifier initializes a new Gemini client. apiKey comes from the
// environment; modelName defaults to a low-latency flash model upstream.
func NewGeminiClassifier(ctx context.Context, apiKey, modelName string) (*GeminiClassifier, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)

	// Force JSON response for structured parsing.
	model.ResponseMIMEType = "application/json"
	model.SetTemperature(0.2)

	return &GeminiClassifier{client: client, model: model}, nil
}

// Close cleans up the Gemini client resources.
func (c *GeminiClassifier) Close() {
	c.client.Close()
}

// Classify sends one classification prompt. A response that fails schema
// validation is retried once with a corrective message; a second failure is
// surfaced to the caller (and from there to the circuit breaker).
func (c *GeminiClassifier) Classify(ctx context.Context, req ClassifyRequest) (*ClassifyResult, error) {
	prompt := buildPrompt(req)

	raw, err := c.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	res, parseErr := ParseResult([]byte(raw))
	if parseErr == nil {
		return res, nil
	}

	corrective := fmt.Sprintf("%s\n\nTu respuesta anterior no cumplió el esquema (%v). Responde de nuevo SOLO con el JSON válido.", prompt, parseErr)
	raw, err = c.generate(ctx, corrective)
	if err != nil {
		return nil, err
	}
	res, parseErr = ParseResult([]byte(raw))
	if parseErr != nil {
		return nil, fmt.Errorf("model response failed schema twice: %w", parseErr)
	}
	return res, nil
}

func (c *GeminiClassifier) generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generation error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no response candidates from Gemini")
	}

	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			out.WriteString(string(txt))
		}
	}
	return cleanJSONString(out.String()), nil
}

// cleanJSONString removes markdown code blocks if present (e.g. ```json ... ```)
func cleanJSONString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.TrimPrefix(input, "```json")
	input = strings.TrimPrefix(input, "```")
	input = strings.TrimSuffix(input, "```")
	return strings.TrimSpace(input)
}
