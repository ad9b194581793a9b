package llm

import (
	"context"
	"fmt"
	"os"
	"sync"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when neither the provider nor the call names a model.
const DefaultGeminiModel = "gemini-3-flash-preview"

// GeminiProvider implements the Provider interface for Google's Gemini models.
type GeminiProvider struct {
	Model  string // e.g. "gemini-3-flash-preview"
	APIKey string // Falls back to GEMINI_API_KEY

	mu     sync.Mutex
	client *genai.Client
}

// Ensure interface compliance
var _ Provider = (*GeminiProvider)(nil)

func (p *GeminiProvider) getClient(ctx context.Context) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return p.client, nil
	}

	apiKey := p.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY_MISSING: GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("GEMINI_CLIENT_ERROR: %w", err)
	}
	p.client = client
	return client, nil
}

// GenerateResponse sends a generateContent request to the Gemini API using the official GenAI SDK.
func (p *GeminiProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	client, err := p.getClient(ctx)
	if err != nil {
		return "", err
	}

	model := p.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	model = stringOption(options, OptModel, model)

	config := &genai.GenerateContentConfig{}
	if t, ok := options[OptTemperature].(float64); ok {
		config.Temperature = genai.Ptr(float32(t))
	}

	// Structured output: a schema implies JSON mode
	if schema, ok := options[OptResponseSchema].(*genai.Schema); ok && schema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = schema
	} else if wantsJSON(options) {
		config.ResponseMIMEType = "application/json"
	}

	if systemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{
				{Text: systemPrompt},
			},
		}
	}

	result, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("GEMINI_GENERATION_FAILED: %w", err)
	}

	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("GEMINI_EMPTY_RESPONSE: model %s returned no text", model)
	}
	return text, nil
}

func (p *GeminiProvider) AdaptInstructions(raw string) string {
	return raw
}
