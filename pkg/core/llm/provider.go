package llm

import (
	"context"
)

// Option keys understood by providers
const (
	OptModel          = "model"           // string
	OptAPIKey         = "api_key"         // string
	OptResponseFormat = "response_format" // map[string]interface{}{"type": "json_object"}
	OptResponseSchema = "response_schema" // *genai.Schema (Gemini only)
	OptTemperature    = "temperature"     // float64
)

// Provider is the interface for all LLM providers.
type Provider interface {
	GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error)
	// AdaptInstructions transforms raw instructions into model-specific formats
	AdaptInstructions(rawInstructions string) string
}

// wantsJSON reports whether the caller asked for a JSON object response.
func wantsJSON(options map[string]interface{}) bool {
	if val, ok := options[OptResponseFormat].(map[string]interface{}); ok {
		return val["type"] == "json_object"
	}
	return false
}

func stringOption(options map[string]interface{}, key, fallback string) string {
	if val, ok := options[key].(string); ok && val != "" {
		return val
	}
	return fallback
}
