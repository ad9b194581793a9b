package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// ChatCompletionsProvider talks to any OpenAI-compatible /chat/completions endpoint.
type ChatCompletionsProvider struct {
	Name         string // Used in error codes, e.g. "DEEPSEEK"
	URL          string // Full endpoint URL
	DefaultModel string
	APIKeyEnv    []string // Checked in order
	HTTPClient   *http.Client
}

// NewDeepSeekProvider returns a provider for the DeepSeek chat API
func NewDeepSeekProvider() *ChatCompletionsProvider {
	return &ChatCompletionsProvider{
		Name:         "DEEPSEEK",
		URL:          "https://api.deepseek.com/chat/completions",
		DefaultModel: "deepseek-chat",
		APIKeyEnv:    []string{"DEEPSEEK_API_KEY"},
	}
}

// NewQwenProvider returns a provider for DashScope's OpenAI-compatible mode
func NewQwenProvider() *ChatCompletionsProvider {
	return &ChatCompletionsProvider{
		Name:         "QWEN",
		URL:          "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions",
		DefaultModel: "qwen-max",
		APIKeyEnv:    []string{"DASHSCOPE_API_KEY", "QWEN_API_KEY"},
	}
}

var _ Provider = (*ChatCompletionsProvider)(nil)

type chatRequest struct {
	Messages       []Message       `json:"messages"`
	Model          string          `json:"model"`
	MaxTokens      int             `json:"max_tokens"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
	Stream         bool            `json:"stream"`
	Temperature    float64         `json:"temperature"`
}

type Message struct {
	Content string `json:"content"`
	Role    string `json:"role"`
}

type ResponseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (p *ChatCompletionsProvider) apiKey(options map[string]interface{}) string {
	if val := stringOption(options, OptAPIKey, ""); val != "" {
		return val
	}
	for _, env := range p.APIKeyEnv {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	return ""
}

func (p *ChatCompletionsProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	apiKey := p.apiKey(options)
	if apiKey == "" {
		return "", fmt.Errorf("%s_API_KEY_MISSING: set one of %v", p.Name, p.APIKeyEnv)
	}

	reqBody := chatRequest{
		Model:       stringOption(options, OptModel, p.DefaultModel),
		MaxTokens:   4096,
		Temperature: 1.0,
	}
	if systemPrompt != "" {
		reqBody.Messages = append(reqBody.Messages, Message{Content: systemPrompt, Role: "system"})
	}
	reqBody.Messages = append(reqBody.Messages, Message{Content: prompt, Role: "user"})
	if t, ok := options[OptTemperature].(float64); ok {
		reqBody.Temperature = t
	}
	if wantsJSON(options) || options[OptResponseSchema] != nil {
		reqBody.ResponseFormat = &ResponseFormat{Type: "json_object"}
	}

	jsonBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%s_MARSHAL_ERROR: %w", p.Name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, bytes.NewReader(jsonBytes))
	if err != nil {
		return "", fmt.Errorf("%s_REQ_CREATE_ERROR: %w", p.Name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	client := p.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	res, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s_API_CALL_ERROR: %w", p.Name, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("%s_READ_BODY_ERROR: %w", p.Name, err)
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s_API_ERROR: status=%d body=%s", p.Name, res.StatusCode, string(body))
	}

	var response chatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("%s_UNMARSHAL_ERROR: %w", p.Name, err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("%s_NO_CHOICES: %s", p.Name, string(body))
	}
	return response.Choices[0].Message.Content, nil
}

func (p *ChatCompletionsProvider) AdaptInstructions(raw string) string {
	return raw
}
