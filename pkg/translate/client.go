package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/eum-live/caption-pipeline/pkg/config"
)

// Client is a minimal client for an OpenAI-compatible chat completion API
// used as the translation provider
type Client struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewClient creates a translation client using values from the provided
// config. Pass a nil config to fall back to environment variables.
func NewClient(cfg *config.TranslatorConfig) *Client {
	var apiKey string
	if cfg != nil {
		apiKey = cfg.APIKey
	}
	if apiKey == "" {
		apiKey = os.Getenv("TRANSLATOR_API_KEY")
	}

	var base string
	if cfg != nil && cfg.BaseURL != "" {
		base = cfg.BaseURL
	} else {
		base = os.Getenv("TRANSLATOR_API_URL")
		if base == "" {
			base = "https://api.groq.com"
		}
	}

	model := "llama-3.1-70b-versatile"
	if cfg != nil && cfg.Model != "" {
		model = cfg.Model
	}

	timeout := 15 * time.Second
	if cfg != nil && cfg.Timeout > 0 {
		timeout = cfg.Timeout
	}

	return &Client{
		apiKey:  apiKey,
		baseURL: base,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

// ChatMessage is a single chat completion message
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the shape for chat completion requests
type ChatRequest struct {
	Model       string        `json:"model,omitempty"`
	Messages    []ChatMessage `json:"messages,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// ChatResponse is a minimal response shape
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Translate translates a single span with no continuity context
func (c *Client) Translate(ctx context.Context, text, source, target string) (string, error) {
	messages := []ChatMessage{
		{
			Role:    "system",
			Content: fmt.Sprintf("You are a translation engine for live meeting captions. Translate the user's %s text into %s. Return only the translation, nothing else.", source, target),
		},
		{Role: "user", Content: text},
	}
	return c.complete(ctx, messages)
}

// TranslateWithContext translates a span with the speaker's previous
// utterance and its translation as continuity hints, improving pronoun
// resolution and topic continuity across sentence boundaries
func (c *Client) TranslateWithContext(ctx context.Context, text, source, target, prevText, prevTranslation string) (string, error) {
	system := fmt.Sprintf("You are a translation engine for live meeting captions. Translate the user's %s text into %s. The same speaker's previous utterance was: %q", source, target, prevText)
	if prevTranslation != "" {
		system += fmt.Sprintf(" which you translated as: %q. Keep the translation consistent with it.", prevTranslation)
	}
	system += " Return only the translation, nothing else."

	messages := []ChatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: text},
	}
	return c.complete(ctx, messages)
}

func (c *Client) complete(ctx context.Context, messages []ChatMessage) (string, error) {
	reqBody := ChatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.2,
		MaxTokens:   2048,
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	endpoint := c.baseURL + "/openai/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("translation provider returned status %d", resp.StatusCode)
	}

	var cr ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", err
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("translation provider returned no choices")
	}
	return cr.Choices[0].Message.Content, nil
}
