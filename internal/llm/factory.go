package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/agenthands/cardscan/internal/config"
)

// ErrMissingAPIKey means the provider requires a credential and none was
// configured. Callers surface this as a configuration problem, not a
// transport failure.
var ErrMissingAPIKey = errors.New("llm: api key is required")

func NewClient(ctx context.Context, cfg config.LLMConfig) (VisionClient, error) {
	provider := strings.ToLower(cfg.Provider)

	switch provider {
	case "gemini", "":
		if cfg.APIKey == "" {
			return nil, ErrMissingAPIKey
		}
		return NewGeminiClient(ctx, cfg.APIKey, cfg.Model)

	case "openai":
		if cfg.APIKey == "" {
			return nil, ErrMissingAPIKey
		}
		return NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL), nil

	case "claude":
		if cfg.APIKey == "" {
			return nil, ErrMissingAPIKey
		}
		return NewClaudeClient(cfg.APIKey, cfg.Model, cfg.BaseURL), nil

	case "ollama":
		// Ollama speaks the OpenAI-compatible API; the key is ignored but
		// the client config requires one.
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		if !strings.HasSuffix(baseURL, "/v1") {
			baseURL = fmt.Sprintf("%s/v1", strings.TrimRight(baseURL, "/"))
		}
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = "ollama"
		}
		return NewOpenAIClient(apiKey, cfg.Model, baseURL), nil

	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", provider)
	}
}
