package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Request is a normalized chat-completion request.
type Request struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	ForceJSON    bool
	Temperature  float64
}

// Response is the completed model output.
type Response struct {
	Text string
}

// Adapter bridges the service to a text-generation backend.
type Adapter interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Config controls adapter construction.
type Config struct {
	Mode    string
	APIKey  string
	BaseURL string
}

func NewAdapter(cfg Config) (Adapter, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.APIKey) != "" {
			return NewOpenAIAdapter(cfg.BaseURL, cfg.APIKey), nil
		}
		return NewMockAdapter(), nil
	case "openai":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, errors.New("OPENAI_API_KEY is required for openai mode")
		}
		return NewOpenAIAdapter(cfg.BaseURL, cfg.APIKey), nil
	case "mock":
		return NewMockAdapter(), nil
	default:
		return nil, fmt.Errorf("unsupported llm mode %q", cfg.Mode)
	}
}
