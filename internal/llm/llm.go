package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gantry-dev/gantry/internal/config"
)

// Client produces one model completion per call. Transport failures are
// returned as errors; callers decide whether the run survives them.
type Client interface {
	Complete(ctx context.Context, instructions, input string) (string, error)
}

// New builds the provider client selected by the model config.
func New(cfg config.ModelConfig, httpClient *http.Client) (Client, error) {
	switch cfg.Provider {
	case "gemini":
		return newGeminiClient(cfg)
	case "openai":
		return newOpenAIClient(cfg, httpClient)
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}
