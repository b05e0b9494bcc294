package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/gantry-dev/gantry/internal/config"
)

const (
	defaultGeminiModel  = "gemini-2.0-flash-exp"
	defaultGeminiKeyEnv = "GEMINI_API_KEY"
)

// geminiClient calls the Gemini API through the official genai SDK.
// The SDK client needs a context to construct, so it is created lazily
// on the first Complete call.
type geminiClient struct {
	apiKey string
	model  string

	mu     sync.Mutex
	client *genai.Client
}

func newGeminiClient(cfg config.ModelConfig) (*geminiClient, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		envKey := strings.TrimSpace(cfg.APIKeyEnv)
		if envKey == "" {
			envKey = defaultGeminiKeyEnv
		}
		apiKey = strings.TrimSpace(os.Getenv(envKey))
	}
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required (set api_key or %s)", defaultGeminiKeyEnv)
	}

	model := strings.TrimSpace(cfg.Name)
	if model == "" {
		model = defaultGeminiModel
	}

	return &geminiClient{apiKey: apiKey, model: model}, nil
}

func (g *geminiClient) ensureClient(ctx context.Context) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil {
		return g.client, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	g.client = client
	return client, nil
}

func (g *geminiClient) Complete(ctx context.Context, instructions, input string) (string, error) {
	client, err := g.ensureClient(ctx)
	if err != nil {
		return "", err
	}

	var cfg *genai.GenerateContentConfig
	if instructions != "" {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{
				Parts: []*genai.Part{{Text: instructions}},
			},
		}
	}
	contents := []*genai.Content{
		{Role: genai.RoleUser, Parts: []*genai.Part{{Text: input}}},
	}

	result, err := client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", fmt.Errorf("gemini response did not contain text")
	}
	return text, nil
}
