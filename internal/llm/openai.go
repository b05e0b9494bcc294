package llm

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"github.com/gantry-dev/gantry/internal/config"
)

const (
	defaultOpenAIModel   = "gpt-4.1-mini"
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIKeyEnv  = "OPENAI_API_KEY"
	defaultOpenAITimeout = 120 * time.Second
)

// openaiClient calls the OpenAI Responses API for oneshot completions.
type openaiClient struct {
	model  string
	client openai.Client
}

func newOpenAIClient(cfg config.ModelConfig, httpClient *http.Client) (*openaiClient, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		envKey := strings.TrimSpace(cfg.APIKeyEnv)
		if envKey == "" {
			envKey = defaultOpenAIKeyEnv
		}
		apiKey = strings.TrimSpace(os.Getenv(envKey))
	}
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required (set api_key or %s)", defaultOpenAIKeyEnv)
	}

	model := strings.TrimSpace(cfg.Name)
	if model == "" {
		model = defaultOpenAIModel
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = defaultOpenAITimeout
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithRequestTimeout(timeout),
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	return &openaiClient{
		model:  model,
		client: openai.NewClient(opts...),
	}, nil
}

func (c *openaiClient) Complete(ctx context.Context, instructions, input string) (string, error) {
	resp, err := c.client.Responses.New(ctx, responses.ResponseNewParams{
		Model:        c.model,
		Instructions: openai.String(instructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(input),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai responses.create: %w", err)
	}
	if msg := strings.TrimSpace(resp.Error.Message); msg != "" {
		return "", fmt.Errorf("openai response failed: %s", msg)
	}

	output := strings.TrimSpace(resp.OutputText())
	if output == "" {
		return "", fmt.Errorf("openai response did not contain output text")
	}
	return output, nil
}
