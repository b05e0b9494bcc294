package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gantry-dev/gantry/internal/config"
)

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(config.ModelConfig{Provider: "mystery"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mystery")
}

func TestNew_GeminiRequiresKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	_, err := New(config.ModelConfig{Provider: "gemini"}, nil)
	require.Error(t, err)
}

func TestNew_GeminiDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	client, err := New(config.ModelConfig{Provider: "gemini"}, nil)
	require.NoError(t, err)

	g, ok := client.(*geminiClient)
	require.True(t, ok)
	assert.Equal(t, defaultGeminiModel, g.model)
	assert.Equal(t, "test-key", g.apiKey)
}

func TestNew_GeminiExplicitKeyWins(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")
	client, err := New(config.ModelConfig{Provider: "gemini", APIKey: "cfg-key", Name: "gemini-2.5-pro"}, nil)
	require.NoError(t, err)

	g := client.(*geminiClient)
	assert.Equal(t, "cfg-key", g.apiKey)
	assert.Equal(t, "gemini-2.5-pro", g.model)
}

func TestNew_OpenAIRequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := New(config.ModelConfig{Provider: "openai"}, nil)
	require.Error(t, err)
}

func TestNew_OpenAIKeyEnvOverride(t *testing.T) {
	t.Setenv("MY_KEY", "alt-key")
	client, err := New(config.ModelConfig{Provider: "openai", APIKeyEnv: "MY_KEY"}, nil)
	require.NoError(t, err)

	o, ok := client.(*openaiClient)
	require.True(t, ok)
	assert.Equal(t, defaultOpenAIModel, o.model)
}
