package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	assert.Equal(t, "http://localhost:11434/v1", cfg.ClassifierHost)
	assert.Equal(t, "embeddinggemma", cfg.EmbeddingModel)
	assert.Equal(t, "qwen2.5:3b", cfg.ClassifierModel)
	assert.Equal(t, float32(0.5), cfg.MinConfidence)
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()

		assert.NotNil(t, cfg)
		// Should have default values
		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://localhost:11434/v1", cfg.ClassifierHost)
		assert.Equal(t, float32(0.5), cfg.MinConfidence)
	})

	t.Run("with custom host", func(t *testing.T) {
		cfg := NewConfig(WithHost("http://custom:8080/v1"))

		assert.Equal(t, "http://custom:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://custom:8080/v1", cfg.ClassifierHost)
	})

	t.Run("with separate hosts", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingHost("http://embed:8080/v1"),
			WithClassifierHost("http://classify:9090/v1"),
		)

		assert.Equal(t, "http://embed:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://classify:9090/v1", cfg.ClassifierHost)
	})

	t.Run("with custom models", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingModel("text-embedding-3-small"),
			WithClassifierModel("gpt-4o-mini"),
		)

		assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
		assert.Equal(t, "gpt-4o-mini", cfg.ClassifierModel)
	})

	t.Run("with custom min confidence", func(t *testing.T) {
		cfg := NewConfig(WithMinConfidence(0.8))

		assert.Equal(t, float32(0.8), cfg.MinConfidence)
	})
}

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name               string
		embeddingHost      string
		classifierHost     string
		expectedEmbedding  string
		expectedClassifier string
	}{
		{
			name:               "already has /v1",
			embeddingHost:      "http://localhost:11434/v1",
			classifierHost:     "http://localhost:11434/v1",
			expectedEmbedding:  "http://localhost:11434/v1",
			expectedClassifier: "http://localhost:11434/v1",
		},
		{
			name:               "missing /v1",
			embeddingHost:      "http://localhost:11434",
			classifierHost:     "http://localhost:11434",
			expectedEmbedding:  "http://localhost:11434/v1",
			expectedClassifier: "http://localhost:11434/v1",
		},
		{
			name:               "has trailing slash",
			embeddingHost:      "http://localhost:11434/",
			classifierHost:     "http://localhost:11434/",
			expectedEmbedding:  "http://localhost:11434/v1",
			expectedClassifier: "http://localhost:11434/v1",
		},
		{
			name:               "empty hosts",
			embeddingHost:      "",
			classifierHost:     "",
			expectedEmbedding:  "",
			expectedClassifier: "",
		},
		{
			name:               "different formats",
			embeddingHost:      "http://embed:8080",
			classifierHost:     "http://classify:9090/v1",
			expectedEmbedding:  "http://embed:8080/v1",
			expectedClassifier: "http://classify:9090/v1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				EmbeddingHost:  tt.embeddingHost,
				ClassifierHost: tt.classifierHost,
			}

			cfg.Normalize()

			assert.Equal(t, tt.expectedEmbedding, cfg.EmbeddingHost)
			assert.Equal(t, tt.expectedClassifier, cfg.ClassifierHost)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		cfg := DefaultConfig()
		require.NoError(t, cfg.Validate())
	})

	t.Run("validate normalizes hosts", func(t *testing.T) {
		cfg := NewConfig(WithHost("http://custom:8080"))
		require.NoError(t, cfg.Validate())
		assert.Equal(t, "http://custom:8080/v1", cfg.EmbeddingHost)
	})

	t.Run("missing embedding host", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.EmbeddingHost = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing classifier model", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.ClassifierModel = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("confidence out of range", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.MinConfidence = 1.5
		assert.Error(t, cfg.Validate())
	})
}
