package llmx

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Config targets any OpenAI-compatible endpoint (OpenAI itself, or a gateway
// such as OpenRouter via BASE_URL).
type Config struct {
	BaseURL             string        `envconfig:"BASE_URL" split_words:"true"`
	APIKey              string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model               string        `envconfig:"MODEL" split_words:"true" required:"true"`
	EmbeddingModel      string        `envconfig:"EMBEDDING_MODEL" split_words:"true" default:"text-embedding-3-small"`
	MaxCompletionTokens int           `envconfig:"MAX_COMPLETION_TOKENS" split_words:"true" default:"2000"`
	Temperature         float64       `envconfig:"TEMPERATURE" split_words:"true" default:"0"`
	Timeout             time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL             string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName            string        `envconfig:"SITE_NAME" split_words:"true"`
}

// Client adapts the OpenAI SDK to the core's ChatClient and
// EmbeddingsProvider contracts.
type Client struct {
	api            openaisdk.Client
	model          string
	embeddingModel string
	temperature    float64
	maxTokens      int
}

func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("llm api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, errors.New("llm model is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if trimmed := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); trimmed != "" {
		opts = append(opts, option.WithBaseURL(trimmed))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	// Gateway attribution headers, ignored by plain OpenAI.
	if cfg.SiteURL != "" {
		opts = append(opts, option.WithHeader("HTTP-Referer", cfg.SiteURL))
	}
	if cfg.SiteName != "" {
		opts = append(opts, option.WithHeader("X-Title", cfg.SiteName))
	}

	return &Client{
		api:            openaisdk.NewClient(opts...),
		model:          model,
		embeddingModel: strings.TrimSpace(cfg.EmbeddingModel),
		temperature:    cfg.Temperature,
		maxTokens:      cfg.MaxCompletionTokens,
	}, nil
}

func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	params := openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(c.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(system),
			openaisdk.UserMessage(user),
		},
		Temperature: openaisdk.Float(c.temperature),
	}
	if c.maxTokens > 0 {
		params.MaxTokens = openaisdk.Int(int64(c.maxTokens))
	}

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if c.embeddingModel == "" {
		return nil, errors.New("embedding model is not configured")
	}

	resp, err := c.api.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Model: openaisdk.EmbeddingModel(c.embeddingModel),
		Input: openaisdk.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("embeddings: %w", err)
	}

	out := make([][]float64, len(resp.Data))
	for _, item := range resp.Data {
		idx := int(item.Index)
		if idx < 0 || idx >= len(out) {
			return nil, fmt.Errorf("embeddings: index %d out of range", idx)
		}
		out[idx] = item.Embedding
	}
	return out, nil
}
