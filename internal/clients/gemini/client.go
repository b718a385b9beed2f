// Package gemini provides a client for the Google Gemini API
package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/bobmcallan/finsight/internal/common"
	"github.com/bobmcallan/finsight/internal/interfaces"
)

const (
	DefaultModel     = "gemini-2.0-flash"
	DefaultLiteModel = "gemini-2.0-flash-lite"
)

// Client implements the GeminiClient interface
type Client struct {
	client    *genai.Client
	model     string
	liteModel string
	logger    *common.Logger
}

var _ interfaces.GeminiClient = (*Client)(nil)

// ClientOption configures the client
type ClientOption func(*Client)

// WithModel sets the standard model
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithLiteModel sets the fast model used for classification-grade calls
func WithLiteModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.liteModel = model
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new Gemini client
func NewClient(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	c := &Client{
		client:    genaiClient,
		model:     DefaultModel,
		liteModel: DefaultLiteModel,
		logger:    common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *Client) resolve(opts []interfaces.GenerateOption) (string, *genai.GenerateContentConfig) {
	params := interfaces.GenerateParams{}
	for _, opt := range opts {
		opt(&params)
	}

	model := c.model
	if params.Lite {
		model = c.liteModel
	}

	var config *genai.GenerateContentConfig
	if params.MaxOutputTokens > 0 || params.Temperature != nil {
		config = &genai.GenerateContentConfig{
			MaxOutputTokens: params.MaxOutputTokens,
			Temperature:     params.Temperature,
		}
	}

	return model, config
}

// GenerateText generates a complete response for a prompt
func (c *Client) GenerateText(ctx context.Context, prompt string, opts ...interfaces.GenerateOption) (string, error) {
	model, config := c.resolve(opts)
	c.logger.Debug().Str("model", model).Msg("Generating content")

	contents := genai.Text(prompt)
	result, err := c.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	return extractTextFromResponse(result)
}

// GenerateTextStream generates a response and delivers it as ordered chunks.
// Some models resend the accumulated text in each chunk; only the delta is
// forwarded to onChunk.
func (c *Client) GenerateTextStream(ctx context.Context, prompt string, onChunk func(chunk string) error, opts ...interfaces.GenerateOption) error {
	model, config := c.resolve(opts)
	c.logger.Debug().Str("model", model).Msg("Generating content stream")

	contents := genai.Text(prompt)
	accumulated := ""
	for response, err := range c.client.Models.GenerateContentStream(ctx, model, contents, config) {
		if err != nil {
			return fmt.Errorf("failed to stream content: %w", err)
		}
		if response == nil {
			continue
		}

		chunkText := response.Text()
		if chunkText == "" {
			continue
		}
		delta := chunkText
		if strings.HasPrefix(chunkText, accumulated) {
			delta = chunkText[len(accumulated):]
		}
		if delta == "" {
			continue
		}
		accumulated += delta

		if err := onChunk(delta); err != nil {
			return err
		}
	}

	return nil
}

// extractTextFromResponse extracts text from a generate content response
func extractTextFromResponse(result *genai.GenerateContentResponse) (string, error) {
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content generated")
	}

	text := ""
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			text += part.Text
		}
	}

	return text, nil
}
