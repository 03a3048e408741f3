package translation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAIPipeline translates with an OpenAI chat model
type OpenAIPipeline struct {
	client *openai.Client
	model  string
}

// NewOpenAIPipeline creates a new OpenAI backed pipeline. baseURL may be
// empty to use the public API.
func NewOpenAIPipeline(apiKey, baseURL, model string) (*OpenAIPipeline, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key not found")
	}
	if model == "" {
		model = openai.GPT4oMini
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return &OpenAIPipeline{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}, nil
}

func (p *OpenAIPipeline) request(text string, opts Options) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildPrompt(text, opts),
			},
		},
		MaxTokens:   opts.MaxLength,
		Temperature: 0.3,
	}
}

// Translate translates text in one request
func (p *OpenAIPipeline) Translate(ctx context.Context, text string, opts Options) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, p.request(text, opts))
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyTranslation
	}

	return Normalize(resp.Choices[0].Message.Content), nil
}

// TranslateStream streams the completion, calling onUpdate with the text
// accumulated so far after every non-empty delta
func (p *OpenAIPipeline) TranslateStream(ctx context.Context, text string, opts Options, onUpdate func(string)) (string, error) {
	req := p.request(text, opts)
	req.Stream = true

	stream, err := p.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	defer stream.Close()

	var b strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("OpenAI stream error: %w", err)
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
			continue
		}
		b.WriteString(resp.Choices[0].Delta.Content)
		onUpdate(b.String())
	}

	if strings.TrimSpace(b.String()) == "" {
		return "", ErrEmptyTranslation
	}
	return Normalize(b.String()), nil
}

// Name returns the backend and model name
func (p *OpenAIPipeline) Name() string {
	return "openai:" + p.model
}

// Close is a no-op; the OpenAI client holds no resources
func (p *OpenAIPipeline) Close() error {
	return nil
}
