package translation

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured
const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiPipeline translates with a Gemini model
type GeminiPipeline struct {
	client *genai.Client
	model  string
}

// NewGeminiPipeline creates a Gemini backed pipeline
func NewGeminiPipeline(ctx context.Context, apiKey, model string) (*GeminiPipeline, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key not found")
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiPipeline{client: client, model: model}, nil
}

func (p *GeminiPipeline) config(opts Options) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.3),
		MaxOutputTokens: int32(opts.MaxLength),
	}
}

// Translate translates text in one request
func (p *GeminiPipeline) Translate(ctx context.Context, text string, opts Options) (string, error) {
	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(buildPrompt(text, opts)), p.config(opts))
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	out := resp.Text()
	if strings.TrimSpace(out) == "" {
		return "", ErrEmptyTranslation
	}
	return Normalize(out), nil
}

// TranslateStream streams the response, calling onUpdate with the text
// accumulated so far
func (p *GeminiPipeline) TranslateStream(ctx context.Context, text string, opts Options, onUpdate func(string)) (string, error) {
	var b strings.Builder
	for resp, err := range p.client.Models.GenerateContentStream(ctx, p.model, genai.Text(buildPrompt(text, opts)), p.config(opts)) {
		if err != nil {
			return "", fmt.Errorf("Gemini stream error: %w", err)
		}
		chunk := resp.Text()
		if chunk == "" {
			continue
		}
		b.WriteString(chunk)
		onUpdate(b.String())
	}

	if strings.TrimSpace(b.String()) == "" {
		return "", ErrEmptyTranslation
	}
	return Normalize(b.String()), nil
}

// Name returns the backend and model name
func (p *GeminiPipeline) Name() string {
	return "gemini:" + p.model
}

// Close is a no-op; the Gemini client holds no closable resources
func (p *GeminiPipeline) Close() error {
	return nil
}
