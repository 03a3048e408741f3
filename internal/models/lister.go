package models

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"

	"codeberg.org/snonux/ynlb/internal/translation"
)

// NLLBModels are the published NLLB-200 checkpoints
var NLLBModels = []string{
	"facebook/nllb-200-distilled-600M",
	"facebook/nllb-200-distilled-1.3B",
	"facebook/nllb-200-1.3B",
	"facebook/nllb-200-3.3B",
}

// maxChatModels is how many chat models are printed before summarising
const maxChatModels = 10

// Lister handles listing available models of a backend
type Lister struct {
	cfg translation.Config
	out io.Writer
}

// NewLister creates a new model lister
func NewLister(cfg translation.Config, out io.Writer) *Lister {
	return &Lister{cfg: cfg, out: out}
}

// ListAvailableModels prints the models of the configured backend
func (l *Lister) ListAvailableModels(ctx context.Context) error {
	switch l.cfg.Backend {
	case translation.BackendNLLB, "":
		l.listNLLB()
		return nil
	case translation.BackendOpenAI:
		return l.listOpenAI(ctx)
	case translation.BackendGemini:
		return l.listGemini(ctx)
	default:
		return fmt.Errorf("unknown translation backend: %s", l.cfg.Backend)
	}
}

func (l *Lister) listNLLB() {
	current := l.cfg.Model
	if current == "" {
		current = translation.DefaultNLLBModel
	}

	fmt.Fprintln(l.out, "NLLB-200 Models:")
	for _, model := range NLLBModels {
		l.printModel(model, current)
	}
}

func (l *Lister) listOpenAI(ctx context.Context) error {
	if l.cfg.OpenAIKey == "" {
		return fmt.Errorf("OpenAI API key not found. Set OPENAI_API_KEY environment variable or configure in .ynlb.yaml")
	}

	config := openai.DefaultConfig(l.cfg.OpenAIKey)
	if l.cfg.OpenAIBaseURL != "" {
		config.BaseURL = l.cfg.OpenAIBaseURL
	}
	client := openai.NewClientWithConfig(config)

	models, err := client.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}

	// Categorize models
	chatModels := []string{}
	for _, model := range models.Models {
		id := model.ID
		if strings.Contains(id, "tts") || strings.Contains(id, "audio") || strings.Contains(id, "realtime") {
			continue
		}
		if strings.Contains(id, "gpt") || strings.Contains(id, "chat") || strings.HasPrefix(id, "o") {
			chatModels = append(chatModels, id)
		}
	}
	sort.Strings(chatModels)

	current := l.cfg.Model
	if current == "" {
		current = openai.GPT4oMini
	}

	fmt.Fprintln(l.out, "OpenAI Chat Models:")
	if len(chatModels) == 0 {
		fmt.Fprintln(l.out, "  No chat models found")
		return nil
	}

	if len(chatModels) > maxChatModels {
		// Show only the current generations
		relevant := []string{}
		for _, model := range chatModels {
			if strings.Contains(model, "gpt-4") || strings.Contains(model, "gpt-5") || model == current {
				relevant = append(relevant, model)
			}
		}
		for _, model := range relevant {
			l.printModel(model, current)
		}
		fmt.Fprintf(l.out, "  ... and %d more models\n", len(chatModels)-len(relevant))
		return nil
	}

	for _, model := range chatModels {
		l.printModel(model, current)
	}
	return nil
}

func (l *Lister) listGemini(ctx context.Context) error {
	if l.cfg.GeminiKey == "" {
		return fmt.Errorf("Gemini API key not found. Set GEMINI_API_KEY environment variable or configure in .ynlb.yaml")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  l.cfg.GeminiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return fmt.Errorf("failed to create Gemini client: %w", err)
	}

	var names []string
	for model, err := range client.Models.All(ctx) {
		if err != nil {
			return fmt.Errorf("failed to list models: %w", err)
		}
		if !slices.Contains(model.SupportedActions, "generateContent") {
			continue
		}
		names = append(names, strings.TrimPrefix(model.Name, "models/"))
	}
	sort.Strings(names)

	current := l.cfg.Model
	if current == "" {
		current = translation.DefaultGeminiModel
	}

	fmt.Fprintln(l.out, "Gemini Models:")
	if len(names) == 0 {
		fmt.Fprintln(l.out, "  No models found")
	}
	for _, name := range names {
		l.printModel(name, current)
	}
	return nil
}

func (l *Lister) printModel(model, current string) {
	if model == current {
		fmt.Fprintf(l.out, "  %s (selected)\n", model)
		return
	}
	fmt.Fprintf(l.out, "  %s\n", model)
}
