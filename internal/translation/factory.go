package translation

import (
	"context"
	"fmt"
)

// Backend names
const (
	BackendNLLB   = "nllb"
	BackendOpenAI = "openai"
	BackendGemini = "gemini"
)

// Config selects and configures a translation backend
type Config struct {
	Backend string
	Model   string

	OpenAIKey     string
	OpenAIBaseURL string
	GeminiKey     string
	NLLBEndpoint  string
	NLLBToken     string

	Breaker BreakerConfig

	// OnBreakerChange is notified when a pipeline's breaker changes state
	OnBreakerChange func(name, from, to string)
}

// NewFactory validates cfg and returns a Factory for its backend
func NewFactory(cfg Config) (Factory, error) {
	var create func(ctx context.Context) (Pipeline, error)

	switch cfg.Backend {
	case BackendNLLB, "":
		create = func(ctx context.Context) (Pipeline, error) {
			return NewNLLBPipeline(cfg.NLLBEndpoint, cfg.NLLBToken, cfg.Model), nil
		}
	case BackendOpenAI:
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OpenAI API key is required for the openai backend")
		}
		create = func(ctx context.Context) (Pipeline, error) {
			return NewOpenAIPipeline(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.Model)
		}
	case BackendGemini:
		if cfg.GeminiKey == "" {
			return nil, fmt.Errorf("Gemini API key is required for the gemini backend")
		}
		create = func(ctx context.Context) (Pipeline, error) {
			return NewGeminiPipeline(ctx, cfg.GeminiKey, cfg.Model)
		}
	default:
		return nil, fmt.Errorf("unknown translation backend: %s", cfg.Backend)
	}

	return func(ctx context.Context, onProgress ProgressFunc) (Pipeline, error) {
		if onProgress == nil {
			onProgress = func(LoadStatus) {}
		}

		p, err := create(ctx)
		if err != nil {
			return nil, err
		}

		// Hosted models load remotely; report the phases so callers can
		// render them the same way for every backend.
		file := p.Name()
		onProgress(LoadStatus{State: LoadInitiate, File: file})
		onProgress(LoadStatus{State: LoadProgress, File: file, Progress: 100})
		onProgress(LoadStatus{State: LoadDone, File: file, Progress: 100})
		onProgress(LoadStatus{State: LoadReady, File: file, Progress: 100})

		return WithBreaker(p, cfg.Breaker, cfg.OnBreakerChange), nil
	}, nil
}
