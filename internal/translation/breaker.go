package translation

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerConfig controls when a backend is considered unhealthy
type BreakerConfig struct {
	MaxFailures uint32        // consecutive failures before opening
	Cooldown    time.Duration // time spent open before probing again
}

// DefaultBreakerConfig returns the default breaker settings
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxFailures: 5,
		Cooldown:    30 * time.Second,
	}
}

// breakerPipeline fails fast once the wrapped backend keeps failing
type breakerPipeline struct {
	inner Pipeline
	cb    *gobreaker.CircuitBreaker
}

// WithBreaker wraps p in a circuit breaker. Cancelled calls are not
// counted as backend failures.
func WithBreaker(p Pipeline, cfg BreakerConfig, onStateChange func(name string, from, to string)) Pipeline {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = DefaultBreakerConfig().MaxFailures
	}

	settings := gobreaker.Settings{
		Name:    p.Name(),
		Timeout: cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
	if onStateChange != nil {
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			onStateChange(name, from.String(), to.String())
		}
	}

	return &breakerPipeline{
		inner: p,
		cb:    gobreaker.NewCircuitBreaker(settings),
	}
}

func (b *breakerPipeline) Translate(ctx context.Context, text string, opts Options) (string, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.Translate(ctx, text, opts)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

func (b *breakerPipeline) TranslateStream(ctx context.Context, text string, opts Options, onUpdate func(string)) (string, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return Stream(ctx, b.inner, text, opts, onUpdate)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

func (b *breakerPipeline) Name() string {
	return b.inner.Name()
}

func (b *breakerPipeline) Close() error {
	return b.inner.Close()
}
