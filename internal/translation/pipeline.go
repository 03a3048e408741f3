package translation

import (
	"context"
	"errors"
)

const (
	// DefaultSourceLang is the FLORES-200 tag for English.
	DefaultSourceLang = "eng_Latn"
	// DefaultTargetLang is the FLORES-200 tag for Yoruba.
	DefaultTargetLang = "yor_Latn"
	// DefaultMaxLength caps the generated output length.
	DefaultMaxLength = 1000
)

// ErrEmptyTranslation is returned when a backend answers without text.
var ErrEmptyTranslation = errors.New("no translation returned")

// Options are the fixed parameters passed on every pipeline call
type Options struct {
	Source    string // FLORES-200 code, e.g. eng_Latn
	Target    string // FLORES-200 code, e.g. yor_Latn
	MaxLength int
}

// DefaultOptions returns English to Yoruba with the default output cap
func DefaultOptions() Options {
	return Options{
		Source:    DefaultSourceLang,
		Target:    DefaultTargetLang,
		MaxLength: DefaultMaxLength,
	}
}

// Pipeline translates text with a loaded model
type Pipeline interface {
	// Translate returns the translation of text
	Translate(ctx context.Context, text string, opts Options) (string, error)

	// Name returns the backend and model name
	Name() string

	// Close releases the pipeline resources
	Close() error
}

// Streamer is implemented by pipelines that can report partial output.
// onUpdate receives the accumulated translation so far.
type Streamer interface {
	TranslateStream(ctx context.Context, text string, opts Options, onUpdate func(partial string)) (string, error)
}

// Stream translates text, reporting partial output when p supports it
func Stream(ctx context.Context, p Pipeline, text string, opts Options, onUpdate func(string)) (string, error) {
	if s, ok := p.(Streamer); ok && onUpdate != nil {
		return s.TranslateStream(ctx, text, opts, onUpdate)
	}
	return p.Translate(ctx, text, opts)
}

// LoadState is a model loading phase
type LoadState string

const (
	LoadInitiate LoadState = "initiate"
	LoadProgress LoadState = "progress"
	LoadDone     LoadState = "done"
	LoadReady    LoadState = "ready"
)

// LoadStatus reports model loading progress for one file
type LoadStatus struct {
	State    LoadState
	File     string
	Progress float64 // 0..100
}

// ProgressFunc receives load progress while a pipeline is created
type ProgressFunc func(LoadStatus)

// Factory creates a new pipeline instance. Each call returns an
// independent instance; callers own it and must Close it.
type Factory func(ctx context.Context, onProgress ProgressFunc) (Pipeline, error)
