package testutil

import (
	"context"
	"sync"
	"time"

	"codeberg.org/snonux/ynlb/internal/translation"
)

// FakePipeline is a scriptable translation.Pipeline for tests
type FakePipeline struct {
	Translations map[string]string   // text -> translation
	Errors       map[string]error    // text -> error
	Chunks       map[string][]string // text -> streamed partials
	Gate         <-chan struct{}     // when set, every call waits for a value
	Delay        time.Duration

	mu     sync.Mutex
	calls  []string
	closed bool
}

// Translate returns the scripted translation, or "yo:<text>"
func (f *FakePipeline) Translate(ctx context.Context, text string, opts translation.Options) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.mu.Unlock()

	if f.Gate != nil {
		select {
		case <-f.Gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if err, ok := f.Errors[text]; ok {
		return "", err
	}
	if out, ok := f.Translations[text]; ok {
		return out, nil
	}
	return "yo:" + text, nil
}

// TranslateStream reports the scripted chunks before the final translation
func (f *FakePipeline) TranslateStream(ctx context.Context, text string, opts translation.Options, onUpdate func(string)) (string, error) {
	for _, chunk := range f.Chunks[text] {
		onUpdate(chunk)
	}
	return f.Translate(ctx, text, opts)
}

// Name returns "fake"
func (f *FakePipeline) Name() string { return "fake" }

// Close marks the pipeline closed
func (f *FakePipeline) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Calls returns the texts passed to Translate, in call order
func (f *FakePipeline) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.calls...)
}

// Closed reports whether Close was called
func (f *FakePipeline) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// FakeFactory creates one FakePipeline per factory call and remembers them
type FakeFactory struct {
	// New builds the n-th pipeline; nil yields an empty FakePipeline
	New     func(n int) *FakePipeline
	LoadErr error

	mu      sync.Mutex
	created []*FakePipeline
}

// Factory returns the translation.Factory backed by f
func (f *FakeFactory) Factory() translation.Factory {
	return func(ctx context.Context, onProgress translation.ProgressFunc) (translation.Pipeline, error) {
		if onProgress != nil {
			onProgress(translation.LoadStatus{State: translation.LoadInitiate, File: "fake"})
		}
		if f.LoadErr != nil {
			return nil, f.LoadErr
		}

		f.mu.Lock()
		var p *FakePipeline
		if f.New != nil {
			p = f.New(len(f.created))
		} else {
			p = &FakePipeline{}
		}
		f.created = append(f.created, p)
		f.mu.Unlock()

		if onProgress != nil {
			onProgress(translation.LoadStatus{State: translation.LoadDone, File: "fake", Progress: 100})
			onProgress(translation.LoadStatus{State: translation.LoadReady, File: "fake", Progress: 100})
		}
		return p, nil
	}
}

// Created returns the pipelines built so far
func (f *FakeFactory) Created() []*FakePipeline {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*FakePipeline{}, f.created...)
}
