package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultNLLBModel is the distilled NLLB-200 checkpoint the app was built around
const DefaultNLLBModel = "facebook/nllb-200-distilled-600M"

const defaultNLLBBaseURL = "https://router.huggingface.co/hf-inference/models/"

// NLLBPipeline calls a hosted NLLB translation endpoint that speaks the
// Hugging Face inference API
type NLLBPipeline struct {
	endpoint string
	token    string
	model    string
	client   *http.Client
}

type nllbRequest struct {
	Inputs     string         `json:"inputs"`
	Parameters nllbParameters `json:"parameters"`
	Options    nllbOptions    `json:"options"`
}

type nllbParameters struct {
	SrcLang   string `json:"src_lang"`
	TgtLang   string `json:"tgt_lang"`
	MaxLength int    `json:"max_length,omitempty"`
}

type nllbOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

type nllbResult struct {
	TranslationText string `json:"translation_text"`
}

type nllbError struct {
	Error string `json:"error"`
}

// NewNLLBPipeline creates a pipeline for the given endpoint. An empty
// endpoint selects the hosted inference API for model.
func NewNLLBPipeline(endpoint, token, model string) *NLLBPipeline {
	if model == "" {
		model = DefaultNLLBModel
	}
	if endpoint == "" {
		endpoint = defaultNLLBBaseURL + model
	}
	return &NLLBPipeline{
		endpoint: endpoint,
		token:    token,
		model:    model,
		client:   &http.Client{Timeout: 5 * time.Minute},
	}
}

// Translate sends text to the endpoint and returns the first translation
func (p *NLLBPipeline) Translate(ctx context.Context, text string, opts Options) (string, error) {
	body, err := json.Marshal(nllbRequest{
		Inputs: text,
		Parameters: nllbParameters{
			SrcLang:   opts.Source,
			TgtLang:   opts.Target,
			MaxLength: opts.MaxLength,
		},
		Options: nllbOptions{WaitForModel: true},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr nllbError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return "", fmt.Errorf("inference endpoint returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return "", fmt.Errorf("inference endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var results []nllbResult
	if err := json.Unmarshal(data, &results); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(results) == 0 || strings.TrimSpace(results[0].TranslationText) == "" {
		return "", ErrEmptyTranslation
	}

	return Normalize(results[0].TranslationText), nil
}

// Name returns the backend and model name
func (p *NLLBPipeline) Name() string {
	return "nllb:" + p.model
}

// Close releases idle connections
func (p *NLLBPipeline) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
