package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"codeberg.org/snonux/ynlb/internal/translation"
)

// GetOpenAIKey retrieves the OpenAI API key from environment or config
func GetOpenAIKey() string {
	// First check environment variable
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return key
	}

	// Then check config file
	return viper.GetString("openai.api_key")
}

// GetGeminiKey retrieves the Gemini API key from environment or config
func GetGeminiKey() string {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return key
	}
	return viper.GetString("gemini.api_key")
}

// GetHFToken retrieves the Hugging Face token used by the nllb backend
func GetHFToken() string {
	if token := os.Getenv("HF_TOKEN"); token != "" {
		return token
	}
	return viper.GetString("nllb.token")
}

// TranslationConfig builds the backend configuration from flags and config
func TranslationConfig() translation.Config {
	breaker := translation.DefaultBreakerConfig()
	if viper.IsSet("breaker.max_failures") {
		breaker.MaxFailures = viper.GetUint32("breaker.max_failures")
	}
	if viper.IsSet("breaker.cooldown") {
		breaker.Cooldown = viper.GetDuration("breaker.cooldown")
	}

	return translation.Config{
		Backend:       viper.GetString("translate.backend"),
		Model:         viper.GetString("translate.model"),
		OpenAIKey:     GetOpenAIKey(),
		OpenAIBaseURL: viper.GetString("openai.base_url"),
		GeminiKey:     GetGeminiKey(),
		NLLBEndpoint:  viper.GetString("nllb.endpoint"),
		NLLBToken:     GetHFToken(),
		Breaker:       breaker,
	}
}

// TranslationOptions returns the language pair and output cap
func TranslationOptions() (translation.Options, error) {
	opts := translation.DefaultOptions()

	if lang := viper.GetString("translate.source_lang"); lang != "" {
		code, err := translation.FloresCode(lang)
		if err != nil {
			return opts, fmt.Errorf("source language: %w", err)
		}
		opts.Source = code
	}
	if lang := viper.GetString("translate.target_lang"); lang != "" {
		code, err := translation.FloresCode(lang)
		if err != nil {
			return opts, fmt.Errorf("target language: %w", err)
		}
		opts.Target = code
	}
	if n := viper.GetInt("translate.max_length"); n > 0 {
		opts.MaxLength = n
	}

	return opts, nil
}

// Workers returns the configured bulk worker count
func Workers() int {
	if n := viper.GetInt("translate.workers"); n > 0 {
		return n
	}
	return 1
}

// Timeout returns the per translation timeout
func Timeout() time.Duration {
	if !viper.IsSet("translate.timeout") {
		return 2 * time.Minute
	}
	return viper.GetDuration("translate.timeout")
}

// HistoryPath returns the history database path
func HistoryPath() string {
	if path := viper.GetString("history.path"); path != "" {
		return path
	}
	return filepath.Join(StateDir(), "history.db")
}

// ReportsDir returns the directory bulk reports are written to
func ReportsDir() string {
	if dir := viper.GetString("output.directory"); dir != "" {
		return dir
	}
	return DefaultReportsDir()
}

// ReportFormat returns the report file extension without dot
func ReportFormat() string {
	if format := viper.GetString("output.format"); format != "" {
		return format
	}
	return "xlsx"
}
