package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/gadzhilaev/smile-ai-tg/internal/plugins/ai"
	"github.com/gadzhilaev/smile-ai-tg/internal/plugins/ai/anthropic"
	"github.com/gadzhilaev/smile-ai-tg/internal/plugins/ai/dryrun"
	"github.com/gadzhilaev/smile-ai-tg/internal/plugins/ai/gemini"
	"github.com/gadzhilaev/smile-ai-tg/internal/plugins/ai/ollama"
	"github.com/gadzhilaev/smile-ai-tg/internal/plugins/ai/openai"
)

// ResponderConfig selects and configures the automated responder vendor.
type ResponderConfig struct {
	Vendor      string
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int64
	Temperature float64
	Timeout     time.Duration
	Referer     string
	Title       string
}

var Vendors = []string{"openai", "openrouter", "anthropic", "gemini", "ollama", "dryrun"}

// NewResponder builds the vendor named by cfg.Vendor; empty means openrouter.
func NewResponder(cfg ResponderConfig) (ai.Responder, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Vendor)) {
	case "", "openai", "openrouter":
		return openai.NewClient(openai.Config{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			BaseURL:     cfg.BaseURL,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
			Referer:     cfg.Referer,
			Title:       cfg.Title,
		}), nil
	case "anthropic":
		return anthropic.NewClient(anthropic.Config{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			BaseURL:     cfg.BaseURL,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}), nil
	case "gemini":
		return gemini.NewClient(gemini.Config{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			BaseURL:     cfg.BaseURL,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		})
	case "ollama":
		return ollama.NewClient(ollama.Config{
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		})
	case "dryrun":
		return dryrun.NewClient(), nil
	}
	return nil, fmt.Errorf("unknown ai vendor %q, expected one of %s", cfg.Vendor, strings.Join(Vendors, ", "))
}
