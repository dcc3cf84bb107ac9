package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	ollamaapi "github.com/ollama/ollama/api"

	"github.com/gadzhilaev/smile-ai-tg/internal/domain"
	"github.com/gadzhilaev/smile-ai-tg/internal/plugins/ai"
)

const DefaultBaseUrl = "http://localhost:11434"

type Config struct {
	BaseURL     string
	Model       string
	MaxTokens   int64
	Temperature float64
	Timeout     time.Duration
}

type Client struct {
	cfg Config
	api *ollamaapi.Client
}

func NewClient(cfg Config) (ret *Client, err error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseUrl
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	var base *url.URL
	if base, err = url.Parse(strings.TrimRight(cfg.BaseURL, "/")); err != nil {
		return nil, fmt.Errorf("invalid ollama url %q: %w", cfg.BaseURL, err)
	}
	ret = &Client{
		cfg: cfg,
		api: ollamaapi.NewClient(base, &http.Client{Timeout: cfg.Timeout}),
	}
	return
}

func (c *Client) Name() string {
	return "Ollama"
}

func (c *Client) Respond(ctx context.Context, text string, history []ai.Turn) (string, error) {
	if c.cfg.Model == "" {
		return "", fmt.Errorf("%w: ollama model not configured", domain.ErrUnavailable)
	}
	var sb strings.Builder
	err := c.api.Chat(ctx, c.createChatRequest(text, history), func(resp ollamaapi.ChatResponse) error {
		sb.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	return sb.String(), nil
}

func (c *Client) createChatRequest(text string, history []ai.Turn) *ollamaapi.ChatRequest {
	turns := ai.Conversation(text, history)
	messages := make([]ollamaapi.Message, 0, len(turns))
	for _, turn := range turns {
		messages = append(messages, ollamaapi.Message{Role: string(turn.Role), Content: turn.Content})
	}
	stream := false
	options := map[string]any{}
	if c.cfg.Temperature > 0 {
		options["temperature"] = c.cfg.Temperature
	}
	if c.cfg.MaxTokens > 0 {
		options["num_predict"] = c.cfg.MaxTokens
	}
	return &ollamaapi.ChatRequest{
		Model:    c.cfg.Model,
		Messages: messages,
		Stream:   &stream,
		Options:  options,
	}
}
