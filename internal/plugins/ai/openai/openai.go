package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openaiapi "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/gadzhilaev/smile-ai-tg/internal/domain"
	debuglog "github.com/gadzhilaev/smile-ai-tg/internal/log"
	"github.com/gadzhilaev/smile-ai-tg/internal/plugins/ai"
)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel   = "openai/gpt-4o-mini"
)

// Config targets any OpenAI-compatible chat completions endpoint; the
// defaults point at OpenRouter.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int64
	Temperature float64
	Timeout     time.Duration
	// Referer and Title are OpenRouter attribution headers.
	Referer string
	Title   string
}

type Client struct {
	cfg Config
	api *openaiapi.Client
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	ret := &Client{cfg: cfg}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return ret
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(0),
	}
	if cfg.Referer != "" {
		opts = append(opts, option.WithHeader("HTTP-Referer", cfg.Referer))
	}
	if cfg.Title != "" {
		opts = append(opts, option.WithHeader("X-Title", cfg.Title))
	}
	client := openaiapi.NewClient(opts...)
	ret.api = &client
	return ret
}

func (c *Client) Name() string {
	return "OpenRouter"
}

func (c *Client) IsConfigured() bool {
	return c.api != nil
}

func (c *Client) Respond(ctx context.Context, text string, history []ai.Turn) (string, error) {
	if c.api == nil {
		return "", fmt.Errorf("%w: %s api key not configured", domain.ErrUnavailable, c.Name())
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.api.Chat.Completions.New(ctx, c.buildParams(text, history))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", domain.ErrUnavailable)
	}
	debuglog.Debug(debuglog.Detailed, "%s answered with model %s\n", c.Name(), resp.Model)
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) buildParams(text string, history []ai.Turn) openaiapi.ChatCompletionNewParams {
	var messages []openaiapi.ChatCompletionMessageParamUnion
	for _, turn := range ai.Conversation(text, history) {
		switch turn.Role {
		case ai.RoleSystem:
			messages = append(messages, openaiapi.SystemMessage(turn.Content))
		case ai.RoleAssistant:
			messages = append(messages, openaiapi.AssistantMessage(turn.Content))
		default:
			messages = append(messages, openaiapi.UserMessage(turn.Content))
		}
	}
	ret := openaiapi.ChatCompletionNewParams{
		Model:    c.cfg.Model,
		Messages: messages,
	}
	if c.cfg.MaxTokens > 0 {
		ret.MaxTokens = openaiapi.Int(c.cfg.MaxTokens)
	}
	if c.cfg.Temperature > 0 {
		ret.Temperature = openaiapi.Float(c.cfg.Temperature)
	}
	return ret
}
