package anthropic

import (
	"context"
	"fmt"
	"strings"
	"time"

	anthropicapi "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/gadzhilaev/smile-ai-tg/internal/domain"
	"github.com/gadzhilaev/smile-ai-tg/internal/plugins/ai"
)

const DefaultModel = "claude-3-5-haiku-latest"

type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int64
	Temperature float64
	Timeout     time.Duration
}

type Client struct {
	cfg Config
	api *anthropicapi.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	ret := &Client{cfg: cfg}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return ret
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := anthropicapi.NewClient(opts...)
	ret.api = &client
	return ret
}

func (c *Client) Name() string {
	return "Anthropic"
}

func (c *Client) Respond(ctx context.Context, text string, history []ai.Turn) (string, error) {
	if c.api == nil {
		return "", fmt.Errorf("%w: %s api key not configured", domain.ErrUnavailable, c.Name())
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	msg, err := c.api.Messages.New(ctx, c.buildParams(text, history))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

func (c *Client) buildParams(text string, history []ai.Turn) anthropicapi.MessageNewParams {
	ret := anthropicapi.MessageNewParams{
		Model:     anthropicapi.Model(c.cfg.Model),
		MaxTokens: c.cfg.MaxTokens,
		System:    []anthropicapi.TextBlockParam{{Text: ai.SystemPrompt}},
		Messages:  toMessages(text, history),
	}
	if c.cfg.Temperature > 0 {
		ret.Temperature = anthropicapi.Float(c.cfg.Temperature)
	}
	return ret
}

// toMessages drops leading assistant turns and merges consecutive turns of the
// same role; the Messages API wants a transcript that starts with the user and
// alternates.
func toMessages(text string, history []ai.Turn) (ret []anthropicapi.MessageParam) {
	type block struct {
		role  ai.Role
		parts []string
	}
	var blocks []block
	for _, turn := range append(append([]ai.Turn(nil), history...), ai.Turn{Role: ai.RoleUser, Content: text}) {
		if turn.Role == ai.RoleSystem {
			continue
		}
		if len(blocks) == 0 && turn.Role != ai.RoleUser {
			continue
		}
		if n := len(blocks); n > 0 && blocks[n-1].role == turn.Role {
			blocks[n-1].parts = append(blocks[n-1].parts, turn.Content)
			continue
		}
		blocks = append(blocks, block{role: turn.Role, parts: []string{turn.Content}})
	}
	for _, b := range blocks {
		content := anthropicapi.NewTextBlock(strings.Join(b.parts, "\n\n"))
		if b.role == ai.RoleAssistant {
			ret = append(ret, anthropicapi.NewAssistantMessage(content))
		} else {
			ret = append(ret, anthropicapi.NewUserMessage(content))
		}
	}
	return
}
