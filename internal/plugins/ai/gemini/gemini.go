package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/gadzhilaev/smile-ai-tg/internal/domain"
	"github.com/gadzhilaev/smile-ai-tg/internal/plugins/ai"
)

const DefaultModel = "gemini-2.0-flash"

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
	api *genai.Client
}

// NewClient leaves the client unconfigured when no API key is set; Respond
// then reports the vendor as unavailable.
func NewClient(cfg Config) (*Client, error) {
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
		return ret, nil
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}
	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	ret.api = client
	return ret, nil
}

func (c *Client) Name() string {
	return "Gemini"
}

func (c *Client) Respond(ctx context.Context, text string, history []ai.Turn) (string, error) {
	if c.api == nil {
		return "", fmt.Errorf("%w: %s api key not configured", domain.ErrUnavailable, c.Name())
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.api.Models.GenerateContent(ctx, c.cfg.Model, toContents(text, history), c.generationConfig())
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	answer := responseText(resp)
	if answer == "" {
		return "", fmt.Errorf("%w: %s returned no text", domain.ErrUnavailable, c.Name())
	}
	return answer, nil
}

func (c *Client) generationConfig() *genai.GenerateContentConfig {
	ret := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(ai.SystemPrompt, genai.RoleUser),
		MaxOutputTokens:   int32(c.cfg.MaxTokens),
	}
	if c.cfg.Temperature > 0 {
		ret.Temperature = genai.Ptr(float32(c.cfg.Temperature))
	}
	return ret
}

// toContents maps the transcript onto user/model contents. System turns are
// carried by the system instruction instead.
func toContents(text string, history []ai.Turn) (ret []*genai.Content) {
	for _, turn := range append(append([]ai.Turn(nil), history...), ai.Turn{Role: ai.RoleUser, Content: text}) {
		switch turn.Role {
		case ai.RoleSystem:
			continue
		case ai.RoleAssistant:
			ret = append(ret, genai.NewContentFromText(turn.Content, genai.RoleModel))
		default:
			ret = append(ret, genai.NewContentFromText(turn.Content, genai.RoleUser))
		}
	}
	return
}

// responseText joins the non-thought text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String()
}
