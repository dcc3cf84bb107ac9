package dryrun

import (
	"context"
	"fmt"
	"strings"

	"github.com/gadzhilaev/smile-ai-tg/internal/plugins/ai"
)

// Client answers without calling any backend. It reports what would have
// been sent, which is handy when running the relay locally.
type Client struct{}

func NewClient() *Client {
	return &Client{}
}

func (c *Client) Name() string {
	return "DryRun"
}

func (c *Client) Respond(_ context.Context, text string, history []ai.Turn) (string, error) {
	var b strings.Builder
	b.WriteString("Dry run: no automated responder is configured.\n")
	fmt.Fprintf(&b, "History turns: %d\n", len(history))
	for _, turn := range history {
		fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Content)
	}
	fmt.Fprintf(&b, "Message: %s", text)
	return b.String(), nil
}
