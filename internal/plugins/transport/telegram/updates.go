package telegram

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/gadzhilaev/smile-ai-tg/internal/domain"
)

// Updates long-polls getUpdates. offset 0 asks for every pending update.
func (c *Client) Updates(ctx context.Context, offset int64) ([]domain.Update, error) {
	updates, err := c.fetch(ctx, offset, c.cfg.PollTimeout)
	if err != nil {
		return nil, err
	}
	return lo.Map(updates, func(u Update, _ int) domain.Update {
		return u.toDomain()
	}), nil
}

func (c *Client) fetch(ctx context.Context, offset int64, wait time.Duration) ([]Update, error) {
	payload := map[string]any{
		"timeout":         int(wait.Seconds()),
		"allowed_updates": []string{"message"},
	}
	if offset > 0 {
		payload["offset"] = offset
	}
	result, err := c.postJSON(ctx, "getUpdates", wait+pollGrace, payload)
	if err != nil {
		return nil, err
	}
	var updates []Update
	if err = json.Unmarshal([]byte(result.Raw), &updates); err != nil {
		return nil, errors.Wrapf(domain.ErrTransport, "getUpdates: decode result: %v", err)
	}
	return updates, nil
}

// Me returns the bot account behind the token.
func (c *Client) Me(ctx context.Context) (*User, error) {
	result, err := c.postJSON(ctx, "getMe", textTimeout, map[string]any{})
	if err != nil {
		return nil, err
	}
	var me User
	if err = json.Unmarshal([]byte(result.Raw), &me); err != nil {
		return nil, errors.Wrapf(domain.ErrTransport, "getMe: decode result: %v", err)
	}
	return &me, nil
}

// RecentGroups lists the group chats seen in pending updates without
// consuming them.
func (c *Client) RecentGroups(ctx context.Context) ([]Chat, error) {
	updates, err := c.fetch(ctx, 0, 0)
	if err != nil {
		return nil, err
	}
	chats := lo.FilterMap(updates, func(u Update, _ int) (Chat, bool) {
		if u.Message == nil {
			return Chat{}, false
		}
		return u.Message.Chat, u.Message.Chat.IsGroup()
	})
	return lo.UniqBy(chats, func(c Chat) int64 { return c.ID }), nil
}
