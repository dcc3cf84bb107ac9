package sqldb

import (
	"context"

	"github.com/gadzhilaev/smile-ai-tg/internal/domain"
)

// The methods below let *Client serve as the conversation store of the relay core.

func (c *Client) SaveMessage(ctx context.Context, m *domain.Message) error {
	return c.Messages().Save(ctx, m)
}

func (c *Client) History(ctx context.Context, userID string, limit int) ([]domain.Message, error) {
	return c.Messages().History(ctx, userID, limit)
}

func (c *Client) SaveCorrelation(ctx context.Context, corr domain.Correlation) error {
	return c.Correlations().Upsert(ctx, corr)
}

func (c *Client) ResolveCorrelation(ctx context.Context, externalID int64) (string, error) {
	return c.Correlations().Resolve(ctx, externalID)
}

func (c *Client) SaveDeviceToken(ctx context.Context, t domain.DeviceToken) error {
	return c.Devices().Upsert(ctx, t)
}

func (c *Client) DeviceTokens(ctx context.Context, userID string) ([]domain.DeviceToken, error) {
	return c.Devices().ListByUser(ctx, userID)
}

func (c *Client) ModeState(ctx context.Context, userID string) (domain.ModeState, bool, error) {
	return c.Modes().Get(ctx, userID)
}

func (c *Client) SaveModeState(ctx context.Context, s domain.ModeState) error {
	return c.Modes().Save(ctx, s)
}

func (c *Client) ClaimGreeting(ctx context.Context, userID, day string) (bool, error) {
	return c.Greetings().Claim(ctx, userID, day)
}

func (c *Client) ReleaseGreeting(ctx context.Context, userID, day string) error {
	return c.Greetings().Release(ctx, userID, day)
}
