package core

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/gadzhilaev/smile-ai-tg/internal/domain"
	debuglog "github.com/gadzhilaev/smile-ai-tg/internal/log"
)

const DefaultPageSize = 50

// Greeter serves conversation history and injects the daily greeting.
type Greeter struct {
	store    Store
	notices  Notices
	delivery *Delivery

	Location *time.Location
	Now      func() time.Time
}

func NewGreeter(store Store, notices Notices, delivery *Delivery) *Greeter {
	return &Greeter{
		store:    store,
		notices:  notices,
		delivery: delivery,
		Location: time.Local,
		Now:      time.Now,
	}
}

// History greets the user once per calendar day, then returns up to limit
// messages oldest first.
func (g *Greeter) History(ctx context.Context, userID, userName string, limit int) ([]domain.Message, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.Invalid("user_id is required")
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}

	now := g.Now()
	day := now.In(g.Location).Format(time.DateOnly)
	claimed, err := g.store.ClaimGreeting(ctx, userID, day)
	if err != nil {
		return nil, err
	}
	if claimed {
		greeting := &domain.Message{
			UserID:    userID,
			Text:      g.notices.Greeting(strings.TrimSpace(userName)),
			Direction: domain.DirectionSupport,
			CreatedAt: now,
		}
		if err = g.store.SaveMessage(ctx, greeting); err != nil {
			if relErr := g.store.ReleaseGreeting(ctx, userID, day); relErr != nil {
				debuglog.Warn("release greeting claim for %s: %v\n", userID, relErr)
			}
			return nil, errors.Wrap(err, "persist greeting")
		}
		debuglog.Debug(debuglog.Detailed, "greeted %s for %s\n", userID, day)
		g.delivery.Publish(*greeting)
	}
	return g.store.History(ctx, userID, limit)
}
