package core

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/gadzhilaev/smile-ai-tg/internal/domain"
	debuglog "github.com/gadzhilaev/smile-ai-tg/internal/log"
)

const (
	DefaultIdleDelay   = time.Second
	DefaultErrorDelay  = 5 * time.Second
	DefaultMaxAttempts = 3
)

// Poller drains the human channel and relays replies to their users.
//
// The offset only moves past an update once it was handled, so a transient
// failure re-fetches the same update. After MaxAttempts failures the update
// is skipped and logged.
type Poller struct {
	source   UpdateSource
	store    Store
	delivery *Delivery

	IdleDelay   time.Duration
	ErrorDelay  time.Duration
	MaxAttempts int
	Now         func() time.Time

	lastUpdateID int64
	attempts     map[int64]int
}

func NewPoller(source UpdateSource, store Store, delivery *Delivery) *Poller {
	return &Poller{
		source:      source,
		store:       store,
		delivery:    delivery,
		IdleDelay:   DefaultIdleDelay,
		ErrorDelay:  DefaultErrorDelay,
		MaxAttempts: DefaultMaxAttempts,
		Now:         time.Now,
		attempts:    map[int64]int{},
	}
}

// LastUpdateID is the id of the newest fully handled update, 0 when none.
func (p *Poller) LastUpdateID() int64 {
	return p.lastUpdateID
}

// Run loops until ctx is cancelled. Iteration errors are logged and followed
// by a longer pause; they never end the loop.
func (p *Poller) Run(ctx context.Context) error {
	debuglog.Log("update poller started\n")
	for {
		delay := p.IdleDelay
		if err := p.Poll(ctx); err != nil && ctx.Err() == nil {
			debuglog.Log("update poller: %v\n", err)
			delay = p.ErrorDelay
		}
		select {
		case <-ctx.Done():
			debuglog.Log("update poller stopped\n")
			return nil
		case <-time.After(delay):
		}
	}
}

// Poll runs one fetch-and-handle iteration.
func (p *Poller) Poll(ctx context.Context) error {
	offset := int64(0)
	if p.lastUpdateID != 0 {
		offset = p.lastUpdateID + 1
	}
	updates, err := p.source.Updates(ctx, offset)
	if err != nil {
		return errors.Wrap(err, "fetch updates")
	}
	for _, u := range updates {
		if err = p.handle(ctx, u); err != nil {
			p.attempts[u.ID]++
			if p.attempts[u.ID] < p.MaxAttempts {
				return errors.Wrapf(err, "update %d (attempt %d)", u.ID, p.attempts[u.ID])
			}
			debuglog.Log("giving up on update %d after %d attempts: %v\n", u.ID, p.attempts[u.ID], err)
		}
		delete(p.attempts, u.ID)
		if u.ID > p.lastUpdateID {
			p.lastUpdateID = u.ID
		}
	}
	return nil
}

func (p *Poller) handle(ctx context.Context, u domain.Update) error {
	msg := u.Message
	if msg == nil {
		return nil
	}
	if !msg.IsReply() {
		debuglog.Debug(debuglog.Trace, "update %d is not a reply, skipping\n", u.ID)
		return nil
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		debuglog.Debug(debuglog.Detailed, "reply %d has no text, skipping\n", msg.ID)
		return nil
	}

	userID, err := p.store.ResolveCorrelation(ctx, *msg.ReplyToID)
	if errors.Is(err, domain.ErrNotFound) {
		debuglog.Log("no user found for message_id %d\n", *msg.ReplyToID)
		return nil
	}
	if err != nil {
		return err
	}

	externalID := msg.ID
	reply := &domain.Message{
		UserID:            userID,
		Text:              text,
		Direction:         domain.DirectionSupport,
		ExternalMessageID: &externalID,
		CreatedAt:         p.Now(),
	}
	if err = p.store.SaveMessage(ctx, reply); err != nil {
		return err
	}
	debuglog.Debug(debuglog.Basic, "support reply %d relayed to %s\n", msg.ID, userID)
	p.delivery.Deliver(ctx, *reply)
	return nil
}
