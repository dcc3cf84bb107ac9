package core

import (
	"context"
	"time"

	"github.com/gadzhilaev/smile-ai-tg/internal/domain"
	debuglog "github.com/gadzhilaev/smile-ai-tg/internal/log"
)

const PushTypeSupportReply = "support_reply"

const pushTimeout = 30 * time.Second

// Delivery hands persisted support messages to push and live connections.
// Both legs are best effort: failures are logged and swallowed.
type Delivery struct {
	store    Store
	notifier Notifier
	fanout   Broadcaster
	notices  Notices
}

func NewDelivery(store Store, notifier Notifier, fanout Broadcaster, notices Notices) *Delivery {
	return &Delivery{store: store, notifier: notifier, fanout: fanout, notices: notices}
}

// Deliver pushes msg to the user's devices and fans it out.
func (d *Delivery) Deliver(ctx context.Context, msg domain.Message) {
	d.push(ctx, msg)
	d.Publish(msg)
}

// Publish fans msg out to live connections only.
func (d *Delivery) Publish(msg domain.Message) {
	if d == nil || d.fanout == nil {
		return
	}
	d.fanout.Publish(msg)
}

func (d *Delivery) push(ctx context.Context, msg domain.Message) {
	if d == nil || d.notifier == nil {
		return
	}
	tokens, err := d.store.DeviceTokens(ctx, msg.UserID)
	if err != nil {
		debuglog.Log("load device tokens of %s: %v\n", msg.UserID, err)
		return
	}
	if len(tokens) == 0 {
		debuglog.Debug(debuglog.Detailed, "no devices registered for %s, skipping push\n", msg.UserID)
		return
	}

	// the request context may end before the push completes
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
	defer cancel()

	result := d.notifier.Notify(pushCtx, tokens, domain.Notification{
		Title: d.notices.PushTitle(),
		Body:  msg.Text,
		Data: map[string]string{
			"type":    PushTypeSupportReply,
			"user_id": msg.UserID,
			"message": msg.Text,
		},
	})
	for _, pushErr := range result.Errors {
		debuglog.Log("push to %s failed: %v\n", msg.UserID, pushErr)
	}
	debuglog.Debug(debuglog.Basic, "push for %s: sent=%d failed=%d\n", msg.UserID, result.Sent, result.Failed)
}
