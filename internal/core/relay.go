package core

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/gadzhilaev/smile-ai-tg/internal/domain"
	debuglog "github.com/gadzhilaev/smile-ai-tg/internal/log"
	"github.com/gadzhilaev/smile-ai-tg/internal/plugins/ai"
)

const DefaultHistoryLimit = 20

// Inbound is a message a mobile user sends to support.
type Inbound struct {
	UserID   string
	UserName string
	Text     string
	Photos   []*domain.Photo
}

// Outcome reports where an inbound message ended up.
type Outcome struct {
	Mode              domain.Mode
	Route             domain.Route
	UserMessage       *domain.Message
	ExternalMessageID *int64
	// Replies are the support messages emitted while handling the request.
	Replies   []domain.Message
	PhotoURLs []string
}

// MessageIDs lists the ids of every message persisted for the request.
func (o *Outcome) MessageIDs() (ret []int64) {
	if o.UserMessage != nil {
		ret = append(ret, o.UserMessage.ID)
	}
	for _, m := range o.Replies {
		ret = append(ret, m.ID)
	}
	return
}

type Relay struct {
	store     Store
	arbiter   *Arbiter
	responder ai.Responder
	transport Transport
	blobs     BlobStore
	delivery  *Delivery
	notices   Notices

	HistoryLimit int
	Now          func() time.Time
}

func NewRelay(store Store, arbiter *Arbiter, responder ai.Responder, transport Transport,
	blobs BlobStore, delivery *Delivery, notices Notices) *Relay {
	return &Relay{
		store:        store,
		arbiter:      arbiter,
		responder:    responder,
		transport:    transport,
		blobs:        blobs,
		delivery:     delivery,
		notices:      notices,
		HistoryLimit: DefaultHistoryLimit,
		Now:          time.Now,
	}
}

// HandleUserMessage stores attached photos, asks the arbiter for a route and
// either answers automatically or forwards the message to the human channel.
func (r *Relay) HandleUserMessage(ctx context.Context, in Inbound) (ret *Outcome, err error) {
	in.UserID = strings.TrimSpace(in.UserID)
	if in.UserID == "" || strings.TrimSpace(in.Text) == "" {
		err = domain.Invalid("user_id and message are required")
		return
	}
	if len(in.Photos) > domain.MaxPhotos {
		err = domain.Invalidf("at most %d photos can be sent at once", domain.MaxPhotos)
		return
	}
	receivedAt := r.Now()

	var stored []string
	if stored, err = r.storePhotos(ctx, in.Photos); err != nil {
		return
	}
	defer func() {
		if err != nil && (ret == nil || ret.UserMessage == nil) {
			r.discardPhotos(stored)
		}
	}()
	attachment := domain.NewAttachment(in.Photos)

	var decision Decision
	if decision, err = r.arbiter.Decide(ctx, in.UserID, in.Text); err != nil {
		err = errors.Wrapf(err, "decide route for user %s", in.UserID)
		return
	}
	ret = &Outcome{Mode: decision.ModeAfter, Route: decision.Route, PhotoURLs: attachment.Refs()}
	if decision.Notice != nil {
		ret.Replies = append(ret.Replies, *decision.Notice)
		r.delivery.Publish(*decision.Notice)
	}

	if decision.Route == domain.RouteAI {
		var answered bool
		if answered, err = r.answer(ctx, in, attachment, receivedAt, ret); err != nil || answered {
			return
		}
	}
	err = r.forward(ctx, in, attachment, receivedAt, ret)
	return
}

// answer reports false when the message has to go to humans instead.
func (r *Relay) answer(ctx context.Context, in Inbound, attachment domain.Attachment, receivedAt time.Time, ret *Outcome) (bool, error) {
	history, err := r.store.History(ctx, in.UserID, r.HistoryLimit)
	if err != nil {
		return false, errors.Wrapf(err, "load history for user %s", in.UserID)
	}

	text, genErr := r.responder.Respond(ctx, in.Text, ai.Transcript(history))
	text = strings.TrimSpace(text)

	var notice string
	if genErr != nil || text == "" {
		debuglog.Log("%s responder gave no answer for %s: %v\n", r.responder.Name(), in.UserID, lo.Ternary(genErr != nil, genErr, domain.ErrUnavailable))
		notice = r.notices.UnavailableNotice()
	} else if keyword, ok := r.arbiter.Detector().Match(text); ok {
		debuglog.Debug(debuglog.Basic, "answer for %s mentions %q, handing over to humans\n", in.UserID, keyword)
		notice = r.notices.TransferNotice()
	}

	if notice != "" {
		msg, err := r.arbiter.Transition(ctx, in.UserID, domain.ModeHuman, notice)
		if err != nil {
			return false, errors.Wrapf(err, "switch user %s to human", in.UserID)
		}
		ret.Mode, ret.Route = domain.ModeHuman, domain.RouteHuman
		if msg != nil {
			ret.Replies = append(ret.Replies, *msg)
			r.delivery.Publish(*msg)
		}
		return false, nil
	}

	user := r.userMessage(in, attachment, receivedAt, nil)
	if err = r.store.SaveMessage(ctx, user); err != nil {
		return false, err
	}
	ret.UserMessage = user

	reply := &domain.Message{
		UserID:    in.UserID,
		Text:      text,
		Direction: domain.DirectionSupport,
		CreatedAt: r.Now(),
	}
	if err = r.store.SaveMessage(ctx, reply); err != nil {
		return false, err
	}
	ret.Replies = append(ret.Replies, *reply)
	r.delivery.Deliver(ctx, *reply)
	return true, nil
}

func (r *Relay) forward(ctx context.Context, in Inbound, attachment domain.Attachment, receivedAt time.Time, ret *Outcome) error {
	externalID, err := r.transport.Send(ctx, domain.Outbound{
		UserID:     in.UserID,
		UserName:   in.UserName,
		Text:       in.Text,
		Attachment: attachment,
	})
	if err != nil {
		return errors.Wrapf(err, "forward message of user %s", in.UserID)
	}
	debuglog.Debug(debuglog.Detailed, "message of %s forwarded as %d (%s)\n", in.UserID, externalID, attachment.Kind)

	if err = r.store.SaveCorrelation(ctx, domain.Correlation{UserID: in.UserID, ExternalMessageID: externalID}); err != nil {
		return err
	}
	user := r.userMessage(in, attachment, receivedAt, &externalID)
	if err = r.store.SaveMessage(ctx, user); err != nil {
		return err
	}
	ret.UserMessage = user
	ret.ExternalMessageID = &externalID
	return nil
}

func (r *Relay) userMessage(in Inbound, attachment domain.Attachment, at time.Time, externalID *int64) *domain.Message {
	return &domain.Message{
		UserID:            in.UserID,
		Text:              in.Text,
		PhotoRef:          attachment.PrimaryRef(),
		Direction:         domain.DirectionUser,
		ExternalMessageID: externalID,
		CreatedAt:         at,
	}
}

func (r *Relay) storePhotos(ctx context.Context, photos []*domain.Photo) (keys []string, err error) {
	for _, p := range photos {
		if len(p.Content) == 0 {
			if p.URL == "" {
				err = domain.Invalid("photo has neither content nor url")
				break
			}
			continue
		}
		if r.blobs == nil {
			err = errors.New("photo uploads are not configured")
			break
		}
		if err = r.blobs.Put(ctx, p); err != nil {
			err = errors.Wrapf(err, "store photo %s", p.Filename)
			break
		}
		keys = append(keys, p.Key)
	}
	if err != nil {
		r.discardPhotos(keys)
		keys = nil
	}
	return
}

func (r *Relay) discardPhotos(keys []string) {
	for _, key := range keys {
		if err := r.blobs.Delete(context.Background(), key); err != nil {
			debuglog.Log("remove uploaded photo %s: %v\n", key, err)
		}
	}
}
