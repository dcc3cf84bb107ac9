package core

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/gadzhilaev/smile-ai-tg/internal/domain"
	debuglog "github.com/gadzhilaev/smile-ai-tg/internal/log"
)

const DefaultModeTimeout = 5 * time.Minute

// Decision is the arbiter's verdict for one inbound message.
type Decision struct {
	Route     domain.Route
	ModeAfter domain.Mode
	// Reset is set when an idle human session was returned to ai first.
	Reset bool
	// Notice is the persisted transfer notice when the message escalated.
	Notice *domain.Message
}

// Arbiter owns the per-user mode state machine. Every read-modify-write of
// a user's mode runs under that user's lock.
type Arbiter struct {
	store    Store
	detector *Detector
	notices  Notices
	locks    *KeyedMutex
	timeout  time.Duration

	Now func() time.Time
}

func NewArbiter(store Store, detector *Detector, notices Notices, timeout time.Duration) *Arbiter {
	if timeout <= 0 {
		timeout = DefaultModeTimeout
	}
	if detector == nil {
		detector = NewDetector(nil)
	}
	return &Arbiter{
		store:    store,
		detector: detector,
		notices:  notices,
		locks:    NewKeyedMutex(),
		timeout:  timeout,
		Now:      time.Now,
	}
}

func (a *Arbiter) Timeout() time.Duration {
	return a.timeout
}

func (a *Arbiter) Detector() *Detector {
	return a.detector
}

// Decide routes one inbound message of userID and records its arrival.
func (a *Arbiter) Decide(ctx context.Context, userID, text string) (ret Decision, err error) {
	unlock := a.locks.Lock(userID)
	defer unlock()

	now := a.Now()
	var state domain.ModeState
	var found bool
	if state, found, err = a.store.ModeState(ctx, userID); err != nil {
		return
	}
	if !found {
		state = domain.ModeState{UserID: userID, Mode: domain.ModeAI, SwitchedAt: now}
	}

	if state.Expired(now, a.timeout) {
		debuglog.Debug(debuglog.Basic, "support mode of %s idle since %s, back to ai\n", userID, state.LastUserMessageAt.Format(time.RFC3339))
		state.Mode = domain.ModeAI
		state.SwitchedAt = now
		if err = a.store.SaveModeState(ctx, state); err != nil {
			return
		}
		ret.Reset = true
	}

	state.LastUserMessageAt = now

	if state.Mode == domain.ModeHuman {
		ret.Route, ret.ModeAfter = domain.RouteHuman, domain.ModeHuman
		err = a.store.SaveModeState(ctx, state)
		return
	}

	keyword, escalate := a.detector.Match(text)
	if !escalate {
		ret.Route, ret.ModeAfter = domain.RouteAI, domain.ModeAI
		err = a.store.SaveModeState(ctx, state)
		return
	}

	debuglog.Debug(debuglog.Basic, "user %s asked for a human (%q)\n", userID, keyword)
	state.Mode = domain.ModeHuman
	state.SwitchedAt = now
	if err = a.store.SaveModeState(ctx, state); err != nil {
		return
	}
	if ret.Notice, err = a.emit(ctx, userID, a.notices.TransferNotice(), now); err != nil {
		return
	}
	ret.Route, ret.ModeAfter = domain.RouteHuman, domain.ModeHuman
	return
}

// Transition moves userID to mode and persists notice, when not empty, as a
// support message. It returns the persisted notice.
func (a *Arbiter) Transition(ctx context.Context, userID string, mode domain.Mode, notice string) (ret *domain.Message, err error) {
	unlock := a.locks.Lock(userID)
	defer unlock()

	now := a.Now()
	var state domain.ModeState
	if state, _, err = a.store.ModeState(ctx, userID); err != nil {
		return
	}
	state.UserID = userID
	if state.Mode != mode || state.SwitchedAt.IsZero() {
		state.Mode = mode
		state.SwitchedAt = now
	}
	if err = a.store.SaveModeState(ctx, state); err != nil {
		return
	}
	return a.emit(ctx, userID, notice, now)
}

// Mode reads the current mode, applying the idle timeout first. Unseen users
// get an ai record.
func (a *Arbiter) Mode(ctx context.Context, userID string) (ret domain.ModeState, err error) {
	if userID = strings.TrimSpace(userID); userID == "" {
		err = domain.Invalid("user_id is required")
		return
	}
	unlock := a.locks.Lock(userID)
	defer unlock()

	now := a.Now()
	var found bool
	if ret, found, err = a.store.ModeState(ctx, userID); err != nil {
		return
	}
	switch {
	case !found:
		ret = domain.ModeState{UserID: userID, Mode: domain.ModeAI, SwitchedAt: now}
	case ret.Expired(now, a.timeout):
		ret.Mode = domain.ModeAI
		ret.SwitchedAt = now
	default:
		return
	}
	err = a.store.SaveModeState(ctx, ret)
	return
}

// SetMode forces the mode. Forcing human opens a fresh idle window.
func (a *Arbiter) SetMode(ctx context.Context, userID string, mode domain.Mode) (ret domain.ModeState, err error) {
	if userID = strings.TrimSpace(userID); userID == "" {
		err = domain.Invalid("user_id is required")
		return
	}
	unlock := a.locks.Lock(userID)
	defer unlock()

	now := a.Now()
	if ret, _, err = a.store.ModeState(ctx, userID); err != nil {
		return
	}
	ret.UserID = userID
	if ret.Mode != mode || ret.SwitchedAt.IsZero() {
		ret.Mode = mode
		ret.SwitchedAt = now
	}
	if mode == domain.ModeHuman {
		ret.LastUserMessageAt = now
	}
	err = a.store.SaveModeState(ctx, ret)
	return
}

func (a *Arbiter) emit(ctx context.Context, userID, text string, at time.Time) (*domain.Message, error) {
	if text == "" {
		return nil, nil
	}
	msg := &domain.Message{
		UserID:    userID,
		Text:      text,
		Direction: domain.DirectionSupport,
		CreatedAt: at,
	}
	if err := a.store.SaveMessage(ctx, msg); err != nil {
		return nil, errors.Wrap(err, "persist support notice")
	}
	return msg, nil
}
