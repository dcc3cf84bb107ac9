package core

import (
	"context"

	"github.com/gadzhilaev/smile-ai-tg/internal/domain"
)

// Store is the conversation store. It exclusively owns persisted state.
type Store interface {
	SaveMessage(ctx context.Context, m *domain.Message) error
	// History returns at most limit messages of a user, oldest first.
	History(ctx context.Context, userID string, limit int) ([]domain.Message, error)

	SaveCorrelation(ctx context.Context, c domain.Correlation) error
	// ResolveCorrelation returns domain.ErrNotFound for unknown ids.
	ResolveCorrelation(ctx context.Context, externalID int64) (string, error)

	SaveDeviceToken(ctx context.Context, t domain.DeviceToken) error
	DeviceTokens(ctx context.Context, userID string) ([]domain.DeviceToken, error)

	// ModeState reports false when the user has no mode record yet.
	ModeState(ctx context.Context, userID string) (domain.ModeState, bool, error)
	SaveModeState(ctx context.Context, s domain.ModeState) error

	// ClaimGreeting returns true only for the first claim of (user, day).
	ClaimGreeting(ctx context.Context, userID, day string) (bool, error)
	// ReleaseGreeting drops a claim whose greeting could not be stored.
	ReleaseGreeting(ctx context.Context, userID, day string) error
}

// Transport forwards user messages to the human channel and returns the
// platform id of the posted message (the first item for albums).
type Transport interface {
	Send(ctx context.Context, msg domain.Outbound) (int64, error)
}

// UpdateSource long-polls the human channel. An offset of 0 means unset.
type UpdateSource interface {
	Updates(ctx context.Context, offset int64) ([]domain.Update, error)
}

type Notifier interface {
	Notify(ctx context.Context, tokens []domain.DeviceToken, n domain.Notification) domain.DispatchResult
}

// Broadcaster pushes a persisted message to live connections of its user.
type Broadcaster interface {
	Publish(msg domain.Message)
}

// BlobStore keeps uploaded photos. Put fills in the photo's URL and Key.
type BlobStore interface {
	Put(ctx context.Context, p *domain.Photo) error
	Delete(ctx context.Context, key string) error
}

// Notices are the fixed texts the relay emits on behalf of support.
type Notices interface {
	TransferNotice() string
	UnavailableNotice() string
	Greeting(userName string) string
	PushTitle() string
}
