package domain

import (
	"strings"
	"time"
)

// Direction tells who authored a message.
type Direction string

const (
	DirectionUser    Direction = "user"
	DirectionSupport Direction = "support"
)

// Mode selects who answers a user's messages.
type Mode string

const (
	ModeAI    Mode = "ai"
	ModeHuman Mode = "human"
)

// ParseMode accepts "ai" or "human" in any case.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeAI:
		return ModeAI, nil
	case ModeHuman:
		return ModeHuman, nil
	}
	return "", Invalid("mode must be 'ai' or 'human'")
}

// Route is where a single inbound message is delivered.
type Route string

const (
	RouteAI    Route = "AI"
	RouteHuman Route = "HUMAN"
)

// Message is an immutable entry of a user's conversation.
type Message struct {
	ID                int64     `json:"id"`
	UserID            string    `json:"user_id"`
	Text              string    `json:"message,omitempty"`
	PhotoRef          string    `json:"photo_url,omitempty"`
	Direction         Direction `json:"direction"`
	ExternalMessageID *int64    `json:"external_message_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// Correlation maps a human-channel message id back to the app user.
type Correlation struct {
	UserID            string
	ExternalMessageID int64
}

// ModeState is the per-user support mode record.
type ModeState struct {
	UserID            string    `json:"user_id"`
	Mode              Mode      `json:"mode"`
	LastUserMessageAt time.Time `json:"last_user_message_at"`
	SwitchedAt        time.Time `json:"switched_at"`
}

// Expired reports whether a human session has been idle for at least timeout.
func (s ModeState) Expired(now time.Time, timeout time.Duration) bool {
	if s.Mode != ModeHuman || s.LastUserMessageAt.IsZero() {
		return false
	}
	return now.Sub(s.LastUserMessageAt) >= timeout
}
