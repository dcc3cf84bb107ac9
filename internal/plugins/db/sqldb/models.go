package sqldb

import (
	"time"

	"github.com/gadzhilaev/smile-ai-tg/internal/domain"
)

// MessageRow is a persisted conversation message.
type MessageRow struct {
	ID                int64     `gorm:"primaryKey;autoIncrement"`
	UserID            string    `gorm:"column:user_id;size:128;not null;index:idx_messages_user_created,priority:1"`
	MessageText       *string   `gorm:"column:message_text;type:text"`
	PhotoURL          *string   `gorm:"column:photo_url;type:text"`
	Direction         string    `gorm:"column:direction;size:16;not null"`
	TelegramMessageID *int64    `gorm:"column:telegram_message_id"`
	CreatedAt         time.Time `gorm:"column:created_at;not null;index:idx_messages_user_created,priority:2"`
}

func (MessageRow) TableName() string { return "messages" }

func (r MessageRow) toDomain() domain.Message {
	m := domain.Message{
		ID:                r.ID,
		UserID:            r.UserID,
		Direction:         domain.Direction(r.Direction),
		ExternalMessageID: r.TelegramMessageID,
		CreatedAt:         r.CreatedAt,
	}
	if r.MessageText != nil {
		m.Text = *r.MessageText
	}
	if r.PhotoURL != nil {
		m.PhotoRef = *r.PhotoURL
	}
	return m
}

// MessageMappingRow correlates a group message id with the app user.
type MessageMappingRow struct {
	ID                int64     `gorm:"primaryKey;autoIncrement"`
	UserID            string    `gorm:"column:user_id;size:128;not null"`
	TelegramMessageID int64     `gorm:"column:telegram_message_id;not null;uniqueIndex:uk_message_mapping_tg"`
	CreatedAt         time.Time `gorm:"column:created_at"`
	UpdatedAt         time.Time `gorm:"column:updated_at"`
}

func (MessageMappingRow) TableName() string { return "message_mapping" }

// DeviceTokenRow is unique per (user_id, platform, device_id).
type DeviceTokenRow struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	UserID    string    `gorm:"column:user_id;size:128;not null;uniqueIndex:uk_device_tokens,priority:1"`
	Platform  string    `gorm:"column:platform;size:16;not null;uniqueIndex:uk_device_tokens,priority:2"`
	DeviceID  string    `gorm:"column:device_id;size:255;not null;uniqueIndex:uk_device_tokens,priority:3"`
	Token     string    `gorm:"column:fcm_token;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (DeviceTokenRow) TableName() string { return "device_tokens" }

func (r DeviceTokenRow) toDomain() domain.DeviceToken {
	return domain.DeviceToken{
		UserID:    r.UserID,
		Platform:  domain.Platform(r.Platform),
		Token:     r.Token,
		DeviceID:  r.DeviceID,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// SupportModeRow holds one row per user.
type SupportModeRow struct {
	UserID            string    `gorm:"column:user_id;size:128;primaryKey"`
	Mode              string    `gorm:"column:mode;size:16;not null;default:ai"`
	LastUserMessageAt time.Time `gorm:"column:last_user_message_at"`
	SwitchedAt        time.Time `gorm:"column:switched_at"`
}

func (SupportModeRow) TableName() string { return "user_support_mode" }

// GreetingRow records that a user was greeted on a calendar day (YYYY-MM-DD).
type GreetingRow struct {
	UserID    string    `gorm:"column:user_id;size:128;primaryKey"`
	Day       string    `gorm:"column:greeting_date;size:10;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (GreetingRow) TableName() string { return "greetings" }

func allModels() []interface{} {
	return []interface{}{
		&MessageRow{},
		&MessageMappingRow{},
		&DeviceTokenRow{},
		&SupportModeRow{},
		&GreetingRow{},
	}
}
