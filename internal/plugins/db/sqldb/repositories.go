package sqldb

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gadzhilaev/smile-ai-tg/internal/domain"
)

type MessageRepository struct {
	db *gorm.DB
}

// Save inserts m and fills in its ID and CreatedAt.
func (r *MessageRepository) Save(ctx context.Context, m *domain.Message) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	row := MessageRow{
		UserID:            m.UserID,
		Direction:         string(m.Direction),
		TelegramMessageID: m.ExternalMessageID,
		CreatedAt:         m.CreatedAt.UTC(),
	}
	if m.Text != "" {
		row.MessageText = lo.ToPtr(m.Text)
	}
	if m.PhotoRef != "" {
		row.PhotoURL = lo.ToPtr(m.PhotoRef)
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return errors.Wrapf(err, "save message for user %s", m.UserID)
	}
	m.ID = row.ID
	m.CreatedAt = row.CreatedAt
	return nil
}

// History returns the newest limit messages of a user, oldest first.
func (r *MessageRepository) History(ctx context.Context, userID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []MessageRow
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrapf(err, "load history for user %s", userID)
	}
	out := make([]domain.Message, len(rows))
	for i, row := range rows {
		out[len(rows)-1-i] = row.toDomain()
	}
	return out, nil
}

type CorrelationRepository struct {
	db *gorm.DB
}

// Upsert maps externalID to userID; the last writer wins.
func (r *CorrelationRepository) Upsert(ctx context.Context, c domain.Correlation) error {
	now := time.Now().UTC()
	row := MessageMappingRow{
		UserID:            c.UserID,
		TelegramMessageID: c.ExternalMessageID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "telegram_message_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "updated_at"}),
	}).Create(&row).Error
	return errors.Wrapf(err, "save correlation %d", c.ExternalMessageID)
}

// Resolve returns the user that owns externalID or domain.ErrNotFound.
func (r *CorrelationRepository) Resolve(ctx context.Context, externalID int64) (string, error) {
	var row MessageMappingRow
	err := r.db.WithContext(ctx).Where("telegram_message_id = ?", externalID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", errors.Wrapf(err, "resolve correlation %d", externalID)
	}
	return row.UserID, nil
}

type DeviceRepository struct {
	db *gorm.DB
}

// Upsert registers or refreshes the token for (user, platform, device).
func (r *DeviceRepository) Upsert(ctx context.Context, t domain.DeviceToken) error {
	now := time.Now().UTC()
	row := DeviceTokenRow{
		UserID:    t.UserID,
		Platform:  string(t.Platform),
		DeviceID:  t.DeviceID,
		Token:     t.Token,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if row.DeviceID == "" {
		row.DeviceID = t.Token
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "platform"}, {Name: "device_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"fcm_token", "updated_at"}),
	}).Create(&row).Error
	return errors.Wrapf(err, "save device token for user %s", t.UserID)
}

func (r *DeviceRepository) ListByUser(ctx context.Context, userID string) ([]domain.DeviceToken, error) {
	var rows []DeviceTokenRow
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, errors.Wrapf(err, "list device tokens for user %s", userID)
	}
	return lo.Map(rows, func(row DeviceTokenRow, _ int) domain.DeviceToken {
		return row.toDomain()
	}), nil
}

type ModeRepository struct {
	db *gorm.DB
}

// Get returns the stored state and whether a row exists.
func (r *ModeRepository) Get(ctx context.Context, userID string) (domain.ModeState, bool, error) {
	var row SupportModeRow
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ModeState{UserID: userID, Mode: domain.ModeAI}, false, nil
	}
	if err != nil {
		return domain.ModeState{}, false, errors.Wrapf(err, "load support mode for user %s", userID)
	}
	return domain.ModeState{
		UserID:            row.UserID,
		Mode:              domain.Mode(row.Mode),
		LastUserMessageAt: row.LastUserMessageAt,
		SwitchedAt:        row.SwitchedAt,
	}, true, nil
}

// Save writes the whole state row.
func (r *ModeRepository) Save(ctx context.Context, s domain.ModeState) error {
	row := SupportModeRow{
		UserID:            s.UserID,
		Mode:              string(s.Mode),
		LastUserMessageAt: s.LastUserMessageAt.UTC(),
		SwitchedAt:        s.SwitchedAt.UTC(),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"mode", "last_user_message_at", "switched_at"}),
	}).Create(&row).Error
	return errors.Wrapf(err, "save support mode for user %s", s.UserID)
}

type GreetingRepository struct {
	db *gorm.DB
}

// Claim records the greeting for (user, day) and reports whether this call created it.
func (r *GreetingRepository) Claim(ctx context.Context, userID, day string) (bool, error) {
	row := GreetingRow{UserID: userID, Day: day, CreatedAt: time.Now().UTC()}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return false, errors.Wrapf(res.Error, "claim greeting for user %s", userID)
	}
	return res.RowsAffected == 1, nil
}

// Release removes the (user, day) claim so the next history fetch greets again.
func (r *GreetingRepository) Release(ctx context.Context, userID, day string) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND greeting_date = ?", userID, day).
		Delete(&GreetingRow{}).Error
	return errors.Wrapf(err, "release greeting for user %s", userID)
}
