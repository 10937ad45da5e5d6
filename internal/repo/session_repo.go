// Package repo – chat session persistence.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/autobot/go-bot-gateway/internal/domain"
)

// FindOrCreateSession returns the continuity record for (channelID,
// externalUserID), creating it lazily on first contact. A concurrent create
// losing the unique-index race falls back to re-reading the winner's row.
func FindOrCreateSession(ctx context.Context, db *gorm.DB, channelID, externalUserID string) (*domain.ChatSession, error) {
	var s domain.ChatSession
	err := db.WithContext(ctx).
		Where("channel_id = ? AND external_user_id = ?", channelID, externalUserID).
		First(&s).Error
	if err == nil {
		return &s, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	created := &domain.ChatSession{
		ID:             uuid.NewString(),
		ChannelID:      channelID,
		ExternalUserID: externalUserID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if cerr := db.WithContext(ctx).Create(created).Error; cerr != nil {
		if errors.Is(cerr, gorm.ErrDuplicatedKey) || isUniqueViolation(cerr) {
			// Lost the race; the winner's row is authoritative.
			err = db.WithContext(ctx).
				Where("channel_id = ? AND external_user_id = ?", channelID, externalUserID).
				First(&s).Error
			if err != nil {
				return nil, err
			}
			return &s, nil
		}
		return nil, cerr
	}
	return created, nil
}

// UpdateSessionState persists handler-owned conversational fields. Blank
// values leave the stored fields untouched.
func UpdateSessionState(ctx context.Context, db *gorm.DB, sessionID, lastIntent, slots string) error {
	updates := map[string]any{"updated_at": time.Now().UTC()}
	if lastIntent != "" {
		updates["last_intent"] = lastIntent
	}
	if slots != "" {
		updates["slots"] = slots
	}
	res := db.WithContext(ctx).
		Model(&domain.ChatSession{}).
		Where("id = ?", sessionID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
