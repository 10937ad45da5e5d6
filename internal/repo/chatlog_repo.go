// Package repo – append-only chat log persistence and handoff queries.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/autobot/go-bot-gateway/internal/domain"
)

// AppendChatLog inserts a usage/audit record. Content truncation is the
// caller's responsibility (the orchestrator caps it before calling).
func AppendChatLog(ctx context.Context, db *gorm.DB, entry *domain.ChatLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(entry).Error
}

// LastAdminReplyAt returns the timestamp of the most recent outgoing
// human-agent reply for (channelID, externalUserID) at or after the cutoff,
// or nil when none exists. Two markers count, mirroring the two logging
// paths that have written handoff signals over time:
//   - the structured marker: direction=outgoing with source=admin, or the
//     older message_type=human convention
//   - the legacy sentinel: a system entry whose content is HandoffSentinel
func LastAdminReplyAt(ctx context.Context, db *gorm.DB, channelID, externalUserID string, cutoff time.Time) (*time.Time, error) {
	var row domain.ChatLog
	err := db.WithContext(ctx).
		Where("channel_id = ? AND external_user_id = ? AND direction = ? AND created_at >= ?",
			channelID, externalUserID, domain.DirectionOutgoing, cutoff).
		Where("source = ? OR message_type = ?", domain.SourceAdmin, "human").
		Order("created_at DESC").
		First(&row).Error
	if err == nil {
		t := row.CreatedAt
		return &t, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	// Legacy sentinel fallback.
	err = db.WithContext(ctx).
		Where("channel_id = ? AND external_user_id = ? AND message_type = ? AND content = ? AND created_at >= ?",
			channelID, externalUserID, "system", domain.HandoffSentinel, cutoff).
		Order("created_at DESC").
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	t := row.CreatedAt
	return &t, nil
}
