// Package repo – gateway event (idempotency) persistence.
//
// The unique composite index on (channel_id, external_event_id) is the
// concurrency-control primitive for "at most one full execution per event
// id": whichever request inserts the placeholder row wins; everyone else
// sees ErrDuplicate.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/autobot/go-bot-gateway/internal/domain"
)

// ErrDuplicate indicates that a gateway event record already exists for the
// given (channel_id, external_event_id) tuple.
var ErrDuplicate = errors.New("duplicate")

// CreateGatewayEvent inserts a placeholder record and returns ErrDuplicate
// on unique violation. The structured gorm.ErrDuplicatedKey signal is
// checked first; glebarez/sqlite often surfaces plain-text errors for
// UNIQUE violations, so a message fallback remains.
func CreateGatewayEvent(ctx context.Context, db *gorm.DB, channelID, externalEventID string) (*domain.GatewayEvent, error) {
	rec := &domain.GatewayEvent{
		ID:              uuid.NewString(),
		ChannelID:       channelID,
		ExternalEventID: externalEventID,
		CreatedAt:       time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}

// GetGatewayEvent returns the record for (channelID, externalEventID), or
// ErrNotFound.
func GetGatewayEvent(ctx context.Context, db *gorm.DB, channelID, externalEventID string) (*domain.GatewayEvent, error) {
	var rec domain.GatewayEvent
	err := db.WithContext(ctx).
		Where("channel_id = ? AND external_event_id = ?", channelID, externalEventID).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpdateGatewayEventResponse stores the serialized response payload on an
// existing record. Returns ErrNotFound when no placeholder exists (the
// caller reserved under a different key, or the row was purged).
func UpdateGatewayEventResponse(ctx context.Context, db *gorm.DB, channelID, externalEventID, payload string) error {
	res := db.WithContext(ctx).
		Model(&domain.GatewayEvent{}).
		Where("channel_id = ? AND external_event_id = ?", channelID, externalEventID).
		Update("response_payload", payload)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// isUniqueViolation detects unique-constraint violations across drivers that
// may not map to gorm.ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key")
}
