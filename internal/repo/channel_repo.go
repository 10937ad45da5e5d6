// Package repo implements the data persistence layer for gateway entities,
// backed by GORM. This file provides lookups for channels and bot profiles.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only query
// composition.
//
// Error semantics:
//   - When a record is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/autobot/go-bot-gateway/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// GetChannelByInboundKey fetches the active, non-deleted channel that owns
// the given inbound credential. Inactive or soft-deleted channels are
// treated as missing so callers see a single "unknown credential" path.
func GetChannelByInboundKey(ctx context.Context, db *gorm.DB, inboundKey string) (*domain.Channel, error) {
	var ch domain.Channel
	err := db.WithContext(ctx).
		Where("inbound_key = ? AND status = ?", inboundKey, "active").
		First(&ch).Error
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

// GetBotProfile fetches an active, non-deleted bot profile by id.
func GetBotProfile(ctx context.Context, db *gorm.DB, id string) (*domain.BotProfile, error) {
	var p domain.BotProfile
	err := db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetDefaultBotProfile fetches the tenant's default active profile. When a
// tenant has several rows flagged default (should not happen, but the admin
// console has raced before), the most recently created wins.
func GetDefaultBotProfile(ctx context.Context, db *gorm.DB, userID string) (*domain.BotProfile, error) {
	var p domain.BotProfile
	err := db.WithContext(ctx).
		Where("user_id = ? AND is_active = ? AND is_default = ?", userID, true, true).
		Order("created_at DESC").
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListActiveIntegrations returns the tenant's active integrations ordered by
// provider so grouping is deterministic.
func ListActiveIntegrations(ctx context.Context, db *gorm.DB, userID string) ([]domain.Integration, error) {
	var out []domain.Integration
	err := db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("provider ASC, created_at ASC").
		Find(&out).Error
	return out, err
}
