package services

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/autobot/go-bot-gateway/internal/domain"
)

// newServiceDB opens a throwaway SQLite database with the full gateway
// schema migrated.
func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("svc_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if err := db.AutoMigrate(
		&domain.Channel{},
		&domain.BotProfile{},
		&domain.Subscription{},
		&domain.Invoice{},
		&domain.Integration{},
		&domain.GatewayEvent{},
		&domain.ChatSession{},
		&domain.ChatLog{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedActiveSubscription(t *testing.T, db *gorm.DB, userID string) {
	t.Helper()
	if err := db.Create(&domain.Subscription{
		ID:               uuid.NewString(),
		UserID:           userID,
		PlanName:         "pro",
		Status:           "active",
		CurrentPeriodEnd: time.Now().UTC().Add(24 * time.Hour),
	}).Error; err != nil {
		t.Fatalf("seed subscription: %v", err)
	}
}

func seedTestChannel(t *testing.T, db *gorm.DB, userID, inboundKey string) *domain.Channel {
	t.Helper()
	ch := &domain.Channel{
		ID:         uuid.NewString(),
		UserID:     userID,
		Type:       domain.ChannelTypeWeb,
		InboundKey: inboundKey,
		Status:     "active",
	}
	if err := db.Create(ch).Error; err != nil {
		t.Fatalf("seed channel: %v", err)
	}
	return ch
}
