// Package repo – billing lookups consumed by the eligibility gate.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/autobot/go-bot-gateway/internal/domain"
)

// GetActiveSubscription returns the tenant's active subscription whose
// period covers now, or ErrNotFound.
func GetActiveSubscription(ctx context.Context, db *gorm.DB, userID string, now time.Time) (*domain.Subscription, error) {
	var s domain.Subscription
	err := db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND current_period_end >= ?", userID, "active", now).
		Order("current_period_end DESC").
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// HasExpiredSubscription reports whether the tenant ever held a subscription
// whose period has lapsed. Used to distinguish "expired" from "never
// subscribed" in the denial message.
func HasExpiredSubscription(ctx context.Context, db *gorm.DB, userID string, now time.Time) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Subscription{}).
		Where("user_id = ? AND current_period_end < ?", userID, now).
		Count(&count).Error
	return count > 0, err
}

// GetOverdueInvoice returns the tenant's oldest unpaid invoice past its due
// date, or ErrNotFound when the tenant is in good standing.
func GetOverdueInvoice(ctx context.Context, db *gorm.DB, userID string, now time.Time) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := db.WithContext(ctx).
		Where("user_id = ? AND status IN ? AND due_date < ?",
			userID, []string{domain.InvoiceStatusPending, domain.InvoiceStatusFailed}, now).
		Order("due_date ASC").
		First(&inv).Error
	if err != nil {
		return nil, err
	}
	return &inv, nil
}
