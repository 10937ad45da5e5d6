// Package services – EligibilityGate
//
// This file implements the billing eligibility check performed before any
// message processing. Denial reasons are ranked: a tenant with no
// subscription history gets a different message from one whose period
// lapsed, and an overdue invoice blocks usage even while the subscription
// is nominally active; billing delinquency must not be maskable by an
// open period.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/autobot/go-bot-gateway/internal/repo"
)

// EligibilityGate checks tenant subscription and invoice state.
type EligibilityGate struct {
	// DB is the GORM handle used for billing lookups.
	DB *gorm.DB

	// Now allows tests to pin the clock; defaults to time.Now.
	Now func() time.Time
}

// Check returns nil when the tenant may use the gateway, or one of the
// billing denial sentinels (ErrNoSubscription, ErrSubscriptionExpired,
// ErrOverdueInvoice). Unexpected storage errors are returned as-is.
func (g *EligibilityGate) Check(ctx context.Context, userID string) error {
	now := time.Now().UTC()
	if g.Now != nil {
		now = g.Now()
	}

	_, err := repo.GetActiveSubscription(ctx, g.DB, userID, now)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			return err
		}
		expired, herr := repo.HasExpiredSubscription(ctx, g.DB, userID, now)
		if herr != nil {
			return herr
		}
		if expired {
			return ErrSubscriptionExpired
		}
		return ErrNoSubscription
	}

	// Overdue invoices take precedence over an otherwise-active subscription.
	_, err = repo.GetOverdueInvoice(ctx, g.DB, userID, now)
	if err == nil {
		return ErrOverdueInvoice
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return err
	}
	return nil
}
