// Package services defines the business logic of the inbound message
// gateway: idempotent event reservation, billing eligibility, human-handoff
// suppression, message debouncing, and the orchestrator that sequences them.
// This file centralizes common service-level error values so that they can
// be consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler/controller layer.
package services

import "errors"

// Channel/authentication errors.
var (
	// ErrChannelNotFound indicates that no active channel matches the
	// presented inbound credential.
	ErrChannelNotFound = errors.New("unknown or inactive channel credential")
)

// Billing eligibility errors. All three short-circuit processing with a
// 402-equivalent response; they are distinct so tenants receive an accurate
// message about what to fix.
var (
	// ErrNoSubscription is returned when the tenant has never subscribed.
	ErrNoSubscription = errors.New("no active subscription found for this customer")

	// ErrSubscriptionExpired is returned when the tenant's subscription
	// period has lapsed.
	ErrSubscriptionExpired = errors.New("subscription expired; renew to continue using the service")

	// ErrOverdueInvoice is returned when an unpaid invoice is past its due
	// date. Overdue invoices block usage even while the subscription period
	// is still open.
	ErrOverdueInvoice = errors.New("overdue invoices must be paid before using the service")
)

// Handler dispatch errors.
var (
	// ErrHandlerTimeout is returned when the conversational handler exceeds
	// the per-request processing deadline.
	ErrHandlerTimeout = errors.New("handler deadline exceeded")

	// ErrHandlerFailed wraps unexpected handler errors; the external channel
	// only ever sees a generic message.
	ErrHandlerFailed = errors.New("handler failed")
)

// IsBillingDenial reports whether err is one of the eligibility denials.
func IsBillingDenial(err error) bool {
	return errors.Is(err, ErrNoSubscription) ||
		errors.Is(err, ErrSubscriptionExpired) ||
		errors.Is(err, ErrOverdueInvoice)
}
