// Package services – EventStore
//
// This file implements the EventStore, which owns the durable idempotency
// records for inbound events. Reserving an event id is the first write of
// every deduplicated request: the unique index on (channel_id,
// external_event_id) guarantees that exactly one caller sees a Fresh
// reservation, no matter how many concurrent deliveries carry the same id.
// Storing the final response is best-effort by design: idempotency storage
// must never turn a successful reply into a user-visible error.
package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/autobot/go-bot-gateway/internal/repo"
)

// ReserveOutcome classifies the result of an event-id reservation.
type ReserveOutcome int

const (
	// ReserveFresh means this caller owns the event and must process it.
	ReserveFresh ReserveOutcome = iota
	// ReserveDuplicatePending means another request holds the reservation
	// but has not stored a response yet.
	ReserveDuplicatePending
	// ReserveDuplicateReplay means the event was fully processed before;
	// Reservation.Payload carries the stored response.
	ReserveDuplicateReplay
)

// Reservation is the result of EventStore.Reserve.
type Reservation struct {
	Outcome ReserveOutcome
	// Payload is the previously stored response (ReserveDuplicateReplay only).
	Payload string
}

// EventStore persists and deduplicates inbound events by
// (channel, external event id).
type EventStore struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// Reserve attempts to claim (channelID, externalEventID) for processing.
//
// A blank externalEventID skips deduplication entirely: the event is
// processed unconditionally and no record is created. Otherwise a
// placeholder row is inserted; on a uniqueness conflict the existing row
// decides between an in-flight duplicate and a full replay.
func (s *EventStore) Reserve(ctx context.Context, channelID, externalEventID string) (Reservation, error) {
	if externalEventID == "" {
		return Reservation{Outcome: ReserveFresh}, nil
	}

	_, err := repo.CreateGatewayEvent(ctx, s.DB, channelID, externalEventID)
	if err == nil {
		gatewayDedup.WithLabelValues("fresh").Inc()
		return Reservation{Outcome: ReserveFresh}, nil
	}
	if err != repo.ErrDuplicate {
		return Reservation{}, err
	}

	existing, gerr := repo.GetGatewayEvent(ctx, s.DB, channelID, externalEventID)
	if gerr != nil {
		// The placeholder exists but cannot be read back; treat as an
		// in-flight duplicate rather than failing the delivery.
		gatewayDedup.WithLabelValues("duplicate_in_flight").Inc()
		return Reservation{Outcome: ReserveDuplicatePending}, nil
	}
	if existing.ResponsePayload != nil && *existing.ResponsePayload != "" {
		gatewayDedup.WithLabelValues("replay").Inc()
		return Reservation{Outcome: ReserveDuplicateReplay, Payload: *existing.ResponsePayload}, nil
	}
	gatewayDedup.WithLabelValues("duplicate_in_flight").Inc()
	return Reservation{Outcome: ReserveDuplicatePending}, nil
}

// StoreResponse records the serialized response payload on the reservation.
// Callers treat failures as telemetry only; the orchestrator wraps this in
// bestEffort so a storage hiccup never aborts the reply path.
func (s *EventStore) StoreResponse(ctx context.Context, channelID, externalEventID, payload string) error {
	if externalEventID == "" {
		return nil
	}
	return repo.UpdateGatewayEventResponse(ctx, s.DB, channelID, externalEventID, payload)
}
