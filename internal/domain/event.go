// Package domain – gateway event records.
package domain

import "time"

// GatewayEvent is the durable idempotency record for an inbound event,
// keyed by (channel_id, external_event_id). A row is inserted as a
// placeholder the moment an event id is first seen; the unique composite
// index is the sole concurrency-control primitive guaranteeing at most one
// full execution per event id. ResponsePayload is filled in best-effort
// once the final response has been computed and is returned verbatim on
// replay.
type GatewayEvent struct {
	ID              string    `gorm:"type:char(36);primaryKey"`
	ChannelID       string    `gorm:"type:char(36);not null;uniqueIndex:ux_channel_event,priority:1"`
	ExternalEventID string    `gorm:"type:varchar(128);not null;uniqueIndex:ux_channel_event,priority:2"`
	ResponsePayload *string   `gorm:"type:text"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

// TableName implements the GORM tabler interface.
func (GatewayEvent) TableName() string { return "gateway_events" }
