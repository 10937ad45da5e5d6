// Package domain – conversation continuity and usage logging models.
package domain

import "time"

// Chat log directions and sources. Source records who authored an outgoing
// message; "admin" entries drive the human-handoff suppression window.
const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"

	SourceUser   = "user"
	SourceBot    = "bot"
	SourceAdmin  = "admin"
	SourceSystem = "system"
)

// HandoffSentinel is the legacy marker text older logging paths wrote as a
// system message when an agent took over a conversation. The handoff guard
// honors it alongside the structured Source column.
const HandoffSentinel = "HUMAN_HANDOFF"

// ChatSession is the per-(channel, external user) continuity record. It is
// created lazily on the first message from a new external user and is never
// deleted by the gateway. Handlers own LastIntent/Slots; the gateway only
// threads the session id through.
type ChatSession struct {
	ID             string    `json:"id"               gorm:"type:char(36);primaryKey"`
	ChannelID      string    `json:"channel_id"       gorm:"type:char(36);not null;uniqueIndex:ux_channel_external_user,priority:1"`
	ExternalUserID string    `json:"external_user_id" gorm:"type:varchar(128);not null;uniqueIndex:ux_channel_external_user,priority:2"`
	LastIntent     string    `json:"last_intent"      gorm:"type:varchar(128)"`
	Slots          string    `json:"slots"            gorm:"type:text"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName implements the GORM tabler interface.
func (ChatSession) TableName() string { return "chat_sessions" }

// ChatLog is an append-only usage/audit record for messages flowing through
// a channel. Incoming entries track usage; outgoing entries with
// Source=admin (or the legacy system sentinel) suppress the bot during
// human handoff.
type ChatLog struct {
	ID             string    `json:"id"               gorm:"type:char(36);primaryKey"`
	ChannelID      string    `json:"channel_id"       gorm:"type:char(36);not null;index:idx_channel_user_logs,priority:1"`
	ExternalUserID string    `json:"external_user_id" gorm:"type:varchar(128);not null;index:idx_channel_user_logs,priority:2"`
	Direction      string    `json:"direction"        gorm:"type:varchar(16);not null;check:direction IN ('incoming','outgoing')"`
	MessageType    string    `json:"message_type"     gorm:"type:varchar(32);not null;default:'text'"`
	Content        string    `json:"content"          gorm:"type:text"`
	Source         string    `json:"source"           gorm:"type:varchar(16);not null;default:'user'"`
	Metadata       string    `json:"metadata"         gorm:"type:text"`
	CreatedAt      time.Time `json:"created_at"       gorm:"index:idx_channel_user_logs,priority:3"`
}

// TableName implements the GORM tabler interface.
func (ChatLog) TableName() string { return "chat_logs" }
