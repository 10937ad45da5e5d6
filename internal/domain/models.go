// Package domain defines the persistence models for the message gateway:
// tenant channels, bot profiles, billing records, and integrations. These
// types are mapped with GORM and form the core data layer of the gateway.
// All of them are owned by the admin console; the gateway treats them as
// read-only reference data.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Channel types accepted on inbound events.
const (
	ChannelTypeLine     = "line"
	ChannelTypeFacebook = "facebook"
	ChannelTypeWeb      = "web"
	ChannelTypeOther    = "other"
)

// Channel is a tenant's configured inbound surface (a LINE OA, a Facebook
// page, a web widget). Inbound requests authenticate with the channel's
// InboundKey; the gateway only serves active, non-deleted channels.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - UserID: owning tenant; indexed for per-tenant lookups.
//   - Type: one of the ChannelType* constants.
//   - InboundKey: the shared secret presented by the webhook relay (unique).
//   - BotProfileID: optional bound profile; nil means "use tenant default".
//   - Status: active|inactive; inactive channels fail authentication.
//   - DeletedAt: soft deletion marker (retains row for audit/history).
type Channel struct {
	ID           string         `json:"id"             gorm:"type:char(36);primaryKey"`
	UserID       string         `json:"user_id"        gorm:"type:varchar(64);not null;index:idx_user_channels"`
	Type         string         `json:"type"           gorm:"type:varchar(16);not null;default:'other'"`
	InboundKey   string         `json:"-"              gorm:"type:varchar(128);not null;uniqueIndex:ux_channel_inbound_key"`
	BotProfileID *string        `json:"bot_profile_id" gorm:"type:char(36)"`
	Status       string         `json:"status"         gorm:"type:varchar(16);not null;default:'active'"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-"              gorm:"index"`
}

// TableName returns the database table name for Channel.
func (Channel) TableName() string { return "channels" }

// BotProfile is a named handler configuration for a tenant. HandlerKey
// selects the conversational handler implementation; Config is a free-form
// JSON document decoded via ParseBotConfig at the point of use.
// A tenant may have several profiles; at most one is the default.
type BotProfile struct {
	ID         string         `json:"id"          gorm:"type:char(36);primaryKey"`
	UserID     string         `json:"user_id"     gorm:"type:varchar(64);not null;index:idx_user_profiles"`
	Name       string         `json:"name"        gorm:"type:varchar(255);not null;default:'Default'"`
	HandlerKey string         `json:"handler_key" gorm:"type:varchar(64);not null;default:'router_v1'"`
	Config     string         `json:"config"      gorm:"type:text"`
	IsDefault  bool           `json:"is_default"  gorm:"not null;default:false"`
	IsActive   bool           `json:"is_active"   gorm:"not null;default:true"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-"           gorm:"index"`
}

// TableName returns the database table name for BotProfile.
func (BotProfile) TableName() string { return "bot_profiles" }

// Subscription is a tenant's billing subscription. The gateway consults only
// Status and CurrentPeriodEnd; plan management is the billing module's job.
type Subscription struct {
	ID               string    `json:"id"                 gorm:"type:char(36);primaryKey"`
	UserID           string    `json:"user_id"            gorm:"type:varchar(64);not null;index:idx_user_subscriptions"`
	PlanName         string    `json:"plan_name"          gorm:"type:varchar(128);not null"`
	Status           string    `json:"status"             gorm:"type:varchar(16);not null;default:'active'"`
	CurrentPeriodEnd time.Time `json:"current_period_end" gorm:"not null;index"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName returns the database table name for Subscription.
func (Subscription) TableName() string { return "subscriptions" }

// Invoice statuses that count as unpaid for eligibility purposes.
const (
	InvoiceStatusPending = "pending"
	InvoiceStatusFailed  = "failed"
	InvoiceStatusPaid    = "paid"
)

// Invoice is a tenant billing invoice. An unpaid invoice past its due date
// blocks gateway processing regardless of the subscription period.
type Invoice struct {
	ID        string    `json:"id"       gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id"  gorm:"type:varchar(64);not null;index:idx_user_invoices"`
	Number    string    `json:"number"   gorm:"type:varchar(64);not null"`
	Total     float64   `json:"total"    gorm:"not null"`
	Status    string    `json:"status"   gorm:"type:varchar(16);not null;default:'pending'"`
	DueDate   time.Time `json:"due_date" gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Invoice.
func (Invoice) TableName() string { return "invoices" }

// Integration is a tenant's third-party credential set (LINE, Facebook,
// payment providers, ...). The gateway loads active integrations and hands
// them to the conversational handler grouped by provider; it never
// interprets Config itself.
type Integration struct {
	ID        string         `json:"id"        gorm:"type:char(36);primaryKey"`
	UserID    string         `json:"user_id"   gorm:"type:varchar(64);not null;index:idx_user_integrations"`
	Provider  string         `json:"provider"  gorm:"type:varchar(64);not null"`
	Config    string         `json:"-"         gorm:"type:text"`
	IsActive  bool           `json:"is_active" gorm:"not null;default:true"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"         gorm:"index"`
}

// TableName returns the database table name for Integration.
func (Integration) TableName() string { return "integrations" }
