// Package services – HandoffGuard
//
// This file implements human-handoff suppression: once an agent has replied
// to a conversation, the bot stays quiet for a configurable window so the
// human and the bot never talk over each other. Suppression is detected
// from the chat log (structured admin marker or the legacy sentinel) and is
// reported as ordinary state, not an error; the orchestrator turns it into
// a silent-success response so the upstream adapter does not retry.
package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/autobot/go-bot-gateway/internal/repo"
)

// HandoffGuard suppresses bot replies after recent human-agent activity.
type HandoffGuard struct {
	// DB is the GORM handle used for chat-log lookups.
	DB *gorm.DB

	// Now allows tests to pin the clock; defaults to time.Now.
	Now func() time.Time
}

// IsSuppressed reports whether a human agent replied to (channelID,
// externalUserID) within the window. The cutoff comparison is inclusive:
// an agent reply exactly window-old still suppresses.
func (g *HandoffGuard) IsSuppressed(ctx context.Context, channelID, externalUserID string, window time.Duration) (bool, error) {
	if externalUserID == "" || window <= 0 {
		return false, nil
	}
	now := time.Now().UTC()
	if g.Now != nil {
		now = g.Now()
	}
	cutoff := now.Add(-window)

	last, err := repo.LastAdminReplyAt(ctx, g.DB, channelID, externalUserID, cutoff)
	if err != nil {
		return false, err
	}
	if last == nil {
		return false, nil
	}
	gatewayHandoff.Inc()
	return true, nil
}
