// Gateway HTTP handler.
//
// This file exposes the single inbound endpoint of the service:
//   - POST /gateway/message   (process one inbound chat event)
//
// The handler is transport-thin:
//   - extract and validate the channel credential (header, bearer token, or
//     request body field, in that order of precedence)
//   - validate and normalize the event payload
//   - delegate to the GatewayOrchestrator
//   - map pipeline errors onto the HTTP error taxonomy
//
// Silent successes (duplicate deliveries, buffered turns, handoff
// suppression) come back as 200 with the matching status so webhook relays
// never retry them.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/autobot/go-bot-gateway/internal/http/middleware"
	"github.com/autobot/go-bot-gateway/internal/services"
)

//
// DTOs
//

// GatewayMessageRequest is the JSON payload for one inbound chat event.
//
// InboundKey is only consulted when no credential arrived via the
// X-Channel-Key header or an Authorization bearer token.
type GatewayMessageRequest struct {
	// InboundKey is the channel credential, for relays that post it inline.
	InboundKey string `json:"inbound_api_key,omitempty"`
	// EventID is the platform's delivery id; omit to disable deduplication.
	EventID string `json:"event_id,omitempty" example:"evt-5f2b9c"`
	// ExternalUserID identifies the end user on the external platform.
	ExternalUserID string `json:"external_user_id" binding:"required" example:"U4af4980629..."`
	// Text is the message text. May be empty for non-text payloads.
	Text string `json:"text,omitempty" example:"Where is my order?"`
	// MessageType is the payload type; defaults to "text".
	MessageType string `json:"message_type,omitempty" example:"text"`
	// ChannelType is informational; the channel is resolved by credential.
	ChannelType string `json:"channel_type,omitempty" example:"line"`
	// Attachments lists attachment references (URLs or media ids).
	Attachments []string `json:"attachments,omitempty"`
	// Metadata is a free-form map passed through to the handler.
	Metadata map[string]any `json:"metadata,omitempty"`
	// IsAdmin marks console-injected messages that bypass suppression
	// and buffering.
	IsAdmin bool `json:"is_admin,omitempty"`
}

//
// Handler
//

// PostGatewayMessage processes one inbound chat event end to end.
//
// Responses:
//   - 200: processed (status=ok with reply messages), or a silent success
//     (status=duplicate|buffered|suppressed)
//   - 400: malformed payload or missing credential
//   - 401: unknown or inactive channel credential
//   - 402: billing denial (message states which kind)
//   - 500: handler failure or timeout (generic message only)
func (h *Handlers) PostGatewayMessage(c *gin.Context) {
	ctx := c.Request.Context()

	var req GatewayMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "external_user_id required")
		return
	}

	key, _ := middleware.GetChannelKey(c)
	if key == "" {
		key = strings.TrimSpace(req.InboundKey)
	}
	if key == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "channel credential required")
		return
	}

	ch, err := h.gateway.ResolveChannel(ctx, key)
	if err != nil {
		if errors.Is(err, services.ErrChannelNotFound) {
			middleware.LoggerFrom(c).Warn().
				Str("channel_key", middleware.RedactKey(key)).
				Msg("unknown or inactive channel credential")
			fail(c, http.StatusUnauthorized, ErrCodeInvalidChannelKey, "unknown or inactive channel")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "channel lookup failed")
		return
	}

	res, err := h.gateway.Process(ctx, ch, services.InboundMessage{
		ExternalEventID: strings.TrimSpace(req.EventID),
		ExternalUserID:  strings.TrimSpace(req.ExternalUserID),
		Text:            req.Text,
		MessageType:     strings.TrimSpace(req.MessageType),
		Attachments:     req.Attachments,
		Metadata:        req.Metadata,
		IsAdmin:         req.IsAdmin,
	})
	if err != nil {
		switch {
		case services.IsBillingDenial(err):
			fail(c, http.StatusPaymentRequired, ErrCodePaymentRequired, err.Error())
		case errors.Is(err, context.Canceled):
			// Client went away; nothing useful to write.
			c.Abort()
		default:
			// Handler failures and timeouts stay generic toward the relay;
			// details are in the server logs.
			fail(c, http.StatusInternalServerError, ErrCodeProcessingFailed, "message processing failed")
		}
		return
	}

	ok(c, http.StatusOK, res)
}
