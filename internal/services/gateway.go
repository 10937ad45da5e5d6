// Package services – GatewayOrchestrator
//
// This file implements the orchestrator that sequences the inbound message
// pipeline: channel resolution, idempotent event reservation, billing
// eligibility, human-handoff suppression, message debouncing, conversational
// handler dispatch under a deadline, reply post-processing, and best-effort
// persistence. The ordering is deliberate: the idempotency slot is reserved
// before any other check so concurrent duplicate deliveries collapse even
// when they would later be denied, and every denial leaves a consistent
// dedup record behind.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/autobot/go-bot-gateway/internal/bot"
	"github.com/autobot/go-bot-gateway/internal/domain"
	"github.com/autobot/go-bot-gateway/internal/repo"
)

// Result statuses. All of them are HTTP 200 to the caller; duplicates,
// buffered turns and suppressed turns are silent successes so upstream
// webhook relays never retry them.
const (
	StatusOK         = "ok"
	StatusBuffered   = "buffered"
	StatusSuppressed = "suppressed"
	StatusDuplicate  = "duplicate"
)

// InboundMessage is one normalized inbound event, already authenticated
// against a channel.
type InboundMessage struct {
	// ExternalEventID is the platform's delivery id; blank disables dedup.
	ExternalEventID string
	// ExternalUserID identifies the end user on the external platform.
	ExternalUserID string
	// Text is the message text (may be blank for non-text payloads).
	Text string
	// MessageType is the payload type; blank is treated as "text".
	MessageType string
	// Attachments lists attachment references delivered with the event.
	Attachments []string
	// Metadata is the free-form metadata map from the channel adapter.
	Metadata map[string]any
	// IsAdmin marks messages injected by the tenant's own console; they
	// bypass handoff suppression and buffering.
	IsAdmin bool
}

// GatewayResult is the pipeline outcome returned to the HTTP layer and,
// serialized, stored as the replay payload for duplicate deliveries.
// ReplyText is null for silent successes (duplicate, buffered, suppressed);
// Metadata always carries a trace_id for processed turns.
type GatewayResult struct {
	Status    string         `json:"status"`
	ReplyText *string        `json:"reply_text"`
	Messages  []string       `json:"messages,omitempty"`
	Actions   []bot.Action   `json:"actions,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// TraceID returns the trace identifier from the result metadata, if any.
func (r *GatewayResult) TraceID() string {
	s, _ := r.Metadata["trace_id"].(string)
	return s
}

// GatewayOrchestrator wires the pipeline stages together. All dependencies
// are exported so tests can substitute fakes per stage.
type GatewayOrchestrator struct {
	// DB is the GORM handle shared by the repository calls made directly
	// from the orchestrator (profiles, sessions, chat logs).
	DB *gorm.DB

	Events      *EventStore
	Eligibility *EligibilityGate
	Handoff     *HandoffGuard
	Buffer      *MessageBuffer
	Registry    *bot.Registry

	// HandlerTimeout bounds a single handler invocation.
	HandlerTimeout time.Duration
	// HandoffWindow is the default suppression window; profiles override it.
	HandoffWindow time.Duration
	// MaxLoggedChars caps chat-log content by rune length.
	MaxLoggedChars int
}

const (
	defaultHandlerTimeout = 30 * time.Second
	defaultHandoffWindow  = 10 * time.Minute
	defaultMaxLoggedChars = 1000
)

// ResolveChannel authenticates an inbound credential. Unknown, inactive and
// soft-deleted channels all collapse into ErrChannelNotFound so the HTTP
// layer exposes a single failure mode.
func (o *GatewayOrchestrator) ResolveChannel(ctx context.Context, inboundKey string) (*domain.Channel, error) {
	ch, err := repo.GetChannelByInboundKey(ctx, o.DB, inboundKey)
	if err != nil {
		if err == repo.ErrNotFound {
			return nil, ErrChannelNotFound
		}
		return nil, err
	}
	return ch, nil
}

// Process runs one inbound message through the full pipeline and returns
// the reply set for the channel adapter.
//
// Error returns are reserved for conditions the caller must surface
// (billing denials, handler failure, storage faults). Duplicate, buffered
// and suppressed turns come back as successful results with the matching
// status.
func (o *GatewayOrchestrator) Process(ctx context.Context, ch *domain.Channel, msg InboundMessage) (*GatewayResult, error) {
	// Idempotency first: concurrent duplicate deliveries must collapse
	// before any other stage can diverge.
	resv, err := o.Events.Reserve(ctx, ch.ID, msg.ExternalEventID)
	if err != nil {
		return nil, err
	}
	switch resv.Outcome {
	case ReserveDuplicateReplay:
		var replay GatewayResult
		if uerr := json.Unmarshal([]byte(resv.Payload), &replay); uerr == nil && replay.Status != "" {
			return &replay, nil
		}
		// Stored payload is unreadable; still do not reprocess.
		return &GatewayResult{Status: StatusDuplicate}, nil
	case ReserveDuplicatePending:
		return &GatewayResult{Status: StatusDuplicate}, nil
	}

	if err := o.Eligibility.Check(ctx, ch.UserID); err != nil {
		return nil, err
	}

	profile, cfg := o.loadProfile(ctx, ch)

	// Usage accounting: every accepted inbound message is logged, including
	// ones that end up buffered or suppressed.
	o.bestEffort("append_incoming_log", func() error {
		return repo.AppendChatLog(ctx, o.DB, &domain.ChatLog{
			ChannelID:      ch.ID,
			ExternalUserID: msg.ExternalUserID,
			Direction:      domain.DirectionIncoming,
			MessageType:    messageType(msg.MessageType),
			Content:        o.truncate(msg.Text),
			Source:         incomingSource(msg.IsAdmin),
		})
	})

	if !msg.IsAdmin {
		window := cfg.HandoffWindow(o.handoffWindow())
		suppressed, herr := o.Handoff.IsSuppressed(ctx, ch.ID, msg.ExternalUserID, window)
		if herr != nil {
			return nil, herr
		}
		if suppressed {
			res := &GatewayResult{
				Status: StatusSuppressed,
				Metadata: map[string]any{
					"handoff.active":         true,
					"handoff.window_minutes": window.Minutes(),
				},
			}
			o.storeResponse(ctx, ch.ID, msg.ExternalEventID, res)
			return res, nil
		}
	}

	text := msg.Text
	if cfg.Buffering.Enabled && !msg.IsAdmin {
		if ShouldBypass(msg.MessageType, msg.Text, cfg.Buffering) {
			gatewayBuffer.WithLabelValues("bypass").Inc()
		} else {
			bres, berr := o.Buffer.Handle(ctx, BufferKey{ChannelID: ch.ID, ExternalUserID: msg.ExternalUserID}, msg.Text, cfg.Buffering)
			if berr != nil {
				return nil, berr
			}
			if bres.Action == BufferActionBuffered {
				res := &GatewayResult{Status: StatusBuffered}
				o.storeResponse(ctx, ch.ID, msg.ExternalEventID, res)
				return res, nil
			}
			text = bres.CombinedText
		}
	}

	session, err := repo.FindOrCreateSession(ctx, o.DB, ch.ID, msg.ExternalUserID)
	if err != nil {
		return nil, err
	}

	traceID := uuid.NewString()
	reply, err := o.dispatch(ctx, ch, profile, cfg, session, msg, text, traceID)
	if err != nil {
		return nil, err
	}

	meta := make(map[string]any, len(reply.Metadata)+1)
	for k, v := range reply.Metadata {
		meta[k] = v
	}
	meta["trace_id"] = traceID

	res := &GatewayResult{
		Status:   StatusOK,
		Messages: SplitReply(reply.Text),
		Actions:  reply.Actions,
		Metadata: meta,
	}
	if t := strings.TrimSpace(reply.Text); t != "" {
		res.ReplyText = &reply.Text
	}

	o.storeResponse(ctx, ch.ID, msg.ExternalEventID, res)
	o.bestEffort("append_outgoing_log", func() error {
		logMeta, _ := json.Marshal(map[string]string{"trace_id": traceID})
		for _, m := range res.Messages {
			if err := repo.AppendChatLog(ctx, o.DB, &domain.ChatLog{
				ChannelID:      ch.ID,
				ExternalUserID: msg.ExternalUserID,
				Direction:      domain.DirectionOutgoing,
				MessageType:    "text",
				Content:        o.truncate(m),
				Source:         domain.SourceBot,
				Metadata:       string(logMeta),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if reply.Intent != "" || len(reply.Slots) > 0 {
		o.bestEffort("update_session", func() error {
			slots := ""
			if len(reply.Slots) > 0 {
				b, merr := json.Marshal(reply.Slots)
				if merr != nil {
					return merr
				}
				slots = string(b)
			}
			return repo.UpdateSessionState(ctx, o.DB, session.ID, reply.Intent, slots)
		})
	}

	return res, nil
}

// dispatch resolves the profile's handler and runs it under the configured
// deadline. The handler runs in its own goroutine; on timeout the goroutine
// is abandoned with a cancelled context and the caller gets
// ErrHandlerTimeout.
func (o *GatewayOrchestrator) dispatch(ctx context.Context, ch *domain.Channel, profile *domain.BotProfile, cfg domain.BotConfig, session *domain.ChatSession, msg InboundMessage, text, traceID string) (*bot.Reply, error) {
	handlerKey := ""
	if profile != nil {
		handlerKey = profile.HandlerKey
	}
	h, resolvedKey, ok := o.Registry.Resolve(handlerKey)
	if !ok {
		return nil, fmt.Errorf("%w: no handler registered", ErrHandlerFailed)
	}

	req := &bot.Request{
		ChannelID:      ch.ID,
		ExternalUserID: msg.ExternalUserID,
		SessionID:      session.ID,
		TraceID:        traceID,
		Text:           text,
		MessageType:    messageType(msg.MessageType),
		Attachments:    msg.Attachments,
		Metadata:       msg.Metadata,
		LastIntent:     session.LastIntent,
		Slots:          decodeSlots(session.Slots),
		Config:         cfg.Extra,
		Integrations:   o.loadIntegrations(ctx, ch.UserID),
	}

	timeout := o.HandlerTimeout
	if timeout <= 0 {
		timeout = defaultHandlerTimeout
	}
	hctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		reply *bot.Reply
		err   error
	}
	done := make(chan outcome, 1)
	start := time.Now()
	go func() {
		rep, err := h.Handle(hctx, req)
		done <- outcome{reply: rep, err: err}
	}()

	select {
	case out := <-done:
		gatewayHandlerLat.WithLabelValues(resolvedKey).Observe(time.Since(start).Seconds())
		if out.err != nil {
			log.Error().Err(out.err).
				Str("handler", resolvedKey).
				Str("channel_id", ch.ID).
				Msg("handler invocation failed")
			return nil, fmt.Errorf("%w: %s", ErrHandlerFailed, resolvedKey)
		}
		if out.reply == nil {
			return nil, fmt.Errorf("%w: %s returned no reply", ErrHandlerFailed, resolvedKey)
		}
		return out.reply, nil
	case <-hctx.Done():
		gatewayHandlerLat.WithLabelValues(resolvedKey).Observe(time.Since(start).Seconds())
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Error().
			Str("handler", resolvedKey).
			Str("channel_id", ch.ID).
			Dur("timeout", timeout).
			Msg("handler deadline exceeded")
		return nil, ErrHandlerTimeout
	}
}

// loadProfile resolves the channel's bound profile, falling back to the
// tenant default, then to a nil profile with zero config. A profile whose
// config fails to parse is still used with zero config; the parse error is
// logged so the misconfiguration is visible.
func (o *GatewayOrchestrator) loadProfile(ctx context.Context, ch *domain.Channel) (*domain.BotProfile, domain.BotConfig) {
	var profile *domain.BotProfile
	if ch.BotProfileID != nil && *ch.BotProfileID != "" {
		if p, err := repo.GetBotProfile(ctx, o.DB, *ch.BotProfileID); err == nil {
			profile = p
		} else if err != repo.ErrNotFound {
			log.Warn().Err(err).Str("channel_id", ch.ID).Msg("bot profile lookup failed")
		}
	}
	if profile == nil {
		if p, err := repo.GetDefaultBotProfile(ctx, o.DB, ch.UserID); err == nil {
			profile = p
		} else if err != repo.ErrNotFound {
			log.Warn().Err(err).Str("channel_id", ch.ID).Msg("default bot profile lookup failed")
		}
	}
	if profile == nil {
		return nil, domain.BotConfig{}
	}

	cfg, err := domain.ParseBotConfig(profile.Config)
	if err != nil {
		log.Warn().Err(err).
			Str("profile_id", profile.ID).
			Msg("bot profile config is malformed; using defaults")
		return profile, domain.BotConfig{}
	}
	return profile, cfg
}

// loadIntegrations fetches the tenant's active integrations grouped by
// provider. Failures degrade to an empty map; handlers must cope with
// missing credentials anyway.
func (o *GatewayOrchestrator) loadIntegrations(ctx context.Context, userID string) map[string][]json.RawMessage {
	rows, err := repo.ListActiveIntegrations(ctx, o.DB, userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("integration lookup failed")
		return nil
	}
	if len(rows) == 0 {
		return nil
	}
	out := make(map[string][]json.RawMessage, len(rows))
	for _, r := range rows {
		out[r.Provider] = append(out[r.Provider], json.RawMessage(r.Config))
	}
	return out
}

// storeResponse serializes the result onto the dedup record, best-effort.
func (o *GatewayOrchestrator) storeResponse(ctx context.Context, channelID, externalEventID string, res *GatewayResult) {
	o.bestEffort("store_response", func() error {
		payload, err := json.Marshal(res)
		if err != nil {
			return err
		}
		return o.Events.StoreResponse(ctx, channelID, externalEventID, string(payload))
	})
}

// bestEffort runs a persistence step whose failure must not abort the reply
// path. Failures are logged with the step name and otherwise swallowed.
func (o *GatewayOrchestrator) bestEffort(step string, fn func() error) {
	if err := fn(); err != nil {
		log.Warn().Err(err).Str("step", step).Msg("best-effort persistence failed")
	}
}

func (o *GatewayOrchestrator) handoffWindow() time.Duration {
	if o.HandoffWindow > 0 {
		return o.HandoffWindow
	}
	return defaultHandoffWindow
}

// truncate caps chat-log content by rune length.
func (o *GatewayOrchestrator) truncate(s string) string {
	max := o.MaxLoggedChars
	if max <= 0 {
		max = defaultMaxLoggedChars
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

// SplitReply splits a handler reply into outbound messages on the reply
// separator. Fragments are trimmed and empty fragments are dropped; a reply
// with no separator yields a single message.
func SplitReply(text string) []string {
	parts := strings.Split(text, bot.ReplySeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func messageType(t string) string {
	if t == "" {
		return "text"
	}
	return t
}

func incomingSource(isAdmin bool) string {
	if isAdmin {
		return domain.SourceAdmin
	}
	return domain.SourceUser
}

func decodeSlots(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil
	}
	return m
}
