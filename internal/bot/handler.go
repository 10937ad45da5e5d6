// Package bot defines the conversational handler contract and the registry
// that maps a bot profile's handler key to an implementation. Handlers are
// pure request/reply components: the gateway pipeline owns deduplication,
// billing, buffering and persistence, and hands a handler one combined turn
// at a time.
package bot

import (
	"context"
	"encoding/json"
)

// ReplySeparator marks message boundaries inside Reply.Text. The gateway
// splits on it and delivers each fragment as a separate outbound message.
const ReplySeparator = "||SPLIT||"

// Request is one combined conversational turn, assembled by the gateway
// after buffering.
type Request struct {
	// ChannelID is the tenant channel the message arrived on.
	ChannelID string
	// ExternalUserID identifies the end user on the external platform.
	ExternalUserID string
	// SessionID is the persistent conversation session identifier.
	SessionID string
	// TraceID correlates handler work with the gateway response and logs.
	TraceID string
	// Text is the combined message text for this turn.
	Text string
	// MessageType is the inbound payload type ("text", "image", ...).
	MessageType string
	// Attachments lists attachment references (URLs or channel media ids).
	Attachments []string
	// Metadata is the free-form metadata map from the inbound event.
	Metadata map[string]any
	// LastIntent is the most recent intent recorded on the session.
	LastIntent string
	// Slots is the session's accumulated slot state.
	Slots map[string]string
	// Config is the raw handler configuration from the bot profile.
	Config map[string]json.RawMessage
	// Integrations holds the tenant's active third-party credentials,
	// grouped by provider. Values are opaque config documents.
	Integrations map[string][]json.RawMessage
}

// Action is a structured side effect the channel adapter should perform
// alongside the textual reply (typing indicators, menu pushes, hand-off
// escalation).
type Action struct {
	Type   string            `json:"type"`
	Params map[string]string `json:"params,omitempty"`
}

// Reply is a handler's answer for one turn. Text may contain the reply
// separator understood by the gateway's post-processing; handlers that want
// multiple outbound messages embed it rather than returning a slice.
type Reply struct {
	Text    string
	Actions []Action
	// Metadata is merged into the response metadata. The gateway always adds
	// its own trace id on top.
	Metadata map[string]any
	// Intent and Slots, when non-zero, are written back to the session.
	Intent string
	Slots  map[string]string
}

// Handler produces a reply for a conversational turn. Implementations must
// be safe for concurrent use and should honor ctx cancellation; the gateway
// enforces a hard deadline around every invocation.
type Handler interface {
	Handle(ctx context.Context, req *Request) (*Reply, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, req *Request) (*Reply, error)

func (f HandlerFunc) Handle(ctx context.Context, req *Request) (*Reply, error) {
	return f(ctx, req)
}
