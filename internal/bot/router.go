package bot

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/autobot/go-bot-gateway/internal/kb"
)

// Router answers turns from a knowledge-base index. It is the default
// handler ("router_v1"): intent detection is a thin keyword layer over the
// snippet search, and anything below the score threshold gets the
// configured fallback reply plus an escalation action.
type Router struct {
	// KB is the snippet index queried for every turn. May be nil, in which
	// case every turn falls back.
	KB kb.Index

	// Threshold is the minimum Jaccard score for a snippet to count as an
	// answer. Zero means DefaultThreshold.
	Threshold float64

	// Fallback is the reply used when no snippet clears the threshold.
	// Zero means DefaultFallback. Profiles override it with the
	// "fallback_reply" config key.
	Fallback string
}

const (
	// DefaultThreshold rejects low-overlap matches that read as non-sequiturs.
	DefaultThreshold = 0.15

	// DefaultFallback is intentionally generic; tenants are expected to
	// override it per profile.
	DefaultFallback = "I'm not sure I can help with that. Let me connect you with a teammate."
)

// config keys honored from the bot profile.
const (
	cfgFallbackReply = "fallback_reply"
	cfgGreeting      = "greeting"
)

// Handle implements Handler.
func (r *Router) Handle(ctx context.Context, req *Request) (*Reply, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text := strings.TrimSpace(req.Text)
	if isGreeting(text) {
		if g := stringConfig(req.Config, cfgGreeting); g != "" {
			return &Reply{Text: g, Intent: "greeting"}, nil
		}
		return &Reply{Text: "Hello! How can I help you today?", Intent: "greeting"}, nil
	}

	threshold := r.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	if r.KB != nil {
		matches := r.KB.TopK(text, 1)
		if len(matches) > 0 && matches[0].Score >= threshold {
			return &Reply{Text: matches[0].Snippet, Intent: "kb_answer"}, nil
		}
	}

	fallback := stringConfig(req.Config, cfgFallbackReply)
	if fallback == "" {
		fallback = r.Fallback
	}
	if fallback == "" {
		fallback = DefaultFallback
	}
	return &Reply{
		Text:   fallback,
		Intent: "fallback",
		Actions: []Action{
			{Type: "escalate", Params: map[string]string{"reason": "no_answer"}},
		},
	}, nil
}

var greetings = []string{"hi", "hello", "hey", "good morning", "good afternoon", "good evening"}

func isGreeting(text string) bool {
	t := strings.ToLower(strings.TrimRight(text, "!. "))
	for _, g := range greetings {
		if t == g {
			return true
		}
	}
	return false
}

// stringConfig extracts a string-valued profile config key, tolerating
// both JSON strings and raw values.
func stringConfig(cfg map[string]json.RawMessage, key string) string {
	raw, ok := cfg[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return strings.TrimSpace(string(raw))
	}
	return strings.TrimSpace(s)
}
