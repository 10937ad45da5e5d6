// Package domain – typed decoding of the bot-profile configuration document.
//
// Bot profiles carry a free-form JSON config written by the admin console.
// The gateway consumes a handful of known keys (buffering policy, handoff
// window override) and must tolerate everything else. ParseBotConfig decodes
// the document once into a typed struct with a residual map so unknown keys
// survive round trips and future consumers.
package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// BufferingPolicy controls the per-user debounce window applied before the
// conversational handler is invoked.
//
// Zero values mean "use the gateway defaults"; Enabled defaults to false so
// tenants opt in explicitly (buffering delays the first reply by the window).
type BufferingPolicy struct {
	// Enabled turns the debounce on for this profile.
	Enabled bool `json:"enabled"`
	// WindowSeconds is the debounce delay: a flush fires when no newer
	// message has arrived for this long.
	WindowSeconds int `json:"buffer_window_seconds"`
	// MaxWaitSeconds caps the total time the first queued message may wait,
	// no matter how quickly follow-ups keep arriving.
	MaxWaitSeconds int `json:"max_wait_seconds"`
	// BypassKeywords skip buffering entirely when found in the message text
	// (caseless substring match). Typically urgency words or payment terms.
	BypassKeywords []string `json:"bypass_keywords"`
	// BypassQuestionPatterns skip buffering for explicit questions. The
	// special pattern "?" matches a trailing question mark; other entries
	// are caseless substring matches.
	BypassQuestionPatterns []string `json:"bypass_question_patterns"`
}

// Window returns the debounce delay, falling back to def when unset.
func (p BufferingPolicy) Window(def time.Duration) time.Duration {
	if p.WindowSeconds > 0 {
		return time.Duration(p.WindowSeconds) * time.Second
	}
	return def
}

// MaxWait returns the total-wait cap, falling back to def when unset.
func (p BufferingPolicy) MaxWait(def time.Duration) time.Duration {
	if p.MaxWaitSeconds > 0 {
		return time.Duration(p.MaxWaitSeconds) * time.Second
	}
	return def
}

// BotConfig is the decoded bot-profile configuration. Known keys are typed;
// everything else lands in Extra untouched.
type BotConfig struct {
	Buffering      BufferingPolicy `json:"buffering"`
	HandoffMinutes int             `json:"handoff_minutes"`

	// Extra holds config keys the gateway does not consume itself. They are
	// passed through to the handler context verbatim.
	Extra map[string]json.RawMessage `json:"-"`
}

// HandoffWindow returns the profile's handoff override, or def when unset.
func (c BotConfig) HandoffWindow(def time.Duration) time.Duration {
	if c.HandoffMinutes > 0 {
		return time.Duration(c.HandoffMinutes) * time.Minute
	}
	return def
}

// knownConfigKeys are lifted into typed fields and excluded from Extra.
var knownConfigKeys = map[string]struct{}{
	"buffering":       {},
	"handoff_minutes": {},
}

// ParseBotConfig decodes a bot-profile config document. Blank input yields a
// zero config; malformed JSON is reported to the caller (a misconfigured
// profile should be visible in logs, not silently ignored).
func ParseBotConfig(raw string) (BotConfig, error) {
	var cfg BotConfig
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return cfg, nil
	}

	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return BotConfig{}, err
	}

	// Second pass for the residual keys.
	var all map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &all); err != nil {
		return BotConfig{}, err
	}
	for k := range knownConfigKeys {
		delete(all, k)
	}
	if len(all) > 0 {
		cfg.Extra = all
	}
	return cfg, nil
}
