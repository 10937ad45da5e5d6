// Package services – MessageBuffer
//
// This file implements per-user message debouncing: several messages sent
// in quick succession (a paragraph typed as separate lines, an image
// followed by its caption) are combined into one logical turn before the
// conversational handler runs, so users get one coherent reply instead of
// several fragmented ones.
//
// The buffer runs the long-lived-process model: one pending queue and one
// cancellable timer per (channel, external user) key. Every arrival appends
// to the queue, supersedes the previous waiting request (which completes
// with Buffered), and resets the timer. When the window elapses without a
// newer arrival, the last waiter receives Flush with the combined
// text; exactly one flush fires per debounce cycle. A max-wait cap bounds how long the
// first queued message can be delayed by a user who keeps typing.
package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"

	"github.com/autobot/go-bot-gateway/internal/domain"
)

// Combined-text policy: fragments join with a single space and the result
// is capped to keep handler prompts bounded. The separator choice is
// load-bearing for ordering tests; do not change it casually.
const (
	bufferSeparator       = " "
	defaultMaxCombinedLen = 4000 // runes
)

// BufferKey scopes debounce state. State is never shared across users or
// channels.
type BufferKey struct {
	ChannelID      string
	ExternalUserID string
}

// BufferAction is the buffer's decision for one arrival.
type BufferAction int

const (
	// BufferActionBuffered means the message was queued; a later arrival or
	// the timer will carry it forward. The caller replies with a neutral
	// success payload.
	BufferActionBuffered BufferAction = iota
	// BufferActionFlush means the caller owns the combined turn and must
	// dispatch it to the handler.
	BufferActionFlush
)

// BufferResult is the outcome of MessageBuffer.Handle.
type BufferResult struct {
	Action BufferAction
	// CombinedText is the arrival-ordered concatenation of the queued
	// messages (BufferActionFlush only).
	CombinedText string
}

// bufferEntry is the pending state for one key. Guarded by MessageBuffer.mu.
type bufferEntry struct {
	texts   []string
	firstAt time.Time
	timer   *time.Timer
	// waiter is the channel of the most recent arrival. Closing it releases
	// a superseded caller with Buffered; sending delivers the flush.
	waiter chan string
}

// MessageBuffer debounces rapid consecutive messages per (channel, user).
// The zero value is not usable; construct with NewMessageBuffer.
type MessageBuffer struct {
	// DefaultWindow is the debounce delay when the profile does not set one.
	DefaultWindow time.Duration
	// DefaultMaxWait caps total queue age when the profile does not set one.
	DefaultMaxWait time.Duration
	// MaxCombinedRunes bounds the combined text length.
	MaxCombinedRunes int

	mu      sync.Mutex
	pending map[BufferKey]*bufferEntry
}

// NewMessageBuffer constructs a MessageBuffer with sane defaults.
func NewMessageBuffer(window, maxWait time.Duration) *MessageBuffer {
	if window <= 0 {
		window = 3 * time.Second
	}
	if maxWait <= 0 {
		maxWait = 10 * time.Second
	}
	return &MessageBuffer{
		DefaultWindow:    window,
		DefaultMaxWait:   maxWait,
		MaxCombinedRunes: defaultMaxCombinedLen,
		pending:          make(map[BufferKey]*bufferEntry),
	}
}

// caseFolder performs Unicode case folding for caseless keyword matching.
var caseFolder = cases.Fold()

// ShouldBypass reports whether a message skips buffering entirely and must
// be answered immediately. Non-text messages (images, files) always bypass;
// configured keywords and question patterns bypass on a caseless substring
// match; the special pattern "?" matches a trailing question mark.
func ShouldBypass(messageType, text string, pol domain.BufferingPolicy) bool {
	if messageType != "" && messageType != "text" {
		return true
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	folded := caseFolder.String(text)

	for _, kw := range pol.BypassKeywords {
		kw = strings.TrimSpace(kw)
		if kw != "" && strings.Contains(folded, caseFolder.String(kw)) {
			return true
		}
	}
	for _, q := range pol.BypassQuestionPatterns {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		if q == "?" {
			if strings.HasSuffix(text, "?") {
				return true
			}
			continue
		}
		if strings.Contains(folded, caseFolder.String(q)) {
			return true
		}
	}
	return false
}

// Handle queues text under key and blocks until this arrival is either
// superseded by a newer message (Buffered) or the debounce window elapses
// with this arrival last (Flush with the combined text).
//
// Invariants:
//   - at most one pending timer per key
//   - messages combine in arrival order
//   - exactly one Flush fires per debounce cycle
//   - a message arriving after a flush starts a brand-new cycle
//
// On context cancellation the queued text stays in the window for the next
// arrival; the caller gets the context error.
func (b *MessageBuffer) Handle(ctx context.Context, key BufferKey, text string, pol domain.BufferingPolicy) (BufferResult, error) {
	window := pol.Window(b.DefaultWindow)
	maxWait := pol.MaxWait(b.DefaultMaxWait)
	now := time.Now()

	b.mu.Lock()
	e := b.pending[key]
	if e == nil {
		e = &bufferEntry{firstAt: now}
		b.pending[key] = e
	}
	e.texts = append(e.texts, text)
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	if e.waiter != nil {
		// Supersede the previous arrival; it completes with Buffered.
		close(e.waiter)
		e.waiter = nil
	}

	if now.Sub(e.firstAt) >= maxWait {
		// The first queued message has waited long enough; flush inline.
		combined := b.combine(e.texts)
		delete(b.pending, key)
		b.mu.Unlock()
		gatewayBuffer.WithLabelValues("flush").Inc()
		return BufferResult{Action: BufferActionFlush, CombinedText: combined}, nil
	}

	ch := make(chan string, 1)
	e.waiter = ch
	e.timer = time.AfterFunc(window, func() { b.flush(key) })
	b.mu.Unlock()

	select {
	case combined, ok := <-ch:
		if !ok {
			gatewayBuffer.WithLabelValues("buffered").Inc()
			return BufferResult{Action: BufferActionBuffered}, nil
		}
		gatewayBuffer.WithLabelValues("flush").Inc()
		return BufferResult{Action: BufferActionFlush, CombinedText: combined}, nil
	case <-ctx.Done():
		b.mu.Lock()
		if cur := b.pending[key]; cur != nil && cur.waiter == ch {
			cur.waiter = nil
		}
		b.mu.Unlock()
		return BufferResult{}, ctx.Err()
	}
}

// flush delivers the combined queue to the current waiter and clears the
// key. Runs on timer expiry; serialized with Handle via the mutex, so a
// flush racing a new arrival resolves to either "new cycle" or "extended
// window", never a lost message.
func (b *MessageBuffer) flush(key BufferKey) {
	b.mu.Lock()
	e := b.pending[key]
	if e == nil {
		b.mu.Unlock()
		return
	}
	combined := b.combine(e.texts)
	w := e.waiter
	delete(b.pending, key)
	b.mu.Unlock()

	if w != nil {
		w <- combined
	}
}

// combine joins queued texts in arrival order and enforces the length cap.
func (b *MessageBuffer) combine(texts []string) string {
	parts := make([]string, 0, len(texts))
	for _, t := range texts {
		if t = strings.TrimSpace(t); t != "" {
			parts = append(parts, t)
		}
	}
	out := strings.Join(parts, bufferSeparator)

	max := b.MaxCombinedRunes
	if max <= 0 {
		max = defaultMaxCombinedLen
	}
	if runes := []rune(out); len(runes) > max {
		out = string(runes[:max])
	}
	return out
}

// PendingKeys reports how many keys currently hold queued state. Intended
// for tests and health reporting.
func (b *MessageBuffer) PendingKeys() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
