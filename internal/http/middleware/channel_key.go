// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements inbound channel-credential handling for the gateway
// endpoint. Webhook relays authenticate with a per-channel shared secret,
// carried either in the X-Channel-Key header or as a bearer token. The
// middleware validates the credential's shape, stashes it in the request
// context, and leaves resolution against the channel table to the handler,
// so transport concerns stay out of the service layer.
//
// Design goals:
//   - Keep transport concerns (validation, context stashing) in middleware.
//   - Never log the raw credential; RedactKey produces a safe prefix.
//   - Remain framework-agnostic beyond Gin's context.
package middleware

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// HeaderChannelKey is the canonical request header that webhook relays use to
// convey the channel's inbound credential. An Authorization bearer token is
// accepted as an alternative for relays that cannot set custom headers.
const HeaderChannelKey = "X-Channel-Key"

// Context keys used internally to stash credential state.
// These keys are intentionally unexported and referenced via accessor helpers.
const (
	ctxKeyChannelKey = "channel.key"
	ctxKeyRateBypass = "rate.bypass" // bool: true to skip rate limiting
)

// GetChannelKey returns the validated inbound credential stored in the Gin
// context by ChannelKeyExtractor. The second return value indicates presence.
//
// Handlers should prefer this function over reading headers directly; the
// request body may still carry the credential for relays that post it inline.
func GetChannelKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyChannelKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// ChannelKeyOptions configures credential validation behavior for
// ChannelKeyExtractor.
type ChannelKeyOptions struct {
	// MaxLen caps the accepted credential length. Values <= 0 default to 128.
	MaxLen int
	// Pattern restricts allowed characters. If nil, a conservative token
	// pattern is used: ^[A-Za-z0-9._~\-:]+$
	Pattern *regexp.Regexp
}

// ChannelKeyExtractor validates the inbound channel credential (if present in
// headers) and stashes it in the request context.
//
// Behavior:
//   - If neither header form is present: the middleware is a no-op; the
//     handler falls back to the credential field in the request body.
//   - If the credential fails shape validation: responds 400 with a compact
//     error body before any lookup happens.
//   - Always invokes the next handler unless validation fails.
//
// Resolution against the channel table is deliberately left to the handler:
// the middleware cannot tell an unknown credential from an inactive channel,
// and both must map to the same response anyway.
func ChannelKeyExtractor(opts ChannelKeyOptions) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 128
	}
	pat := opts.Pattern
	if pat == nil {
		pat = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)
	}

	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(HeaderChannelKey))
		if key == "" {
			if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				key = strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			}
		}
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"code":    "bad_channel_key",
				"message": "invalid channel credential format",
			})
			return
		}

		c.Set(ctxKeyChannelKey, key)
		c.Next()
	}
}

// RateBypass marks matching request paths to skip rate limiting. Mounted
// before the rate limiter so internal routes (health, metrics) stay
// reachable under load.
func RateBypass(paths ...string) gin.HandlerFunc {
	exempt := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		exempt[p] = struct{}{}
	}
	return func(c *gin.Context) {
		if _, ok := exempt[c.Request.URL.Path]; ok {
			c.Set(ctxKeyRateBypass, true)
		}
		c.Next()
	}
}

// RedactKey returns a loggable prefix of an inbound credential: the first
// eight characters followed by a mask. Short keys are fully masked.
func RedactKey(key string) string {
	const visible = 8
	if len(key) <= visible {
		return "********"
	}
	return key[:visible] + "***"
}
