package middleware

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func runExtractor(t *testing.T, opts ChannelKeyOptions, headers map[string]string) (*httptest.ResponseRecorder, string, bool) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ChannelKeyExtractor(opts))

	var key string
	var present bool
	r.GET("/probe", func(c *gin.Context) {
		key, present = GetChannelKey(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w, key, present
}

func TestChannelKeyExtractor_Header(t *testing.T) {
	w, key, ok := runExtractor(t, ChannelKeyOptions{}, map[string]string{
		HeaderChannelKey: "  chn-abc.123  ",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !ok || key != "chn-abc.123" {
		t.Fatalf("key = %q ok = %v", key, ok)
	}
}

func TestChannelKeyExtractor_BearerFallback(t *testing.T) {
	_, key, ok := runExtractor(t, ChannelKeyOptions{}, map[string]string{
		"Authorization": "Bearer chn-from-bearer",
	})
	if !ok || key != "chn-from-bearer" {
		t.Fatalf("key = %q ok = %v", key, ok)
	}

	// The canonical header wins when both are present.
	_, key, _ = runExtractor(t, ChannelKeyOptions{}, map[string]string{
		HeaderChannelKey: "chn-header",
		"Authorization":  "Bearer chn-bearer",
	})
	if key != "chn-header" {
		t.Fatalf("header must take precedence, got %q", key)
	}
}

func TestChannelKeyExtractor_AbsentIsNoop(t *testing.T) {
	w, key, ok := runExtractor(t, ChannelKeyOptions{}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ok || key != "" {
		t.Fatalf("no credential expected, got %q", key)
	}

	// Non-bearer Authorization schemes are ignored.
	_, _, ok = runExtractor(t, ChannelKeyOptions{}, map[string]string{
		"Authorization": "Basic dXNlcjpwYXNz",
	})
	if ok {
		t.Fatalf("basic auth must not be treated as a channel credential")
	}
}

func TestChannelKeyExtractor_RejectsBadShape(t *testing.T) {
	cases := map[string]map[string]string{
		"spaces":   {HeaderChannelKey: "bad key"},
		"unicode":  {HeaderChannelKey: "chn-ключ"},
		"too long": {HeaderChannelKey: strings.Repeat("a", 200)},
	}
	for name, headers := range cases {
		t.Run(name, func(t *testing.T) {
			w, _, ok := runExtractor(t, ChannelKeyOptions{}, headers)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", w.Code)
			}
			if ok {
				t.Fatalf("invalid credential must not be stashed")
			}
		})
	}
}

func TestChannelKeyExtractor_CustomPatternAndMaxLen(t *testing.T) {
	opts := ChannelKeyOptions{
		MaxLen:  6,
		Pattern: regexp.MustCompile(`^[a-z]+$`),
	}
	if w, _, _ := runExtractor(t, opts, map[string]string{HeaderChannelKey: "abcdef"}); w.Code != http.StatusOK {
		t.Fatalf("within limits: %d", w.Code)
	}
	if w, _, _ := runExtractor(t, opts, map[string]string{HeaderChannelKey: "abcdefg"}); w.Code != http.StatusBadRequest {
		t.Fatalf("over max len must be rejected: %d", w.Code)
	}
	if w, _, _ := runExtractor(t, opts, map[string]string{HeaderChannelKey: "ABC"}); w.Code != http.StatusBadRequest {
		t.Fatalf("pattern mismatch must be rejected: %d", w.Code)
	}
}

func TestRateBypass_MarksOnlyListedPaths(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateBypass("/health", "/metrics"))

	var bypassed bool
	probe := func(c *gin.Context) {
		bypassed = IsRateBypass(c)
		c.Status(http.StatusOK)
	}
	r.GET("/health", probe)
	r.GET("/other", probe)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if !bypassed {
		t.Fatalf("/health must be exempt")
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/other", nil))
	if bypassed {
		t.Fatalf("/other must not be exempt")
	}
}

func TestRedactKey(t *testing.T) {
	if got := RedactKey("chn-1234567890"); got != "chn-1234***" {
		t.Fatalf("RedactKey long = %q", got)
	}
	for _, short := range []string{"", "a", "12345678"} {
		if got := RedactKey(short); got != "********" {
			t.Fatalf("RedactKey(%q) = %q", short, got)
		}
	}
}
