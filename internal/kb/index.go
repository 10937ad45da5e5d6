// Package kb provides the in-memory knowledge base behind the default
// conversational handler. It is a small, deterministic, concurrency-safe
// snippet index built from Markdown paragraphs:
//
//   - No logging in the library (callers decide how/what to log)
//   - Unicode-aware tokenization with optional stop-word removal
//   - Immutable, read-only index after construction (safe for concurrent use)
//   - Deterministic scoring and sorting (stable order for ties)
//
// Scoring uses Jaccard similarity between the query token set and each
// snippet's token set: score = |Q ∩ S| / |Q ∪ S|.
package kb

import (
	"bytes"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// Match is a ranked snippet with its similarity score.
type Match struct {
	Snippet string
	Score   float64
}

// Index answers free-text queries against a fixed snippet corpus.
type Index interface {
	// TopK returns up to k best matches ordered by descending score.
	TopK(query string, k int) []Match
	// Len reports the number of indexed snippets.
	Len() int
}

type Option func(*options)

type options struct {
	minSnippetRunes int
	stopwords       map[string]struct{}
}

func defaults() options {
	return options{minSnippetRunes: 40}
}

// WithMinSnippetRunes drops snippets shorter than n runes at build time.
func WithMinSnippetRunes(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.minSnippetRunes = n
		}
	}
}

// WithStopwords removes the given words from both snippets and queries
// before scoring. Matching is lowercase.
func WithStopwords(words []string) Option {
	return func(o *options) {
		m := make(map[string]struct{}, len(words))
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				m[w] = struct{}{}
			}
		}
		if len(m) > 0 {
			o.stopwords = m
		}
	}
}

type snippet struct {
	text   string
	tokens map[string]struct{}
	n      int
}

type index struct {
	opts     options
	snippets []snippet
}

// Load builds an Index from the Markdown file at path. Paragraphs are
// split on blank lines.
func Load(path string, opts ...Option) (Index, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromReader(bytes.NewReader(b), opts...)
}

// FromReader builds an Index from UTF-8 text provided by r. The reader is
// fully consumed.
func FromReader(r io.Reader, opts ...Option) (Index, error) {
	o := defaults()
	for _, fn := range opts {
		fn(&o)
	}
	all, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return build(splitParagraphs(string(all)), o), nil
}

// FromStrings builds an Index directly from a slice of snippets.
func FromStrings(paragraphs []string, opts ...Option) Index {
	o := defaults()
	for _, fn := range opts {
		fn(&o)
	}
	return build(paragraphs, o)
}

func build(paragraphs []string, o options) *index {
	out := make([]snippet, 0, len(paragraphs))
	for _, raw := range paragraphs {
		t := strings.TrimSpace(collapseSpaces(raw))
		if t == "" {
			continue
		}
		if o.minSnippetRunes > 0 && utf8.RuneCountInString(t) < o.minSnippetRunes {
			continue
		}
		toks := tokenize(t, o.stopwords)
		if len(toks) == 0 {
			continue
		}
		out = append(out, snippet{text: t, tokens: toks, n: len(toks)})
	}
	return &index{opts: o, snippets: out}
}

func (i *index) Len() int { return len(i.snippets) }

func (i *index) TopK(query string, k int) []Match {
	if len(i.snippets) == 0 || strings.TrimSpace(query) == "" {
		return nil
	}
	if k <= 0 {
		k = 3
	}
	q := tokenize(query, i.opts.stopwords)
	if len(q) == 0 {
		return nil
	}

	type scored struct {
		text  string
		score float64
		runes int
	}
	buf := make([]scored, 0, len(i.snippets))
	for _, s := range i.snippets {
		over := overlap(q, s.tokens)
		if over == 0 {
			continue
		}
		union := float64(len(q) + s.n - over)
		if union <= 0 {
			continue
		}
		buf = append(buf, scored{
			text:  s.text,
			score: float64(over) / union,
			runes: utf8.RuneCountInString(s.text),
		})
	}
	if len(buf) == 0 {
		return nil
	}

	// Ties break toward the shorter snippet, then lexicographically, so
	// results are stable across runs.
	sort.SliceStable(buf, func(a, b int) bool {
		if buf[a].score != buf[b].score {
			return buf[a].score > buf[b].score
		}
		if buf[a].runes != buf[b].runes {
			return buf[a].runes < buf[b].runes
		}
		return buf[a].text < buf[b].text
	})

	if k > len(buf) {
		k = len(buf)
	}
	out := make([]Match, k)
	for j := 0; j < k; j++ {
		out[j] = Match{Snippet: buf[j].text, Score: buf[j].score}
	}
	return out
}

var wordRE = regexp.MustCompile(`\p{L}+\p{N}*`)

func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	words := wordRE.FindAllString(strings.ToLower(s), -1)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if stop != nil {
			if _, skip := stop[w]; skip {
				continue
			}
		}
		out[w] = struct{}{}
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}

func collapseSpaces(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\r' {
			if !prevSpace {
				b.WriteByte(' ')
				prevSpace = true
			}
			continue
		}
		prevSpace = false
		b.WriteRune(r)
	}
	return b.String()
}

var paragraphRE = regexp.MustCompile(`\n\s*\n`)

func splitParagraphs(raw string) []string {
	chunks := paragraphRE.Split(raw, -1)
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if t := strings.TrimSpace(c); t != "" {
			out = append(out, t)
		}
	}
	return out
}
