package bot

import (
	"context"
	"strings"
)

// Echo repeats the inbound text back. It exists for channel onboarding and
// end-to-end smoke tests, where a deterministic reply is worth more than a
// clever one. Registered under "echo".
type Echo struct {
	// Prefix, when set, is prepended to every reply.
	Prefix string
}

// Handle implements Handler.
func (e *Echo) Handle(ctx context.Context, req *Request) (*Reply, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		text = "(empty message)"
	}
	return &Reply{Text: e.Prefix + text, Intent: "echo"}, nil
}
