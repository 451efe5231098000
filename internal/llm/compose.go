// ABOUTME: Email composition collaborator drafting subject and body from instructions
// ABOUTME: Renders the markdown body to HTML for presentation

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/yuin/goldmark"

	"github.com/chime-sh/chime/internal/dispatch"
	"github.com/chime-sh/chime/internal/metrics"
)

const composeSystemPrompt = `You draft emails. Given instructions, respond with ONLY a JSON object {"subject": "...", "body": "..."} — no prose, no code fences. The body is plain markdown.`

// Compose drafts an email from free-text instructions. The returned body is
// the model's markdown; BodyHTML is its rendered form.
func (c *Client) Compose(ctx context.Context, instructions string) (*dispatch.ComposedEmail, error) {
	start := time.Now()
	raw, err := c.complete(ctx, composeSystemPrompt, instructions)
	if err != nil {
		metrics.ModelCallDuration.WithLabelValues("compose", "error").Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("%w: %v", dispatch.ErrCollaborator, err)
	}
	metrics.ModelCallDuration.WithLabelValues("compose", "ok").Observe(time.Since(start).Seconds())

	var draft struct {
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &draft); err != nil {
		c.logger.Warn("model returned unparseable draft", "output", truncate(raw, 200))
		return nil, fmt.Errorf("%w: unparseable draft: %v", dispatch.ErrCollaborator, err)
	}

	var htmlBuf bytes.Buffer
	if err := goldmark.Convert([]byte(draft.Body), &htmlBuf); err != nil {
		c.logger.Error("failed to render draft body", "error", err)
		// The draft itself is still usable without the rendered form.
	}

	return &dispatch.ComposedEmail{
		Subject:  draft.Subject,
		Body:     draft.Body,
		BodyHTML: htmlBuf.String(),
	}, nil
}
