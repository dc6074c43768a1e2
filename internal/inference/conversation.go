package inference

import (
	"strings"

	"github.com/samcharles93/glance/internal/tplparser"
)

// DefaultPrompt is used when a request carries no prompt text.
const DefaultPrompt = "Describe this image."

// BuildConversation returns a single user turn holding one image block
// followed by the prompt text. A blank prompt is replaced by fallback, or by
// DefaultPrompt when fallback is blank too.
func BuildConversation(prompt, fallback string) []tplparser.Message {
	if strings.TrimSpace(prompt) == "" {
		prompt = fallback
	}
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultPrompt
	}
	return []tplparser.Message{{
		Role: "user",
		Content: []any{
			map[string]any{"type": "image"},
			map[string]any{"type": "text", "text": prompt},
		},
	}}
}
