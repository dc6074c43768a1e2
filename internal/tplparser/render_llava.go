package tplparser

import (
	"fmt"
	"strings"
)

// renderLlava follows the Mistral flavoured LLaVA template. Generation always
// continues after "[/INST]", so AddGenerationPrompt has no effect.
func renderLlava(opts RenderOptions) (string, bool, error) {
	var b strings.Builder
	b.WriteString(opts.BOSToken)
	imageToken := opts.imageToken("<image>")
	for _, msg := range opts.Messages {
		switch msg.Role {
		case "user":
			b.WriteString("[INST] ")
			err := writeBlocks(&b, FamilyLlava, msg.Content, func(b *strings.Builder) {
				b.WriteString(imageToken)
				b.WriteString("\n")
			})
			if err != nil {
				return "", false, err
			}
			b.WriteString(" [/INST]")
		case "assistant":
			b.WriteString(" ")
			if err := writeBlocks(&b, FamilyLlava, msg.Content, func(*strings.Builder) {}); err != nil {
				return "", false, err
			}
			b.WriteString("</s>")
		default:
			return "", false, fmt.Errorf("llava: unsupported role %q", msg.Role)
		}
	}
	return b.String(), true, nil
}
