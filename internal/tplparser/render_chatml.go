package tplparser

import "strings"

func renderChatML(opts RenderOptions) (string, bool, error) {
	var b strings.Builder
	imageToken := opts.imageToken("<image>")
	for _, msg := range opts.Messages {
		b.WriteString("<|im_start|>")
		b.WriteString(msg.Role)
		b.WriteString("\n")
		err := writeBlocks(&b, FamilyChatML, msg.Content, func(b *strings.Builder) {
			b.WriteString(imageToken)
			b.WriteString("\n")
		})
		if err != nil {
			return "", false, err
		}
		b.WriteString("<|im_end|>\n")
	}
	if opts.AddGenerationPrompt {
		b.WriteString("<|im_start|>assistant\n")
	}
	return b.String(), true, nil
}
