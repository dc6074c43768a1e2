package tplparser

import "strings"

const qwen2VLDefaultSystem = "You are a helpful assistant."

func renderQwen2VL(opts RenderOptions) (string, bool, error) {
	var b strings.Builder
	msgs := opts.Messages
	b.WriteString("<|im_start|>system\n")
	if len(msgs) > 0 && msgs[0].Role == "system" {
		if err := writeBlocks(&b, FamilyQwen2VL, msgs[0].Content, func(*strings.Builder) {}); err != nil {
			return "", false, err
		}
		msgs = msgs[1:]
	} else {
		b.WriteString(qwen2VLDefaultSystem)
	}
	b.WriteString("<|im_end|>\n")

	imageToken := opts.imageToken("<|vision_start|><|image_pad|><|vision_end|>")
	for _, msg := range msgs {
		b.WriteString("<|im_start|>")
		b.WriteString(msg.Role)
		b.WriteString("\n")
		err := writeBlocks(&b, FamilyQwen2VL, msg.Content, func(b *strings.Builder) {
			b.WriteString(imageToken)
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
