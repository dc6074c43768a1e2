package tplparser

import "strings"

// renderIdefics3 follows the SmolVLM / Idefics3 template:
//
//	<|im_start|>User:<image>Describe this image.<end_of_utterance>
//	Assistant:
//
// The role separator is ":" when the turn opens with an image and ": " otherwise.
func renderIdefics3(opts RenderOptions) (string, bool, error) {
	var b strings.Builder
	b.WriteString("<|im_start|>")
	imageToken := opts.imageToken("<image>")
	for _, msg := range opts.Messages {
		b.WriteString(capitalize(msg.Role))
		if firstBlockIsImage(msg.Content) {
			b.WriteString(":")
		} else {
			b.WriteString(": ")
		}
		err := writeBlocks(&b, FamilyIdefics3, msg.Content, func(b *strings.Builder) {
			b.WriteString(imageToken)
		})
		if err != nil {
			return "", false, err
		}
		b.WriteString("<end_of_utterance>\n")
	}
	if opts.AddGenerationPrompt {
		b.WriteString("Assistant:")
	}
	return b.String(), true, nil
}
