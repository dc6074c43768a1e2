package inference

import (
	"regexp"
	"strings"
)

// InstructionEndMarker closes the user turn in [INST] style templates.
const InstructionEndMarker = "[/INST]"

var defaultSpecialTokens = []string{
	"<|im_start|>",
	"<|im_end|>",
	"<|endoftext|>",
	"<|end_of_text|>",
	"<end_of_utterance>",
	"<fake_token_around_image>",
	"<global-img>",
	"<image>",
	"<|vision_start|>",
	"<|vision_end|>",
	"<|image_pad|>",
	"<s>",
	"</s>",
	"<unk>",
	"<pad>",
}

// Idefics3 splits large images into tiles tagged <row_R_col_C>.
var tileTokenPattern = regexp.MustCompile(`<row_\d+_col_\d+>`)

// StripSpecialTokens removes control tokens from decoded text. Surrounding
// whitespace is left alone.
func StripSpecialTokens(text string, extra []string) string {
	s := tileTokenPattern.ReplaceAllString(text, "")
	for _, token := range extra {
		if token != "" {
			s = strings.ReplaceAll(s, token, "")
		}
	}
	for _, token := range defaultSpecialTokens {
		s = strings.ReplaceAll(s, token, "")
	}
	return s
}

// ExtractAnswer returns the text after the last InstructionEndMarker,
// trimmed, for runtimes that echo the prompt. Text without the marker is
// returned unchanged.
func ExtractAnswer(text string) string {
	i := strings.LastIndex(text, InstructionEndMarker)
	if i < 0 {
		return text
	}
	return strings.TrimSpace(text[i+len(InstructionEndMarker):])
}
