package tplparser

import (
	"fmt"
	"strings"
)

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []map[string]any:
		out := make([]any, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out, true
	default:
		return nil, false
	}
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// writeBlocks writes string content as is, or walks a block list writing
// text blocks and calling image for every image block.
func writeBlocks(b *strings.Builder, family string, content any, image func(*strings.Builder)) error {
	if s, ok := asString(content); ok {
		b.WriteString(s)
		return nil
	}
	seq, ok := asSlice(content)
	if !ok {
		return fmt.Errorf("%s: invalid message content %T", family, content)
	}
	for _, item := range seq {
		m, ok := asMap(item)
		if !ok {
			return fmt.Errorf("%s: invalid content block %T", family, item)
		}
		if isImageBlock(m) {
			image(b)
			continue
		}
		if txt, ok := asString(m["text"]); ok {
			b.WriteString(txt)
		}
	}
	return nil
}

func isImageBlock(m map[string]any) bool {
	t, _ := asString(m["type"])
	return t == "image" || t == "image_url" || m["image"] != nil
}

func firstBlockIsImage(content any) bool {
	seq, ok := asSlice(content)
	if !ok || len(seq) == 0 {
		return false
	}
	m, ok := asMap(seq[0])
	return ok && isImageBlock(m)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
