package tplparser

import (
	"strings"
	"testing"
)

func imageTurn(text string) []Message {
	return []Message{{
		Role: "user",
		Content: []any{
			map[string]any{"type": "image"},
			map[string]any{"type": "text", "text": text},
		},
	}}
}

func TestRenderIdefics3ImageTurn(t *testing.T) {
	t.Parallel()

	out, ok, err := Render(RenderOptions{
		Arch:                "idefics3",
		AddGenerationPrompt: true,
		Messages:            imageTurn("Describe this image."),
	})
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	if !ok {
		t.Fatalf("expected renderer match")
	}
	want := "<|im_start|>User:<image>Describe this image.<end_of_utterance>\nAssistant:"
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestRenderIdefics3TextOnlyUsesSpacedSeparator(t *testing.T) {
	t.Parallel()

	out, _, err := Render(RenderOptions{
		Arch:     "smolvlm",
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	if out != "<|im_start|>User: hi<end_of_utterance>\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestRenderImageTokenOverride(t *testing.T) {
	t.Parallel()

	out, _, err := Render(RenderOptions{
		Arch:                "qwen2_vl",
		ImageToken:          "<__media__>",
		AddGenerationPrompt: true,
		Messages:            imageTurn("what is this?"),
	})
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	if !strings.Contains(out, "<|im_start|>user\n<__media__>what is this?<|im_end|>\n") {
		t.Fatalf("unexpected output: %q", out)
	}
	if strings.Contains(out, "<|image_pad|>") {
		t.Fatalf("family placeholder should be replaced: %q", out)
	}
	if !strings.HasPrefix(out, "<|im_start|>system\n"+qwen2VLDefaultSystem) {
		t.Fatalf("expected default system prompt: %q", out)
	}
	if !strings.HasSuffix(out, "<|im_start|>assistant\n") {
		t.Fatalf("expected generation prompt suffix: %q", out)
	}
}

func TestRenderLlava(t *testing.T) {
	t.Parallel()

	out, ok, err := Render(RenderOptions{
		Arch:     "llava_next",
		BOSToken: "<s>",
		Messages: imageTurn("What is shown?"),
	})
	if err != nil || !ok {
		t.Fatalf("render: ok=%v err=%v", ok, err)
	}
	if out != "<s>[INST] <image>\nWhat is shown? [/INST]" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestRenderTemplateSignatureFallback(t *testing.T) {
	t.Parallel()

	out, ok, err := Render(RenderOptions{
		Arch:                "unknown",
		Template:            "<|im_start|>{{ messages }}<|im_end|>",
		AddGenerationPrompt: true,
		Messages:            imageTurn("hello"),
	})
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	if !ok {
		t.Fatalf("expected template signature match")
	}
	if out != "<|im_start|>user\n<image>\nhello<|im_end|>\n<|im_start|>assistant\n" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestRenderUnsupported(t *testing.T) {
	t.Parallel()

	out, ok, err := Render(RenderOptions{
		Arch:     "unknown",
		Template: "unsupported-template",
		Messages: []Message{{Role: "user", Content: "x"}},
	})
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	if ok {
		t.Fatalf("expected ok=false for unsupported template, got true with output %q", out)
	}
}

func TestRenderRejectsInvalidContent(t *testing.T) {
	t.Parallel()

	_, _, err := Render(RenderOptions{
		Arch:     "chatml",
		Messages: []Message{{Role: "user", Content: 42}},
	})
	if err == nil {
		t.Fatalf("expected error for non-string, non-block content")
	}
}

func TestFamilyForTemplate(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"{{ '<end_of_utterance>' }}":    FamilyIdefics3,
		"[INST] {{ content }} [/INST]":  FamilyLlava,
		"<|vision_start|><|image_pad|>": FamilyQwen2VL,
		"<|im_start|>{{ x }}<|im_end|>": FamilyChatML,
		"{{ bos_token }}{{ content }}":  "",
		"":                              "",
	}
	for tpl, want := range cases {
		if got := FamilyForTemplate(tpl); got != want {
			t.Fatalf("FamilyForTemplate(%q) = %q, want %q", tpl, got, want)
		}
	}
}
