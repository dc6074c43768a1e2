package tplparser

import "strings"

const (
	FamilyIdefics3 = "idefics3"
	FamilyChatML   = "chatml"
	FamilyLlava    = "llava"
	FamilyQwen2VL  = "qwen2_vl"
)

// Render returns (output, ok). ok=false means the template is unsupported.
func Render(opts RenderOptions) (string, bool, error) {
	if family := FamilyForArch(opts.Arch); family != "" {
		return renderFamily(family, opts)
	}
	if family := FamilyForTemplate(opts.Template); family != "" {
		return renderFamily(family, opts)
	}
	return "", false, nil
}

// FamilyForArch maps a model_type from config.json to a template family.
func FamilyForArch(arch string) string {
	switch strings.ToLower(strings.TrimSpace(arch)) {
	case "idefics3", "smolvlm", "smolvlm2":
		return FamilyIdefics3
	case "llava", "llava_next", "llava_mistral":
		return FamilyLlava
	case "qwen2_vl", "qwen2_5_vl":
		return FamilyQwen2VL
	case "chatml":
		return FamilyChatML
	default:
		return ""
	}
}

// FamilyForTemplate recognises a Jinja chat template by its marker tokens.
func FamilyForTemplate(tpl string) string {
	switch {
	case tpl == "":
		return ""
	case strings.Contains(tpl, "<end_of_utterance>"):
		return FamilyIdefics3
	case strings.Contains(tpl, "[INST]"):
		return FamilyLlava
	case strings.Contains(tpl, "<|vision_start|>"):
		return FamilyQwen2VL
	case strings.Contains(tpl, "<|im_start|>") && strings.Contains(tpl, "<|im_end|>"):
		return FamilyChatML
	default:
		return ""
	}
}

func renderFamily(family string, opts RenderOptions) (string, bool, error) {
	switch family {
	case FamilyIdefics3:
		return renderIdefics3(opts)
	case FamilyLlava:
		return renderLlava(opts)
	case FamilyQwen2VL:
		return renderQwen2VL(opts)
	case FamilyChatML:
		return renderChatML(opts)
	default:
		return "", false, nil
	}
}
