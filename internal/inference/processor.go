package inference

import (
	"fmt"
	"image"
	"os"
	"strings"

	"github.com/samcharles93/glance/internal/imagecodec"
	"github.com/samcharles93/glance/internal/tplparser"
)

type ProcessorConfig struct {
	// TemplateOverride is an inline Jinja template or a path to one.
	TemplateOverride string
	Device           string
	ImageToken       string
	MaxImageEdge     int
}

// Processor is the preprocessing component paired with a Model: it renders
// the chat template, encodes images for the runtime, and cleans decoded text.
type Processor struct {
	info           ModelInfo
	template       string
	templateSource string
	device         string
	imageToken     string
	maxImageEdge   int
}

func NewProcessor(info ModelInfo, cfg ProcessorConfig) (*Processor, error) {
	tpl, source := ResolveChatTemplate(cfg.TemplateOverride, info)
	if tplparser.FamilyForArch(info.Arch) == "" && tplparser.FamilyForTemplate(tpl) == "" {
		return nil, fmt.Errorf("%w %q (arch %q, template source %s)", ErrNoChatTemplate, info.ID, info.Arch, source)
	}
	return &Processor{
		info:           info,
		template:       tpl,
		templateSource: source,
		device:         cfg.Device,
		imageToken:     cfg.ImageToken,
		maxImageEdge:   cfg.MaxImageEdge,
	}, nil
}

func (p *Processor) TemplateSource() string {
	return p.templateSource
}

// TemplateFamily names the built-in renderer used for prompts. Jinja text
// from a snapshot or override only selects the family; it is not executed.
func (p *Processor) TemplateFamily() string {
	if family := tplparser.FamilyForArch(p.info.Arch); family != "" {
		return family
	}
	return tplparser.FamilyForTemplate(p.template)
}

// ApplyChatTemplate renders msgs into the prompt string the model expects,
// ending with the assistant generation prompt.
func (p *Processor) ApplyChatTemplate(msgs []tplparser.Message) (string, error) {
	out, ok, err := tplparser.Render(tplparser.RenderOptions{
		Template:            p.template,
		Arch:                p.info.Arch,
		BOSToken:            p.info.BOSToken,
		AddGenerationPrompt: true,
		ImageToken:          p.imageToken,
		Messages:            msgs,
	})
	if err != nil {
		return "", fmt.Errorf("apply chat template: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("%w %q", ErrNoChatTemplate, p.info.ID)
	}
	return out, nil
}

// Preprocess encodes img for the runtime and binds prompt and image to the
// processor's device.
func (p *Processor) Preprocess(img *image.NRGBA, prompt string) (*Inputs, error) {
	data, err := imagecodec.EncodePNG(imagecodec.Fit(img, p.maxImageEdge))
	if err != nil {
		return nil, err
	}
	return &Inputs{
		Prompt: prompt,
		Images: [][]byte{data},
		Device: p.device,
	}, nil
}

// Decode turns raw runtime output into text without special tokens.
func (p *Processor) Decode(out *Output) string {
	if out == nil {
		return ""
	}
	return StripSpecialTokens(out.Text, p.info.SpecialTokens)
}

// ResolveChatTemplate picks the template text and reports where it came from.
// An override shorter than a template that names an existing file is read
// from disk.
func ResolveChatTemplate(override string, info ModelInfo) (string, string) {
	template := strings.TrimSpace(override)
	source := ""
	switch {
	case template != "":
		source = "flag"
	case strings.TrimSpace(info.ChatTemplate) != "":
		template = info.ChatTemplate
		source = "snapshot"
	default:
		return "", "model-default"
	}

	if len(template) < 256 && fileExists(template) {
		if raw, err := os.ReadFile(template); err == nil && len(raw) > 0 {
			template = string(raw)
			source += ":file"
		}
	}
	return template, source
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
