package tplparser

// Message is one conversation turn. Content is either a plain string or a
// list of blocks shaped like {"type": "image"} and {"type": "text", "text": ...}.
type Message struct {
	Role    string
	Content any
}

type RenderOptions struct {
	Template string
	Arch     string
	// BOSToken is written only by families whose template starts with it.
	BOSToken            string
	AddGenerationPrompt bool
	// ImageToken replaces the family's own image placeholder when set, for
	// runtimes that splice image embeddings at their own marker.
	ImageToken string
	Messages   []Message
}

func (o RenderOptions) imageToken(familyDefault string) string {
	if o.ImageToken != "" {
		return o.ImageToken
	}
	return familyDefault
}
