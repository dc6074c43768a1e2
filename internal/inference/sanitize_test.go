package inference

import "testing"

func TestStripSpecialTokens(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		in    string
		extra []string
		want  string
	}{
		{
			name: "removes utterance and chatml sentinels",
			in:   "A cat on a mat.<end_of_utterance><|im_end|>",
			want: "A cat on a mat.",
		},
		{
			name: "removes image tiles",
			in:   "<fake_token_around_image><row_1_col_2><image>text",
			want: "text",
		},
		{
			name:  "removes extra tokens from tokenizer config",
			in:    "<|custom|>done",
			extra: []string{"<|custom|>"},
			want:  "done",
		},
		{
			name: "keeps whitespace and instruction marker",
			in:   " [INST] hi [/INST] there ",
			want: " [INST] hi [/INST] there ",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := StripSpecialTokens(tc.in, tc.extra)
			if got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestExtractAnswer(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "keeps text after marker trimmed",
			in:   "[INST] <image>\nWhat is it? [/INST]  A red bicycle.\n",
			want: "A red bicycle.",
		},
		{
			name: "uses last marker",
			in:   "[INST] a [/INST] b [INST] c [/INST] final",
			want: "final",
		},
		{
			name: "marker absent returns text unchanged",
			in:   "  A dog running.  ",
			want: "  A dog running.  ",
		},
		{
			name: "marker at end yields empty",
			in:   "prompt [/INST]",
			want: "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := ExtractAnswer(tc.in); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}
