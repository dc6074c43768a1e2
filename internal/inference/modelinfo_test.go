package inference

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/samcharles93/glance/internal/gguf"
)

func TestResolveModelInfoKnown(t *testing.T) {
	t.Parallel()

	info, err := ResolveModelInfo("", "")
	if err != nil {
		t.Fatalf("ResolveModelInfo() error = %v", err)
	}
	if info.ID != DefaultModelID {
		t.Fatalf("got id %q, want %q", info.ID, DefaultModelID)
	}
	if info.Arch != "idefics3" {
		t.Fatalf("got arch %q, want idefics3", info.Arch)
	}
	if info.GGUFRepo != "ggml-org/SmolVLM-256M-Instruct-GGUF" {
		t.Fatalf("unexpected gguf repo %q", info.GGUFRepo)
	}
}

func TestResolveModelInfoSnapshotOverlay(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "config.json"), `{"model_type": "llava_next"}`)
	mustWrite(t, filepath.Join(dir, "tokenizer_config.json"), `{
		"bos_token": {"content": "<s>", "special": true},
		"chat_template": "from tokenizer",
		"added_tokens_decoder": {
			"0": {"content": "<unk>", "special": true},
			"32000": {"content": "<image>", "special": true},
			"32001": {"content": "plain", "special": false}
		}
	}`)
	mustWrite(t, filepath.Join(dir, "chat_template.json"), `{"chat_template": "[INST] from chat_template.json [/INST]"}`)

	info, err := ResolveModelInfo("local/llava", dir)
	if err != nil {
		t.Fatalf("ResolveModelInfo() error = %v", err)
	}
	if info.Arch != "llava_next" {
		t.Fatalf("got arch %q", info.Arch)
	}
	if info.BOSToken != "<s>" {
		t.Fatalf("got bos %q", info.BOSToken)
	}
	if info.ChatTemplate != "[INST] from chat_template.json [/INST]" {
		t.Fatalf("chat_template.json should win, got %q", info.ChatTemplate)
	}
	slices.Sort(info.SpecialTokens)
	if !slices.Equal(info.SpecialTokens, []string{"<image>", "<unk>"}) {
		t.Fatalf("unexpected special tokens %v", info.SpecialTokens)
	}
}

func TestResolveModelInfoBadSnapshot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "config.json"), `{not json`)
	if _, err := ResolveModelInfo("local/broken", dir); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := ResolveModelInfo("local/missing", filepath.Join(dir, "nope")); err == nil {
		t.Fatalf("expected missing dir error")
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func writeGGUF(t *testing.T, path string, kv map[string]string, tokens []string, types []int32) {
	t.Helper()

	var buf bytes.Buffer
	u32 := func(v uint32) { _ = binary.Write(&buf, binary.LittleEndian, v) }
	u64 := func(v uint64) { _ = binary.Write(&buf, binary.LittleEndian, v) }
	str := func(s string) {
		u64(uint64(len(s)))
		buf.WriteString(s)
	}

	buf.WriteString("GGUF")
	u32(3)
	u64(0)
	u64(uint64(len(kv) + 2))
	for k, v := range kv {
		str(k)
		u32(uint32(gguf.TypeString))
		str(v)
	}
	str("tokenizer.ggml.tokens")
	u32(uint32(gguf.TypeArray))
	u32(uint32(gguf.TypeString))
	u64(uint64(len(tokens)))
	for _, tok := range tokens {
		str(tok)
	}
	str("tokenizer.ggml.token_type")
	u32(uint32(gguf.TypeArray))
	u32(uint32(gguf.TypeInt32))
	u64(uint64(len(types)))
	for _, tt := range types {
		u32(uint32(tt))
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write gguf: %v", err)
	}
}

func TestOverlayGGUF(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "model.gguf")
	writeGGUF(t, path,
		map[string]string{
			"general.architecture":    "llama",
			"tokenizer.chat_template": "<|im_start|>{{ messages }}",
		},
		[]string{"<|im_start|>", "hi", "<end_of_utterance>"},
		[]int32{gguf.TokenTypeControl, gguf.TokenTypeNormal, gguf.TokenTypeControl},
	)

	info := ModelInfo{ID: "local", Arch: "idefics3", SpecialTokens: []string{"<end_of_utterance>"}}
	if err := overlayGGUF(&info, path); err != nil {
		t.Fatalf("overlayGGUF() error = %v", err)
	}
	if info.Arch != "idefics3" {
		t.Fatalf("arch should be kept, got %q", info.Arch)
	}
	if info.ChatTemplate != "<|im_start|>{{ messages }}" {
		t.Fatalf("got template %q", info.ChatTemplate)
	}
	if !slices.Equal(info.SpecialTokens, []string{"<end_of_utterance>", "<|im_start|>"}) {
		t.Fatalf("unexpected special tokens %v", info.SpecialTokens)
	}

	empty := ModelInfo{ID: "local"}
	if err := overlayGGUF(&empty, path); err != nil {
		t.Fatalf("overlayGGUF() error = %v", err)
	}
	if empty.Arch != "llama" {
		t.Fatalf("got arch %q, want llama", empty.Arch)
	}
}

func TestOverlayGGUFMissingFile(t *testing.T) {
	t.Parallel()

	info := ModelInfo{ID: "local"}
	if err := overlayGGUF(&info, filepath.Join(t.TempDir(), "missing.gguf")); err == nil {
		t.Fatalf("expected error")
	}
}
