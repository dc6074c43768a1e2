package gguf

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

type ggufWriter struct {
	buf bytes.Buffer
}

func (w *ggufWriter) u32(v uint32) { _ = binary.Write(&w.buf, binary.LittleEndian, v) }
func (w *ggufWriter) u64(v uint64) { _ = binary.Write(&w.buf, binary.LittleEndian, v) }

func (w *ggufWriter) str(s string) {
	w.u64(uint64(len(s)))
	w.buf.WriteString(s)
}

func (w *ggufWriter) kvString(key, val string) {
	w.str(key)
	w.u32(uint32(TypeString))
	w.str(val)
}

func (w *ggufWriter) kvUint32(key string, val uint32) {
	w.str(key)
	w.u32(uint32(TypeUint32))
	w.u32(val)
}

func (w *ggufWriter) kvStrings(key string, vals []string) {
	w.str(key)
	w.u32(uint32(TypeArray))
	w.u32(uint32(TypeString))
	w.u64(uint64(len(vals)))
	for _, v := range vals {
		w.str(v)
	}
}

func (w *ggufWriter) kvInt32s(key string, vals []int32) {
	w.str(key)
	w.u32(uint32(TypeArray))
	w.u32(uint32(TypeInt32))
	w.u64(uint64(len(vals)))
	for _, v := range vals {
		w.u32(uint32(v))
	}
}

func sampleFile(t *testing.T) string {
	t.Helper()

	var w ggufWriter
	w.buf.WriteString(magicGGUF)
	w.u32(3)
	w.u64(2)
	w.u64(6)
	w.kvString("general.architecture", "idefics3")
	w.kvString("general.name", "SmolVLM Instruct")
	w.kvString("tokenizer.chat_template", "{{ bos_token }}User:")
	w.kvStrings("tokenizer.ggml.tokens", []string{"<|im_start|>", "hello", "<end_of_utterance>", "<image>"})
	w.kvInt32s("tokenizer.ggml.token_type", []int32{TokenTypeControl, TokenTypeNormal, TokenTypeControl, TokenTypeNormal})
	w.kvUint32("tokenizer.ggml.bos_token_id", 0)

	path := filepath.Join(t.TempDir(), "model.gguf")
	if err := os.WriteFile(path, w.buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write gguf: %v", err)
	}
	return path
}

func TestReadMetadata(t *testing.T) {
	t.Parallel()

	md, err := ReadMetadata(sampleFile(t))
	if err != nil {
		t.Fatalf("ReadMetadata: %v", err)
	}
	if md.Header.Version != 3 || md.Header.TensorCount != 2 || md.Header.KVCount != 6 {
		t.Fatalf("unexpected header: %+v", md.Header)
	}
	if got := md.Architecture(); got != "idefics3" {
		t.Fatalf("architecture: got %q, want %q", got, "idefics3")
	}
	if got := md.Name(); got != "SmolVLM Instruct" {
		t.Fatalf("name: got %q", got)
	}
	if got := md.ChatTemplate(); got != "{{ bos_token }}User:" {
		t.Fatalf("chat template: got %q", got)
	}
	if got := md.BOSToken(); got != "<|im_start|>" {
		t.Fatalf("bos: got %q, want %q", got, "<|im_start|>")
	}
	got := md.ControlTokens()
	want := []string{"<|im_start|>", "<end_of_utterance>"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("control tokens: got %v, want %v", got, want)
	}
}

func TestReadMetadataRejectsBadInput(t *testing.T) {
	t.Parallel()

	var bigArray ggufWriter
	bigArray.buf.WriteString(magicGGUF)
	bigArray.u32(3)
	bigArray.u64(0)
	bigArray.u64(1)
	bigArray.str("tokenizer.ggml.tokens")
	bigArray.u32(uint32(TypeArray))
	bigArray.u32(uint32(TypeString))
	bigArray.u64(1 << 40)

	var oldVersion ggufWriter
	oldVersion.buf.WriteString(magicGGUF)
	oldVersion.u32(1)

	tests := []struct {
		name string
		data []byte
	}{
		{name: "magic", data: []byte("GGML\x03\x00\x00\x00")},
		{name: "truncated", data: []byte("GG")},
		{name: "version", data: oldVersion.buf.Bytes()},
		{name: "array length", data: bigArray.buf.Bytes()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "bad.gguf")
			if err := os.WriteFile(path, tt.data, 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			if _, err := ReadMetadata(path); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestControlTokensLengthMismatch(t *testing.T) {
	t.Parallel()

	md := &Metadata{KV: map[string]Value{
		"tokenizer.ggml.tokens":     {Type: TypeArray, Value: ArrayValue{ElemType: TypeString, Values: []any{"a", "b"}}},
		"tokenizer.ggml.token_type": {Type: TypeArray, Value: ArrayValue{ElemType: TypeInt32, Values: []any{int32(3)}}},
	}}
	if got := md.ControlTokens(); got != nil {
		t.Fatalf("got %v, want nil", got)
	}
}
