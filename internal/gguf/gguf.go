package gguf

import (
	"fmt"
	"io"
	"os"
)

const (
	magicGGUF = "GGUF"
)

type ValueType uint32

const (
	TypeUint8   ValueType = 0
	TypeInt8    ValueType = 1
	TypeUint16  ValueType = 2
	TypeInt16   ValueType = 3
	TypeUint32  ValueType = 4
	TypeInt32   ValueType = 5
	TypeFloat32 ValueType = 6
	TypeBool    ValueType = 7
	TypeString  ValueType = 8
	TypeArray   ValueType = 9
	TypeUint64  ValueType = 10
	TypeInt64   ValueType = 11
	TypeFloat64 ValueType = 12
)

func (t ValueType) String() string {
	switch t {
	case TypeUint8:
		return "u8"
	case TypeInt8:
		return "i8"
	case TypeUint16:
		return "u16"
	case TypeInt16:
		return "i16"
	case TypeUint32:
		return "u32"
	case TypeInt32:
		return "i32"
	case TypeUint64:
		return "u64"
	case TypeInt64:
		return "i64"
	case TypeFloat32:
		return "f32"
	case TypeFloat64:
		return "f64"
	case TypeBool:
		return "bool"
	case TypeString:
		return "string"
	case TypeArray:
		return "array"
	default:
		return fmt.Sprintf("type(%d)", uint32(t))
	}
}

type ArrayValue struct {
	ElemType ValueType
	Values   []any
}

type Value struct {
	Type  ValueType
	Value any
}

type Header struct {
	Version     uint32
	TensorCount uint64
	KVCount     uint64
}

// Metadata is the key/value section of a GGUF file. Tensor data is never
// read: the runtime owns the weights.
type Metadata struct {
	Path   string
	Header Header
	KV     map[string]Value
}

// ReadMetadata parses the header and metadata of the GGUF file at path.
func ReadMetadata(path string) (*Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return decodeMetadata(f, st.Size(), path)
}

func decodeMetadata(rd io.Reader, size int64, path string) (*Metadata, error) {
	r := newReader(rd, size)

	magic, err := r.readN(4)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if string(magic) != magicGGUF {
		return nil, fmt.Errorf("%s: invalid magic: %q", path, string(magic))
	}

	version, err := readFixed[uint32](r)
	if err != nil {
		return nil, err
	}
	if version < 2 {
		return nil, fmt.Errorf("%s: unsupported GGUF version %d", path, version)
	}
	tensorCount, err := readFixed[uint64](r)
	if err != nil {
		return nil, err
	}
	kvCount, err := readFixed[uint64](r)
	if err != nil {
		return nil, err
	}

	kv := make(map[string]Value, min(kvCount, 1024))
	for i := range kvCount {
		key, err := r.readString()
		if err != nil {
			return nil, fmt.Errorf("read key %d: %w", i, err)
		}
		vtype, err := readFixed[ValueType](r)
		if err != nil {
			return nil, fmt.Errorf("read value type for %s: %w", key, err)
		}
		val, err := readValue(r, vtype)
		if err != nil {
			return nil, fmt.Errorf("read value for %s: %w", key, err)
		}
		kv[key] = Value{Type: vtype, Value: val}
	}

	return &Metadata{
		Path:   path,
		Header: Header{Version: version, TensorCount: tensorCount, KVCount: kvCount},
		KV:     kv,
	}, nil
}

// Token types from the llama.cpp vocabulary.
const (
	TokenTypeNormal  = 1
	TokenTypeUnknown = 2
	TokenTypeControl = 3
)

func (m *Metadata) Architecture() string {
	s, _ := GetString(m.KV, "general.architecture")
	return s
}

func (m *Metadata) Name() string {
	s, _ := GetString(m.KV, "general.name")
	return s
}

func (m *Metadata) ChatTemplate() string {
	s, _ := GetString(m.KV, "tokenizer.chat_template")
	return s
}

// BOSToken returns the text of the beginning-of-sequence token, if the
// vocabulary is embedded.
func (m *Metadata) BOSToken() string {
	id, ok := GetUint64(m.KV, "tokenizer.ggml.bos_token_id")
	if !ok {
		return ""
	}
	tokens, ok := GetArray[string](m.KV, "tokenizer.ggml.tokens")
	if !ok || id >= uint64(len(tokens)) {
		return ""
	}
	return tokens[id]
}

// ControlTokens returns the vocabulary entries marked as control tokens.
func (m *Metadata) ControlTokens() []string {
	tokens, ok := GetArray[string](m.KV, "tokenizer.ggml.tokens")
	if !ok {
		return nil
	}
	types, ok := GetArray[int32](m.KV, "tokenizer.ggml.token_type")
	if !ok || len(types) != len(tokens) {
		return nil
	}
	var out []string
	for i, tt := range types {
		if tt == TokenTypeControl && tokens[i] != "" {
			out = append(out, tokens[i])
		}
	}
	return out
}

func readValue(r *reader, vtype ValueType) (any, error) {
	switch vtype {
	case TypeUint8:
		return readFixed[uint8](r)
	case TypeInt8:
		return readFixed[int8](r)
	case TypeUint16:
		return readFixed[uint16](r)
	case TypeInt16:
		return readFixed[int16](r)
	case TypeUint32:
		return readFixed[uint32](r)
	case TypeInt32:
		return readFixed[int32](r)
	case TypeUint64:
		return readFixed[uint64](r)
	case TypeInt64:
		return readFixed[int64](r)
	case TypeFloat32:
		return readFixed[float32](r)
	case TypeFloat64:
		return readFixed[float64](r)
	case TypeBool:
		return readFixed[bool](r)
	case TypeString:
		return r.readString()
	case TypeArray:
		elemType, err := readFixed[ValueType](r)
		if err != nil {
			return nil, err
		}
		count, err := readFixed[uint64](r)
		if err != nil {
			return nil, err
		}
		// Every element occupies at least one byte.
		if count > r.remaining() {
			return nil, fmt.Errorf("array length too large: %d", count)
		}
		values := make([]any, 0, count)
		for range count {
			v, err := readValue(r, elemType)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		return ArrayValue{ElemType: elemType, Values: values}, nil
	default:
		return nil, fmt.Errorf("unsupported value type %d", uint32(vtype))
	}
}

func asUint64(v any) (uint64, bool) {
	switch t := v.(type) {
	case uint8:
		return uint64(t), true
	case uint16:
		return uint64(t), true
	case uint32:
		return uint64(t), true
	case uint64:
		return t, true
	case int8:
		if t < 0 {
			return 0, false
		}
		return uint64(t), true
	case int16:
		if t < 0 {
			return 0, false
		}
		return uint64(t), true
	case int32:
		if t < 0 {
			return 0, false
		}
		return uint64(t), true
	case int64:
		if t < 0 {
			return 0, false
		}
		return uint64(t), true
	default:
		return 0, false
	}
}
