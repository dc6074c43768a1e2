package gguf

import (
	"reflect"
	"testing"
)

func TestGetArray(t *testing.T) {
	t.Parallel()

	kv := map[string]Value{
		"strings":   {Type: TypeArray, Value: ArrayValue{ElemType: TypeString, Values: []any{"a", "b"}}},
		"ints":      {Type: TypeArray, Value: ArrayValue{ElemType: TypeInt32, Values: []any{int32(1), int32(3)}}},
		"mixed":     {Type: TypeArray, Value: ArrayValue{ElemType: TypeString, Values: []any{"a", 1}}},
		"not_array": {Type: TypeString, Value: "hello"},
	}

	strs, ok := GetArray[string](kv, "strings")
	if !ok || !reflect.DeepEqual(strs, []string{"a", "b"}) {
		t.Fatalf("strings: got %v (%v)", strs, ok)
	}
	ints, ok := GetArray[int32](kv, "ints")
	if !ok || !reflect.DeepEqual(ints, []int32{1, 3}) {
		t.Fatalf("ints: got %v (%v)", ints, ok)
	}

	for _, key := range []string{"mixed", "not_array", "missing"} {
		if _, ok := GetArray[string](kv, key); ok {
			t.Fatalf("%s: expected !ok", key)
		}
	}
	if _, ok := GetArray[int32](kv, "strings"); ok {
		t.Fatalf("expected !ok for element type mismatch")
	}
}

func TestGetUint64(t *testing.T) {
	t.Parallel()

	kv := map[string]Value{
		"u32": {Type: TypeUint32, Value: uint32(7)},
		"neg": {Type: TypeInt32, Value: int32(-1)},
		"str": {Type: TypeString, Value: "7"},
	}
	if v, ok := GetUint64(kv, "u32"); !ok || v != 7 {
		t.Fatalf("u32: got %d (%v), want 7", v, ok)
	}
	for _, key := range []string{"neg", "str", "missing"} {
		if _, ok := GetUint64(kv, key); ok {
			t.Fatalf("%s: expected !ok", key)
		}
	}
}
