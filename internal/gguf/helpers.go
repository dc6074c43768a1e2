package gguf

func GetString(kv map[string]Value, key string) (string, bool) {
	v, ok := kv[key]
	if !ok {
		return "", false
	}
	s, ok := v.Value.(string)
	return s, ok
}

func GetUint64(kv map[string]Value, key string) (uint64, bool) {
	v, ok := kv[key]
	if !ok {
		return 0, false
	}
	return asUint64(v.Value)
}

// GetArray returns the array stored under key when every element has type T.
func GetArray[T any](kv map[string]Value, key string) ([]T, bool) {
	v, ok := kv[key]
	if !ok {
		return nil, false
	}
	arr, ok := v.Value.(ArrayValue)
	if !ok {
		return nil, false
	}

	out := make([]T, 0, len(arr.Values))
	for _, item := range arr.Values {
		tItem, ok := item.(T)
		if !ok {
			return nil, false
		}
		out = append(out, tItem)
	}
	return out, true
}
