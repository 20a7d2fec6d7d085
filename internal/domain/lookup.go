package domain

// StringAt walks node through nested JSON objects along path and returns the
// string found at the end. A missing key, a non-object along the way, or a
// non-string leaf yields def.
func StringAt(node any, def string, path ...string) string {
	v, ok := valueAt(node, path...)
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}
	return s
}

// SliceAt returns the array found at path, or nil when it is absent or not an array.
func SliceAt(node any, path ...string) []any {
	v, ok := valueAt(node, path...)
	if !ok {
		return nil
	}
	items, _ := v.([]any)
	return items
}

func valueAt(node any, path ...string) (any, bool) {
	cur := node
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
