package people

// The dossier payload is pasted generator output with an unreliable shape,
// so cleaning and validation operate on the decoded map directly. These
// helpers keep the type assertions in one place.

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// mapsOf returns the map entries of a slice value, skipping anything else.
func mapsOf(v any) []map[string]any {
	var out []map[string]any
	for _, item := range asSlice(v) {
		if m := asMap(item); m != nil {
			out = append(out, m)
		}
	}
	return out
}

// stringsOf returns the string entries of a slice value, skipping anything
// else. Cleaned fields hold []string; raw payload fields hold []any.
func stringsOf(v any) []string {
	if s, ok := v.([]string); ok {
		return s
	}
	var out []string
	for _, item := range asSlice(v) {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// intValue reports a numeric payload value as an int. JSON numbers decode as
// float64; integers pasted as strings do not count.
func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}
