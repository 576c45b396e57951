package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// Key derives the cache key for a call from its operation name, positional
// arguments, and keyword arguments.
//
// The derivation is deterministic: keyword arguments are serialized in sorted
// key order, so the order they were supplied in never changes the key. Equal
// calls always map to the same key; changing any single argument changes it.
// Distinct calls collide only if SHA-256 does.
func Key(op string, args []any, kwargs map[string]any) (string, error) {
	call := map[string]any{
		"op":     op,
		"args":   args,
		"kwargs": kwargs,
	}

	canonical, err := canonicalize(call)
	if err != nil {
		return "", fmt.Errorf("cache: failed to serialize call arguments: %w", err)
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// canonicalize produces a deterministic JSON encoding of v. Maps are written
// in sorted key order; slices keep their element order. Any other value,
// including nested structs and decimal.Decimal, goes through encoding/json,
// which is already deterministic for a fixed value.
func canonicalize(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}

	switch val := v.(type) {
	case map[string]any:
		return canonicalizeMap(val)
	case []any:
		return canonicalizeSlice(val)
	default:
		return json.Marshal(v)
	}
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := []byte("{")
	for i, k := range keys {
		if i > 0 {
			out = append(out, ',')
		}

		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		out = append(out, keyBytes...)
		out = append(out, ':')

		valBytes, err := canonicalize(m[k])
		if err != nil {
			return nil, err
		}
		out = append(out, valBytes...)
	}
	out = append(out, '}')

	return out, nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	out := []byte("[")
	for i, v := range s {
		if i > 0 {
			out = append(out, ',')
		}

		valBytes, err := canonicalize(v)
		if err != nil {
			return nil, err
		}
		out = append(out, valBytes...)
	}
	out = append(out, ']')

	return out, nil
}
