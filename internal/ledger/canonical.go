package ledger

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// canonicalBytes serializes a hashable field set into the frozen canonical
// form: object keys sorted lexicographically, "," and ":" separators, no
// incidental whitespace. Identical logical content always yields identical
// bytes. This encoding is a versioned contract — every issued hash and
// signature depends on it, so it must never change.
func canonicalBytes(fields map[string]any) ([]byte, error) {
	var buf strings.Builder
	if err := writeCanonical(&buf, fields); err != nil {
		return nil, err
	}
	return []byte(buf.String()), nil
}

func writeCanonical(buf *strings.Builder, v any) error {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteString("{")
		for i, k := range keys {
			if i > 0 {
				buf.WriteString(",")
			}
			keyBytes, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(keyBytes)
			buf.WriteString(":")
			if err := writeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteString("}")
		return nil

	case []any:
		buf.WriteString("[")
		for i, item := range val {
			if i > 0 {
				buf.WriteString(",")
			}
			if err := writeCanonical(buf, item); err != nil {
				return err
			}
		}
		buf.WriteString("]")
		return nil

	default:
		// Scalars: encoding/json emits the shortest round-trip float form,
		// which is deterministic for a given value.
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("canonical encode: %w", err)
		}
		buf.Write(data)
		return nil
	}
}
