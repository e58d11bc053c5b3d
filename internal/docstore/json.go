package docstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// EncodeDocument marshals doc to a JSON object and returns the body together
// with its _id. Backends that persist JSON use it on every insert.
func EncodeDocument(doc any) ([]byte, string, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, "", fmt.Errorf("encoding document: %w", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, "", fmt.Errorf("document is not an object: %w", err)
	}

	id, ok := fields[IDField].(string)
	if !ok || id == "" {
		return nil, "", ErrMissingID
	}

	return body, id, nil
}

// DecodeOne decodes a single stored body into out. A nil out is a no-op.
func DecodeOne(body []byte, out any) error {
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}

// DecodeMany decodes stored bodies into out, which must point to a slice.
// An empty result decodes to an empty, non-nil slice.
func DecodeMany(bodies [][]byte, out any) error {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, b := range bodies {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(b)
	}
	buf.WriteByte(']')

	return json.Unmarshal(buf.Bytes(), out)
}

// Normalize returns v in the shape encoding/json produces when decoding into
// an interface value, so that values from filters compare equal to values read
// back from stored documents.
func Normalize(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var n any
	if err := json.Unmarshal(b, &n); err != nil {
		return nil, err
	}
	return n, nil
}

// SortedKeys returns the keys of m in lexical order. SQL backends use it to
// build deterministic statements.
func SortedKeys[M ~map[string]any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
