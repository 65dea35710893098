package estat

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// A key/value pair of a JSON object, in document order
type field struct {
	Key   string
	Value json.RawMessage
}

// Decodes a JSON object keeping the order of its keys,
// which is the column order of every table built from it
func decodeFields(raw []byte) ([]field, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected a JSON object, got %v", tok)
	}

	var out []field
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", tok)
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		out = append(out, field{Key: key, Value: value})
	}
	return out, nil
}

// First significant byte of a raw value: '{', '[', '"', 'n', 't', 'f' or a digit
func rawKind(raw []byte) byte {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 'n'
	}
	return raw[0]
}

// Renders a raw scalar as a string. Strings are unquoted, numbers and booleans
// are kept literally, objects and arrays are compacted. Null is reported as invalid.
func rawString(raw []byte) (string, bool) {
	raw = bytes.TrimSpace(raw)
	switch rawKind(raw) {
	case 'n':
		return "", false
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return string(raw), true
		}
		return s, true
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return string(raw), true
		}
		return buf.String(), true
	default:
		return string(raw), true
	}
}

// Splits a raw value that may be a single object or a list into its elements
func rawItems(raw []byte) ([]json.RawMessage, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var items OneOrMany[json.RawMessage]
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	return items, nil
}
