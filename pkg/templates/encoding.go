package templates

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/citizenwallet/multisig/pkg/multisig"
)

// marshal serializes v as compact UTF-8 JSON without HTML escaping
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// EncodeBinary serializes an inner contract message the way the wasm module expects
// it inside another message: JSON, then standard base64 without line wrapping.
func EncodeBinary(v any) (string, error) {
	b, err := marshal(v)
	if err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(b), nil
}

// forbidden keys alter object prototypes when a payload is later evaluated by a
// javascript client
const protoKey = "__proto__"

// ParseMessages parses untrusted message JSON. A single object becomes a one element
// array, an array must contain only objects. Numbers are kept verbatim.
func ParseMessages(raw string) ([]json.RawMessage, error) {
	// work on a private copy of the text, never on a shared object graph
	src := strings.Clone(strings.TrimSpace(raw))
	if src == "" {
		return nil, multisig.NewValidationError("json", "is required")
	}

	tree, err := decodeStrict(src)
	if err != nil {
		return nil, multisig.NewValidationError("json", "invalid JSON: "+err.Error())
	}

	if path, ok := findPollution(tree, "$"); ok {
		return nil, multisig.NewValidationError("json", "forbidden key at "+path)
	}

	var items []json.RawMessage
	switch t := tree.(type) {
	case map[string]any:
		items = []json.RawMessage{json.RawMessage(src)}
	case []any:
		if len(t) == 0 {
			return nil, multisig.NewValidationError("json", "must contain at least one message")
		}
		for _, item := range t {
			if _, ok := item.(map[string]any); !ok {
				return nil, multisig.NewValidationError("json", "every message must be a JSON object")
			}
		}
		if err := json.Unmarshal([]byte(src), &items); err != nil {
			return nil, multisig.NewValidationError("json", "invalid JSON: "+err.Error())
		}
	default:
		return nil, multisig.NewValidationError("json", "must be a JSON object or an array of objects")
	}

	msgs := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		var buf bytes.Buffer
		if err := json.Compact(&buf, item); err != nil {
			return nil, multisig.NewValidationError("json", "invalid JSON: "+err.Error())
		}
		msgs = append(msgs, json.RawMessage(buf.Bytes()))
	}

	return msgs, nil
}

func decodeStrict(src string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(src))
	dec.UseNumber()

	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, err
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON value")
	}

	return tree, nil
}

// findPollution looks for __proto__ keys and constructor.prototype chains
func findPollution(v any, path string) (string, bool) {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			p := path + "." + k
			if k == protoKey {
				return p, true
			}
			if k == "constructor" {
				if obj, ok := child.(map[string]any); ok {
					if _, ok := obj["prototype"]; ok {
						return p + ".prototype", true
					}
				}
			}
			if found, ok := findPollution(child, p); ok {
				return found, true
			}
		}
	case []any:
		for _, child := range t {
			if found, ok := findPollution(child, path+"[]"); ok {
				return found, true
			}
		}
	}

	return "", false
}
