package codec

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Decode reconstructs a native value from one wire node. Handle index nodes
// are resolved through resolve; resolver errors propagate unwrapped.
//
// Tag dispatch is lenient: a node that carries none of the known tags (or a
// raw literal, which is its own native value) is returned unchanged, so
// unknown tags from newer peers pass through instead of failing the call.
// Decoding enforces no depth limit — the wire form was produced under the
// encoder's ceiling or comes from the trusted peer.
func Decode(node any, resolve ResolveFunc) (any, error) {
	m, ok := node.(map[string]any)
	if !ok {
		// nil wire value or raw literal.
		return node, nil
	}

	if raw, ok := m[tagScalar]; ok {
		if s, ok := raw.(string); ok {
			switch s {
			case sentinelPosInf:
				return math.Inf(1), nil
			case sentinelNegInf:
				return math.Inf(-1), nil
			case sentinelNegZero:
				return math.Copysign(0, -1), nil
			case sentinelNaN:
				return math.NaN(), nil
			case sentinelUndefined, sentinelNull:
				return nil, nil
			}
		}
		return raw, nil
	}

	if raw, ok := m[tagArray]; ok {
		items, ok := raw.([]any)
		if !ok {
			return node, nil
		}
		out := make([]any, len(items))
		for i, item := range items {
			elem, err := Decode(item, resolve)
			if err != nil {
				return nil, err
			}
			out[i] = elem
		}
		return out, nil
	}

	if raw, ok := m[tagDate]; ok {
		s, ok := raw.(string)
		if !ok {
			return node, nil
		}
		t, err := time.Parse(parseDateLayout, strings.TrimSuffix(s, "Z"))
		if err != nil {
			return nil, fmt.Errorf("malformed date node %q: %w", s, err)
		}
		return t, nil
	}

	if raw, ok := m[tagObject]; ok {
		fields, ok := raw.(map[string]any)
		if !ok {
			return node, nil
		}
		out := make(map[string]any, len(fields))
		for name, field := range fields {
			elem, err := Decode(field, resolve)
			if err != nil {
				return nil, err
			}
			out[name] = elem
		}
		return out, nil
	}

	if raw, ok := m[tagHandle]; ok {
		index, ok := handleIndex(raw)
		if !ok {
			return node, nil
		}
		if resolve == nil {
			return nil, fmt.Errorf("wire node references handle %d but no resolver was supplied", index)
		}
		return resolve(index)
	}

	return node, nil
}

// DecodeResult decodes a returned wire value, resolving its handle indexes
// against the response's ordered identifier list and the surrounding
// object registry.
func DecodeResult(node any, handles []string, lookup func(guid string) (any, bool)) (any, error) {
	return Decode(node, func(index int) (any, error) {
		if index < 0 || index >= len(handles) {
			return nil, fmt.Errorf("handle index %d out of range (handle list has %d entries)", index, len(handles))
		}
		guid := handles[index]
		obj, ok := lookup(guid)
		if !ok {
			return nil, fmt.Errorf("unknown remote object %q", guid)
		}
		return obj, nil
	})
}

// handleIndex accepts both int (hand-built nodes) and float64 (nodes that
// crossed encoding/json, which decodes every number as float64).
func handleIndex(raw any) (int, bool) {
	switch n := raw.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	}
	return 0, false
}
