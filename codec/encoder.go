package codec

import (
	"math"
	"reflect"
	"time"

	"objwire/wire"
)

// EncodeArgument packages one top-level call argument as the outbound
// envelope: the tagged wire value plus the ordered handle list collected
// while walking it. A fresh list is threaded through the whole walk, so
// concurrent calls never share state.
func EncodeArgument(value any) (*wire.Envelope, error) {
	handles := make(HandleList, 0)
	node, err := Encode(value, &handles, 0)
	if err != nil {
		return nil, err
	}
	return &wire.Envelope{Value: node, Handles: handles}, nil
}

// Encode converts one native value into its wire node, appending any
// remote-object identifiers it meets to handles.
//
// The checks run in a fixed precedence order:
//
//  1. Remote-object references are substituted with an `h` index node even
//     past the depth ceiling — a reference is a leaf, it never recurses.
//  2. depth > MaxDepth fails closed with ErrDepthExceeded, before the node's
//     content is touched.
//  3. nil, IEEE-754 specials, and signed zero become `v` sentinel nodes.
//  4. Timestamps become `d` nodes, rebased to UTC.
//  5. Ordinary primitives pass through as raw literals.
//  6. Sequences and string-keyed mappings recurse at depth+1.
//  7. Anything unrecognized degrades to {"v":"undefined"} rather than
//     failing the call.
func Encode(value any, handles *HandleList, depth int) (any, error) {
	if ref, ok := value.(Ref); ok {
		index := len(*handles)
		*handles = append(*handles, ref.RefID())
		return map[string]any{tagHandle: index}, nil
	}
	if depth > MaxDepth {
		return nil, ErrDepthExceeded
	}
	if value == nil {
		return map[string]any{tagScalar: sentinelUndefined}, nil
	}

	switch v := value.(type) {
	case float64:
		return encodeFloat(v), nil
	case float32:
		return encodeFloat(float64(v)), nil
	case time.Time:
		return map[string]any{tagDate: v.UTC().Format(wireDateLayout)}, nil
	case bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return v, nil
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			node, err := Encode(elem, handles, depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = node
		}
		return map[string]any{tagArray: out}, nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for name, elem := range v {
			node, err := Encode(elem, handles, depth+1)
			if err != nil {
				return nil, err
			}
			out[name] = node
		}
		return map[string]any{tagObject: out}, nil
	}

	return encodeReflect(value, handles, depth)
}

// encodeFloat wraps IEEE-754 specials and negative zero in their sentinel
// nodes; every other float travels as a raw literal. The zero check is
// sign-aware: +0.0 stays a plain 0 on the wire.
func encodeFloat(f float64) any {
	switch {
	case math.IsInf(f, 1):
		return map[string]any{tagScalar: sentinelPosInf}
	case math.IsInf(f, -1):
		return map[string]any{tagScalar: sentinelNegInf}
	case f == 0 && math.Signbit(f):
		return map[string]any{tagScalar: sentinelNegZero}
	case math.IsNaN(f):
		return map[string]any{tagScalar: sentinelNaN}
	}
	return f
}

// encodeReflect handles container kinds the type switch cannot name: typed
// slices/arrays ([]int, [3]string, ...) and mappings with string keys.
// Everything else — channels, funcs, structs, pointers — degrades to the
// "undefined" sentinel so arbitrary caller data never fails the whole call.
func encodeReflect(value any, handles *HandleList, depth int) (any, error) {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			node, err := Encode(rv.Index(i).Interface(), handles, depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = node
		}
		return map[string]any{tagArray: out}, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			node, err := Encode(iter.Value().Interface(), handles, depth+1)
			if err != nil {
				return nil, err
			}
			out[iter.Key().String()] = node
		}
		return map[string]any{tagObject: out}, nil
	}
	return map[string]any{tagScalar: sentinelUndefined}, nil
}
