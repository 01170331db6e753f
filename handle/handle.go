// Package handle provides the client-side surface of a remote object: a
// Handle wraps a guid issued by the remote peer and exposes the generic
// evaluate / get-property operations over it. All argument and result values
// cross the pipe through the codec package's tagged wire form.
package handle

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"objwire/codec"
	"objwire/connection"
)

// Handle is an opaque reference to a value that lives only in the remote
// process. It carries a human-readable preview that the peer refreshes via
// "previewUpdated" events.
//
// A Handle is both a connection.Object (it receives events for its guid) and
// a codec.Ref (it can be embedded in call arguments, where the encoder
// substitutes its guid through the handle list).
type Handle struct {
	conn *connection.Connection
	guid string

	mu      sync.Mutex
	preview string
}

// New creates a handle for the given guid and registers it on the connection
// so events and returned handle references can find it.
func New(conn *connection.Connection, guid, preview string) *Handle {
	h := &Handle{conn: conn, guid: guid, preview: preview}
	conn.Register(h)
	return h
}

// GUID returns the remote-object identifier this handle wraps.
func (h *Handle) GUID() string { return h.guid }

// RefID implements codec.Ref.
func (h *Handle) RefID() string { return h.guid }

// String returns the current preview of the remote value.
func (h *Handle) String() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.preview
}

// OnEvent implements connection.Object. The only event a plain handle reacts
// to is the peer refreshing its preview.
func (h *Handle) OnEvent(method string, params any) {
	if method != "previewUpdated" {
		return
	}
	fields, ok := params.(map[string]any)
	if !ok {
		return
	}
	preview, ok := fields["preview"].(string)
	if !ok {
		return
	}
	h.mu.Lock()
	h.preview = preview
	h.mu.Unlock()
}

// Evaluate runs an expression against the remote object and returns the
// decoded result value. The argument may contain nested handles; they travel
// as indexes plus the envelope's handle list, never by content.
func (h *Handle) Evaluate(ctx context.Context, expression string, arg any) (any, error) {
	env, err := codec.EncodeArgument(arg)
	if err != nil {
		return nil, err
	}
	result, err := h.conn.Send(ctx, h.guid, "evaluateExpression", map[string]any{
		"expression": expression,
		"isFunction": isFunctionBody(expression),
		"arg":        env,
	})
	if err != nil {
		return nil, err
	}
	return h.parseResult(result)
}

// EvaluateHandle is like Evaluate but the result stays in the remote process:
// the peer returns a fresh guid and the caller gets a new Handle for it.
func (h *Handle) EvaluateHandle(ctx context.Context, expression string, arg any) (*Handle, error) {
	env, err := codec.EncodeArgument(arg)
	if err != nil {
		return nil, err
	}
	result, err := h.conn.Send(ctx, h.guid, "evaluateExpressionHandle", map[string]any{
		"expression": expression,
		"isFunction": isFunctionBody(expression),
		"arg":        env,
	})
	if err != nil {
		return nil, err
	}
	return h.handleFromResult(result)
}

// GetProperty returns a handle to one property of the remote object.
func (h *Handle) GetProperty(ctx context.Context, name string) (*Handle, error) {
	result, err := h.conn.Send(ctx, h.guid, "getProperty", map[string]any{"name": name})
	if err != nil {
		return nil, err
	}
	return h.handleFromResult(result)
}

// GetProperties returns handles to all enumerable properties of the remote
// object, keyed by property name.
func (h *Handle) GetProperties(ctx context.Context) (map[string]*Handle, error) {
	result, err := h.conn.Send(ctx, h.guid, "getPropertyList", nil)
	if err != nil {
		return nil, err
	}
	fields, ok := result.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("getPropertyList: malformed result %T", result)
	}
	entries, ok := fields["properties"].([]any)
	if !ok {
		return nil, fmt.Errorf("getPropertyList: malformed property list")
	}
	properties := make(map[string]*Handle, len(entries))
	for _, raw := range entries {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		name, ok := entry["name"].(string)
		if !ok {
			continue
		}
		property, err := h.handleFromResult(entry)
		if err != nil {
			return nil, err
		}
		properties[name] = property
	}
	return properties, nil
}

// JSONValue fetches a JSON-safe rendering of the remote value and decodes it
// to a native value.
func (h *Handle) JSONValue(ctx context.Context) (any, error) {
	result, err := h.conn.Send(ctx, h.guid, "jsonValue", nil)
	if err != nil {
		return nil, err
	}
	return h.parseResult(result)
}

// Dispose releases the remote value and removes this handle from the local
// registry. The guid itself is retired by the remote peer.
func (h *Handle) Dispose(ctx context.Context) error {
	_, err := h.conn.Send(ctx, h.guid, "dispose", nil)
	if err != nil {
		return err
	}
	h.conn.Unregister(h.guid)
	return nil
}

// parseResult unpacks a returned {value, handles} pair and decodes the wire
// value, resolving handle indexes against the connection's object registry.
// Results without the pair shape are decoded as bare wire values.
func (h *Handle) parseResult(result any) (any, error) {
	node := result
	var handles []string
	if fields, ok := result.(map[string]any); ok {
		if value, present := fields["value"]; present {
			node = value
			if raw, ok := fields["handles"].([]any); ok {
				handles = make([]string, 0, len(raw))
				for _, id := range raw {
					if guid, ok := id.(string); ok {
						handles = append(handles, guid)
					}
				}
			}
		}
	}
	return codec.DecodeResult(node, handles, func(guid string) (any, bool) {
		obj, ok := h.conn.Lookup(guid)
		if !ok {
			return nil, false
		}
		return obj, true
	})
}

// handleFromResult materializes a handle from a {handle: {guid, preview}}
// result. If a handle for the guid is already registered (the peer returned
// an object we know), the existing one is reused.
func (h *Handle) handleFromResult(result any) (*Handle, error) {
	fields, ok := result.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("malformed handle result %T", result)
	}
	ref, ok := fields["handle"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("malformed handle result: missing handle field")
	}
	guid, ok := ref["guid"].(string)
	if !ok || guid == "" {
		return nil, fmt.Errorf("malformed handle result: missing guid")
	}
	if existing, ok := h.conn.Lookup(guid); ok {
		if known, ok := existing.(*Handle); ok {
			return known, nil
		}
	}
	preview, _ := ref["preview"].(string)
	return New(h.conn, guid, preview), nil
}

// isFunctionBody reports whether an expression is a function literal rather
// than a bare expression, so the peer knows whether to invoke it.
func isFunctionBody(expression string) bool {
	expression = strings.TrimSpace(expression)
	return strings.HasPrefix(expression, "function") ||
		strings.HasPrefix(expression, "async ") ||
		strings.Contains(expression, "=>")
}
