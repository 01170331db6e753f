package test

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"

	"objwire/connection"
	"objwire/handle"
	"objwire/middleware"
	"objwire/protocol"
	"objwire/wire"
)

// ---- In-memory duplex pipe ----

type duplex struct {
	io.Reader
	io.Writer
}

func newPipePair() (local, remote duplex) {
	localReads, remoteWrites := io.Pipe()
	remoteReads, localWrites := io.Pipe()
	return duplex{localReads, localWrites}, duplex{remoteReads, remoteWrites}
}

// ---- Scripted remote peer ----

// startPeer answers evaluateExpression by echoing the encoded argument, and
// getProperty by minting a fresh guid. Every frame crosses the real protocol
// and JSON layers, so this exercises the full stack end to end.
func startPeer(pipe io.ReadWriter) {
	go func() {
		for {
			header, body, err := protocol.Decode(pipe)
			if err != nil {
				return
			}
			if header.MsgType == protocol.MsgTypeHeartbeat {
				continue
			}
			msg := &wire.Message{}
			if err := json.Unmarshal(body, msg); err != nil {
				return
			}

			var resp *wire.Message
			switch msg.Method {
			case "evaluateExpression":
				params := msg.Params.(map[string]any)
				arg := params["arg"].(map[string]any)
				resp = &wire.Message{Result: map[string]any{
					"value":   arg["value"],
					"handles": arg["handles"],
				}}
			case "getProperty":
				resp = &wire.Message{Result: map[string]any{
					"handle": map[string]any{"guid": "prop-1", "preview": "child"},
				}}
			case "dispose":
				resp = &wire.Message{}
			default:
				resp = &wire.Message{Error: "unknown method: " + msg.Method}
			}

			respBody, err := json.Marshal(resp)
			if err != nil {
				return
			}
			respHeader := &protocol.Header{
				MsgType: protocol.MsgTypeResponse,
				Seq:     header.Seq,
				BodyLen: uint32(len(respBody)),
			}
			if err := protocol.Encode(pipe, respHeader, respBody); err != nil {
				return
			}
		}
	}()
}

func TestEndToEnd(t *testing.T) {
	local, remote := newPipePair()
	startPeer(remote)

	conn := connection.New(local, zap.NewNop())
	defer conn.Close()
	conn.Use(middleware.Logging(zap.NewNop()))
	conn.Use(middleware.Timeout(5 * time.Second))
	conn.Use(middleware.RateLimit(1000, 1000))

	h := handle.New(conn, "root", "Window")
	ctx := context.Background()

	// A value with every wire shape: primitives, specials, a date, nested
	// containers, and the handle itself. It crosses the pipe twice (encode →
	// JSON → peer → JSON → decode) and must come back intact.
	when := time.Date(2025, 7, 2, 8, 30, 0, 250000000, time.FixedZone("UTC+2", 2*3600))
	arg := map[string]any{
		"title": "integration",
		"count": 3.0,
		"nan":   math.NaN(),
		"inf":   math.Inf(-1),
		"when":  when,
		"list":  []any{true, nil, "x"},
		"self":  h,
	}

	result, err := h.Evaluate(ctx, "x => x", arg)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	fields, ok := result.(map[string]any)
	if !ok {
		t.Fatalf("result is %T", result)
	}

	if fields["title"] != "integration" || fields["count"] != 3.0 {
		t.Errorf("primitives mangled: %#v", fields)
	}
	if f, ok := fields["nan"].(float64); !ok || !math.IsNaN(f) {
		t.Errorf("NaN mangled: %#v", fields["nan"])
	}
	if f, ok := fields["inf"].(float64); !ok || !math.IsInf(f, -1) {
		t.Errorf("-Inf mangled: %#v", fields["inf"])
	}
	ts, ok := fields["when"].(time.Time)
	if !ok || !ts.Equal(when) {
		t.Errorf("date mangled: %#v, want %v", fields["when"], when)
	}
	if _, offset := ts.Zone(); offset != 0 {
		t.Errorf("date should decode in UTC, got offset %d", offset)
	}
	list, ok := fields["list"].([]any)
	if !ok || len(list) != 3 || list[0] != true || list[1] != nil || list[2] != "x" {
		t.Errorf("list mangled: %#v", fields["list"])
	}
	if fields["self"] != any(h) {
		t.Errorf("handle did not resolve back to itself: %#v", fields["self"])
	}

	// Property access mints a second handle that can itself make calls
	property, err := h.GetProperty(ctx, "document")
	if err != nil {
		t.Fatalf("GetProperty failed: %v", err)
	}
	if property.GUID() != "prop-1" {
		t.Errorf("property guid: got %q", property.GUID())
	}
	if _, err := property.Evaluate(ctx, "x => x", "ping"); err != nil {
		t.Fatalf("Evaluate on property failed: %v", err)
	}

	if err := property.Dispose(ctx); err != nil {
		t.Fatalf("Dispose failed: %v", err)
	}
	if _, ok := conn.Lookup("prop-1"); ok {
		t.Error("disposed handle still registered")
	}
}
