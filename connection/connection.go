// Package connection implements the command channel to the remote peer with
// multiplexing, event dispatch, and heartbeat.
//
// A Connection enables multiple concurrent commands over a single duplex byte
// pipe. Each request gets a unique sequence ID, and a background goroutine
// (recvLoop) continuously reads frames and routes responses to the correct
// caller via pending channels:
//
//	goroutine-1 ──Send(seq=1)──┐
//	goroutine-2 ──Send(seq=2)──┼──→ single duplex pipe ──→ remote peer
//	goroutine-3 ──Send(seq=3)──┘
//
//	recvLoop:  ←── response(seq=2) → pending[2] chan ← response → goroutine-2 wakes up
//
// The Connection also keeps the registry of live remote objects: a table from
// guid to registered Object. Event frames are routed to the target object by
// guid, and the table doubles as the resolver used when decoding returned
// wire values that reference handles. The Connection only maps identifiers to
// objects the caller registered; it does not manage remote-side lifetime.
package connection

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"objwire/middleware"
	"objwire/protocol"
	"objwire/wire"
)

// Object is a local stand-in for a remote object: it knows its guid and
// receives the events the peer emits for that guid.
type Object interface {
	GUID() string
	OnEvent(method string, params any)
}

// Connection manages a single multiplexed duplex pipe to the remote peer.
type Connection struct {
	pipe    io.ReadWriter // Underlying duplex byte pipe (stdio pair, socketpair, in-memory, ...)
	logger  *zap.Logger
	seq     uint32     // Monotonically increasing sequence number (protected by sending mutex)
	pending sync.Map   // map[uint32]chan *wire.Message — each request waits on its own channel
	sending sync.Mutex // Write lock — frames must be written atomically or they interleave

	objMu   sync.RWMutex
	objects map[string]Object // guid → registered object (the handle registry)

	middlewares []middleware.Middleware
	handler     middleware.HandlerFunc
	buildOnce   sync.Once

	closed atomic.Bool
	done   chan struct{}
}

// New creates a connection over the given pipe and starts two background
// goroutines:
//   - recvLoop: continuously reads frames and dispatches responses and events
//   - heartbeatLoop: sends periodic heartbeat frames to detect a dead pipe
//
// A nil logger disables logging.
func New(pipe io.ReadWriter, logger *zap.Logger) *Connection {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Connection{
		pipe:    pipe,
		logger:  logger,
		objects: make(map[string]Object),
		done:    make(chan struct{}),
	}
	go c.recvLoop()
	go c.heartbeatLoop(30 * time.Second)
	return c
}

// Use registers a middleware around the outbound command path. All Use calls
// must happen before the first Send; the chain is built once and then frozen.
func (c *Connection) Use(mw middleware.Middleware) {
	c.middlewares = append(c.middlewares, mw)
}

// Register adds a local stand-in for a remote object to the registry.
// Subsequent events and handle resolutions for its guid find it here.
func (c *Connection) Register(obj Object) {
	c.objMu.Lock()
	defer c.objMu.Unlock()
	c.objects[obj.GUID()] = obj
}

// Unregister removes the object with the given guid from the registry.
func (c *Connection) Unregister(guid string) {
	c.objMu.Lock()
	defer c.objMu.Unlock()
	delete(c.objects, guid)
}

// Lookup returns the registered object for a guid.
func (c *Connection) Lookup(guid string) (Object, bool) {
	c.objMu.RLock()
	defer c.objMu.RUnlock()
	obj, ok := c.objects[guid]
	return obj, ok
}

// Send issues one command to the remote peer and blocks until its response
// arrives, the context is done, or the pipe breaks. The request flows through
// the middleware chain first.
func (c *Connection) Send(ctx context.Context, guid, method string, params any) (any, error) {
	c.buildOnce.Do(func() {
		c.handler = middleware.Chain(c.middlewares...)(c.send)
	})
	resp := c.handler(ctx, &wire.Message{GUID: guid, Method: method, Params: params})
	if resp.Error != "" {
		return nil, fmt.Errorf("%s: %s", method, resp.Error)
	}
	return resp.Result, nil
}

// send is the innermost handler: serialize, frame, write, wait.
//
// The sending mutex covers seq assignment and the frame write, so the entire
// frame (header + body) reaches the pipe atomically. The response channel is
// registered before the write to avoid racing with recvLoop.
func (c *Connection) send(ctx context.Context, req *wire.Message) *wire.Message {
	body, err := json.Marshal(req)
	if err != nil {
		return &wire.Message{Error: err.Error()}
	}

	respChan := make(chan *wire.Message, 1) // Buffered so recvLoop never blocks

	c.sending.Lock()
	c.seq++
	seq := c.seq
	c.pending.Store(seq, respChan)
	header := protocol.Header{
		MsgType: protocol.MsgTypeRequest,
		Seq:     seq,
		BodyLen: uint32(len(body)),
	}
	err = protocol.Encode(c.pipe, &header, body)
	c.sending.Unlock()

	if err != nil {
		c.pending.Delete(seq)
		return &wire.Message{Error: err.Error()}
	}

	select {
	case resp := <-respChan:
		return resp
	case <-ctx.Done():
		c.pending.Delete(seq)
		return &wire.Message{Error: ctx.Err().Error()}
	case <-c.done:
		c.pending.Delete(seq)
		return &wire.Message{Error: "connection closed"}
	}
}

// recvLoop runs in a dedicated goroutine, continuously reading frames from
// the pipe. Responses are routed to the pending caller by sequence number;
// events are routed to the registered object by guid. A single reader parses
// the byte stream — frame boundaries only make sense sequentially.
func (c *Connection) recvLoop() {
	for {
		header, body, err := protocol.Decode(c.pipe)
		if err != nil {
			// Pipe broken or closed — notify all pending callers
			c.closeAllPending(err)
			return
		}

		switch header.MsgType {
		case protocol.MsgTypeResponse:
			resp := &wire.Message{}
			if err := json.Unmarshal(body, resp); err != nil {
				resp = &wire.Message{Error: err.Error()}
			}
			if channel, ok := c.pending.LoadAndDelete(header.Seq); ok {
				channel.(chan *wire.Message) <- resp
			}
		case protocol.MsgTypeEvent:
			event := &wire.Message{}
			if err := json.Unmarshal(body, event); err != nil {
				c.logger.Warn("malformed event frame", zap.Error(err))
				continue
			}
			c.dispatchEvent(event)
		case protocol.MsgTypeHeartbeat:
			// KeepAlive only, nothing to do
		}
	}
}

// dispatchEvent routes an event to the registered object it targets.
// Events for unknown guids are dropped: the object may already be disposed.
func (c *Connection) dispatchEvent(event *wire.Message) {
	obj, ok := c.Lookup(event.GUID)
	if !ok {
		c.logger.Debug("event for unknown object",
			zap.String("guid", event.GUID),
			zap.String("method", event.Method))
		return
	}
	obj.OnEvent(event.Method, event.Params)
}

// closeAllPending is called when the pipe breaks. It sends an error message
// to every pending caller so they don't block forever.
func (c *Connection) closeAllPending(err error) {
	c.pending.Range(func(key, value any) bool {
		channel := value.(chan *wire.Message)
		channel <- &wire.Message{Error: err.Error()}
		c.pending.Delete(key)
		return true
	})
}

// heartbeatLoop sends periodic heartbeat frames so a silent pipe is detected
// on both ends. Heartbeats have no body and share the sending lock like every
// other write.
func (c *Connection) heartbeatLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			header := &protocol.Header{MsgType: protocol.MsgTypeHeartbeat}
			c.sending.Lock()
			err := protocol.Encode(c.pipe, header, nil)
			c.sending.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// Close shuts the connection down: in-flight Sends fail with "connection
// closed", the heartbeat stops, and the pipe is closed if it supports it.
func (c *Connection) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	close(c.done)
	if closer, ok := c.pipe.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
