// Package protocol implements the binary frame format carried over the duplex
// pipe to the remote peer.
//
// The pipe is a byte stream, so frame boundaries must be explicit: a fixed
// 13-byte header is followed by a variable-length body. The receiver reads the
// header first to learn the body length, then reads exactly that many bytes.
//
// Frame format:
//
//	0      3  4  5         9         13
//	┌──────┬──┬──┬─────────┬─────────┬───────────────┐
//	│magic │v │mt│   seq   │ bodyLen │    body ...    │
//	│ owp  │01│  │ uint32  │ uint32  │ bodyLen bytes  │
//	└──────┴──┴──┴─────────┴─────────┴───────────────┘
//
// The body is the JSON-encoded wire.Message.
package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Magic number bytes: "owp" (object wire protocol).
// Used to quickly reject byte streams that are not speaking this protocol.
const (
	MagicNumber byte = 0x6f // 'o'
	MagicByte2  byte = 0x77 // 'w'
	MagicByte3  byte = 0x70 // 'p'
	Version     byte = 0x01
	HeaderSize  int  = 13 // 3 (magic) + 1 (version) + 1 (msgType) + 4 (seq) + 4 (bodyLen)
)

// MsgType distinguishes the four frame kinds on the pipe.
type MsgType byte

const (
	MsgTypeRequest   MsgType = 0 // Local → remote command, awaits a response
	MsgTypeResponse  MsgType = 1 // Remote → local reply, seq matches the request
	MsgTypeEvent     MsgType = 2 // Remote → local notification, no seq pairing
	MsgTypeHeartbeat MsgType = 3 // KeepAlive probe (no body)
)

// Header represents the fixed 13-byte frame header.
type Header struct {
	MsgType MsgType // Request, Response, Event, or Heartbeat
	Seq     uint32  // Sequence ID — pairs a response with its request
	BodyLen uint32  // Body length in bytes — defines the frame boundary
}

// Encode writes a complete frame (header + body) to w.
// The caller must hold a write lock if multiple goroutines share the same
// writer, otherwise frames from different calls interleave and corrupt the
// stream.
func Encode(w io.Writer, h *Header, body []byte) error {
	buf := make([]byte, HeaderSize)

	// Magic number: 3 bytes — protocol identification
	copy(buf[0:3], []byte{MagicNumber, MagicByte2, MagicByte3})
	// Version: 1 byte — for future protocol upgrades
	buf[3] = Version
	// Message type: 1 byte
	buf[4] = byte(h.MsgType)
	// Sequence number: 4 bytes, big-endian (network byte order)
	binary.BigEndian.PutUint32(buf[5:9], h.Seq)
	// Body length: 4 bytes, big-endian
	binary.BigEndian.PutUint32(buf[9:13], h.BodyLen)

	if _, err := w.Write(buf); err != nil {
		return err
	}
	// Body may be nil for heartbeat frames
	if _, err := w.Write(body); err != nil {
		return err
	}
	return nil
}

// Decode reads a complete frame (header + body) from r.
// It validates the magic number, version, and message type, and uses
// io.ReadFull so partial reads never split a frame.
func Decode(r io.Reader) (*Header, []byte, error) {
	headerBuf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, headerBuf); err != nil {
		return nil, nil, err
	}

	if headerBuf[0] != MagicNumber || headerBuf[1] != MagicByte2 || headerBuf[2] != MagicByte3 {
		return nil, nil, fmt.Errorf("invalid magic number: %x", headerBuf[0:3])
	}

	if headerBuf[3] != Version {
		return nil, nil, fmt.Errorf("unsupported version: %d", headerBuf[3])
	}

	msgType := headerBuf[4]
	if msgType > byte(MsgTypeHeartbeat) {
		return nil, nil, fmt.Errorf("unsupported message type: %d", msgType)
	}

	seq := binary.BigEndian.Uint32(headerBuf[5:9])
	bodyLen := binary.BigEndian.Uint32(headerBuf[9:13])

	// Read exactly bodyLen bytes — the header is the only source of truth
	// for where this frame ends.
	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, nil, err
	}

	return &Header{
		MsgType: MsgType(msgType),
		Seq:     seq,
		BodyLen: bodyLen,
	}, body, nil
}
