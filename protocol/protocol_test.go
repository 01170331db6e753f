package protocol

import (
	"bytes"
	"testing"
)

func TestEncodeDecode(t *testing.T) {
	header := Header{
		MsgType: MsgTypeRequest,
		Seq:     12345,
		BodyLen: 11,
	}
	body := []byte(`{"guid":""}`)

	var buf bytes.Buffer
	if err := Encode(&buf, &header, body); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decodedHeader, decodedBody, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if decodedHeader.MsgType != header.MsgType {
		t.Errorf("MsgType mismatch: got %d, want %d", decodedHeader.MsgType, header.MsgType)
	}
	if decodedHeader.Seq != header.Seq {
		t.Errorf("Seq mismatch: got %d, want %d", decodedHeader.Seq, header.Seq)
	}
	if decodedHeader.BodyLen != header.BodyLen {
		t.Errorf("BodyLen mismatch: got %d, want %d", decodedHeader.BodyLen, header.BodyLen)
	}
	if !bytes.Equal(decodedBody, body) {
		t.Errorf("Body mismatch: got %s, want %s", string(decodedBody), string(body))
	}
}

func TestDecodeInvalidMagic(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0x00, 0x00, 0x00, Version, byte(MsgTypeRequest), 0, 0, 0x30, 0x39, 0, 0, 0, 0})

	_, _, err := Decode(&buf)
	if err == nil {
		t.Fatal("expected error for invalid magic number, got nil")
	}
	if !bytes.Contains([]byte(err.Error()), []byte("invalid magic number")) {
		t.Errorf("error should mention the magic number, got: %v", err)
	}
}

func TestDecodeInvalidVersion(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{
		MagicNumber, MagicByte2, MagicByte3,
		0xFF, // wrong version
		byte(MsgTypeRequest),
		0, 0, 0, 1, // seq
		0, 0, 0, 0, // bodyLen
	})

	_, _, err := Decode(&buf)
	if err == nil {
		t.Fatal("expected error for unsupported version, got nil")
	}
	if !bytes.Contains([]byte(err.Error()), []byte("unsupported version")) {
		t.Errorf("error should mention the version, got: %v", err)
	}
}

func TestDecodeInvalidMsgType(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{
		MagicNumber, MagicByte2, MagicByte3,
		Version,
		0x09, // no such message type
		0, 0, 0, 1,
		0, 0, 0, 0,
	})

	_, _, err := Decode(&buf)
	if err == nil {
		t.Fatal("expected error for unsupported message type, got nil")
	}
}

func TestHeartbeatEmptyBody(t *testing.T) {
	header := Header{
		MsgType: MsgTypeHeartbeat,
		Seq:     0,
		BodyLen: 0,
	}
	var buf bytes.Buffer
	if err := Encode(&buf, &header, nil); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decodedHeader, decodedBody, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decodedHeader.MsgType != MsgTypeHeartbeat {
		t.Errorf("MsgType mismatch: got %d, want %d", decodedHeader.MsgType, MsgTypeHeartbeat)
	}
	if len(decodedBody) != 0 {
		t.Errorf("expected empty body, got length %d", len(decodedBody))
	}
}

func TestDecodeLargeBody(t *testing.T) {
	largeBody := make([]byte, 1024*1024)
	for i := range largeBody {
		largeBody[i] = byte(i % 256)
	}

	header := &Header{
		MsgType: MsgTypeResponse,
		Seq:     999,
		BodyLen: uint32(len(largeBody)),
	}

	var buf bytes.Buffer
	if err := Encode(&buf, header, largeBody); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	_, decodedBody, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !bytes.Equal(decodedBody, largeBody) {
		t.Error("large body content mismatch")
	}
}

func TestDecodeBackToBackFrames(t *testing.T) {
	// Two frames written into one buffer must come out at the right boundaries
	var buf bytes.Buffer
	first := []byte("first")
	second := []byte("the second body")

	if err := Encode(&buf, &Header{MsgType: MsgTypeRequest, Seq: 1, BodyLen: uint32(len(first))}, first); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if err := Encode(&buf, &Header{MsgType: MsgTypeRequest, Seq: 2, BodyLen: uint32(len(second))}, second); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	h1, b1, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode of first frame failed: %v", err)
	}
	if h1.Seq != 1 || !bytes.Equal(b1, first) {
		t.Errorf("first frame mismatch: seq=%d body=%q", h1.Seq, b1)
	}

	h2, b2, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode of second frame failed: %v", err)
	}
	if h2.Seq != 2 || !bytes.Equal(b2, second) {
		t.Errorf("second frame mismatch: seq=%d body=%q", h2.Seq, b2)
	}
}
