// Package wire defines the JSON shapes exchanged with the remote peer.
//
// Message is the "envelope" for every command. It gets serialized to JSON and
// wrapped in a protocol frame for transmission over the duplex pipe.
package wire

// Message carries the data for a single command request, response, or event.
//
//   - On request:  GUID targets a remote object, Method is set, Params carries
//     the command arguments, Result and Error are empty.
//   - On response: Result carries the returned wire value, Error is non-empty
//     if the remote handler failed. Request/response matching uses the frame
//     header's sequence number, not the body.
//   - On event:    GUID names the originating object, Method names the event,
//     Params carries the event payload.
type Message struct {
	GUID   string `json:"guid,omitempty"`
	Method string `json:"method,omitempty"`
	Params any    `json:"params,omitempty"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Envelope packages one encoded call argument: the tagged wire value plus the
// ordered list of remote-object identifiers referenced from inside it. The
// index embedded in an `h` node is always a position in Handles.
type Envelope struct {
	Value   any      `json:"value"`
	Handles []string `json:"handles"`
}
