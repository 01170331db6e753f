// Package codec implements the bidirectional value-marshalling core: it
// converts native in-process values into a transport-safe tagged wire
// representation and reconstructs native values from it.
//
// Wire values are plain JSON-compatible trees. Ordinary primitives (bool,
// integer, finite float, string) travel as raw literals; everything that a
// naive JSON encoding cannot represent is wrapped in a single-key tagged node:
//
//	{"v": ...}  scalar sentinel ("undefined", "null", "NaN", "Infinity", "-Infinity", "-0")
//	{"d": ...}  ISO-8601 timestamp in UTC with a trailing "Z"
//	{"a": ...}  ordered sequence of nodes
//	{"o": ...}  string-keyed mapping of nodes
//	{"h": ...}  zero-based index into the call's handle list
//
// Remote-object references never carry content across the pipe: the encoder
// substitutes an index and collects the referenced identifiers into a side
// list (the Envelope's handles), which the decoder resolves back to live
// objects through a caller-supplied resolver.
package codec

import "errors"

// MaxDepth is the recursion ceiling for encoding. Values nested deeper than
// this (including cyclic structures, which would otherwise recurse forever)
// abort the call with ErrDepthExceeded.
const MaxDepth = 100

// ErrDepthExceeded is returned by Encode when the input exceeds MaxDepth.
// No partial result is produced.
var ErrDepthExceeded = errors.New("maximum argument depth exceeded")

// Ref is a remote-object reference: an opaque handle to a value that lives
// only in the remote process. The encoder forwards its identifier verbatim;
// it never attempts to serialize the referenced object's content.
type Ref interface {
	RefID() string
}

// HandleList is the ordered side channel of remote-object identifiers built
// during one encode call. Append-only: each Ref occurrence gets its own index,
// duplicates included.
type HandleList []string

// ResolveFunc maps a handle index from an `h` node back to the live
// remote-object reference known to the surrounding system. Resolution
// failures propagate out of Decode unwrapped.
type ResolveFunc func(index int) (any, error)

// Wire node tag keys.
const (
	tagScalar = "v"
	tagDate   = "d"
	tagArray  = "a"
	tagObject = "o"
	tagHandle = "h"
)

// Scalar sentinel strings for values JSON cannot carry natively.
const (
	sentinelUndefined = "undefined"
	sentinelNull      = "null"
	sentinelNaN       = "NaN"
	sentinelPosInf    = "Infinity"
	sentinelNegInf    = "-Infinity"
	sentinelNegZero   = "-0"
)

// wireDateLayout renders timestamps already rebased to UTC, so the RFC 3339
// offset always collapses to the trailing "Z" the wire form requires.
// Sub-second digits are emitted only when present.
const wireDateLayout = "2006-01-02T15:04:05.999999999Z07:00"

// parseDateLayout parses the date payload after its trailing "Z" has been
// stripped; the fractional part is optional.
const parseDateLayout = "2006-01-02T15:04:05.999999999"
