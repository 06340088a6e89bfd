package protocol

import "errors"

// Sentinel decode errors. Wrapped with context by Codec.Unpack/Pack;
// callers distinguish kinds with errors.Is.
var (
	errUnknownPacketType = errors.New("unknown packet type")
	errShortPayload      = errors.New("short payload")
)

// IsUnknownPacketType reports whether err is (or wraps) an unknown
// packet type id during decode.
func IsUnknownPacketType(err error) bool {
	return errors.Is(err, errUnknownPacketType)
}

// IsShortPayload reports whether err is (or wraps) a decode failure
// caused by a truncated payload.
func IsShortPayload(err error) bool {
	return errors.Is(err, errShortPayload) || errors.Is(err, errShortBuffer)
}
