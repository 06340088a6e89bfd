// Package protocol implements the wire format shared by the TCP+UDP
// hybrid transport: a typed little-endian packet codec and the fixed
// ASCII-decimal TCP frame header. It is the single source of truth for
// byte layout; both the server and the client must register the
// identical codec for the wire to stay compatible.
package protocol

import "time"

// ClientID identifies a connected client for the lifetime of its
// session. It is assigned at TCP accept time and freed on disconnect.
// It is never reused while the client is live.
type ClientID uint16

// EntityID identifies an entity within a World. Allocated by
// AssignNewEntityID, uniform random over the full 16-bit space with
// collision retry against the live entity table.
type EntityID uint16

// Packet type ids. These match the reference wire format byte-for-byte
// and must not be renumbered.
const (
	TypeInitTCP   uint16 = 1
	TypeInitUDP   uint16 = 2
	TypeInitFinal uint16 = 3
	TypeRTTPing   uint16 = 4

	TypeEntityCreate          uint16 = 301
	TypeEntityDestroy         uint16 = 302
	TypeEntityUpdateAttr      uint16 = 303
	TypeEntityUpdatePhys      uint16 = 304
	TypeEntityUpdatePhysMulti uint16 = 305

	TypeClientSetLocalEntity uint16 = 401
)

// Framing and transport constants.
const (
	// TCPHeaderSize is the fixed length of the ASCII decimal length
	// prefix written ahead of every TCP frame.
	TCPHeaderSize = 16

	// UDPMaxDatagram is the largest UDP payload the transport will
	// send or accept. Oversize outgoing payloads are rejected with an
	// error; oversize incoming datagrams are dropped silently.
	UDPMaxDatagram = 8096

	// TypeTagSize is the fixed width of an entity type tag on the wire.
	TypeTagSize = 16

	DefaultTCPPort = 9183
	DefaultUDPPort = 9184
)

// Handshake and replication timing constants.
const (
	HandshakeFirstRetryDelay = 2500 * time.Millisecond
	HandshakeRetryDelay      = 1000 * time.Millisecond
	HandshakeMaxRetries      = 5

	RenderDelay            = 200 * time.Millisecond
	SnapshotBufferCapacity = 60

	EntityDrag = 0.1
)

// PacketTypeName returns a human-readable name for a packet type id,
// falling back to "UNKNOWN" for anything not in the default registry.
func PacketTypeName(typeID uint16) string {
	switch typeID {
	case TypeInitTCP:
		return "INIT_TCP"
	case TypeInitUDP:
		return "INIT_UDP"
	case TypeInitFinal:
		return "INIT_FINAL"
	case TypeRTTPing:
		return "RTT_PING"
	case TypeEntityCreate:
		return "ENTITY_CREATE"
	case TypeEntityDestroy:
		return "ENTITY_DESTROY"
	case TypeEntityUpdateAttr:
		return "ENTITY_UPDATE_ATTR"
	case TypeEntityUpdatePhys:
		return "ENTITY_UPDATE_PHYS"
	case TypeEntityUpdatePhysMulti:
		return "ENTITY_UPDATE_PHYS_MULTI"
	case TypeClientSetLocalEntity:
		return "CLIENT_SET_LOCAL_ENTITY"
	default:
		return "UNKNOWN"
	}
}
