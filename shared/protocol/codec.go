package protocol

import (
	"encoding/binary"
	"fmt"
)

// Packet is any value that can be framed onto the wire. It reports its
// type id; encoding its body is the job of the Packer registered for
// that id in a Codec.
type Packet interface {
	PacketType() uint16
}

// Unpacker decodes a packet body (the bytes following the u16 type id)
// into a fresh Packet value.
type Unpacker func(body []byte) (Packet, error)

// Packer encodes a Packet's body (not including the type id).
type Packer func(p Packet) ([]byte, error)

type codecEntry struct {
	pack   Packer
	unpack Unpacker
}

// Codec is a registry of packet type ids to pack/unpack functions.
// Registration is one-shot: a second Register call for the same id is
// an error. Server and client must construct codecs with the identical
// set of registrations for the wire to stay compatible.
type Codec struct {
	entries map[uint16]codecEntry
}

// NewCodec returns an empty codec. Callers typically follow with
// RegisterDefault to install the built-in packet set.
func NewCodec() *Codec {
	return &Codec{entries: make(map[uint16]codecEntry)}
}

// Register installs the pack/unpack pair for typeID. It returns an
// error if typeID is already registered.
func (c *Codec) Register(typeID uint16, pack Packer, unpack Unpacker) error {
	if _, exists := c.entries[typeID]; exists {
		return fmt.Errorf("protocol: codec registration collision for type %d (%s)", typeID, PacketTypeName(typeID))
	}
	c.entries[typeID] = codecEntry{pack: pack, unpack: unpack}
	return nil
}

// Pack encodes p as a u16 little-endian type id followed by its body.
func (c *Codec) Pack(p Packet) ([]byte, error) {
	entry, ok := c.entries[p.PacketType()]
	if !ok {
		return nil, fmt.Errorf("protocol: unknown packet type %d: %w", p.PacketType(), errUnknownPacketType)
	}
	body, err := entry.pack(p)
	if err != nil {
		return nil, fmt.Errorf("protocol: pack type %d: %w", p.PacketType(), err)
	}
	out := make([]byte, 2+len(body))
	binary.LittleEndian.PutUint16(out, p.PacketType())
	copy(out[2:], body)
	return out, nil
}

// Unpack reads the leading u16 type id from buf and dispatches to the
// registered unpacker for the remainder.
func (c *Codec) Unpack(buf []byte) (Packet, error) {
	if len(buf) < 2 {
		return nil, fmt.Errorf("protocol: packet shorter than type id: %w", errShortPayload)
	}
	typeID := binary.LittleEndian.Uint16(buf[:2])
	entry, ok := c.entries[typeID]
	if !ok {
		return nil, fmt.Errorf("protocol: unknown packet type %d: %w", typeID, errUnknownPacketType)
	}
	p, err := entry.unpack(buf[2:])
	if err != nil {
		return nil, fmt.Errorf("protocol: unpack type %d: %w", typeID, err)
	}
	return p, nil
}
