package world

import "github.com/Machine-builder/tiny-treads/shared/protocol"

// Snapshot is a timestamped batch of authoritative physics states.
// ReferenceTime is the sender's clock at send time; ReceiveTime is the
// local clock at ingest. History is ordered by ReceiveTime.
type Snapshot struct {
	ReferenceTime float64
	ReceiveTime   float64
	States        map[protocol.EntityID]protocol.PhysState
}

// SnapshotBuffer is a bounded FIFO of snapshots supporting
// time-indexed linear interpolation. Capacity is fixed at
// protocol.SnapshotBufferCapacity; Append evicts the oldest entry once
// full.
type SnapshotBuffer struct {
	entries []Snapshot
}

// NewSnapshotBuffer returns an empty buffer.
func NewSnapshotBuffer() *SnapshotBuffer {
	return &SnapshotBuffer{entries: make([]Snapshot, 0, protocol.SnapshotBufferCapacity)}
}

// Append adds s to the buffer, evicting the oldest entry if the buffer
// is already at capacity.
func (b *SnapshotBuffer) Append(s Snapshot) {
	if len(b.entries) >= protocol.SnapshotBufferCapacity {
		b.entries = b.entries[1:]
	}
	b.entries = append(b.entries, s)
}

// Len returns the number of snapshots currently held.
func (b *SnapshotBuffer) Len() int {
	return len(b.entries)
}

// Interpolate finds the pair of adjacent snapshots bracketing
// renderTime and returns a per-entity linear blend between them. Only
// entities present in both bracketing snapshots are included. Returns
// (nil, false) when fewer than two snapshots exist or renderTime falls
// outside the buffered range.
//
// Rotation is blended linearly like every other field; the −π/π wrap
// is not corrected (acceptable for this domain's small per-tick
// deltas, see the interpolation note on rotation).
func (b *SnapshotBuffer) Interpolate(renderTime float64) (map[protocol.EntityID]protocol.PhysState, bool) {
	if len(b.entries) < 2 {
		return nil, false
	}

	idx := -1
	for i := 0; i < len(b.entries)-1; i++ {
		if b.entries[i].ReceiveTime <= renderTime && renderTime <= b.entries[i+1].ReceiveTime {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, false
	}

	s1, s2 := b.entries[idx], b.entries[idx+1]
	span := s2.ReceiveTime - s1.ReceiveTime
	var t float64
	if span > 0 {
		t = (renderTime - s1.ReceiveTime) / span
	}

	out := make(map[protocol.EntityID]protocol.PhysState)
	for id, a := range s1.States {
		c, ok := s2.States[id]
		if !ok {
			continue
		}
		out[id] = lerpPhysState(a, c, t)
	}
	return out, true
}

func lerpPhysState(a, c protocol.PhysState, t float64) protocol.PhysState {
	ft := float32(t)
	return protocol.PhysState{
		ID:     a.ID,
		X:      a.X + (c.X-a.X)*t,
		Y:      a.Y + (c.Y-a.Y)*t,
		VX:     a.VX + (c.VX-a.VX)*ft,
		VY:     a.VY + (c.VY-a.VY)*ft,
		Rot:    a.Rot + (c.Rot-a.Rot)*ft,
		RotVel: a.RotVel + (c.RotVel-a.RotVel)*ft,
	}
}
