package world

import (
	"math/rand"

	"github.com/Machine-builder/tiny-treads/shared/clock"
	"github.com/Machine-builder/tiny-treads/shared/protocol"
)

// World owns the entity table and drives either authoritative physics
// (server) or replication and interpolation (client). isServer is
// fixed at construction; it governs both Update's behavior and the
// renderer-inertness invariant (a server World never touches an
// Entity's Renderer).
type World struct {
	registry  *EntityRegistry
	isServer  bool
	clock     clock.Clock
	createdAt float64

	entities map[protocol.EntityID]*Entity
	local    map[protocol.EntityID]bool

	snapshots *SnapshotBuffer
}

// NewWorld returns a World in server or client mode, backed by
// registry for EntityCreate dispatch and clk for all time reads.
func NewWorld(registry *EntityRegistry, isServer bool, clk clock.Clock) *World {
	return &World{
		registry:  registry,
		isServer:  isServer,
		clock:     clk,
		createdAt: clock.Seconds(clk.Now()),
		entities:  make(map[protocol.EntityID]*Entity),
		local:     make(map[protocol.EntityID]bool),
		snapshots: NewSnapshotBuffer(),
	}
}

func (w *World) now() float64 {
	return clock.Seconds(w.clock.Now())
}

// CreateEntity inserts e into the table, flagging it local or not.
func (w *World) CreateEntity(e Entity, isLocal bool) {
	ent := e
	w.entities[e.ID] = &ent
	if isLocal {
		w.local[e.ID] = true
	}
}

// DestroyEntity removes id from the table and the local set.
func (w *World) DestroyEntity(id protocol.EntityID) {
	delete(w.entities, id)
	delete(w.local, id)
}

// SetEntityLocal adds or removes id from the local set.
func (w *World) SetEntityLocal(id protocol.EntityID, flag bool) {
	if flag {
		w.local[id] = true
	} else {
		delete(w.local, id)
	}
}

// IsLocal reports whether id is in the local set.
func (w *World) IsLocal(id protocol.EntityID) bool {
	return w.local[id]
}

// Entity returns the live entity for id, if any.
func (w *World) Entity(id protocol.EntityID) (*Entity, bool) {
	e, ok := w.entities[id]
	return e, ok
}

// AssignNewEntityID picks a 16-bit id uniformly at random, retrying on
// collision with the live entity table.
func (w *World) AssignNewEntityID() protocol.EntityID {
	for {
		id := protocol.EntityID(rand.Intn(65536))
		if _, exists := w.entities[id]; !exists {
			return id
		}
	}
}

// HandleNetworkEvent dispatches one replication packet. The dispatch is
// the same in both modes; in server mode an EntityUpdatePhysMulti only
// lands in the snapshot buffer, which server-mode Update never reads.
func (w *World) HandleNetworkEvent(p protocol.Packet) {
	switch pkt := p.(type) {
	case protocol.EntityCreate:
		e, err := w.registry.Construct(pkt.TypeTag, pkt.ID, w, Vec2{})
		if err != nil {
			return
		}
		w.CreateEntity(e, false)
	case protocol.EntityDestroy:
		w.DestroyEntity(pkt.ID)
	case protocol.EntityUpdatePhys:
		if w.local[pkt.ID] {
			return
		}
		if e, ok := w.entities[pkt.ID]; ok {
			e.ApplyPhysState(pkt.PhysState)
		}
	case protocol.EntityUpdatePhysMulti:
		states := make(map[protocol.EntityID]protocol.PhysState, len(pkt.Updates))
		for _, s := range pkt.Updates {
			states[s.ID] = s
		}
		w.snapshots.Append(Snapshot{
			ReferenceTime: pkt.RefTime,
			ReceiveTime:   w.now(),
			States:        states,
		})
	case protocol.ClientSetLocalEntity:
		w.SetEntityLocal(pkt.ID, pkt.IsLocal)
	}
}

// Update advances the world by dt seconds.
//
// Server mode integrates every entity's physics authoritatively.
// Client mode interpolates non-local entities from the snapshot buffer
// at render_time = now - RenderDelay, ticks every entity's renderer,
// then advances local entities' physics directly by dt.
func (w *World) Update(dt float64) {
	if w.isServer {
		for _, e := range w.entities {
			e.Integrate(dt)
		}
		return
	}

	renderTime := w.now() - protocol.RenderDelay.Seconds()
	if states, ok := w.snapshots.Interpolate(renderTime); ok {
		for id, s := range states {
			if w.local[id] {
				continue
			}
			if e, exists := w.entities[id]; exists {
				e.ApplyPhysState(s)
			}
		}
	}

	for _, e := range w.entities {
		if e.Renderer != nil {
			e.Renderer.Tick(e)
		}
	}

	for id := range w.local {
		if e, ok := w.entities[id]; ok {
			e.Integrate(dt)
		}
	}
}

// PumpNetworkEvents produces the outbound replication digest for this
// tick. Server mode emits every entity's physics over UDP; client mode
// emits only the local set, both as a single EntityUpdatePhysMulti.
func (w *World) PumpNetworkEvents() (tcpOut, udpOut []protocol.Packet) {
	var ids map[protocol.EntityID]bool
	if w.isServer {
		ids = nil // all entities
	} else {
		ids = w.local
	}

	updates := make([]protocol.PhysState, 0, len(w.entities))
	for id, e := range w.entities {
		if ids != nil && !ids[id] {
			continue
		}
		updates = append(updates, e.ToPhysState())
	}

	if len(updates) == 0 {
		return nil, nil
	}

	refTime := w.now() - w.createdAt
	udpOut = []protocol.Packet{protocol.EntityUpdatePhysMulti{RefTime: refTime, Updates: updates}}
	return nil, udpOut
}
