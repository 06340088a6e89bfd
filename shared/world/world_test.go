package world

import (
	"testing"
	"time"

	"github.com/Machine-builder/tiny-treads/shared/clock"
	"github.com/Machine-builder/tiny-treads/shared/protocol"
)

func testRegistry() *EntityRegistry {
	r := NewEntityRegistry()
	r.Register("tank", func(id protocol.EntityID, w *World, initial Vec2) Entity {
		return Entity{ID: id, TypeTag: "tank", Position: initial}
	})
	r.Freeze()
	return r
}

type countingRenderer struct {
	ticks int
}

func (c *countingRenderer) Tick(e *Entity) {
	c.ticks++
}

func TestLocalEntityAuthority(t *testing.T) {
	clk := clock.NewManual(time.Unix(1000, 0))
	w := NewWorld(testRegistry(), false, clk)

	w.CreateEntity(Entity{ID: 7, TypeTag: "tank", Position: Vec2{X: 1, Y: 1}}, true)

	w.HandleNetworkEvent(protocol.EntityUpdatePhys{PhysState: protocol.PhysState{ID: 7, X: 99, Y: 99}})

	e, ok := w.Entity(7)
	if !ok {
		t.Fatal("entity 7 missing")
	}
	if e.Position.X == 99 || e.Position.Y == 99 {
		t.Fatalf("local entity was overwritten by inbound replication: %+v", e.Position)
	}
}

func TestSnapshotBufferBound(t *testing.T) {
	b := NewSnapshotBuffer()
	for i := 0; i < 61; i++ {
		b.Append(Snapshot{
			ReceiveTime: float64(i),
			States:      map[protocol.EntityID]protocol.PhysState{1: {ID: 1, X: float64(i)}},
		})
	}
	if b.Len() > protocol.SnapshotBufferCapacity {
		t.Fatalf("buffer len = %d, want <= %d", b.Len(), protocol.SnapshotBufferCapacity)
	}

	// The oldest snapshot (receive_time=0) should have been evicted;
	// interpolating at that instant now finds nothing bracketing it.
	if _, ok := b.Interpolate(0); ok {
		t.Fatal("interpolate(0) succeeded after eviction, want false")
	}
}

func TestInterpolationMonotonicity(t *testing.T) {
	b := NewSnapshotBuffer()
	b.Append(Snapshot{ReceiveTime: 0, States: map[protocol.EntityID]protocol.PhysState{1: {ID: 1, X: 0}}})
	b.Append(Snapshot{ReceiveTime: 1, States: map[protocol.EntityID]protocol.PhysState{1: {ID: 1, X: 10}}})

	var prev float64 = -1
	for _, rt := range []float64{0.0, 0.25, 0.5, 0.75, 1.0} {
		states, ok := b.Interpolate(rt)
		if !ok {
			t.Fatalf("Interpolate(%v) failed", rt)
		}
		x := states[1].X
		if x < prev {
			t.Fatalf("position not monotone: rt=%v x=%v prev=%v", rt, x, prev)
		}
		prev = x
	}
}

func TestInterpolationOmitsOneSidedEntities(t *testing.T) {
	b := NewSnapshotBuffer()
	b.Append(Snapshot{ReceiveTime: 0, States: map[protocol.EntityID]protocol.PhysState{1: {ID: 1, X: 0}, 2: {ID: 2, X: 0}}})
	b.Append(Snapshot{ReceiveTime: 1, States: map[protocol.EntityID]protocol.PhysState{1: {ID: 1, X: 10}}})

	states, ok := b.Interpolate(0.5)
	if !ok {
		t.Fatal("Interpolate failed")
	}
	if _, present := states[2]; present {
		t.Fatal("entity 2 present in only one snapshot but appeared in interpolation result")
	}
	if _, present := states[1]; !present {
		t.Fatal("entity 1 present in both snapshots but missing from interpolation result")
	}
}

func TestClientUpdateAppliesInterpolatedState(t *testing.T) {
	clk := clock.NewManual(time.Unix(1000, 0))
	w := NewWorld(testRegistry(), false, clk)

	r := &countingRenderer{}
	w.CreateEntity(Entity{ID: 9, TypeTag: "tank", Renderer: r}, false)
	w.CreateEntity(Entity{ID: 7, TypeTag: "tank", Position: Vec2{X: 5, Y: 5}}, true)

	// Two snapshots 100ms apart; entity 9 moves 0→10 on X, entity 7 is
	// also replicated but must stay under local authority.
	w.HandleNetworkEvent(protocol.EntityUpdatePhysMulti{
		RefTime: 0.0,
		Updates: []protocol.PhysState{
			{ID: 9, X: 0, Y: 0},
			{ID: 7, X: 50, Y: 50},
		},
	})
	clk.Advance(100 * time.Millisecond)
	w.HandleNetworkEvent(protocol.EntityUpdatePhysMulti{
		RefTime: 0.1,
		Updates: []protocol.PhysState{
			{ID: 9, X: 10, Y: 0},
			{ID: 7, X: 60, Y: 50},
		},
	})

	// Advance so render_time = now - 200ms lands midway between the two
	// receive times.
	clk.Advance(150 * time.Millisecond)
	w.Update(0.016)

	e9, ok := w.Entity(9)
	if !ok {
		t.Fatal("entity 9 missing")
	}
	if diff := e9.Position.X - 5; diff < -1e-6 || diff > 1e-6 {
		t.Fatalf("entity 9 X = %v, want interpolated midpoint 5", e9.Position.X)
	}
	if r.ticks != 1 {
		t.Fatalf("renderer ticked %d times, want 1", r.ticks)
	}

	e7, _ := w.Entity(7)
	if e7.Position.X != 5 || e7.Position.Y != 5 {
		t.Fatalf("local entity 7 position = %+v, want untouched (5,5)", e7.Position)
	}
}

func TestClientEntityCreateInsertsNonLocal(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	w := NewWorld(testRegistry(), false, clk)

	w.HandleNetworkEvent(protocol.EntityCreate{ID: 4, TypeTag: "tank"})

	e, ok := w.Entity(4)
	if !ok {
		t.Fatal("entity 4 not created")
	}
	if e.TypeTag != "tank" {
		t.Fatalf("type tag = %q, want %q", e.TypeTag, "tank")
	}
	if w.IsLocal(4) {
		t.Fatal("freshly replicated entity must not be local")
	}

	// An unregistered tag is dropped, not a crash.
	w.HandleNetworkEvent(protocol.EntityCreate{ID: 5, TypeTag: "ghost"})
	if _, ok := w.Entity(5); ok {
		t.Fatal("entity with unregistered tag was created")
	}
}

func TestRendererInertnessOnServer(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	w := NewWorld(testRegistry(), true, clk)

	r := &countingRenderer{}
	w.CreateEntity(Entity{ID: 1, TypeTag: "tank", Renderer: r}, true)

	w.Update(0.1)

	if r.ticks != 0 {
		t.Fatalf("server world invoked renderer %d times, want 0", r.ticks)
	}
}

func TestServerUpdateIntegratesPhysics(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	w := NewWorld(testRegistry(), true, clk)
	w.CreateEntity(Entity{ID: 1, TypeTag: "tank", Position: Vec2{X: 0, Y: 0}}, true)
	e, _ := w.Entity(1)
	e.Velocity.X = 10

	w.Update(1.0)

	if e.Position.X <= 0 {
		t.Fatalf("position.X = %v, want > 0 after integration", e.Position.X)
	}
	if e.Velocity.X >= 10 {
		t.Fatalf("velocity.X = %v, want damped below 10", e.Velocity.X)
	}
}

func TestEntityIDAllocationAvoidsCollision(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	w := NewWorld(testRegistry(), true, clk)

	seen := make(map[protocol.EntityID]bool)
	for i := 0; i < 50; i++ {
		id := w.AssignNewEntityID()
		if seen[id] {
			t.Fatalf("duplicate entity id %d allocated", id)
		}
		seen[id] = true
		w.CreateEntity(Entity{ID: id, TypeTag: "tank"}, false)
	}
}

func TestEntityDestroyRemovesFromLocalSet(t *testing.T) {
	clk := clock.NewManual(time.Unix(0, 0))
	w := NewWorld(testRegistry(), false, clk)
	w.CreateEntity(Entity{ID: 1, TypeTag: "tank"}, true)

	w.HandleNetworkEvent(protocol.EntityDestroy{ID: 1})

	if _, ok := w.Entity(1); ok {
		t.Fatal("entity 1 still present after EntityDestroy")
	}
	if w.IsLocal(1) {
		t.Fatal("entity 1 still marked local after destroy")
	}
}

func TestPumpNetworkEventsClientOnlyLocal(t *testing.T) {
	clk := clock.NewManual(time.Unix(100, 0))
	w := NewWorld(testRegistry(), false, clk)
	w.CreateEntity(Entity{ID: 1, TypeTag: "tank"}, true)
	w.CreateEntity(Entity{ID: 2, TypeTag: "tank"}, false)

	_, udpOut := w.PumpNetworkEvents()
	if len(udpOut) != 1 {
		t.Fatalf("len(udpOut) = %d, want 1", len(udpOut))
	}
	multi := udpOut[0].(protocol.EntityUpdatePhysMulti)
	if len(multi.Updates) != 1 || multi.Updates[0].ID != 1 {
		t.Fatalf("updates = %+v, want only entity 1", multi.Updates)
	}
}
