// Package world holds the client-side (and server-side) entity table:
// physics integration, authoritative-vs-local classification, and the
// snapshot-buffered interpolation pipeline that turns a stream of
// EntityUpdatePhysMulti packets into smooth rendered positions.
package world

import "github.com/Machine-builder/tiny-treads/shared/protocol"

// Vec2 is a plain f64 2D vector, used for entity positions and spawn
// points. Velocities are stored separately as a pair of float32.
type Vec2 struct {
	X, Y float64
}

// Renderer is the opaque visual handle an entity owns. The world never
// interprets it beyond calling Tick once per update; is_server worlds
// never call it at all (renderer inertness on server).
type Renderer interface {
	Tick(e *Entity)
}

// Entity is the replication-side view of a game object: an id, its
// type tag, physics state, and an optional renderer handle.
type Entity struct {
	ID              protocol.EntityID
	TypeTag         string
	Position        Vec2
	Velocity        struct{ X, Y float32 }
	Rotation        float32
	AngularVelocity float32
	Renderer        Renderer
}

// ApplyPhysState overwrites e's physics fields from a wire PhysState.
func (e *Entity) ApplyPhysState(s protocol.PhysState) {
	e.Position.X = s.X
	e.Position.Y = s.Y
	e.Velocity.X = s.VX
	e.Velocity.Y = s.VY
	e.Rotation = s.Rot
	e.AngularVelocity = s.RotVel
}

// ToPhysState projects e's current physics into the wire tuple.
func (e *Entity) ToPhysState() protocol.PhysState {
	return protocol.PhysState{
		ID:     e.ID,
		X:      e.Position.X,
		Y:      e.Position.Y,
		VX:     e.Velocity.X,
		VY:     e.Velocity.Y,
		Rot:    e.Rotation,
		RotVel: e.AngularVelocity,
	}
}

// Integrate advances e's physics by dt seconds using the server's
// authoritative integration rule: position += velocity*dt, then
// velocity *= (1 - drag*dt).
func (e *Entity) Integrate(dt float64) {
	e.Position.X += float64(e.Velocity.X) * dt
	e.Position.Y += float64(e.Velocity.Y) * dt
	e.Rotation += float32(dt) * e.AngularVelocity

	damp := float32(1 - protocol.EntityDrag*dt)
	e.Velocity.X *= damp
	e.Velocity.Y *= damp
	e.AngularVelocity *= damp
}
