package world

import (
	"fmt"

	"github.com/Machine-builder/tiny-treads/shared/protocol"
)

// Constructor builds an Entity of a registered type tag. initial is
// the spawn position; the entity's own physics defaults (velocity,
// rotation) are the constructor's concern.
type Constructor func(id protocol.EntityID, w *World, initial Vec2) Entity

// EntityRegistry maps type tags to constructors. It is populated only
// during startup via Register and then sealed with Freeze; Construct
// is the only operation permitted afterward.
type EntityRegistry struct {
	constructors map[string]Constructor
	frozen       bool
}

// NewEntityRegistry returns an empty, unfrozen registry.
func NewEntityRegistry() *EntityRegistry {
	return &EntityRegistry{constructors: make(map[string]Constructor)}
}

// Register adds a constructor for typeTag. Panics if called after
// Freeze: registration order belongs to startup, not to the game loop.
func (r *EntityRegistry) Register(typeTag string, ctor Constructor) {
	if r.frozen {
		panic(fmt.Sprintf("world: EntityRegistry.Register(%q) called after Freeze", typeTag))
	}
	r.constructors[typeTag] = ctor
}

// Freeze seals the registry. Called once, after all Register calls,
// before the first World using it starts ticking.
func (r *EntityRegistry) Freeze() {
	r.frozen = true
}

// Construct builds a new Entity for typeTag, or an error if typeTag
// was never registered.
func (r *EntityRegistry) Construct(typeTag string, id protocol.EntityID, w *World, initial Vec2) (Entity, error) {
	ctor, ok := r.constructors[typeTag]
	if !ok {
		return Entity{}, fmt.Errorf("world: no constructor registered for type tag %q", typeTag)
	}
	return ctor(id, w, initial), nil
}
