package world

import (
	"testing"

	"github.com/Machine-builder/tiny-treads/shared/protocol"
)

func TestRegistryConstructUnknownTag(t *testing.T) {
	r := NewEntityRegistry()
	r.Freeze()

	_, err := r.Construct("nonexistent", 1, nil, Vec2{})
	if err == nil {
		t.Fatal("Construct with unregistered tag succeeded, want error")
	}
}

func TestRegistryRegisterAfterFreezePanics(t *testing.T) {
	r := NewEntityRegistry()
	r.Freeze()

	defer func() {
		if recover() == nil {
			t.Fatal("Register after Freeze did not panic")
		}
	}()
	r.Register("tank", func(id protocol.EntityID, w *World, initial Vec2) Entity {
		return Entity{ID: id}
	})
}

func TestRegistryConstructInvokesConstructor(t *testing.T) {
	r := NewEntityRegistry()
	r.Register("tank", func(id protocol.EntityID, w *World, initial Vec2) Entity {
		return Entity{ID: id, TypeTag: "tank", Position: initial}
	})
	r.Freeze()

	e, err := r.Construct("tank", 5, nil, Vec2{X: 1, Y: 2})
	if err != nil {
		t.Fatalf("Construct: %v", err)
	}
	if e.ID != 5 || e.TypeTag != "tank" || e.Position != (Vec2{X: 1, Y: 2}) {
		t.Fatalf("unexpected entity: %+v", e)
	}
}
