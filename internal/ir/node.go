package ir

import (
	"github.com/google/uuid"

	"github.com/rina-forks/gtirb/internal/addr"
)

// Node is implemented by every entity allocated in a Context.
type Node interface {
	// UUID returns the entity's identifier.
	UUID() uuid.UUID

	// Kind returns the concrete entity type.
	Kind() Kind

	// Context returns the arena that owns the entity.
	Context() *Context

	nodeBase() *node
}

// node carries the identity shared by all entities.
type node struct {
	ctx *Context
	id  uuid.UUID

	// seq orders entities with equal addresses; it never changes.
	seq uint64

	// indexed is the key the entity is currently stored under in its
	// module's address index, or addr.Bad when it is not stored there.
	indexed addr.Addr
}

// UUID returns the identifier registered for the entity.
func (n *node) UUID() uuid.UUID { return n.id }
// Context returns the arena the entity was allocated in.
func (n *node) Context() *Context { return n.ctx }
func (n *node) nodeBase() *node { return n }

func sameContext(parent, child Node) {
	if parent.Context() != child.Context() {
		invariantf("%s %s and %s %s belong to different contexts",
			parent.Kind(), parent.UUID(), child.Kind(), child.UUID())
	}
}
