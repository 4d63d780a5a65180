package ir

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/rina-forks/gtirb/internal/addr"
)

// IDGenerator produces identifiers for newly allocated entities.
type IDGenerator interface {
	NewID() uuid.UUID
}

// RandomIDs generates random (version 4) UUIDs.
//
// Thread-safety: RandomIDs is stateless and safe for concurrent use.
type RandomIDs struct{}

// NewID returns a fresh random UUID.
func (RandomIDs) NewID() uuid.UUID {
	return uuid.New()
}

// maxIDAttempts bounds how many times allocation retries a generator that
// keeps returning live identifiers.
const maxIDAttempts = 16

// Context is the arena that owns every entity allocated in it, and the
// registry mapping each live UUID to its entity.
//
// Entities remain valid until the Context is closed. A Context is not safe
// for concurrent use.
type Context struct {
	nodes  map[uuid.UUID]Node
	ids    IDGenerator
	logger *slog.Logger
	seq    uint64
	closed bool
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithIDGenerator sets the identifier source used for new entities.
func WithIDGenerator(g IDGenerator) ContextOption {
	return func(c *Context) {
		if g != nil {
			c.ids = g
		}
	}
}

// WithLogger sets the logger used for registry diagnostics.
func WithLogger(l *slog.Logger) ContextOption {
	return func(c *Context) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewContext creates an empty Context.
func NewContext(opts ...ContextOption) *Context {
	c := &Context{
		nodes:  make(map[uuid.UUID]Node),
		ids:    RandomIDs{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Len returns the number of live entities.
func (c *Context) Len() int {
	return len(c.nodes)
}

// Lookup resolves id to its live entity, or nil.
func (c *Context) Lookup(id uuid.UUID) Node {
	return c.nodes[id]
}

// Lookup resolves id to a live entity of type T. It reports false if id is
// not live or names an entity of another kind.
func Lookup[T Node](c *Context, id uuid.UUID) (T, bool) {
	n, ok := c.nodes[id].(T)
	return n, ok
}

// SetUUID re-registers n under id. The old identifier stops resolving.
// If id already belongs to another live entity, nothing changes and a
// DUPLICATE_IDENTIFIER error is returned.
func (c *Context) SetUUID(n Node, id uuid.UUID) error {
	c.checkOpen()
	b := n.nodeBase()
	if b.ctx != c {
		invariantf("%s %s belongs to another context", n.Kind(), b.id)
	}
	if b.id == id {
		return nil
	}
	if other, ok := c.nodes[id]; ok && other != n {
		return NewDuplicateIdentifierError(id)
	}
	if c.nodes[b.id] == n {
		delete(c.nodes, b.id)
	}
	c.logger.Debug("identifier reassigned",
		"kind", n.Kind().String(),
		"from", b.id.String(),
		"to", id.String(),
	)
	b.id = id
	c.nodes[id] = n
	return nil
}

// Release unregisters n and every entity it owns. The entities stay
// allocated and keep their identifiers, but Lookup no longer finds them.
func (c *Context) Release(n Node) {
	c.checkOpen()
	walk(n, func(child Node) {
		b := child.nodeBase()
		if c.nodes[b.id] == child {
			delete(c.nodes, b.id)
		}
	})
}

// Close releases everything. Allocating in a closed Context panics.
func (c *Context) Close() {
	c.nodes = make(map[uuid.UUID]Node)
	c.closed = true
}

func (c *Context) checkOpen() {
	if c.closed {
		invariantf("use of closed context")
	}
}

func (c *Context) initNode(n Node) *node {
	c.checkOpen()
	b := n.nodeBase()
	if b.ctx != nil {
		invariantf("%s allocated twice", n.Kind())
	}
	c.seq++
	b.ctx = c
	b.seq = c.seq
	b.indexed = addr.Bad
	return b
}

// allocate registers n under a freshly generated identifier.
func (c *Context) allocate(n Node) {
	b := c.initNode(n)
	for range maxIDAttempts {
		id := c.ids.NewID()
		if _, taken := c.nodes[id]; taken {
			c.logger.Warn("generated identifier already live", "uuid", id.String())
			continue
		}
		b.id = id
		c.nodes[id] = n
		return
	}
	invariantf("identifier generator keeps returning live identifiers")
}

// adopt registers n under an identifier supplied by the caller.
func (c *Context) adopt(n Node, id uuid.UUID) error {
	if _, taken := c.nodes[id]; taken {
		return NewDuplicateIdentifierError(id)
	}
	b := c.initNode(n)
	b.id = id
	c.nodes[id] = n
	return nil
}

// forget unregisters a single entity, leaving its children alone.
func (c *Context) forget(n Node) {
	b := n.nodeBase()
	if c.nodes[b.id] == n {
		delete(c.nodes, b.id)
	}
}

// walk calls fn on n and every entity n owns, parents first.
func walk(n Node, fn func(Node)) {
	fn(n)
	switch n := n.(type) {
	case *IR:
		for _, m := range n.modules {
			walk(m, fn)
		}
	case *Module:
		for _, s := range n.sections {
			walk(s, fn)
		}
		for _, s := range n.symbols {
			walk(s, fn)
		}
		for _, p := range n.proxies {
			walk(p, fn)
		}
	case *Section:
		for _, bi := range n.intervals {
			walk(bi, fn)
		}
	case *ByteInterval:
		for _, b := range n.codeBlocks {
			walk(b, fn)
		}
		for _, b := range n.dataBlocks {
			walk(b, fn)
		}
		for _, se := range n.sortedSymExprs() {
			walk(se, fn)
		}
	case *CodeBlock, *DataBlock, *ProxyBlock, *Symbol, *SymbolicExpression:
	default:
		invariantf("walk: unrecognized entity %T", n)
	}
}
