package ir

import (
	"slices"

	"github.com/rina-forks/gtirb/internal/addr"
)

// IR is the top-level container: the modules of one program.
type IR struct {
	node
	version int
	modules []*Module
}

// NewIR allocates an empty IR.
func NewIR(ctx *Context) *IR {
	x := &IR{version: Version}
	ctx.allocate(x)
	return x
}

// Kind returns KindIR.
func (x *IR) Kind() Kind { return KindIR }

// Version is the schema version the IR was created or loaded with.
func (x *IR) Version() int { return x.version }

// Modules returns the owned modules in insertion order.
func (x *IR) Modules() []*Module {
	return slices.Clone(x.modules)
}

// AddModule moves m into x, detaching it from its previous IR.
func (x *IR) AddModule(m *Module) {
	sameContext(x, m)
	if m.ir == x {
		return
	}
	if m.ir != nil {
		m.ir.RemoveModule(m)
	}
	m.ir = x
	x.modules = append(x.modules, m)
}

// RemoveModule detaches m. It reports false if x does not own m.
func (x *IR) RemoveModule(m *Module) bool {
	if m.ir != x {
		return false
	}
	x.modules = slices.DeleteFunc(x.modules, func(o *Module) bool { return o == m })
	m.ir = nil
	return true
}

// FindModules returns the modules named name.
func (x *IR) FindModules(name string) []*Module {
	var out []*Module
	for _, m := range x.modules {
		if m.name == name {
			out = append(out, m)
		}
	}
	return out
}

// FindModulesWithPreferredAddr returns the modules whose preferred load
// address is a.
func (x *IR) FindModulesWithPreferredAddr(a addr.Addr) []*Module {
	var out []*Module
	for _, m := range x.modules {
		if m.preferredAddr == a {
			out = append(out, m)
		}
	}
	return out
}

// FindModulesOn returns the modules whose extent contains a. The extent
// is half-open; its end address is not contained.
func (x *IR) FindModulesOn(a addr.Addr) []*Module {
	var out []*Module
	for _, m := range x.modules {
		if r, ok := m.Extent(); ok && r.Contains(a) {
			out = append(out, m)
		}
	}
	return out
}

// MainModule returns the first module, or nil.
func (x *IR) MainModule() *Module {
	if len(x.modules) == 0 {
		return nil
	}
	return x.modules[0]
}

// GetOrCreateMainModule returns the first module, creating an empty one
// named "main" if x has none.
func (x *IR) GetOrCreateMainModule() *Module {
	if m := x.MainModule(); m != nil {
		return m
	}
	m := NewModule(x.ctx, "main")
	x.AddModule(m)
	return m
}
