package ir

import (
	"fmt"
	"slices"

	"github.com/rina-forks/gtirb/internal/addr"
)

// SymExprForm selects how a symbolic expression combines its symbols.
type SymExprForm uint8

const (
	// AddrConst is Sym + Addend.
	AddrConst SymExprForm = iota
	// AddrAddr is (Sym1 - Sym2) / Scale + Addend.
	AddrAddr
	// StackConst is a stack slot Sym + Addend.
	StackConst
)

var symExprFormNames = []string{
	AddrConst:  "AddrConst",
	AddrAddr:   "AddrAddr",
	StackConst: "StackConst",
}

func (f SymExprForm) String() string {
	if int(f) < len(symExprFormNames) {
		return symExprFormNames[f]
	}
	return fmt.Sprintf("SymExprForm(%d)", uint8(f))
}

// ParseSymExprForm converts a form name back to a SymExprForm.
func ParseSymExprForm(s string) (SymExprForm, error) {
	if i := slices.Index(symExprFormNames, s); i >= 0 {
		return SymExprForm(i), nil
	}
	return 0, fmt.Errorf("unknown symbolic expression form %q", s)
}

// arity is the number of symbols a form refers to.
func (f SymExprForm) arity() int {
	if f == AddrAddr {
		return 2
	}
	return 1
}

// SymbolicExpression describes an operand or datum inside a byte interval
// in terms of symbols rather than raw values.
type SymbolicExpression struct {
	node
	interval *ByteInterval
	offset   uint64
	form     SymExprForm
	symbols  []*Symbol
	scale    int64
	addend   int64
}

// NewSymbolicExpression allocates a detached expression. The number of
// symbols must match the form.
func NewSymbolicExpression(ctx *Context, form SymExprForm, addend int64, syms ...*Symbol) *SymbolicExpression {
	if len(syms) != form.arity() {
		invariantf("%s takes %d symbols, got %d", form, form.arity(), len(syms))
	}
	se := &SymbolicExpression{form: form, addend: addend, scale: 1}
	ctx.allocate(se)
	for _, s := range syms {
		sameContext(se, s)
	}
	se.symbols = slices.Clone(syms)
	return se
}

// Kind returns KindSymbolicExpression.
func (se *SymbolicExpression) Kind() Kind { return KindSymbolicExpression }

// ByteInterval returns the owning interval, or nil.
func (se *SymbolicExpression) ByteInterval() *ByteInterval { return se.interval }

// Offset is the position of the expression inside its interval.
func (se *SymbolicExpression) Offset() uint64 { return se.offset }

// Address returns the interval address plus the offset, or addr.Bad.
func (se *SymbolicExpression) Address() addr.Addr {
	return blockAddress(se.interval, se.offset)
}

// Form selects how the symbols combine.
func (se *SymbolicExpression) Form() SymExprForm { return se.form }

// Symbols returns the referenced symbols; they are not owned.
func (se *SymbolicExpression) Symbols() []*Symbol {
	return slices.Clone(se.symbols)
}

// SetSymbols replaces the referenced symbols. The count must match the
// form.
func (se *SymbolicExpression) SetSymbols(syms ...*Symbol) {
	if len(syms) != se.form.arity() {
		invariantf("%s takes %d symbols, got %d", se.form, se.form.arity(), len(syms))
	}
	se.symbols = slices.Clone(syms)
}

// Scale divides the symbol difference of an AddrAddr expression.
func (se *SymbolicExpression) Scale() int64 { return se.scale }

// SetScale sets the divisor of an AddrAddr expression.
func (se *SymbolicExpression) SetScale(scale int64) { se.scale = scale }

// Addend is the constant added to the symbolic part.
func (se *SymbolicExpression) Addend() int64 { return se.addend }

// SetAddend sets the constant added to the symbolic part.
func (se *SymbolicExpression) SetAddend(addend int64) { se.addend = addend }
