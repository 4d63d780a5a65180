// Package ir is the in-memory representation of a disassembled binary.
//
// Every entity (IR, Module, Section, ByteInterval, CodeBlock, DataBlock,
// ProxyBlock, Symbol, SymbolicExpression) is allocated inside a Context.
// The Context owns the entities and maps each entity's UUID to the live
// entity, so any UUID can be resolved back to its node.
//
// A Module keeps secondary indices over the entities it transitively owns:
// by identity, by address, by symbol name, and by (ByteInterval, offset)
// for symbolic expressions. Indices are maintained by three internal
// operations:
//   - addToIndices: after an entity is attached to a module
//   - removeFromIndices: before an entity is detached from a module
//   - mutateIndices: around any change to a field an index is keyed by
//
// Every exported mutator routes through these, so a query never observes a
// stale key. Entities are not safe for concurrent use; callers serialize
// access to a Context and everything allocated in it.
//
// Programming errors (corrupted indices, ownership across contexts, use of
// a closed Context) panic with *InvariantViolation. Recoverable failures
// such as a duplicate identifier are returned as errors.
package ir
