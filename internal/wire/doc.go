// Package wire defines the external message form of the IR.
//
// Each entity kind maps to one message type carrying its 16-byte
// identifier, its scalar fields, and its owned children. The same structs
// serialize to CBOR (integer keys), JSON and YAML (snake_case keys).
// Fields are optional unless the schema says otherwise, so older readers
// ignore fields they do not know.
//
// This package contains type definitions only; encoding lives in
// internal/codec and conversion from live entities in internal/ir.
package wire
