package ir

import "fmt"

// Kind identifies the concrete type of a Node.
type Kind uint8

const (
	KindIR Kind = iota + 1
	KindModule
	KindSection
	KindByteInterval
	KindCodeBlock
	KindDataBlock
	KindProxyBlock
	KindSymbol
	KindSymbolicExpression
)

var kindNames = map[Kind]string{
	KindIR:                 "IR",
	KindModule:             "Module",
	KindSection:            "Section",
	KindByteInterval:       "ByteInterval",
	KindCodeBlock:          "CodeBlock",
	KindDataBlock:          "DataBlock",
	KindProxyBlock:         "ProxyBlock",
	KindSymbol:             "Symbol",
	KindSymbolicExpression: "SymbolicExpression",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}
