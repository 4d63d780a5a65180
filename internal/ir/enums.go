package ir

import (
	"fmt"
	"slices"
)

// FileFormat is the container format of the binary a module came from.
type FileFormat uint8

const (
	FormatUndefined FileFormat = iota
	ELF
	PE
	IdaProDb32
	IdaProDb64
	XCOFF
	MACHO
	RAW
)

var fileFormatNames = []string{
	FormatUndefined: "Undefined",
	ELF:             "ELF",
	PE:              "PE",
	IdaProDb32:      "IdaProDb32",
	IdaProDb64:      "IdaProDb64",
	XCOFF:           "XCOFF",
	MACHO:           "MACHO",
	RAW:             "RAW",
}

func (f FileFormat) String() string {
	if int(f) < len(fileFormatNames) {
		return fileFormatNames[f]
	}
	return fmt.Sprintf("FileFormat(%d)", uint8(f))
}

// ParseFileFormat converts a format name back to a FileFormat.
func ParseFileFormat(s string) (FileFormat, error) {
	if i := slices.Index(fileFormatNames, s); i >= 0 {
		return FileFormat(i), nil
	}
	return 0, fmt.Errorf("unknown file format %q", s)
}

// ISA is the instruction set a module's code is written in.
type ISA uint8

const (
	ISAUndefined ISA = iota
	IA32
	PPC32
	X64
	ARM
	ValidButUnsupported
	PPC64
	ARM64
	MIPS32
	MIPS64
)

var isaNames = []string{
	ISAUndefined:        "Undefined",
	IA32:                "IA32",
	PPC32:               "PPC32",
	X64:                 "X64",
	ARM:                 "ARM",
	ValidButUnsupported: "ValidButUnsupported",
	PPC64:               "PPC64",
	ARM64:               "ARM64",
	MIPS32:              "MIPS32",
	MIPS64:              "MIPS64",
}

func (i ISA) String() string {
	if int(i) < len(isaNames) {
		return isaNames[i]
	}
	return fmt.Sprintf("ISA(%d)", uint8(i))
}

// ParseISA converts an ISA name back to an ISA.
func ParseISA(s string) (ISA, error) {
	if i := slices.Index(isaNames, s); i >= 0 {
		return ISA(i), nil
	}
	return 0, fmt.Errorf("unknown ISA %q", s)
}
