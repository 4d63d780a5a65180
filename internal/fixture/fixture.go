// Package fixture describes IR graphs in YAML and builds them into a
// Context with deterministic identifiers, so tests can declare a binary's
// layout instead of wiring entities by hand.
//
// A fixture names its blocks and symbols with labels. Symbols refer to
// blocks by label, symbolic expressions refer to symbols by label, and a
// module's entry point names a code block label.
package fixture

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rina-forks/gtirb/internal/bytemap"
	"github.com/rina-forks/gtirb/internal/ir"
)

// Fixture is a declarative description of an IR.
type Fixture struct {
	// Name identifies the fixture and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the fixture exercises.
	Description string `yaml:"description"`

	// Modules are added to the IR in order.
	Modules []Module `yaml:"modules"`
}

// Module describes one module and everything it owns.
type Module struct {
	Name          string    `yaml:"name"`
	BinaryPath    string    `yaml:"binary_path,omitempty"`
	ISA           string    `yaml:"isa,omitempty"`
	FileFormat    string    `yaml:"file_format,omitempty"`
	PreferredAddr *uint64   `yaml:"preferred_addr,omitempty"`
	RebaseDelta   int64     `yaml:"rebase_delta,omitempty"`
	Entry         string    `yaml:"entry,omitempty"`
	Image         *Image    `yaml:"image,omitempty"`
	Sections      []Section `yaml:"sections,omitempty"`

	// Proxies lists proxy block labels.
	Proxies []string `yaml:"proxies,omitempty"`

	Symbols []Symbol `yaml:"symbols,omitempty"`
}

// Image describes the module's loaded byte image.
type Image struct {
	Min       *uint64 `yaml:"min,omitempty"`
	Max       *uint64 `yaml:"max,omitempty"`
	ByteOrder string  `yaml:"byte_order,omitempty"`
	Writes    []Write `yaml:"writes,omitempty"`
}

// Write stores raw bytes at an address.
type Write struct {
	At  uint64 `yaml:"at"`
	Hex string `yaml:"hex"`
}

// Section describes a section and its intervals.
type Section struct {
	Name      string     `yaml:"name"`
	Flags     []string   `yaml:"flags,omitempty"`
	Intervals []Interval `yaml:"intervals,omitempty"`
}

// Interval describes a byte interval. A missing address leaves the
// interval unaddressed.
type Interval struct {
	Address  *uint64   `yaml:"address,omitempty"`
	Size     uint64    `yaml:"size"`
	Contents string    `yaml:"contents,omitempty"`
	Code     []Block   `yaml:"code,omitempty"`
	Data     []Block   `yaml:"data,omitempty"`
	SymExprs []SymExpr `yaml:"symexprs,omitempty"`
}

// Block describes a code or data block placed at an offset.
type Block struct {
	Label      string `yaml:"label"`
	Offset     uint64 `yaml:"offset"`
	Size       uint64 `yaml:"size"`
	DecodeMode uint64 `yaml:"decode_mode,omitempty"`
}

// Symbol describes a symbol. At most one of Block and Address is set.
type Symbol struct {
	Name string `yaml:"name"`

	// Label is how symbolic expressions refer to the symbol. It defaults
	// to Name.
	Label   string  `yaml:"label,omitempty"`
	Block   string  `yaml:"block,omitempty"`
	Address *uint64 `yaml:"address,omitempty"`
	AtEnd   bool    `yaml:"at_end,omitempty"`
}

func (s *Symbol) label() string {
	if s.Label != "" {
		return s.Label
	}
	return s.Name
}

// SymExpr describes a symbolic expression at an interval offset.
type SymExpr struct {
	Offset  uint64   `yaml:"offset"`
	Form    string   `yaml:"form"`
	Symbols []string `yaml:"symbols"`
	Addend  int64    `yaml:"addend,omitempty"`
	Scale   int64    `yaml:"scale,omitempty"`
}

// Load reads and parses a fixture file. It fails on unknown fields and on
// fixtures that reference labels they never define.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a fixture from YAML.
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateFixture(&f); err != nil {
		return nil, fmt.Errorf("invalid fixture: %w", err)
	}
	return &f, nil
}

func validateFixture(f *Fixture) error {
	if f.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(f.Modules) == 0 {
		return fmt.Errorf("modules list is required and must be non-empty")
	}
	for i := range f.Modules {
		if err := validateModule(fmt.Sprintf("modules[%d]", i), &f.Modules[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateModule(where string, m *Module) error {
	if m.Name == "" {
		return fmt.Errorf("%s: name is required", where)
	}
	if m.ISA != "" {
		if _, err := ir.ParseISA(m.ISA); err != nil {
			return fmt.Errorf("%s: %w", where, err)
		}
	}
	if m.FileFormat != "" {
		if _, err := ir.ParseFileFormat(m.FileFormat); err != nil {
			return fmt.Errorf("%s: %w", where, err)
		}
	}
	if m.Image != nil {
		if err := validateImage(where+".image", m.Image); err != nil {
			return err
		}
	}

	codeLabels := make(map[string]bool)
	blockLabels := make(map[string]bool)
	define := func(at, label string) error {
		if label == "" {
			return fmt.Errorf("%s: label is required", at)
		}
		if blockLabels[label] {
			return fmt.Errorf("%s: duplicate block label %q", at, label)
		}
		blockLabels[label] = true
		return nil
	}
	for si, s := range m.Sections {
		sw := fmt.Sprintf("%s.sections[%d]", where, si)
		if s.Name == "" {
			return fmt.Errorf("%s: name is required", sw)
		}
		for _, flag := range s.Flags {
			if _, err := ir.ParseSectionFlag(flag); err != nil {
				return fmt.Errorf("%s: %w", sw, err)
			}
		}
		for ii, bi := range s.Intervals {
			iw := fmt.Sprintf("%s.intervals[%d]", sw, ii)
			if _, err := decodeHex(bi.Contents); err != nil {
				return fmt.Errorf("%s: contents: %w", iw, err)
			}
			for bj, b := range bi.Code {
				if err := define(fmt.Sprintf("%s.code[%d]", iw, bj), b.Label); err != nil {
					return err
				}
				codeLabels[b.Label] = true
			}
			for bj, b := range bi.Data {
				if err := define(fmt.Sprintf("%s.data[%d]", iw, bj), b.Label); err != nil {
					return err
				}
			}
		}
	}
	for pi, p := range m.Proxies {
		if err := define(fmt.Sprintf("%s.proxies[%d]", where, pi), p); err != nil {
			return err
		}
	}
	if m.Entry != "" && !codeLabels[m.Entry] {
		return fmt.Errorf("%s: entry %q is not a code block label", where, m.Entry)
	}

	symLabels := make(map[string]bool)
	for i := range m.Symbols {
		s := &m.Symbols[i]
		sw := fmt.Sprintf("%s.symbols[%d]", where, i)
		if s.Name == "" {
			return fmt.Errorf("%s: name is required", sw)
		}
		if s.Block != "" && s.Address != nil {
			return fmt.Errorf("%s: block and address are mutually exclusive", sw)
		}
		if s.Block != "" && !blockLabels[s.Block] {
			return fmt.Errorf("%s: unknown block %q", sw, s.Block)
		}
		if symLabels[s.label()] {
			return fmt.Errorf("%s: duplicate symbol label %q", sw, s.label())
		}
		symLabels[s.label()] = true
	}

	for si, s := range m.Sections {
		for ii, bi := range s.Intervals {
			for ei, se := range bi.SymExprs {
				ew := fmt.Sprintf("%s.sections[%d].intervals[%d].symexprs[%d]", where, si, ii, ei)
				form, err := ir.ParseSymExprForm(se.Form)
				if err != nil {
					return fmt.Errorf("%s: %w", ew, err)
				}
				want := 1
				if form == ir.AddrAddr {
					want = 2
				}
				if len(se.Symbols) != want {
					return fmt.Errorf("%s: %s takes %d symbols, got %d", ew, form, want, len(se.Symbols))
				}
				for _, label := range se.Symbols {
					if !symLabels[label] {
						return fmt.Errorf("%s: unknown symbol %q", ew, label)
					}
				}
			}
		}
	}
	return nil
}

func validateImage(where string, img *Image) error {
	if (img.Min == nil) != (img.Max == nil) {
		return fmt.Errorf("%s: min and max must be set together", where)
	}
	if img.Min != nil && *img.Min > *img.Max {
		return fmt.Errorf("%s: min 0x%x is above max 0x%x", where, *img.Min, *img.Max)
	}
	if img.ByteOrder != "" {
		if _, err := bytemap.ParseByteOrder(img.ByteOrder); err != nil {
			return fmt.Errorf("%s: %w", where, err)
		}
	}
	for i, w := range img.Writes {
		if img.Min == nil {
			return fmt.Errorf("%s.writes[%d]: image has no range", where, i)
		}
		if _, err := decodeHex(w.Hex); err != nil {
			return fmt.Errorf("%s.writes[%d]: %w", where, i, err)
		}
	}
	return nil
}

// decodeHex accepts hex digits with optional whitespace between bytes.
func decodeHex(s string) ([]byte, error) {
	return hex.DecodeString(strings.Join(strings.Fields(s), ""))
}
