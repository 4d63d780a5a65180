// Package codec encodes and decodes serialized IR messages.
//
// Three encodings are supported. CBOR is the compact binary form and is
// always produced with core deterministic encoding, so equal messages
// encode to equal bytes and can be digested. JSON and YAML are the text
// forms; both can be checked against the embedded CUE schema before they
// are decoded.
//
// Decoding is strict in every format: unknown fields are rejected.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"

	"github.com/rina-forks/gtirb/internal/ir"
	"github.com/rina-forks/gtirb/internal/wire"
)

// Format names an encoding.
type Format string

const (
	CBOR Format = "cbor"
	JSON Format = "json"
	YAML Format = "yaml"
)

// Formats lists every supported format.
var Formats = []Format{CBOR, JSON, YAML}

// ErrUnknownFormat is returned for an unrecognised format name or file
// extension.
var ErrUnknownFormat = errors.New("unknown format")

// ParseFormat converts a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case CBOR, JSON, YAML:
		return f, nil
	case "yml":
		return YAML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// DetectFormat picks a format from the extension of path. ".gtirb" files
// are CBOR.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cbor", ".gtirb":
		return CBOR, nil
	case ".json":
		return JSON, nil
	case ".yaml", ".yml":
		return YAML, nil
	}
	return "", fmt.Errorf("%w: cannot infer from %q", ErrUnknownFormat, path)
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("codec: cbor encoder options: %v", err))
	}
	decMode, err = cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("codec: cbor decoder options: %v", err))
	}
}

// Encode serializes msg in format f. Text formats are indented and end
// with a newline.
func Encode(f Format, msg *wire.IR) ([]byte, error) {
	switch f {
	case CBOR:
		return encMode.Marshal(msg)
	case JSON:
		data, err := json.MarshalIndent(msg, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case YAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(msg); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// Decode parses data in format f.
func Decode(f Format, data []byte) (*wire.IR, error) {
	msg := &wire.IR{}
	var err error
	switch f {
	case CBOR:
		err = decMode.Unmarshal(data, msg)
	case JSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(msg)
	case YAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(msg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	if err != nil {
		slog.Debug("decode failed", "format", f, "bytes", len(data), "error", err)
		return nil, fmt.Errorf("decode %s: %w", f, err)
	}
	return msg, nil
}

// Save serializes x to w.
func Save(w io.Writer, f Format, x *ir.IR) error {
	data, err := Encode(f, x.ToWire())
	if err != nil {
		return fmt.Errorf("encode %s: %w", f, err)
	}
	_, err = w.Write(data)
	return err
}

// Load reads a serialized IR from r and rebuilds it in ctx.
func Load(ctx *ir.Context, r io.Reader, f Format) (*ir.IR, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	msg, err := Decode(f, data)
	if err != nil {
		return nil, err
	}
	return ir.IRFromWire(ctx, msg)
}

// Digest returns the content digest of msg: the domain-separated SHA-256 of
// its deterministic CBOR encoding.
func Digest(msg *wire.IR) (string, error) {
	data, err := encMode.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("encode for digest: %w", err)
	}
	return wire.Digest(wire.DomainIR, data), nil
}

// ModuleDigest is Digest for a single module.
func ModuleDigest(msg *wire.Module) (string, error) {
	data, err := encMode.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("encode for digest: %w", err)
	}
	return wire.Digest(wire.DomainModule, data), nil
}
