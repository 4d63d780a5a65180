package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/rina-forks/gtirb/internal/addr"
	"github.com/rina-forks/gtirb/internal/codec"
	"github.com/rina-forks/gtirb/internal/ir"
	"github.com/rina-forks/gtirb/internal/wire"
)

// input is a file read from disk and decoded.
type input struct {
	path   string
	format codec.Format
	data   []byte
	msg    *wire.IR
}

// resolveFormat returns override when set, otherwise the format implied by
// the file extension.
func resolveFormat(path, override string) (codec.Format, error) {
	if override != "" {
		return codec.ParseFormat(override)
	}
	return codec.DetectFormat(path)
}

// readFile reads path without decoding it. Failures are reported through f.
func readFile(f *OutputFormatter, path, override string) (*input, error) {
	format, err := resolveFormat(path, override)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeUnknownFormat,
			fmt.Sprintf("cannot determine format of %s", path), err)
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("file not found: %s", path), nil)
	}
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeReadFailed, fmt.Sprintf("cannot read %s", path), err)
	}
	f.VerboseLog("read %s (%s, %d bytes)", path, format, len(data))
	return &input{path: path, format: format, data: data}, nil
}

// readInput reads and decodes path.
func readInput(f *OutputFormatter, path, override string) (*input, error) {
	in, err := readFile(f, path, override)
	if err != nil {
		return nil, err
	}
	if err := in.decode(f, ExitCommandError); err != nil {
		return nil, err
	}
	return in, nil
}

func (in *input) decode(f *OutputFormatter, exit int) error {
	msg, err := codec.Decode(in.format, in.data)
	if err != nil {
		return f.Fail(exit, ErrCodeDecodeFailed, fmt.Sprintf("cannot decode %s as %s", in.path, in.format), err)
	}
	in.msg = msg
	return nil
}

// build rebuilds the decoded message in a fresh arena.
func (in *input) build(f *OutputFormatter, exit int) (*ir.IR, error) {
	x, err := ir.IRFromWire(ir.NewContext(), in.msg)
	if err != nil {
		return nil, f.Fail(exit, ErrCodeLoadFailed, fmt.Sprintf("%s is not a consistent IR", in.path), err)
	}
	return x, nil
}

// writeOutput encodes x in format and writes it to path.
func writeOutput(f *OutputFormatter, path string, format codec.Format, msg *wire.IR) error {
	data, err := codec.Encode(format, msg)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("cannot encode %s", format), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return f.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("cannot write %s", path), err)
	}
	f.VerboseLog("wrote %s (%s, %d bytes)", path, format, len(data))
	return nil
}

// parseAddr accepts decimal, 0x-prefixed hex, 0o octal and 0b binary.
func parseAddr(s string) (addr.Addr, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return addr.Bad, fmt.Errorf("invalid address %q", s)
	}
	return addr.Addr(v), nil
}
