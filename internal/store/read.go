package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/rina-forks/gtirb/internal/addr"
	"github.com/rina-forks/gtirb/internal/codec"
	"github.com/rina-forks/gtirb/internal/ir"
	"github.com/rina-forks/gtirb/internal/wire"
)

// IRInfo summarises a stored snapshot.
type IRInfo struct {
	ID      uuid.UUID
	Version int
	Digest  string
	Modules int
}

// ModuleInfo is one catalogue row.
type ModuleInfo struct {
	IRID          uuid.UUID
	ID            uuid.UUID
	Position      int
	Name          string
	ISA           string
	FileFormat    string
	PreferredAddr addr.Addr
	Digest        string
}

// ReadIR returns the stored message for id after checking it against its
// digest.
func (s *Store) ReadIR(ctx context.Context, id uuid.UUID) (*wire.IR, error) {
	var digest string
	var payload []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT digest, payload FROM irs WHERE id = ?
	`, id.String()).Scan(&digest, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("read ir: %w", err)
	}

	msg, err := codec.Decode(codec.CBOR, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, id, err)
	}
	got, err := codec.Digest(msg)
	if err != nil {
		return nil, fmt.Errorf("read ir: %w", err)
	}
	if got != digest {
		slog.Error("snapshot digest mismatch", "id", id, "stored", digest, "computed", got)
		return nil, fmt.Errorf("%w: %s: digest mismatch", ErrCorrupt, id)
	}
	return msg, nil
}

// LoadIR reads the snapshot for id and rebuilds it in arena.
func (s *Store) LoadIR(ctx context.Context, arena *ir.Context, id uuid.UUID) (*ir.IR, error) {
	msg, err := s.ReadIR(ctx, id)
	if err != nil {
		return nil, err
	}
	x, err := ir.IRFromWire(arena, msg)
	if err != nil {
		return nil, fmt.Errorf("load ir %s: %w", id, err)
	}
	slog.Debug("ir loaded", "id", id, "modules", len(x.Modules()))
	return x, nil
}

// ListIRs returns every stored snapshot ordered by UUID.
//
// Returns an empty slice (not nil) if the store is empty.
func (s *Store) ListIRs(ctx context.Context) ([]IRInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT i.id, i.version, i.digest, COUNT(m.id)
		FROM irs i
		LEFT JOIN modules m ON m.ir_id = i.id
		GROUP BY i.id
		ORDER BY i.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query irs: %w", err)
	}
	defer rows.Close()

	infos := []IRInfo{}
	for rows.Next() {
		var info IRInfo
		var id string
		if err := rows.Scan(&id, &info.Version, &info.Digest, &info.Modules); err != nil {
			return nil, fmt.Errorf("scan ir: %w", err)
		}
		if info.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("scan ir: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate irs: %w", err)
	}
	return infos, nil
}

// FindModules returns the catalogue rows of every stored module called
// name, ordered by snapshot UUID and then by position within the snapshot.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) FindModules(ctx context.Context, name string) ([]ModuleInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ir_id, id, position, name, isa, file_format, preferred_addr, digest
		FROM modules
		WHERE name = ?
		ORDER BY ir_id COLLATE BINARY ASC, position ASC
	`, name)
	if err != nil {
		return nil, fmt.Errorf("query modules: %w", err)
	}
	defer rows.Close()

	infos := []ModuleInfo{}
	for rows.Next() {
		info, err := scanModule(rows)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate modules: %w", err)
	}
	return infos, nil
}

func scanModule(rows *sql.Rows) (ModuleInfo, error) {
	var info ModuleInfo
	var irID, id string
	var preferred sql.NullInt64
	err := rows.Scan(&irID, &id, &info.Position, &info.Name, &info.ISA, &info.FileFormat, &preferred, &info.Digest)
	if err != nil {
		return ModuleInfo{}, fmt.Errorf("scan module: %w", err)
	}
	if info.IRID, err = uuid.Parse(irID); err != nil {
		return ModuleInfo{}, fmt.Errorf("scan module: %w", err)
	}
	if info.ID, err = uuid.Parse(id); err != nil {
		return ModuleInfo{}, fmt.Errorf("scan module: %w", err)
	}
	info.PreferredAddr = addr.Bad
	if preferred.Valid {
		info.PreferredAddr = addr.Addr(uint64(preferred.Int64))
	}
	return info, nil
}
