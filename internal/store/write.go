package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/rina-forks/gtirb/internal/codec"
	"github.com/rina-forks/gtirb/internal/ir"
	"github.com/rina-forks/gtirb/internal/wire"
)

// SaveIR stores a snapshot of x. It reports whether anything was written:
// a snapshot whose UUID and digest are already stored is left alone, and a
// snapshot with a known UUID but a new digest replaces the old one.
func (s *Store) SaveIR(ctx context.Context, x *ir.IR) (bool, error) {
	msg := x.ToWire()
	payload, err := codec.Encode(codec.CBOR, msg)
	if err != nil {
		return false, fmt.Errorf("save ir: %w", err)
	}
	digest, err := codec.Digest(msg)
	if err != nil {
		return false, fmt.Errorf("save ir: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("save ir: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var existing string
	err = tx.QueryRowContext(ctx, `SELECT digest FROM irs WHERE id = ?`, msg.UUID.String()).Scan(&existing)
	switch {
	case err == nil && existing == digest:
		slog.Debug("ir unchanged", "id", msg.UUID, "digest", digest)
		return false, nil
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		return false, fmt.Errorf("save ir: query digest: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO irs (id, version, digest, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			version = excluded.version,
			digest = excluded.digest,
			payload = excluded.payload
	`,
		msg.UUID.String(),
		msg.Version,
		digest,
		payload,
	)
	if err != nil {
		return false, fmt.Errorf("save ir: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM modules WHERE ir_id = ?`, msg.UUID.String()); err != nil {
		return false, fmt.Errorf("save ir: clear modules: %w", err)
	}
	for i := range msg.Modules {
		if err := insertModule(ctx, tx, msg.UUID, i, &msg.Modules[i]); err != nil {
			return false, fmt.Errorf("save ir: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("save ir: commit: %w", err)
	}

	slog.Info("ir saved",
		"id", msg.UUID,
		"digest", digest,
		"modules", len(msg.Modules),
		"replaced", existing != "",
	)
	return true, nil
}

func insertModule(ctx context.Context, tx *sql.Tx, irID uuid.UUID, pos int, m *wire.Module) error {
	digest, err := codec.ModuleDigest(m)
	if err != nil {
		return err
	}
	var preferred sql.NullInt64
	if m.PreferredAddr != nil {
		preferred = sql.NullInt64{Int64: int64(*m.PreferredAddr), Valid: true}
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO modules
		(ir_id, id, position, name, isa, file_format, preferred_addr, digest)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		irID.String(),
		m.UUID.String(),
		pos,
		m.Name,
		m.ISA,
		m.FileFormat,
		preferred,
		digest,
	)
	if err != nil {
		return fmt.Errorf("insert module %s: %w", m.UUID, err)
	}
	return nil
}

// DeleteIR removes a snapshot and its catalogue rows. It reports whether a
// snapshot existed.
func (s *Store) DeleteIR(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM irs WHERE id = ?`, id.String())
	if err != nil {
		return false, fmt.Errorf("delete ir: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete ir: %w", err)
	}
	if n > 0 {
		slog.Info("ir deleted", "id", id)
	}
	return n > 0, nil
}
