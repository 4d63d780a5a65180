package cli

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rina-forks/gtirb/internal/ir"
	"github.com/rina-forks/gtirb/internal/store"
)

// DBOptions holds flags shared by the db subcommands.
type DBOptions struct {
	*RootOptions
	Database string
}

// ImportResult reports one imported file.
type ImportResult struct {
	File  string `json:"file"`
	UUID  string `json:"uuid"`
	Saved bool   `json:"saved"`
}

func (r ImportResult) String() string {
	state := "unchanged"
	if r.Saved {
		state = "saved"
	}
	return fmt.Sprintf("%s %s %s", r.UUID, state, r.File)
}

// SnapshotEntry is one row of db list.
type SnapshotEntry struct {
	UUID    string `json:"uuid"`
	Version int    `json:"version"`
	Modules int    `json:"modules"`
	Digest  string `json:"digest"`
}

func (e SnapshotEntry) String() string {
	return fmt.Sprintf("%s version=%d modules=%d digest=%s", e.UUID, e.Version, e.Modules, e.Digest)
}

// ModuleEntry is one row of db find.
type ModuleEntry struct {
	IR            string `json:"ir"`
	UUID          string `json:"uuid"`
	Position      int    `json:"position"`
	Name          string `json:"name"`
	ISA           string `json:"isa"`
	FileFormat    string `json:"file_format"`
	PreferredAddr string `json:"preferred_addr,omitempty"`
}

func (e ModuleEntry) String() string {
	s := fmt.Sprintf("%s[%d] %s %q isa=%s format=%s", e.IR, e.Position, e.UUID, e.Name, e.ISA, e.FileFormat)
	if e.PreferredAddr != "" {
		s += " preferred=" + e.PreferredAddr
	}
	return s
}

// NewDBCommand creates the db command and its subcommands.
func NewDBCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DBOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "db",
		Short: "Store and retrieve IR snapshots in a SQLite database",
		Long: `Manage a database of IR snapshots.

Each IR is stored once per UUID. Importing an unchanged IR is a no-op;
importing a changed IR with a known UUID replaces the stored snapshot.

Example:
  gtirb db import --db ./ir.db hello.gtirb libc.json
  gtirb db list --db ./ir.db
  gtirb db export --db ./ir.db -o hello.yaml <uuid>`,
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkPersistentFlagRequired("db")

	cmd.AddCommand(newDBImportCommand(opts))
	cmd.AddCommand(newDBExportCommand(opts))
	cmd.AddCommand(newDBListCommand(opts))
	cmd.AddCommand(newDBFindCommand(opts))
	cmd.AddCommand(newDBRemoveCommand(opts))

	return cmd
}

// withStore opens the database for the duration of fn.
func withStore(opts *DBOptions, formatter *OutputFormatter, fn func(*store.Store) error) error {
	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, fmt.Sprintf("cannot open database %s", opts.Database), err)
	}
	defer st.Close()
	return fn(st)
}

func parseUUID(formatter *OutputFormatter, s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, formatter.Fail(ExitCommandError, ErrCodeBadArgument, fmt.Sprintf("invalid UUID %q", s), err)
	}
	return id, nil
}

func newDBImportCommand(opts *DBOptions) *cobra.Command {
	var inputFormat string
	cmd := &cobra.Command{
		Use:           "import <file>...",
		Short:         "Store IR files as snapshots",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(opts.RootOptions, cmd)
			return withStore(opts, formatter, func(st *store.Store) error {
				results := []ImportResult{}
				for _, path := range args {
					in, err := readInput(formatter, path, inputFormat)
					if err != nil {
						return err
					}
					x, err := in.build(formatter, ExitCommandError)
					if err != nil {
						return err
					}
					saved, err := st.SaveIR(cmd.Context(), x)
					if err != nil {
						return formatter.Fail(ExitCommandError, ErrCodeDatabase, fmt.Sprintf("cannot store %s", path), err)
					}
					results = append(results, ImportResult{File: path, UUID: x.UUID().String(), Saved: saved})
				}
				if formatter.Format == "json" {
					return formatter.Success(results)
				}
				for _, r := range results {
					fmt.Fprintln(formatter.Writer, r)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&inputFormat, "input-format", "", "input encoding (cbor|json|yaml), inferred from the extension by default")
	return cmd
}

func newDBExportCommand(opts *DBOptions) *cobra.Command {
	var output, to string
	cmd := &cobra.Command{
		Use:           "export <uuid>",
		Short:         "Write a stored snapshot to a file",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(opts.RootOptions, cmd)
			id, err := parseUUID(formatter, args[0])
			if err != nil {
				return err
			}
			format, err := resolveFormat(output, to)
			if err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeUnknownFormat,
					fmt.Sprintf("cannot determine output format for %s", output), err)
			}
			return withStore(opts, formatter, func(st *store.Store) error {
				x, err := st.LoadIR(cmd.Context(), ir.NewContext(), id)
				switch {
				case errors.Is(err, store.ErrNotFound):
					return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("no snapshot %s", id), nil)
				case err != nil:
					return formatter.Fail(ExitCommandError, ErrCodeDatabase, fmt.Sprintf("cannot load %s", id), err)
				}
				if err := writeOutput(formatter, output, format, x.ToWire()); err != nil {
					return err
				}
				return formatter.Success(fmt.Sprintf("exported %s -> %s (%s)", id, output, format))
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (required)")
	cmd.Flags().StringVar(&to, "to", "", "output encoding (cbor|json|yaml)")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func newDBListCommand(opts *DBOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List stored snapshots",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(opts.RootOptions, cmd)
			return withStore(opts, formatter, func(st *store.Store) error {
				infos, err := st.ListIRs(cmd.Context())
				if err != nil {
					return formatter.Fail(ExitCommandError, ErrCodeDatabase, "cannot list snapshots", err)
				}
				entries := make([]SnapshotEntry, len(infos))
				for i, info := range infos {
					entries[i] = SnapshotEntry{
						UUID:    info.ID.String(),
						Version: info.Version,
						Modules: info.Modules,
						Digest:  info.Digest,
					}
				}
				if formatter.Format == "json" {
					return formatter.Success(entries)
				}
				if len(entries) == 0 {
					fmt.Fprintln(formatter.Writer, "no snapshots")
				}
				for _, e := range entries {
					fmt.Fprintln(formatter.Writer, e)
				}
				return nil
			})
		},
	}
}

func newDBFindCommand(opts *DBOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "find <module-name>",
		Short:         "Find stored modules by name",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(opts.RootOptions, cmd)
			return withStore(opts, formatter, func(st *store.Store) error {
				infos, err := st.FindModules(cmd.Context(), args[0])
				if err != nil {
					return formatter.Fail(ExitCommandError, ErrCodeDatabase, "cannot search modules", err)
				}
				entries := make([]ModuleEntry, len(infos))
				for i, info := range infos {
					entries[i] = ModuleEntry{
						IR:         info.IRID.String(),
						UUID:       info.ID.String(),
						Position:   info.Position,
						Name:       info.Name,
						ISA:        info.ISA,
						FileFormat: info.FileFormat,
					}
					if info.PreferredAddr.Valid() {
						entries[i].PreferredAddr = info.PreferredAddr.String()
					}
				}
				if formatter.Format == "json" {
					return formatter.Success(entries)
				}
				if len(entries) == 0 {
					fmt.Fprintf(formatter.Writer, "no module named %q\n", args[0])
				}
				for _, e := range entries {
					fmt.Fprintln(formatter.Writer, e)
				}
				return nil
			})
		},
	}
}

func newDBRemoveCommand(opts *DBOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "rm <uuid>",
		Short:         "Delete a stored snapshot",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(opts.RootOptions, cmd)
			id, err := parseUUID(formatter, args[0])
			if err != nil {
				return err
			}
			return withStore(opts, formatter, func(st *store.Store) error {
				deleted, err := st.DeleteIR(cmd.Context(), id)
				if err != nil {
					return formatter.Fail(ExitCommandError, ErrCodeDatabase, fmt.Sprintf("cannot delete %s", id), err)
				}
				if !deleted {
					return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("no snapshot %s", id), nil)
				}
				return formatter.Success(fmt.Sprintf("deleted %s", id))
			})
		},
	}
}
