package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/qcml/internal/compiler"
	"github.com/roach88/qcml/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Program  string
	Hash     string
	Limit    int
}

// HistoryEntry is one compilation record as shown by history.
type HistoryEntry struct {
	store.Compilation
	Compatible bool `json:"compatible"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded compilations",
		Long: `List compilations recorded by compile, watch or test with --db.

Records written by a compiler with a different major format version are
marked incompatible.

Examples:
  qcml history --db qcml.db
  qcml history --db qcml.db --program lp --limit 5`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "compilation log (required)")
	cmd.Flags().StringVar(&opts.Program, "program", "", "only this problem")
	cmd.Flags().StringVar(&opts.Hash, "hash", "", "only this problem hash")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "show only the most recent N records")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if _, err := os.Stat(opts.Database); err != nil {
		formatter.Error(compiler.ErrCodeNotFound, fmt.Sprintf("database not found: %s", opts.Database), nil)
		return WrapExitError(ExitCommandError, "open database", err)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		formatter.Error(compiler.ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "open database", err)
	}
	defer st.Close()

	records, err := st.ListCompilations(cmd.Context(), store.Filter{
		Program:     opts.Program,
		ProblemHash: opts.Hash,
		Limit:       opts.Limit,
	})
	if err != nil {
		formatter.Error(compiler.ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "list compilations", err)
	}

	entries := make([]HistoryEntry, len(records))
	for i, r := range records {
		entries[i] = HistoryEntry{Compilation: r, Compatible: r.Compatible()}
	}

	if opts.Format == "json" {
		return formatter.Success(entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(formatter.Writer, "No compilations recorded.")
		return nil
	}
	for _, e := range entries {
		mark := "✓"
		if e.Status != store.StatusOK {
			mark = "✗"
		}
		fmt.Fprintf(formatter.Writer, "%s %4d %s %s n=%d m=%d p=%d %s",
			mark, e.Seq, e.ID, e.Program, e.N, e.M, e.P, shortHash(e.ProblemHash))
		if !e.Compatible {
			fmt.Fprintf(formatter.Writer, " (format %s, incompatible)", e.FormatVersion)
		}
		fmt.Fprintln(formatter.Writer)
		if e.Error != "" {
			fmt.Fprintf(formatter.Writer, "       %s\n", e.Error)
		}
	}
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
