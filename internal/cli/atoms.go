package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/qcml/internal/atoms"
)

// AtomInfo describes one registered atom.
type AtomInfo struct {
	Name      string `json:"name"`
	Curvature string `json:"curvature"`
	Arity     string `json:"arity"`
	Doc       string `json:"doc"`
}

// NewAtomsCommand creates the atoms command.
func NewAtomsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "atoms",
		Short:         "List the built-in atoms",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAtoms(rootOpts, cmd)
		},
	}
}

func runAtoms(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	entries := atoms.Default().Entries()
	infos := make([]AtomInfo, len(entries))
	for i, e := range entries {
		lo, hi := e.Atom.Arity()
		infos[i] = AtomInfo{
			Name:      e.Atom.Name(),
			Curvature: e.Atom.Curvature().String(),
			Arity:     formatArity(lo, hi),
			Doc:       e.Doc,
		}
	}

	if opts.Format == "json" {
		return formatter.Success(infos)
	}
	for _, a := range infos {
		fmt.Fprintf(formatter.Writer, "%-14s %-8s %-5s %s\n", a.Name, a.Curvature, a.Arity, a.Doc)
	}
	return nil
}

func formatArity(lo, hi int) string {
	switch {
	case hi < 0:
		return strconv.Itoa(lo) + "+"
	case lo == hi:
		return strconv.Itoa(lo)
	}
	return fmt.Sprintf("%d-%d", lo, hi)
}
