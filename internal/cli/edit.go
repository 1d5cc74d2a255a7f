package cli

import (
	"errors"
	"strings"

	"wbs-cli/internal/engine"
	"wbs-cli/internal/mutate"
	"wbs-cli/internal/store"

	"github.com/spf13/cobra"
)

type editResult struct {
	Outcome engine.Outcome `json:"outcome"`
	Rows    rowsView       `json:"rows"`
	Shape   string         `json:"shape"`
	Written string         `json:"written,omitempty"`
}

func (r editResult) Header() []string    { return r.Rows.Header() }
func (r editResult) Records() [][]string { return r.Rows.Records() }

func newMoveCmd(app *App) *cobra.Command {
	var parent string
	var index int
	var write bool

	cmd := &cobra.Command{
		Use:   "move <id|code>",
		Short: "Move a node under a parent at an index (no drag interpretation)",
		Long: strings.TrimSpace(`
Move a node and its subtree directly.

--index counts positions after the node is taken out of its current list and is
clamped to the list length, so --index 999 appends.
`),
		Example: strings.TrimSpace(`
  wbs move wbs-3 --parent none --index 0
  wbs move 2.3 --parent 1 --index 999
`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEngine(cmd.Context(), app, nil)
			if err != nil {
				return writeErr(cmd, err)
			}
			src, ok := e.Resolve(args[0])
			if !ok {
				return writeErr(cmd, errNotFound("node", args[0]))
			}
			par, ok := e.ResolveParent(parent)
			if !ok {
				return writeErr(cmd, errNotFound("parent", parent))
			}
			return finishEdit(cmd, app, e, e.Move(src, par, index), write)
		},
	}
	cmd.Flags().StringVar(&parent, "parent", "", "Destination parent (id, WBS code, or none for the top level)")
	cmd.Flags().IntVar(&index, "index", 0, "Position among the destination's children")
	cmd.Flags().BoolVar(&write, "write", false, "Write the result back to --snapshot")
	return cmd
}

func newDropCmd(app *App) *cobra.Command {
	var offset float64
	var half string
	var write bool

	cmd := &cobra.Command{
		Use:   "drop <source> <over>",
		Short: "Apply a drag-and-drop gesture under the current policy",
		Long: strings.TrimSpace(`
Resolve a drop of <source> onto the row <over> and apply it.

--offset is the horizontal drag distance; every --indent-width (24 by default)
shifts the drop one level in (positive) or out (negative). --half says whether
the pointer was released over the upper or lower half of <over>.
`),
		Example: strings.TrimSpace(`
  wbs drop wbs-1-2 wbs-2-1 --offset 24 --half lower
  wbs --policy sibling drop 2.3 2.1
  wbs drop 2.2 2.2 --offset -24
`),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := mutate.ParseHalf(half)
			if err != nil {
				return writeErr(cmd, err)
			}
			e, err := loadEngine(cmd.Context(), app, nil)
			if err != nil {
				return writeErr(cmd, err)
			}
			src, ok := e.Resolve(args[0])
			if !ok {
				return writeErr(cmd, errNotFound("node", args[0]))
			}
			over, ok := e.Resolve(args[1])
			if !ok {
				return writeErr(cmd, errNotFound("node", args[1]))
			}
			out := e.Drop(mutate.Drop{SourceID: src, OverID: over, OffsetX: offset, Half: h})
			return finishEdit(cmd, app, e, out, write)
		},
	}
	cmd.Flags().Float64Var(&offset, "offset", 0, "Horizontal drag offset")
	cmd.Flags().StringVar(&half, "half", "auto", "Which half of <over> the drop lands on (auto|upper|lower)")
	cmd.Flags().BoolVar(&write, "write", false, "Write the result back to --snapshot")
	return cmd
}

// finishEdit prints the outcome with the resulting rows. A rejection is printed and then
// returned as an error so scripts see a non-zero exit.
func finishEdit(cmd *cobra.Command, app *App, e *engine.Engine, out engine.Outcome, write bool) error {
	res := editResult{Outcome: out, Rows: rowsView(e.Rows()), Shape: e.Tree().Shape()}
	if out.Status == engine.StatusApplied && write {
		if strings.TrimSpace(app.Snapshot) == "" {
			return writeErr(cmd, errors.New("--write needs --snapshot (the built-in sample cannot be written)"))
		}
		if err := writeSnapshotTo(e, app.Snapshot); err != nil {
			return writeErr(cmd, err)
		}
		res.Written = app.Snapshot
	}
	if err := writeOut(cmd, app, res); err != nil {
		return err
	}
	if out.Status == engine.StatusRejected {
		return writeErr(cmd, outcomeError{reason: string(out.Reason), msg: out.Message})
	}
	return nil
}

func writeSnapshotTo(e *engine.Engine, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	return store.SaveSnapshot(path, e.Snapshot())
}
