package cli

import (
	"fmt"
	"strconv"
	"strings"

	"wbs-cli/internal/engine"
	"wbs-cli/internal/outline"

	"github.com/spf13/cobra"
)

// rowsView is the rows payload; it also renders as a table.
type rowsView []outline.Row

func (rowsView) Header() []string {
	return []string{"WBS", "ID", "Task", "Status", "Progress", "Done", "Hidden"}
}

func (v rowsView) Records() [][]string {
	out := make([][]string, 0, len(v))
	for _, r := range v {
		name := strings.Repeat("  ", r.Depth) + r.Task.Name
		switch {
		case r.Collapsed:
			name = strings.Repeat("  ", r.Depth) + "▸ " + r.Task.Name
		case r.HasChildren:
			name = strings.Repeat("  ", r.Depth) + "▾ " + r.Task.Name
		}
		done := ""
		if r.TotalChildren > 0 {
			done = fmt.Sprintf("%d/%d", r.DoneChildren, r.TotalChildren)
		}
		hidden := ""
		if r.Hidden > 0 {
			hidden = strconv.Itoa(r.Hidden)
		}
		out = append(out, []string{
			r.Code, r.ID, name, r.Task.Status.Label(), strconv.Itoa(r.Task.Progress) + "%", done, hidden,
		})
	}
	return out
}

// codesView is the codes payload in document order.
type codesView struct {
	ids   []string
	codes map[string]string
}

func (v codesView) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, id := range v.ids {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(id))
		b.WriteByte(':')
		b.WriteString(strconv.Quote(v.codes[id]))
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

func (codesView) Header() []string { return []string{"ID", "WBS"} }

func (v codesView) Records() [][]string {
	out := make([][]string, 0, len(v.ids))
	for _, id := range v.ids {
		out = append(out, []string{id, v.codes[id]})
	}
	return out
}

func newRowsCmd(app *App) *cobra.Command {
	var collapse []string
	var all bool

	cmd := &cobra.Command{
		Use:   "rows",
		Short: "List visible rows (pre-order, with WBS codes)",
		Example: strings.TrimSpace(`
  wbs rows
  wbs rows --collapse wbs-1,2 --format table
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEngine(cmd.Context(), app, nil)
			if err != nil {
				return writeErr(cmd, err)
			}
			if all {
				e.ToggleCollapseAll(false)
			}
			if err := applyCollapse(e, collapse); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, rowsView(e.Rows()))
		},
	}
	cmd.Flags().StringSliceVar(&collapse, "collapse", nil, "Collapse these rows (ids or WBS codes, comma-separated)")
	cmd.Flags().BoolVar(&all, "all", false, "Ignore collapse flags stored in the snapshot")
	return cmd
}

// applyCollapse collapses every referenced row. Codes are resolved before any row is
// collapsed, so they refer to the unchanged numbering.
func applyCollapse(e *engine.Engine, refs []string) error {
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		id, ok := e.Resolve(ref)
		if !ok {
			return errNotFound("node", ref)
		}
		ids = append(ids, id)
	}
	for _, id := range ids {
		e.SetCollapsed(id, true)
	}
	return nil
}

func newCodesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "codes",
		Short: "Map every node id to its WBS code",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEngine(cmd.Context(), app, nil)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, codesView{ids: e.Tree().IDs(), codes: e.Codes()})
		},
	}
}

func newShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id|code>",
		Short: "Show one node with its position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEngine(cmd.Context(), app, nil)
			if err != nil {
				return writeErr(cmd, err)
			}
			id, ok := e.Resolve(args[0])
			if !ok {
				return writeErr(cmd, errNotFound("node", args[0]))
			}
			row, _ := e.Node(id)
			children, _ := e.Tree().ChildrenOf(id)
			childIDs := make([]string, 0, len(children))
			for _, ch := range children {
				childIDs = append(childIDs, ch.ID)
			}
			return writeOut(cmd, app, map[string]any{
				"row":      row,
				"path":     e.Tree().PathTo(id),
				"children": childIDs,
				"subtree":  e.Tree().SubtreeSize(id),
				"rollup":   outline.Rollup(e.Tree().Roots())[id],
			})
		},
	}
}

func newTreeCmd(app *App) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the plan as a nested snapshot (optionally write it to a file)",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEngine(cmd.Context(), app, nil)
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := writeSnapshotTo(e, out); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, e.Snapshot())
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "Also write the snapshot to this .json/.yaml file")
	return cmd
}
