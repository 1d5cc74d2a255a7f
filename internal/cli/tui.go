package cli

import (
	"fmt"
	"strings"

	"wbs-cli/internal/tui"

	"github.com/spf13/cobra"
)

func newTUICmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Start the interactive outline (keyboard drag-and-drop)",
		Long: strings.TrimSpace(`
Start the interactive outline.

Pick a row up with space, move the cursor to the drop target, shift levels with
←/→ and release with space again. Press ? inside the TUI for every key.
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, app)
		},
	}
	cmd.Flags().StringVar(&app.tuiOut, "out", "", "Write the final plan to this file on exit (.json|.yaml)")
	return cmd
}

func runTUI(cmd *cobra.Command, app *App) error {
	e, err := loadEngine(cmd.Context(), app, nil)
	if err != nil {
		return writeErr(cmd, err)
	}
	if err := tui.Run(e); err != nil {
		return writeErr(cmd, err)
	}
	if out := strings.TrimSpace(app.tuiOut); out != "" {
		if err := writeSnapshotTo(e, out); err != nil {
			return writeErr(cmd, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", out)
	}
	return nil
}
