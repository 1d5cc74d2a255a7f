package cli

import (
	"fmt"
	"os"
	"strings"

	"wbs-cli/internal/engine"

	"github.com/spf13/cobra"
)

func newReplayCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <script.yaml|script.json>",
		Short: "Apply a scripted sequence of events and report every outcome",
		Long: strings.TrimSpace(`
Apply an ordered list of drop, move, toggle, toggle-all, flip-all and reset events
to the plan. Rejected events are reported and the script continues.

Run ` + "`wbs docs replay`" + ` for the script format.
`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := os.ReadFile(args[0])
			if err != nil {
				return writeErr(cmd, fmt.Errorf("read script: %w", err))
			}
			script, err := engine.ParseScript(b)
			if err != nil {
				return writeErr(cmd, err)
			}
			metrics := engine.NewMetrics()
			e, err := loadEngine(cmd.Context(), app, metrics)
			if err != nil {
				return writeErr(cmd, err)
			}
			steps := e.Replay(script)
			snap, err := metrics.Snapshot()
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"steps":   steps,
				"rows":    rowsView(e.Rows()),
				"shape":   e.Tree().Shape(),
				"metrics": snap,
			})
		},
	}
	return cmd
}
