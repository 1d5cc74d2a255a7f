package cli

import (
	"errors"
	"strings"

	"wbs-cli/internal/store"

	"github.com/spf13/cobra"
)

func newJournalCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show the most recent session journal entries (oldest first)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(app.Journal) == "" {
				return writeErr(cmd, errors.New("no journal configured (pass --journal or set journal in the config file)"))
			}
			j, err := store.OpenJournal(cmd.Context(), app.Journal)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer j.Close()
			entries, err := j.Tail(cmd.Context(), limit)
			if err != nil {
				return writeErr(cmd, err)
			}
			if entries == nil {
				entries = []store.JournalEntry{}
			}
			return writeOut(cmd, app, entries)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Max entries to return")
	return cmd
}
