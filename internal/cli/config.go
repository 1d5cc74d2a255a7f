package cli

import (
	"fmt"
	"os"
	"strings"

	"wbs-cli/internal/store"

	"github.com/spf13/cobra"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := app.indentWidth()
			if err != nil {
				return writeErr(cmd, err)
			}
			path := app.ConfigPath
			if strings.TrimSpace(path) == "" {
				path, _ = store.ConfigPath()
			}
			return writeOut(cmd, app, map[string]any{
				"config":      path,
				"snapshot":    app.Snapshot,
				"policy":      app.Policy,
				"indentWidth": w,
				"journal":     app.Journal,
				"logLevel":    app.LogLevel,
				"format":      app.Format,
				"addr":        app.cfg.Addr,
			})
		},
	}
	cmd.AddCommand(newConfigInitCmd(app))
	return cmd
}

func newConfigInitCmd(app *App) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the current settings to the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := app.indentWidth()
			if err != nil {
				return writeErr(cmd, err)
			}
			pol, err := app.policy()
			if err != nil {
				return writeErr(cmd, err)
			}
			cfg := &store.Config{
				Policy:      pol.Name(),
				IndentWidth: w,
				Snapshot:    app.Snapshot,
				Journal:     app.Journal,
				LogLevel:    app.LogLevel,
				Format:      app.Format,
				Addr:        app.cfg.Addr,
			}
			path := app.ConfigPath
			if strings.TrimSpace(path) == "" {
				if path, err = store.ConfigPath(); err != nil {
					return writeErr(cmd, err)
				}
			}
			if !force {
				if _, err := os.Stat(path); err == nil {
					return writeErr(cmd, fmt.Errorf("config already exists: %s (use --force to overwrite)", path))
				}
			}
			if err := store.SaveConfig(path, cfg); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"config": path, "settings": cfg})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	return cmd
}
