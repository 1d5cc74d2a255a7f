package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"wbs-cli/internal/engine"
	"wbs-cli/internal/format"
	"wbs-cli/internal/mutate"
	"wbs-cli/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type App struct {
	ConfigPath  string
	Snapshot    string
	Policy      string
	IndentWidth string
	Journal     string
	LogLevel    string
	Format      string
	PrettyJSON  bool

	cfg     *store.Config
	logger  *zap.Logger
	journal *store.Journal
	tuiOut  string
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "wbs",
		Short:        "Work breakdown structure outline with drag-and-drop restructuring",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive outline
  wbs

  # Visible rows with WBS codes
  wbs rows --collapse wbs-2

  # Drop 1.2 below 2.1, one level deeper
  wbs drop 1.2 2.1 --offset 24 --half lower

  # Same edit, written back to the snapshot file
  wbs --snapshot plan.yaml drop wbs-1-2 wbs-2-1 --offset 24 --write
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if len(args) == 0 {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.resolve(cmd)
	}
	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return app.close()
	}

	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", envOr("WBS_CONFIG", ""), "Config file (default: ~/.wbs/config.yaml)")
	cmd.PersistentFlags().StringVar(&app.Snapshot, "snapshot", envOr("WBS_SNAPSHOT", ""), "Initial plan (.json|.yaml); default: built-in sample")
	cmd.PersistentFlags().StringVar(&app.Policy, "policy", envOr("WBS_POLICY", ""), "Drop policy (free|sibling)")
	cmd.PersistentFlags().StringVar(&app.IndentWidth, "indent-width", envOr("WBS_INDENT_WIDTH", ""), "Horizontal drag distance per indent level")
	cmd.PersistentFlags().StringVar(&app.Journal, "journal", envOr("WBS_JOURNAL", ""), "SQLite session journal path (optional)")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", envOr("WBS_LOG_LEVEL", ""), "Log level on stderr (off|debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("WBS_FORMAT", ""), "Output format (json|edn|table)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print output")

	cmd.AddCommand(newRowsCmd(app))
	cmd.AddCommand(newCodesCmd(app))
	cmd.AddCommand(newShowCmd(app))
	cmd.AddCommand(newTreeCmd(app))
	cmd.AddCommand(newMoveCmd(app))
	cmd.AddCommand(newDropCmd(app))
	cmd.AddCommand(newReplayCmd(app))
	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newJournalCmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newDocsCmd(app))
	cmd.AddCommand(newTUICmd(app))

	return cmd
}

// resolve merges settings: flags and WBS_* variables win over the config file, which
// wins over the defaults.
func (app *App) resolve(cmd *cobra.Command) error {
	cfg, err := store.LoadConfig(app.ConfigPath)
	if err != nil {
		return writeErr(cmd, err)
	}
	app.Snapshot = firstNonEmpty(app.Snapshot, cfg.Snapshot)
	app.Policy = firstNonEmpty(app.Policy, cfg.Policy)
	app.Journal = firstNonEmpty(app.Journal, cfg.Journal)
	app.LogLevel = firstNonEmpty(app.LogLevel, cfg.LogLevel)
	app.Format = firstNonEmpty(app.Format, cfg.Format)
	if strings.TrimSpace(app.IndentWidth) == "" {
		app.IndentWidth = strconv.FormatFloat(cfg.IndentWidth, 'f', -1, 64)
	}
	app.cfg = cfg

	logger, err := newLogger(app.LogLevel, cmd.ErrOrStderr())
	if err != nil {
		return writeErr(cmd, err)
	}
	app.logger = logger
	return nil
}

func (app *App) close() error {
	if app.logger != nil {
		_ = app.logger.Sync()
	}
	if app.journal != nil {
		err := app.journal.Close()
		app.journal = nil
		return err
	}
	return nil
}

func (app *App) policy() (mutate.Policy, error) {
	return mutate.ParsePolicy(app.Policy)
}

func (app *App) indentWidth() (float64, error) {
	s := strings.TrimSpace(app.IndentWidth)
	if s == "" {
		return store.DefaultIndentWidth, nil
	}
	w, err := strconv.ParseFloat(s, 64)
	if err != nil || w <= 0 {
		return 0, fmt.Errorf("invalid --indent-width %q (expected a positive number)", app.IndentWidth)
	}
	return w, nil
}

func (app *App) log() *zap.Logger {
	if app.logger == nil {
		return zap.NewNop()
	}
	return app.logger
}

// loadEngine builds an engine over the configured snapshot, with the journal attached
// when one is configured.
func loadEngine(ctx context.Context, app *App, metrics *engine.Metrics) (*engine.Engine, error) {
	snap, err := store.LoadSnapshot(app.Snapshot)
	if err != nil {
		return nil, err
	}
	p, err := app.policy()
	if err != nil {
		return nil, err
	}
	w, err := app.indentWidth()
	if err != nil {
		return nil, err
	}
	opts := []engine.Option{
		engine.WithPolicy(p),
		engine.WithIndentWidth(w),
		engine.WithLogger(app.log()),
		engine.WithMetrics(metrics),
	}
	if strings.TrimSpace(app.Journal) != "" {
		j, err := store.OpenJournal(ctx, app.Journal)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		app.journal = j
		opts = append(opts, engine.WithRecorder(j))
	}
	return engine.New(snap, opts...)
}

func newLogger(level string, w io.Writer) (*zap.Logger, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" || level == "off" {
		return zap.NewNop(), nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q (expected off|debug|info|warn|error)", level)
	}
	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(zapcore.AddSync(w)), lvl)
	return zap.New(core), nil
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// writeOut prints {"data": v} as json or edn. For table output v itself is rendered and
// must implement format.Tabular.
func writeOut(cmd *cobra.Command, app *App, v any) error {
	if strings.EqualFold(strings.TrimSpace(app.Format), "table") {
		if t, ok := v.(format.Tabular); ok {
			return format.WriteTable(cmd.OutOrStdout(), t)
		}
		return writeErr(cmd, errors.New("--format table is not available for this command (use json or edn)"))
	}
	return format.Write(cmd.OutOrStdout(), map[string]any{"data": v}, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
