package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"wbs-cli/internal/engine"
	"wbs-cli/internal/web"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(app *App) *cobra.Command {
	var addr string
	var open bool
	var origins []string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the outline over HTTP (JSON API + read-only HTML view)",
		Long: strings.TrimSpace(`
Serve one live outline over HTTP.

GET  /rows /codes /tree /metrics /health
POST /drop /move /drag/{start,over,end,cancel} /collapse/{id} /collapse-all /reset
PUT  /policy

Every response is {"data": ...}; rejected edits answer 409 with the outcome.
`),
		Example: strings.TrimSpace(`
# Serve the sample plan on localhost
wbs serve --addr 127.0.0.1:7070

# Serve a plan and record every event
wbs --snapshot plan.yaml --journal session.db serve
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			listenAddr := strings.TrimSpace(firstNonEmpty(addr, app.cfg.Addr))
			if listenAddr == "" {
				return writeErr(cmd, errors.New("serve: missing --addr"))
			}

			eng, err := loadEngine(cmd.Context(), app, engine.NewMetrics())
			if err != nil {
				return writeErr(cmd, err)
			}
			srv, err := web.NewServer(web.ServerConfig{
				Engine:         eng,
				Logger:         app.log(),
				AllowedOrigins: origins,
			})
			if err != nil {
				return writeErr(cmd, err)
			}

			ln, err := net.Listen("tcp", listenAddr)
			if err != nil {
				return writeErr(cmd, err)
			}
			actualAddr := ln.Addr().String()
			url := "http://" + actualAddr + "/"

			opened := false
			openErr := ""
			if open {
				if err := openURL(url); err != nil {
					openErr = err.Error()
				} else {
					opened = true
				}
			}

			_ = writeOut(cmd, app, map[string]any{
				"addr":      actualAddr,
				"url":       url,
				"policy":    eng.Policy().Name(),
				"nodes":     eng.Tree().Len(),
				"opened":    opened,
				"openError": openErr,
				"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
			})
			fmt.Fprintf(cmd.ErrOrStderr(), "wbs serving %s at %s\n", eng.Title(), url)

			return serveUntilDone(cmd.Context(), ln, srv.Handler(), app.log())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", envOr("WBS_ADDR", ""), "Bind address (host:port or :port; default from config, 127.0.0.1:7070)")
	cmd.Flags().BoolVar(&open, "open", false, "Open the HTML view in your default browser")
	cmd.Flags().StringSliceVar(&origins, "cors-origin", nil, "Allowed CORS origin (repeatable; default any)")
	return cmd
}

// serveUntilDone serves on ln until ctx is cancelled, then drains in-flight requests.
func serveUntilDone(ctx context.Context, ln net.Listener, h http.Handler, log *zap.Logger) error {
	hs := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- hs.Serve(ln) }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return hs.Shutdown(shutdownCtx)
	}
}

func openURL(url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return errors.New("empty url")
	}
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Run()
	case "windows":
		return exec.Command("cmd", "/c", "start", "", url).Run()
	default:
		return exec.Command("xdg-open", url).Run()
	}
}
