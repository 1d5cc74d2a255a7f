package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"wbs-cli/internal/cli"
	"wbs-cli/internal/outline"
)

// isNodeRef reports whether s looks like a WBS code ("2.1") or a generated id ("wbs-2-1").
func isNodeRef(s string) bool {
	s = strings.TrimSpace(s)
	if _, ok := outline.ParseCode(s); ok {
		return true
	}
	return strings.HasPrefix(s, "wbs-") && len(s) > len("wbs-")
}

func rewriteDirectShowArgs(argv []string) []string {
	// Convenience: `wbs 2.1` works like `wbs show 2.1`.
	//
	// Cobra treats the first non-flag token as a subcommand, so argv is rewritten before
	// parsing. Persistent flags may come first, so look for the first positional token.
	if len(argv) < 2 {
		return argv
	}

	valueFlags := map[string]bool{
		"--config":       true,
		"--snapshot":     true,
		"--policy":       true,
		"--indent-width": true,
		"--journal":      true,
		"--log-level":    true,
		"--format":       true,
	}
	boolFlags := map[string]bool{
		"--pretty": true,
	}

	insertShow := func(i int) []string {
		out := make([]string, 0, len(argv)+1)
		out = append(out, argv[:i]...)
		out = append(out, "show")
		return append(out, argv[i:]...)
	}

	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		if a == "" {
			continue
		}
		if a == "--" {
			if i+1 < len(argv) && isNodeRef(argv[i+1]) {
				return insertShow(i + 1)
			}
			return argv
		}
		if strings.HasPrefix(a, "-") {
			if strings.Contains(a, "=") || boolFlags[a] {
				continue
			}
			if valueFlags[a] {
				i++
			}
			continue
		}
		if isNodeRef(a) {
			return insertShow(i)
		}
		return argv
	}
	return argv
}

func main() {
	os.Args = rewriteDirectShowArgs(os.Args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := cli.NewRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
