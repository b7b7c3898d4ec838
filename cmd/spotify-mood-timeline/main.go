// Command spotify-mood-timeline groups the tracks you saved on Spotify into
// mood-labelled periods, as a web app (serve) or a terminal report (report).
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/justestif/go-spotify-mood-timeline/internal/config"
	"github.com/justestif/go-spotify-mood-timeline/internal/logger"
)

var errUsage = errors.New("usage")

func main() {
	if err := run(os.Args[1:]); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		usage(os.Stderr)
		return errUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "help", "-h", "-help", "--help":
		usage(os.Stdout)
		return nil
	case "serve", "report", "logout":
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		usage(os.Stderr)
		return errUsage
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case "serve":
		return serve(ctx, cfg, log)
	case "report":
		return report(ctx, cfg, log, rest, os.Stdout)
	default:
		return logout(cfg, log, os.Stdout)
	}
}

func usage(w io.Writer) {
	fmt.Fprint(w, `Usage: spotify-mood-timeline <command> [flags]

Commands:
  serve    run the web app
  report   print the mood timeline of your saved tracks
  logout   remove the cached login token

Configuration is read from MOODS_* environment variables and the optional
YAML file named by MOODS_CONFIG. Run "spotify-mood-timeline report -h" for
report flags.
`)
}
