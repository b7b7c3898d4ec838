package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/justestif/go-spotify-mood-timeline/internal/auth"
	"github.com/justestif/go-spotify-mood-timeline/internal/clustering"
	"github.com/justestif/go-spotify-mood-timeline/internal/config"
	"github.com/justestif/go-spotify-mood-timeline/internal/library"
	"github.com/justestif/go-spotify-mood-timeline/internal/logger"
)

// reportOptions are the parsed flags of the report command.
type reportOptions struct {
	Request   library.Request
	Samples   int
	Playlists bool
}

func parseReportFlags(args []string, today time.Time, errOut io.Writer) (reportOptions, error) {
	flags := flag.NewFlagSet("report", flag.ContinueOnError)
	flags.SetOutput(errOut)

	start := flags.String("start", "", "first day to include, YYYY-MM-DD (required)")
	end := flags.String("end", "", "last day to include, YYYY-MM-DD (default today)")
	group := flags.String("group", string(library.GroupMonthly), "period grouping: monthly, seasonal or yearly")
	genre := flags.String("genre", "", "only tracks whose primary artist has a genre containing this text")
	mood := flags.String("mood", "", "only tracks with this mood: "+moodList())
	samples := flags.Int("samples", 0, "tracks listed per period (0 for the default, -1 for all)")
	playlists := flags.Bool("playlists", false, "save every period as a private playlist")

	if err := flags.Parse(args); err != nil {
		return reportOptions{}, err
	}
	if flags.NArg() > 0 {
		return reportOptions{}, fmt.Errorf("unexpected arguments: %s", strings.Join(flags.Args(), " "))
	}

	if *start == "" {
		return reportOptions{}, errors.New("-start is required")
	}
	startDate, err := library.ParseDate(*start)
	if err != nil {
		return reportOptions{}, err
	}

	endDate := today.UTC()
	if *end != "" {
		if endDate, err = library.ParseDate(*end); err != nil {
			return reportOptions{}, err
		}
	}

	groupBy, err := library.ParseGroupByStrict(*group)
	if err != nil {
		return reportOptions{}, err
	}
	m, err := library.ParseMood(*mood)
	if err != nil {
		return reportOptions{}, err
	}

	req := library.Request{
		Start:   startDate,
		End:     endDate,
		GroupBy: groupBy,
		Genre:   strings.TrimSpace(*genre),
		Mood:    m,
	}
	if err := req.Validate(); err != nil {
		return reportOptions{}, err
	}

	return reportOptions{Request: req, Samples: *samples, Playlists: *playlists}, nil
}

func moodList() string {
	moods := library.Moods()
	names := make([]string, len(moods))
	for i, m := range moods {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

func report(ctx context.Context, cfg *config.Config, log *logger.Logger, args []string, out io.Writer) error {
	opts, err := parseReportFlags(args, time.Now(), os.Stderr)
	if err != nil {
		return err
	}

	d, err := newDeps(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer d.Close()

	authenticator, err := newCLIAuth(cfg, log)
	if err != nil {
		return err
	}
	api, err := authenticator.Authenticate(ctx)
	if err != nil {
		return fmt.Errorf("authenticating: %w", err)
	}
	lib := d.newLibrary(api)

	result, err := lib.Aggregate(ctx, opts.Request)
	if err != nil {
		return err
	}

	sink := clustering.TextSink{Config: clustering.DefaultConfig(), Samples: opts.Samples}
	if err := sink.Render(out, result); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	if !opts.Playlists {
		return nil
	}
	return savePlaylists(ctx, lib, result, opts.Request, out)
}

type playlistSaver interface {
	SavePlaylist(ctx context.Context, name, description string, entries []library.Entry) (string, error)
}

// savePlaylists saves each period of result, newest first.
func savePlaylists(ctx context.Context, saver playlistSaver, result *library.Result, req library.Request, out io.Writer) error {
	if len(result.Keys) > 0 {
		fmt.Fprintln(out)
	}
	description := fmt.Sprintf("Saved tracks from %s to %s",
		req.Start.Format(library.DateLayout), req.End.Format(library.DateLayout))

	for _, key := range result.Keys {
		name := key
		if req.Mood != "" {
			name += " · " + string(req.Mood)
		}
		if req.Genre != "" {
			name += " · " + req.Genre
		}

		id, err := saver.SavePlaylist(ctx, name, description, result.Groups[key])
		if err != nil {
			return fmt.Errorf("saving playlist %q: %w", name, err)
		}
		fmt.Fprintf(out, "Saved %q: https://open.spotify.com/playlist/%s\n", name, id)
	}
	return nil
}

func newCLIAuth(cfg *config.Config, log *logger.Logger) (*auth.Authenticator, error) {
	return auth.New(auth.Config{
		ClientID:     cfg.SpotifyID,
		ClientSecret: cfg.SpotifySecret,
		RedirectURL:  cfg.RedirectURL,
		TokenPath:    cfg.TokenPath,
	}, auth.WithLogger(log), auth.WithOutput(os.Stderr))
}

func logout(cfg *config.Config, log *logger.Logger, out io.Writer) error {
	authenticator, err := newCLIAuth(cfg, log)
	if err != nil {
		return err
	}
	if err := authenticator.Logout(); err != nil {
		return fmt.Errorf("removing cached token: %w", err)
	}
	fmt.Fprintln(out, "Logged out.")
	return nil
}
