package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"text/tabwriter"
	"time"

	"scorebot/internal/cache"
	"scorebot/internal/config"
	scorecache "scorebot/pkg/cache"
	scores "scorebot/pkg/tracker"

	"github.com/urfave/cli/v2"
)

const flagConfigDir = "config-dir"

// session is one opened cache plus the repository over it.
type session struct {
	store      scorecache.Store
	repository *scores.Repository
}

func (s session) close() error {
	return cache.Close(s.store)
}

func newApp(stdout io.Writer) *cli.App {
	return &cli.App{
		Name:      "scorectl",
		Usage:     "inspect and edit scorebot trackers",
		Writer:    stdout,
		ErrWriter: stdout,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfigDir,
				Usage:   "configuration directory (defaults to the bot's lookup order)",
				EnvVars: []string{config.EnvConfigDir},
			},
		},
		Commands: []*cli.Command{
			newListCommand(),
			newShowCommand(),
			newFixCommand(),
			newDeleteCommand(),
			newPurgeCommand(),
			newExportCommand(),
		},
	}
}

func openSession(c *cli.Context) (session, error) {
	dirPath := c.String(flagConfigDir)
	if dirPath == "" {
		resolved, err := config.ResolveDir()
		if err != nil {
			return session{}, fmt.Errorf("resolve config dir: %w", err)
		}
		dirPath = resolved
	}

	dir, err := config.LoadDir(dirPath)
	if err != nil {
		return session{}, fmt.Errorf("load config dir: %w", err)
	}
	app, err := config.LoadApp(dir)
	if err != nil {
		return session{}, fmt.Errorf("load config: %w", err)
	}

	store, err := cache.Open(c.Context, app.Cache)
	if err != nil {
		return session{}, err
	}
	logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: slog.LevelWarn}))

	return session{
		store:      store,
		repository: scores.NewRepository(store, scores.WithLogger(logger)),
	}, nil
}

// withSession opens the cache for one command and closes it afterwards.
func withSession(action func(c *cli.Context, s session) error) cli.ActionFunc {
	return func(c *cli.Context) (err error) {
		s, err := openSession(c)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := s.close(); closeErr != nil && err == nil {
				err = fmt.Errorf("close cache: %w", closeErr)
			}
		}()

		return action(c, s)
	}
}

func newListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "print every stored tracker",
		Action: withSession(func(c *cli.Context, s session) error {
			trackers, err := s.repository.All(c.Context)
			if err != nil {
				return err
			}

			return printTrackers(c.App.Writer, trackers)
		}),
	}
}

func newShowCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "print the trackers of the given channels",
		ArgsUsage: "<channel>...",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "raw", Usage: "print the stored record unchanged"},
		},
		Action: withSession(func(c *cli.Context, s session) error {
			channels := c.Args().Slice()
			if len(channels) == 0 {
				return errors.New("show: at least one channel is required")
			}
			if c.Bool("raw") {
				return printRaw(c.Context, c.App.Writer, s.store, channels)
			}

			trackers := make([]*scores.Tracker, 0, len(channels))
			for _, channel := range channels {
				exists, err := s.repository.Exists(c.Context, channel)
				if err != nil {
					return err
				}
				if !exists {
					fmt.Fprintf(c.App.Writer, "%s: no tracker\n", channel)
					continue
				}
				loaded, err := s.repository.Load(c.Context, channel)
				if err != nil {
					return err
				}
				trackers = append(trackers, loaded)
			}
			if len(trackers) == 0 {
				return nil
			}

			return printTrackers(c.App.Writer, trackers)
		}),
	}
}

func newFixCommand() *cli.Command {
	return &cli.Command{
		Name:      "fix",
		Usage:     "overwrite a channel's score, creating the tracker if needed",
		ArgsUsage: "<channel> <victories> <defeats>",
		Action: withSession(func(c *cli.Context, s session) error {
			if c.NArg() != 3 {
				return errors.New("fix: expected <channel> <victories> <defeats>")
			}
			victories, err := parseCount(c.Args().Get(1))
			if err != nil {
				return fmt.Errorf("fix: victories: %w", err)
			}
			defeats, err := parseCount(c.Args().Get(2))
			if err != nil {
				return fmt.Errorf("fix: defeats: %w", err)
			}

			updated, err := s.repository.Update(c.Context, c.Args().First(), func(t *scores.Tracker, _ bool) error {
				t.SetScore(scores.NewScore(victories, defeats))
				return nil
			})
			if err != nil {
				return err
			}

			return printTrackers(c.App.Writer, []*scores.Tracker{updated})
		}),
	}
}

func newDeleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "remove the trackers of the given channels",
		ArgsUsage: "<channel>...",
		Action: withSession(func(c *cli.Context, s session) error {
			channels := c.Args().Slice()
			if len(channels) == 0 {
				return errors.New("delete: at least one channel is required")
			}
			if err := s.repository.DeleteMany(c.Context, channels); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "deleted %d tracker(s)\n", len(channels))

			return nil
		}),
	}
}

func newPurgeCommand() *cli.Command {
	return &cli.Command{
		Name:  "purge",
		Usage: "remove every entry of the configured cache namespace",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Usage: "confirm the purge"},
		},
		Action: withSession(func(c *cli.Context, s session) error {
			if !c.Bool("yes") {
				return errors.New("purge: pass --yes to remove every entry")
			}
			if err := s.store.Clear(c.Context); err != nil {
				return fmt.Errorf("purge cache: %w", err)
			}
			fmt.Fprintln(c.App.Writer, "cache purged")

			return nil
		}),
	}
}

func newExportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "write every tracker to an xlsx workbook",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Usage: "output workbook path", Required: true},
		},
		Action: withSession(func(c *cli.Context, s session) error {
			trackers, err := s.repository.All(c.Context)
			if err != nil {
				return err
			}
			path := c.String("out")
			if err := writeWorkbook(path, trackers); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "exported %d tracker(s) to %s\n", len(trackers), path)

			return nil
		}),
	}
}

func parseCount(raw string) (uint, error) {
	value, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%q is not a non-negative integer", raw)
	}

	return uint(value), nil
}

func printTrackers(w io.Writer, trackers []*scores.Tracker) error {
	table := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(table, "CHANNEL\tVICTORIES\tDEFEATS\tGAMES\tWIN RATE\tLAST MODIFIED")
	for _, t := range trackers {
		score := t.Score()
		fmt.Fprintf(table, "%s\t%d\t%d\t%d\t%s\t%s\n",
			t.ID(),
			score.Victories(),
			score.Defeats(),
			score.Total(),
			score.WinRatePercent(),
			t.LastModified().UTC().Format(time.RFC3339),
		)
	}

	return table.Flush()
}

func printRaw(ctx context.Context, w io.Writer, store scorecache.Store, channels []string) error {
	records := scorecache.NewTyped[string](store, scorecache.RawCodec{})
	for _, channel := range channels {
		raw, found, err := records.Get(ctx, scores.Key(channel))
		if err != nil {
			return err
		}
		if !found {
			fmt.Fprintf(w, "%s: no tracker\n", channel)
			continue
		}
		fmt.Fprintf(w, "%s: %s\n", channel, raw)
	}

	return nil
}
