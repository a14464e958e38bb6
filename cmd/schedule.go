package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"studyplan/internal/api"
	"studyplan/internal/caldav"
	"studyplan/internal/calendar"
	"studyplan/internal/export"
	"studyplan/internal/google"
	"studyplan/internal/planner"
	"studyplan/internal/publish"
	"studyplan/internal/querycache"
	"studyplan/internal/session"
)

var dateFlag = &cli.TimestampFlag{Name: "date", Layout: api.DateLayout, Usage: "Reference date YYYY-MM-DD (default today)."}

// keepFirstWeek returns a refresh listener that delivers the first
// successful week into ch and drops later ones without blocking.
func keepFirstWeek(ch chan<- planner.Week) func(planner.Week, error) {
	return func(week planner.Week, err error) {
		if err != nil {
			return
		}
		select {
		case ch <- week:
		default:
		}
	}
}

// referenceDate returns the --date flag as a local date, or today.
func referenceDate(c *cli.Context, env *appEnv) time.Time {
	if ts := c.Timestamp("date"); ts != nil {
		return time.Date(ts.Year(), ts.Month(), ts.Day(), 12, 0, 0, 0, env.loc)
	}
	return time.Now().In(env.loc)
}

// calendarCommand renders mode, or the remembered mode when mode is empty.
func calendarCommand(name string, mode session.ViewMode) *cli.Command {
	usage := "Show the remembered calendar view."
	if mode != "" {
		usage = fmt.Sprintf("Show the %s view of the schedule.", mode)
	}
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Flags: []cli.Flag{
			dateFlag,
			&cli.IntFlag{Name: "offset", Usage: "Move by N weeks (days in day view) from the reference date."},
			&cli.StringFlag{Name: "select", Usage: "Open the detail of an event ID."},
			&cli.BoolFlag{Name: "json", Usage: "Print the layout as JSON."},
			&cli.IntFlag{Name: "from-hour", Value: 6},
			&cli.IntFlag{Name: "to-hour", Value: 24},
			&cli.IntFlag{Name: "width", Value: 18, Usage: "Column width."},
		},
		Action: withEnv(func(c *cli.Context, env *appEnv) error {
			prefsPath := env.cfg.PreferencesPath()
			prefs := session.LoadPreferences(env.logger, prefsPath)
			if mode != "" && prefs.CalendarView != mode {
				prefs.CalendarView = mode
				session.SavePreferences(env.logger, prefsPath, prefs)
			}

			view := calendar.NewView(env.planner.Grid(), prefs.CalendarView, referenceDate(c, env))
			for i := 0; i < c.Int("offset"); i++ {
				view.Next()
			}
			for i := 0; i > c.Int("offset"); i-- {
				view.Prev()
			}
			if id := c.String("select"); id != "" {
				view.Selection.Open(id)
			}

			week, err := env.planner.FetchWeek(c.Context, view.Reference)
			if err != nil {
				return err
			}
			return renderWeek(c, env, view, week)
		}),
	}
}

func renderWeek(c *cli.Context, env *appEnv, view *calendar.View, week planner.Week) error {
	subjects, err := env.planner.SubjectNames(c.Context)
	if err != nil {
		// Labels are optional; the calendar still renders without them.
		env.logger.Warn("Could not load subjects", "error", err)
	}

	l := view.Build(week.Events, subjects)
	l.Stale = week.Stale
	if c.Bool("json") {
		return calendar.RenderJSON(os.Stdout, l)
	}
	return calendar.RenderText(os.Stdout, l, calendar.TextOptions{
		FromHour:    c.Int("from-hour"),
		ToHour:      c.Int("to-hour"),
		ColumnWidth: c.Int("width"),
	})
}

func generateCommand() *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "Generate a study schedule from pending tasks.",
		Flags: []cli.Flag{
			&cli.TimestampFlag{Name: "end-date", Layout: api.DateLayout, Usage: "Last day to schedule, YYYY-MM-DD."},
			&cli.IntFlag{Name: "short-break", Usage: "Short break minutes (1-60)."},
			&cli.IntFlag{Name: "medium-break", Usage: "Medium break minutes (1-60)."},
			&cli.IntFlag{Name: "long-break", Usage: "Long break minutes (1-120)."},
			&cli.IntFlag{Name: "long-break-after", Usage: "Study minutes before a long break (15-480)."},
			&cli.BoolFlag{Name: "show", Usage: "Wait for the refreshed week and render it."},
		},
		Action: withEnv(func(c *cli.Context, env *appEnv) error {
			params := env.cfg.GenerateParams()
			if ts := c.Timestamp("end-date"); ts != nil {
				end := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, env.loc)
				params.EndDate = &end
			}
			if c.IsSet("short-break") {
				params.ShortBreakMinutes = c.Int("short-break")
			}
			if c.IsSet("medium-break") {
				params.MediumBreakMinutes = c.Int("medium-break")
			}
			if c.IsSet("long-break") {
				params.LongBreakMinutes = c.Int("long-break")
			}
			if c.IsSet("long-break-after") {
				params.LongBreakAfterMinutes = c.Int("long-break-after")
			}

			refreshed := make(chan planner.Week, 1)
			env.planner.OnRefresh(keepFirstWeek(refreshed))
			dialog := planner.NewDialog(env.planner)
			dialog.Open()
			dialog.SetParams(params)
			res, err := dialog.Submit(c.Context)
			if err != nil {
				return err
			}
			fmt.Printf("%s (%d entries created)\n", res.Message, res.EntriesCreated)

			if !c.Bool("show") {
				return nil
			}
			select {
			case week := <-refreshed:
				view := calendar.NewView(env.planner.Grid(), session.ViewWeek, week.Reference)
				return renderWeek(c, env, view, week)
			case <-time.After(env.cfg.RefetchDelay + 15*time.Second):
				return fmt.Errorf("timed out waiting for the refreshed schedule")
			case <-c.Context.Done():
				return c.Context.Err()
			}
		}),
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export a week of the schedule as an iCalendar file.",
		Flags: []cli.Flag{
			dateFlag,
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "schedule.ics", Usage: "Output file, - for stdout."},
		},
		Action: withEnv(func(c *cli.Context, env *appEnv) error {
			week, err := env.planner.FetchWeek(c.Context, referenceDate(c, env))
			if err != nil {
				return err
			}
			subjects, err := env.planner.SubjectNames(c.Context)
			if err != nil {
				env.logger.Warn("Could not load subjects", "error", err)
			}

			out := os.Stdout
			if path := c.String("out"); path != "-" {
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", path, err)
				}
				defer f.Close()
				out = f
			}
			if err := export.WriteICS(out, week.Events, subjects); err != nil {
				return err
			}
			env.logger.Info("Exported schedule", "events", len(week.Events), "week", week.Start().Format(api.DateLayout), "file", c.String("out"))
			return nil
		}),
	}
}

func publishCommand() *cli.Command {
	return &cli.Command{
		Name:  "publish",
		Usage: "Publish the current week to CalDAV or Google Calendar.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "target", Usage: "caldav or google (default from config)."},
			&cli.BoolFlag{Name: "dry-run", Usage: "Log what would be published without making changes."},
			&cli.BoolFlag{Name: "watch", Usage: "Keep publishing on the configured cron schedule."},
			&cli.StringFlag{Name: "schedule", Usage: "Cron schedule for --watch (default from config)."},
		},
		Action: withEnv(func(c *cli.Context, env *appEnv) error {
			logger := env.logger
			if c.Bool("dry-run") {
				logger.Info("Performing a dry run. No changes will be made.")
			}

			target, err := newTarget(c, env)
			if err != nil {
				return err
			}

			source := func(ctx context.Context) (publish.Batch, error) {
				env.cache.Invalidate(querycache.ResourceSchedule)
				week, err := env.planner.FetchWeek(ctx, time.Now())
				if err != nil {
					return publish.Batch{}, err
				}
				if week.Stale {
					return publish.Batch{}, fmt.Errorf("backend unreachable, not publishing a stale schedule")
				}
				return publish.Batch{From: week.Start(), To: week.Start().AddDate(0, 0, 7), Events: week.Events}, nil
			}
			p := publish.NewPublisher(logger, source, target, env.store, c.Bool("dry-run"), env.loc)

			if !c.Bool("watch") {
				logger.Info("Running a single publish cycle.")
				res, err := p.Publish(c.Context)
				if err != nil {
					return fmt.Errorf("single publish cycle failed: %w", err)
				}
				tracked, err := env.store.CountPublications(c.Context, target.Name())
				if err != nil {
					return err
				}
				fmt.Printf("Published %d, unchanged %d, removed %d, failed %d (%d events tracked on %s)\n",
					res.Published, res.Skipped, res.Removed, res.Failed, tracked, target.Name())
				return nil
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			spec := c.String("schedule")
			if spec == "" {
				spec = env.cfg.RefreshCron
			}
			if _, err := p.Publish(ctx); err != nil {
				logger.Error("Publish cycle failed", "error", err)
			}
			return p.Watch(ctx, spec)
		}),
	}
}

func newTarget(c *cli.Context, env *appEnv) (publish.Target, error) {
	name := c.String("target")
	if name == "" {
		name = env.cfg.PublishTarget
	}
	switch name {
	case "caldav":
		dc := env.cfg.CalDAV
		client, err := caldav.NewClient(c.Context, env.logger, caldav.Config{
			Endpoint:     dc.Endpoint,
			Username:     dc.Username,
			Password:     dc.Password,
			CalendarName: dc.Calendar,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create caldav client: %w", err)
		}
		return client, nil
	case "google":
		gc := env.cfg.Google
		client, err := google.NewClient(c.Context, env.logger, gc.ClientID, gc.ClientSecret, gc.CredentialsFile, env.cfg.DataDir, gc.Account, gc.CalendarID)
		if err != nil {
			return nil, fmt.Errorf("failed to create google client for account %s: %w", gc.Account, err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown publish target %q", name)
	}
}
