package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"studyplan/internal/api"
	"studyplan/internal/models"
)

// entryTimeLayout is the format of --start and --end, read in the display timezone.
const entryTimeLayout = "2006-01-02T15:04"

func parseEntryTime(c *cli.Context, env *appEnv, name string) (time.Time, error) {
	v := c.String(name)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(entryTimeLayout, v, env.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q, expected YYYY-MM-DDTHH:MM", name, v)
	}
	return t, nil
}

// entryInput reads the entry flags shared by add and edit.
func entryInput(c *cli.Context, env *appEnv) (api.EntryInput, error) {
	start, err := parseEntryTime(c, env, "start")
	if err != nil {
		return api.EntryInput{}, err
	}
	end, err := parseEntryTime(c, env, "end")
	if err != nil {
		return api.EntryInput{}, err
	}
	if d := c.Duration("duration"); d > 0 && end.IsZero() && !start.IsZero() {
		end = start.Add(d)
	}
	return api.EntryInput{
		Title:       c.String("title"),
		Description: c.String("description"),
		Start:       start,
		End:         end,
		TaskID:      c.String("task"),
		SubjectID:   c.String("subject"),
		Color:       c.String("color"),
	}, nil
}

func printEntry(env *appEnv, e models.ScheduleEvent) {
	fmt.Printf("%s  %s  %s-%s", e.ID, e.Title,
		e.StartTime.In(env.loc).Format("Mon 2006-01-02 15:04"), e.EndTime.In(env.loc).Format("15:04"))
	if e.Color != "" {
		fmt.Printf("  [%s]", e.Color)
	}
	fmt.Println()
	if e.Description != "" {
		fmt.Println("    " + e.Description)
	}
}

func entryFlags(create bool) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "title", Required: create},
		&cli.StringFlag{Name: "description"},
		&cli.StringFlag{Name: "start", Required: create, Usage: "Start time YYYY-MM-DDTHH:MM."},
		&cli.StringFlag{Name: "end", Usage: "End time YYYY-MM-DDTHH:MM."},
		&cli.DurationFlag{Name: "duration", Usage: "Length when --end is omitted, e.g. 90m."},
		&cli.StringFlag{Name: "color", Usage: "red, yellow, blue, green, purple or gray."},
	}
}

func scheduleCommand() *cli.Command {
	return &cli.Command{
		Name:  "schedule",
		Usage: "Insert and edit schedule entries by hand.",
		Subcommands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Insert a schedule entry.",
				Flags: append(entryFlags(true),
					&cli.StringFlag{Name: "subject", Usage: "Subject ID."},
					&cli.StringFlag{Name: "task", Usage: "Task ID."},
				),
				Action: withEnv(func(c *cli.Context, env *appEnv) error {
					in, err := entryInput(c, env)
					if err != nil {
						return err
					}
					e, err := env.planner.CreateEntry(c.Context, in)
					if err != nil {
						return err
					}
					printEntry(env, e)
					return nil
				}),
			},
			{
				Name:      "show",
				Usage:     "Show one schedule entry.",
				ArgsUsage: "ID",
				Action: withEnv(func(c *cli.Context, env *appEnv) error {
					if c.NArg() != 1 {
						return fmt.Errorf("exactly one entry ID is required")
					}
					e, err := env.planner.Entry(c.Context, c.Args().First())
					if err != nil {
						return err
					}
					printEntry(env, e)
					return nil
				}),
			},
			{
				Name:      "edit",
				Usage:     "Change the given fields of a schedule entry.",
				ArgsUsage: "ID",
				Flags:     entryFlags(false),
				Action: withEnv(func(c *cli.Context, env *appEnv) error {
					if c.NArg() != 1 {
						return fmt.Errorf("exactly one entry ID is required")
					}
					in, err := entryInput(c, env)
					if err != nil {
						return err
					}
					if in == (api.EntryInput{}) {
						return fmt.Errorf("nothing to change, pass at least one of --%s", strings.Join([]string{"title", "description", "start", "end", "color"}, ", --"))
					}
					e, err := env.planner.UpdateEntry(c.Context, c.Args().First(), in)
					if err != nil {
						return err
					}
					printEntry(env, e)
					return nil
				}),
			},
			{
				Name:      "rm",
				Usage:     "Delete a schedule entry.",
				ArgsUsage: "ID",
				Action: withEnv(func(c *cli.Context, env *appEnv) error {
					if c.NArg() != 1 {
						return fmt.Errorf("exactly one entry ID is required")
					}
					return env.planner.DeleteEntry(c.Context, c.Args().First())
				}),
			},
		},
	}
}
