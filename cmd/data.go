package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"studyplan/internal/api"
	"studyplan/internal/models"
	"studyplan/internal/session"
)

func subjectsCommand() *cli.Command {
	return &cli.Command{
		Name:  "subjects",
		Usage: "Manage subjects.",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List subjects.",
				Action: withEnv(func(c *cli.Context, env *appEnv) error {
					subjects, err := env.planner.Subjects(c.Context)
					if err != nil {
						return err
					}
					w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
					fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
					for _, s := range subjects {
						fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID, s.Name, s.Description)
					}
					return w.Flush()
				}),
			},
			{
				Name:      "add",
				Usage:     "Create a subject.",
				ArgsUsage: "NAME",
				Flags:     []cli.Flag{&cli.StringFlag{Name: "description"}},
				Action: withEnv(func(c *cli.Context, env *appEnv) error {
					name := strings.TrimSpace(c.Args().First())
					if name == "" {
						return fmt.Errorf("subject name is required")
					}
					s, err := env.planner.CreateSubject(c.Context, name, c.String("description"))
					if err != nil {
						return err
					}
					fmt.Printf("Created subject %s (%s)\n", s.Name, s.ID)
					return nil
				}),
			},
			{
				Name:      "edit",
				Usage:     "Rename a subject.",
				ArgsUsage: "ID NAME",
				Flags:     []cli.Flag{&cli.StringFlag{Name: "description"}},
				Action: withEnv(func(c *cli.Context, env *appEnv) error {
					if c.NArg() != 2 {
						return fmt.Errorf("a subject ID and a new name are required")
					}
					s, err := env.planner.UpdateSubject(c.Context, c.Args().Get(0), strings.TrimSpace(c.Args().Get(1)), c.String("description"))
					if err != nil {
						return err
					}
					fmt.Printf("Updated subject %s (%s)\n", s.Name, s.ID)
					return nil
				}),
			},
			{
				Name:      "rm",
				Usage:     "Delete a subject with its tasks.",
				ArgsUsage: "ID",
				Action: withEnv(func(c *cli.Context, env *appEnv) error {
					if c.NArg() != 1 {
						return fmt.Errorf("exactly one subject ID is required")
					}
					return env.planner.DeleteSubject(c.Context, c.Args().First())
				}),
			},
		},
	}
}

func tasksCommand() *cli.Command {
	return &cli.Command{
		Name:  "tasks",
		Usage: "Manage tasks.",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List tasks.",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "subject", Usage: "Only tasks of this subject ID."},
					&cli.BoolFlag{Name: "kanban", Usage: "Group by status and remember the choice."},
					&cli.BoolFlag{Name: "list", Usage: "Plain list and remember the choice."},
				},
				Action: withEnv(listTasks),
			},
			{
				Name:  "add",
				Usage: "Create a task.",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "subject", Required: true, Usage: "Subject ID."},
					&cli.StringFlag{Name: "title", Required: true},
					&cli.StringFlag{Name: "description"},
					&cli.StringFlag{Name: "priority", Value: string(models.PriorityMedium), Usage: "low, medium, high or urgent."},
					&cli.TimestampFlag{Name: "deadline", Layout: api.DateLayout, Required: true, Usage: "YYYY-MM-DD"},
					&cli.IntFlag{Name: "estimate", Value: 60, Usage: "Estimated minutes."},
				},
				Action: withEnv(func(c *cli.Context, env *appEnv) error {
					priority := models.TaskPriority(c.String("priority"))
					if !priority.Valid() {
						return fmt.Errorf("unknown priority %q", priority)
					}
					deadline := *c.Timestamp("deadline")
					t, err := env.planner.CreateTask(c.Context, api.TaskInput{
						SubjectID:        c.String("subject"),
						Title:            c.String("title"),
						Description:      c.String("description"),
						Priority:         priority,
						Deadline:         time.Date(deadline.Year(), deadline.Month(), deadline.Day(), 23, 59, 0, 0, env.loc),
						EstimatedMinutes: c.Int("estimate"),
					})
					if err != nil {
						return err
					}
					fmt.Printf("Created task %s (%s)\n", t.Title, t.ID)
					return nil
				}),
			},
			{
				Name:      "done",
				Usage:     "Mark a task as done.",
				ArgsUsage: "ID",
				Action:    withEnv(func(c *cli.Context, env *appEnv) error { return setTaskStatus(c, env, models.TaskStatusDone) }),
			},
			{
				Name:      "start",
				Usage:     "Mark a task as in progress.",
				ArgsUsage: "ID",
				Action:    withEnv(func(c *cli.Context, env *appEnv) error { return setTaskStatus(c, env, models.TaskStatusInProgress) }),
			},
			{
				Name:  "export",
				Usage: "Export all tasks as CSV.",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file, - for stdout (default tasks-YYYY-MM-DD.csv)."},
				},
				Action: withEnv(exportTasks),
			},
			{
				Name:      "rm",
				Usage:     "Delete a task.",
				ArgsUsage: "ID",
				Action: withEnv(func(c *cli.Context, env *appEnv) error {
					if c.NArg() != 1 {
						return fmt.Errorf("exactly one task ID is required")
					}
					return env.planner.DeleteTask(c.Context, c.Args().First())
				}),
			},
		},
	}
}

func listTasks(c *cli.Context, env *appEnv) error {
	prefsPath := env.cfg.PreferencesPath()
	prefs := session.LoadPreferences(env.logger, prefsPath)
	switch {
	case c.Bool("kanban"):
		prefs.TaskView = session.TaskViewKanban
		session.SavePreferences(env.logger, prefsPath, prefs)
	case c.Bool("list"):
		prefs.TaskView = session.TaskViewList
		session.SavePreferences(env.logger, prefsPath, prefs)
	}

	tasks, err := env.planner.Tasks(c.Context, c.String("subject"))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	printTasks := func(tasks []models.Task) {
		fmt.Fprintln(w, "ID\tTITLE\tPRIORITY\tSTATUS\tDEADLINE\tESTIMATE")
		for _, t := range tasks {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%dm\n", t.ID, t.Title, t.Priority, t.Status,
				t.Deadline.In(env.loc).Format(api.DateLayout), t.EstimatedMinutes)
		}
	}

	if prefs.TaskView != session.TaskViewKanban {
		printTasks(tasks)
		return w.Flush()
	}
	for _, status := range []models.TaskStatus{models.TaskStatusTodo, models.TaskStatusInProgress, models.TaskStatusDone} {
		var column []models.Task
		for _, t := range tasks {
			if t.Status == status {
				column = append(column, t)
			}
		}
		fmt.Fprintf(w, "== %s (%d)\n", status, len(column))
		printTasks(column)
		fmt.Fprintln(w)
	}
	return w.Flush()
}

func exportTasks(c *cli.Context, env *appEnv) error {
	path := c.String("out")
	if path == "" {
		path = fmt.Sprintf("tasks-%s.csv", time.Now().In(env.loc).Format(api.DateLayout))
	}
	if path == "-" {
		_, err := env.planner.ExportTasksCSV(c.Context, os.Stdout)
		return err
	}

	// Renamed into place only after a complete download.
	f, err := os.CreateTemp(filepath.Dir(path), ".tasks-*.csv")
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer os.Remove(f.Name())
	n, err := env.planner.ExportTasksCSV(c.Context, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	if err := os.Rename(f.Name(), path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	env.logger.Info("Exported tasks", "file", path, "bytes", n)
	return nil
}

func setTaskStatus(c *cli.Context, env *appEnv, status models.TaskStatus) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one task ID is required")
	}
	id := c.Args().First()

	tasks, err := env.planner.Tasks(c.Context, "")
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if t.ID != id {
			continue
		}
		_, err := env.planner.UpdateTask(c.Context, id, api.TaskInput{
			SubjectID:        t.SubjectID,
			Title:            t.Title,
			Description:      t.Description,
			Priority:         t.Priority,
			Status:           status,
			Deadline:         t.Deadline,
			EstimatedMinutes: t.EstimatedMinutes,
		})
		return err
	}
	return fmt.Errorf("task %s not found", id)
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show progress statistics.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "period", Value: api.PeriodWeek, Usage: "week, month or all."},
		},
		Action: withEnv(func(c *cli.Context, env *appEnv) error {
			stats, err := env.planner.Statistics(c.Context, c.String("period"))
			if err != nil {
				return err
			}
			fmt.Printf("Tasks: %d total, %d completed, %d pending (%.0f%%)\n",
				stats.TotalTasks, stats.CompletedTasks, stats.PendingTasks, stats.CompletionRate)
			fmt.Printf("Study time: %.1fh\n", stats.TotalHours)

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			if len(stats.Subjects) > 0 {
				fmt.Fprintln(w, "\nSUBJECT\tDONE\tHOURS")
				for _, s := range stats.Subjects {
					fmt.Fprintf(w, "%s\t%d\t%.1f\n", s.SubjectName, s.TasksCompleted, s.HoursSpent)
				}
			}
			if len(stats.Weekly) > 0 {
				fmt.Fprintln(w, "\nDAY\tDONE\tHOURS")
				for _, d := range stats.Weekly {
					fmt.Fprintf(w, "%s\t%d\t%.1f\n", d.Day, d.TasksCompleted, d.HoursSpent)
				}
			}
			return w.Flush()
		}),
	}
}
