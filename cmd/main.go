package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"studyplan/internal/api"
	"studyplan/internal/config"
	"studyplan/internal/layout"
	"studyplan/internal/planner"
	"studyplan/internal/querycache"
	"studyplan/internal/session"
	"studyplan/internal/store"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err, "message", api.UserMessage(err))
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "studyplan",
		Usage: "Plan study sessions and view the generated schedule.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: config.DefaultPath(), Usage: "Path to the YAML config file.", EnvVars: []string{"STUDYPLAN_CONFIG"}},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "debug, info, warn or error.", EnvVars: []string{"LOG_LEVEL"}},
			&cli.StringFlag{Name: "api-url", Usage: "Override the API base URL."},
			&cli.StringFlag{Name: "timezone", Usage: "Override the display timezone."},
		},
		Commands: []*cli.Command{
			loginCommand(),
			registerCommand(),
			logoutCommand(),
			whoamiCommand(),
			subjectsCommand(),
			tasksCommand(),
			statsCommand(),
			calendarCommand("week", session.ViewWeek),
			calendarCommand("day", session.ViewDay),
			calendarCommand("calendar", ""),
			scheduleCommand(),
			generateCommand(),
			exportCommand(),
			publishCommand(),
			googleAuthCommand(),
		},
	}
}

// appEnv holds the services shared by every command.
type appEnv struct {
	logger  *slog.Logger
	cfg     *config.Config
	loc     *time.Location
	tokens  *session.FileStore
	client  *api.Client
	cache   *querycache.Cache
	store   *store.Store
	planner *planner.Planner
}

// newEnv loads configuration and builds the services. Close must be called.
func newEnv(c *cli.Context) (*appEnv, error) {
	logger := setupLogger(c.String("log-level"))

	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.ApplyEnv(os.LookupEnv)
	if v := c.String("api-url"); v != "" {
		cfg.APIBaseURL = v
	}
	if v := c.String("timezone"); v != "" {
		cfg.Timezone = v
	}
	cfg.Normalize()

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	tokens := session.NewFileStore(cfg.SessionPath())
	client, err := api.NewClient(logger, cfg.APIBaseURL, tokens)
	if err != nil {
		return nil, err
	}

	db, err := store.Open(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open offline store: %w", err)
	}
	base := store.NewStore(db)
	account, err := base.CurrentAccount(c.Context)
	if err != nil {
		_ = base.Close()
		return nil, err
	}
	st := base.ForAccount(account)

	cache := querycache.New(logger, cfg.CacheTTL)
	p := planner.New(logger, client, cache, planner.Options{
		Store:        st,
		Grid:         layout.NewGrid(cfg.HourHeight, loc),
		RefetchDelay: cfg.RefetchDelay,
	})

	logger.Debug("Effective config", "api_base_url", cfg.APIBaseURL, "timezone", loc.String(), "data_dir", cfg.DataDir)
	return &appEnv{
		logger:  logger,
		cfg:     cfg,
		loc:     loc,
		tokens:  tokens,
		client:  client,
		cache:   cache,
		store:   st,
		planner: p,
	}, nil
}

func (e *appEnv) Close() {
	e.planner.Close()
	if err := e.store.Close(); err != nil {
		e.logger.Error("Failed to close offline store", "error", err)
	}
}

// withEnv wraps a command action with service setup and teardown.
func withEnv(action func(c *cli.Context, env *appEnv) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		env, err := newEnv(c)
		if err != nil {
			return err
		}
		defer env.Close()
		return action(c, env)
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
