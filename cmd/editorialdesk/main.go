package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"EditorialDesk/internal/app"
	"EditorialDesk/internal/config"
	"EditorialDesk/internal/domain"
	"EditorialDesk/internal/logging"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		configPath string
		logLevel   string
		cfg        config.Config
		logger     *slog.Logger
	)

	// open builds the application for commands that need it.
	open := func(ctx context.Context) (*app.Application, error) {
		return app.New(ctx, cfg, logger)
	}

	cmd := &cli.Command{
		Name:    "editorialdesk",
		Usage:   "Rewrite syndicated news into drafts and publish what the editor approves",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to the YAML config file",
				Sources:     cli.EnvVars("EDITORIAL_DESK_CONFIG"),
				Destination: &configPath,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error); overrides the config file",
				Sources:     cli.EnvVars("LOG_LEVEL"),
				Destination: &logLevel,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			cfg = config.LoadFrom(configPath)
			if logLevel != "" {
				cfg.Logging.Level = logLevel
			}
			logger = logging.New(cfg.Logging)
			slog.SetDefault(logger)
			return ctx, nil
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Run the scheduler, the HTTP surface and optional Telegram polling",
				Action: func(ctx context.Context, c *cli.Command) error {
					application, err := open(ctx)
					if err != nil {
						return err
					}
					defer application.Close()
					return application.Serve(ctx)
				},
			},
			{
				Name:      "run",
				Usage:     "Run one job immediately",
				ArgsUsage: "<job>",
				Action: func(ctx context.Context, c *cli.Command) error {
					name := c.Args().First()
					if name == "" {
						return cli.Exit(fmt.Sprintf("job name required, one of %v", domain.JobNames()), 2)
					}
					application, err := open(ctx)
					if err != nil {
						return err
					}
					defer application.Close()

					started := time.Now()
					if err := application.RunJob(ctx, name); err != nil {
						return fmt.Errorf("run %s: %w", name, err)
					}
					logger.Info("job finished", "job", name, "took", time.Since(started).Round(time.Millisecond).String())
					return nil
				},
			},
			{
				Name:  "migrate",
				Usage: "Apply the database schema",
				Action: func(ctx context.Context, c *cli.Command) error {
					application, err := open(ctx)
					if err != nil {
						return err
					}
					defer application.Close()
					if err := application.Migrate(ctx); err != nil {
						return err
					}
					logger.Info("schema applied", "driver", cfg.Database.Driver)
					return nil
				},
			},
			{
				Name:  "jobs",
				Usage: "Print configured jobs with their next fire time",
				Action: func(ctx context.Context, c *cli.Command) error {
					application, err := open(ctx)
					if err != nil {
						return err
					}
					defer application.Close()

					jobs, err := application.Jobs(ctx)
					if err != nil {
						return err
					}
					loc := application.Location()
					w := tabwriter.NewWriter(c.Root().Writer, 0, 0, 2, ' ', 0)
					fmt.Fprintln(w, "JOB\tRECURRENCE\tNEXT\tLAST RUN")
					for _, j := range jobs {
						next := "disabled"
						if !j.Next.IsZero() {
							next = j.Next.In(loc).Format("Mon 2006-01-02 15:04 MST")
						}
						last := "never"
						if !j.LastRun.IsZero() {
							last = j.LastRun.In(loc).Format("2006-01-02 15:04")
						}
						fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", j.Descriptor.Name, j.Descriptor.Recurrence, next, last)
					}
					return w.Flush()
				},
			},
		},
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("editorialdesk stopped", "error", err)
		os.Exit(1)
	}
}
