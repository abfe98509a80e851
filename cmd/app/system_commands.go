package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/allisson/workforce-sync/cmd/app/commands"
	"github.com/allisson/workforce-sync/internal/app"
	"github.com/allisson/workforce-sync/internal/config"
)

func getSystemCommands(version string) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "producer",
			Usage: "Start the change detector and publish change events",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunProducer(ctx, version)
			},
		},
		{
			Name:  "consumer",
			Usage: "Start the ingestion consumer, dead letter retrier and inspection API",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return commands.RunConsumer(ctx, version)
			},
		},
		{
			Name:  "migrate",
			Usage: "Run database migrations",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "source",
					Value: false,
					Usage: "Migrate the source-of-record database instead of the target database",
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				if cmd.Bool("source") {
					return commands.RunSourceMigrations(
						container.Logger(),
						cfg.SourceDBDriver,
						cfg.SourceDBConnectionString,
					)
				}
				return commands.RunMigrations(container.Logger(), cfg.DBDriver, cfg.DBConnectionString)
			},
		},
	}
}
