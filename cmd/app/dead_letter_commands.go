package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/allisson/workforce-sync/cmd/app/commands"
	"github.com/allisson/workforce-sync/internal/app"
	"github.com/allisson/workforce-sync/internal/config"
)

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   "text",
		Usage:   "Output format: 'text' or 'json'",
	}
}

func getDeadLetterCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "dlq-retry",
			Usage: "Re-publish eligible pending dead letters once",
			Flags: []cli.Flag{formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				retrier, err := container.Retrier()
				if err != nil {
					return err
				}

				return commands.RunDLQRetry(
					ctx,
					retrier,
					container.Logger(),
					os.Stdout,
					cmd.String("format"),
				)
			},
		},
		{
			Name:  "dlq-reprocess",
			Usage: "Replay a dead letter through validation and reconciliation",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "id",
					Aliases:  []string{"i"},
					Required: true,
					Usage:    "Dead letter ID (UUID)",
				},
				&cli.StringFlag{
					Name:    "payload",
					Aliases: []string{"p"},
					Usage:   "Corrected change event JSON to replay instead of the stored payload",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				cfg := config.Load()
				container := app.NewContainer(cfg)
				defer func() { _ = container.Shutdown(ctx) }()

				deadLetterUC, err := container.DeadLetterUseCase()
				if err != nil {
					return err
				}

				return commands.RunDLQReprocess(
					ctx,
					deadLetterUC,
					container.Logger(),
					os.Stdout,
					cmd.String("id"),
					cmd.String("payload"),
					cmd.String("format"),
				)
			},
		},
	}
}
