package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	commonFlags := []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "path to the JSON config file",
			Sources: cli.EnvVars("BIZDESK_CONFIG"),
		},
		&cli.StringFlag{
			Name:    "db",
			Usage:   "database driver (sqlite3 or mysql)",
			Value:   "sqlite3",
			Sources: cli.EnvVars("BIZDESK_DB"),
		},
		&cli.StringFlag{
			Name:  "env",
			Usage: "environment file",
			Value: ".env",
		},
	}

	app := &cli.Command{
		Name:  "bizdesk",
		Usage: "business workspace: banking, portals, GOSI, insurance, vendors, documents and reminders",
		Flags: commonFlags,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Action: serveAction,
			},
			{
				Name:  "copy",
				Usage: "copy a stored secret to the clipboard, e.g. account:a1:password",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "field",
						Usage:    "field key kind:id:field",
						Required: true,
					},
					&cli.DurationFlag{
						Name:  "expiry",
						Usage: "how long the copy stays marked as copied",
					},
				},
				Action: copyAction,
			},
			{
				Name:      "upload",
				Usage:     "simulate uploading local files into a document folder",
				ArgsUsage: "FILE...",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "folder",
						Usage:    "target folder",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "entity",
						Usage: "owning entity id",
					},
					&cli.DurationFlag{
						Name:  "tick",
						Usage: "progress tick interval",
					},
				},
				Action: uploadAction,
			},
			{
				Name:   "entities",
				Usage:  "list business entities",
				Action: entitiesAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatalf("bizdesk: %v", err)
	}
}
