package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

// RootApp builds the CLI. Without a subcommand it starts the terminal UI.
func RootApp() *cli.App {
	return &cli.App{
		Name:  "itmonitor",
		Usage: "Read the IT Monitoring feed aggregator from the terminal",
		Description: `itmonitor talks to an IT Monitoring aggregator over HTTP. It remembers
which entries were read, which were new since the last visit and the
category and feed type filter, in a local SQLite database.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a TOML config file (default $ITMON_CONFIG, which may come from .env)",
			},
			&cli.StringFlag{
				Name:  "article",
				Usage: "open the entry with this id once the feed is loaded",
			},
		},
		Before: loadDotEnv,
		Commands: []*cli.Command{
			tuiCmd(),
			statusCmd(),
			categoriesCmd(),
			listCmd(),
			markReadCmd(),
			markAllReadCmd(),
			filterCmd(),
			refreshCmd(),
		},
		Action: runTUI,
	}
}

// loadDotEnv reads ./.env when present. Variables already set win.
func loadDotEnv(_ *cli.Context) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}
