// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand initializes the database
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Initialize database and run migrations",
		Flags:  []cli.Flag{configFlag()},
		Action: r.SetupDatabase,
	}
}

// authCommand handles connector authentication
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with external services",
		Commands: []*cli.Command{
			{
				Name:   "spotify",
				Usage:  "Authenticate with Spotify using OAuth2",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SpotifyAuth,
			},
			{
				Name:   "status",
				Usage:  "Show which services have credentials configured",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthStatus,
			},
		},
	}
}

// syncCommand imports plays and likes from a service
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Import listening history and likes into the local catalog",
		Commands: []*cli.Command{
			{
				Name:  "plays",
				Usage: "Import recent plays from a service",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:    "service",
						Aliases: []string{"s"},
						Usage:   "Service to pull plays from (spotify or lastfm)",
						Value:   "lastfm",
					},
					&cli.IntFlag{
						Name:  "page-size",
						Usage: "Items requested per page",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output summary as JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON output",
					},
				},
				Action: r.SyncPlays,
			},
			{
				Name:  "likes",
				Usage: "Import liked tracks from a service",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:    "service",
						Aliases: []string{"s"},
						Usage:   "Service to pull likes from (spotify or lastfm)",
						Value:   "spotify",
					},
					&cli.StringSliceFlag{
						Name:  "target",
						Usage: "Services a like must also exist on to count as in sync",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output summary as JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON output",
					},
				},
				Action: r.SyncLikes,
			},
		},
	}
}

// enrichCommand extracts metrics from connector metadata
func enrichCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "enrich",
		Usage: "Resolve recently played tracks and extract metrics from service metadata",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "service",
				Aliases: []string{"s"},
				Usage:   "Service to fetch metadata from (spotify or lastfm)",
				Value:   "lastfm",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Number of recent plays to source tracks from",
				Value: 100,
			},
			&cli.FloatFlag{
				Name:  "max-age",
				Usage: "Metadata freshness override in hours (0 refetches everything)",
				Value: -1,
			},
			&cli.IntFlag{
				Name:  "min-confidence",
				Usage: "Fuzzy match acceptance threshold [0,100]",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output summary as JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print JSON output",
			},
		},
		Action: r.Enrich,
	}
}

// historyCommand exports the local listening history
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Work with the imported listening history",
		Commands: []*cli.Command{
			{
				Name:  "export",
				Usage: "Export play history to CSV, Markdown, or plain text",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:    "service",
						Aliases: []string{"s"},
						Usage:   "Service whose plays to export",
						Value:   "lastfm",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of plays to export",
						Value: 1000,
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: csv, markdown, or text",
						Value:   "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (format default when empty)",
					},
				},
				Action: r.HistoryExport,
			},
		},
	}
}
