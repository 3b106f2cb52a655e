// Package main is the entry point of the leetboard worker.
//
// The worker keeps LeetCode stats of tracked profiles fresh and stores a
// daily leaderboard snapshot for every group:
//   - run       scheduler + ops HTTP API (long-running)
//   - refresh   one-off profile refresh
//   - snapshot  one-off snapshot build
//   - register  verify a username on LeetCode and start tracking it
//   - migrate   database schema management
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "leetboard",
		Usage:   "LeetCode stats ingestion and group leaderboards",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "dotenv file loaded before reading the environment (ignored when missing)",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:    "store",
				Usage:   "storage backend: postgres or memory",
				Value:   storePostgres,
				EnvVars: []string{"STORE"},
			},
			&cli.StringSliceFlag{
				Name:  "group",
				Usage: "seed a group in the memory store: name=user1,user2,...",
			},
		},
		Commands: []*cli.Command{
			newRunCommand(),
			newRefreshCommand(),
			newSnapshotCommand(),
			newRegisterCommand(),
			newMigrateCommand(),
		},
	}
}
