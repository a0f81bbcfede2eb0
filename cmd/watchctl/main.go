// Command watchctl is the operator CLI: it loads entity lists into a
// persistent store and runs ad-hoc screening queries without the API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

type globalFlags struct {
	source      string
	sqlitePath  string
	databaseURL string
	dataPath    string
	countries   string
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "watchctl",
		Short:         "Operate the watchdesk entity store and directory",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.source, "source", envOr("ENTITY_SOURCE", "sqlite"), "Entity store: sqlite, postgres or memory")
	pf.StringVar(&g.sqlitePath, "sqlite", envOr("ENTITY_SQLITE_PATH", "entities.db"), "SQLite database path")
	pf.StringVar(&g.databaseURL, "database-url", os.Getenv("DATABASE_URL"), "Postgres connection URL")
	pf.StringVar(&g.dataPath, "data", os.Getenv("ENTITY_DATA_PATH"), "NDJSON entity file for the memory source")
	pf.StringVar(&g.countries, "countries", os.Getenv("COUNTRY_TABLE_PATH"), "Country table override (YAML)")

	root.AddCommand(
		newImportCmd(g),
		newSearchCmd(g),
		newLookupCmd(g),
		newCountriesCmd(g),
	)
	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
