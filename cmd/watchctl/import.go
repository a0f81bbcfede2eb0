package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	screeningstore "watchdesk/internal/screening/store"
)

func newImportCmd(g *globalFlags) *cobra.Command {
	var allSchemas bool

	cmd := &cobra.Command{
		Use:   "import <file.ndjson>",
		Short: "Load an entity export into the persistent store",
		Long: "Reads one entity per line, keeps Person entities unless --all-schemas is set, " +
			"and inserts them into the sqlite or postgres store. Entities already present are skipped.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer f.Close()

			records, stats, err := screeningstore.ReadNDJSON(f, screeningstore.LoadOptions{PersonOnly: !allSchemas})
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}

			store, closeStore, err := openImporter(ctx, g)
			if err != nil {
				return err
			}
			defer closeStore()

			inserted, err := store.Import(ctx, records)
			if err != nil {
				return fmt.Errorf("importing: %w", err)
			}
			total, err := store.Count(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "read %d lines: %d kept, %d skipped\n", stats.Lines, stats.Loaded, stats.Skipped)
			fmt.Fprintf(out, "inserted %d new entities (%d total in %s)\n", inserted, total, g.source)
			return nil
		},
	}

	cmd.Flags().BoolVar(&allSchemas, "all-schemas", false, "Import every schema, not only Person")
	return cmd
}
