package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newCountriesCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "countries [term]",
		Short: "List the country directory, optionally filtered by a name fragment",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			directory, err := loadDirectory(g)
			if err != nil {
				return err
			}
			entries := directory.List()
			if len(args) == 1 {
				entries = directory.Search(args[0])
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\n", e.Code, e.Name)
			}
			return tw.Flush()
		},
	}
}
