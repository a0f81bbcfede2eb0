package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"watchdesk/internal/country"
	screeningmodels "watchdesk/internal/screening/models"
	screeningservice "watchdesk/internal/screening/service"
	id "watchdesk/pkg/domain"
)

func newSearchCmd(g *globalFlags) *cobra.Command {
	var name, nationality string

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Screen a name and/or nationality against the entity store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			directory, err := loadDirectory(g)
			if err != nil {
				return err
			}
			source, closeSource, err := openSource(ctx, g)
			if err != nil {
				return err
			}
			defer closeSource()

			res, err := screeningservice.New(source, directory).Search(ctx, screeningmodels.Query{
				Name:        name,
				Nationality: nationality,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if nationality != "" && !res.Resolved {
				fmt.Fprintf(out, "note: %q is not a known country, matched as given\n", nationality)
			}
			if len(res.Records) == 0 {
				fmt.Fprintln(out, "No matches.")
				return nil
			}
			printRecords(out, directory, res.Records)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Name fragment to match")
	cmd.Flags().StringVarP(&nationality, "nationality", "c", "", "Country code or name")
	return cmd
}

func newLookupCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <entity-id>",
		Short: "Show one entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			directory, err := loadDirectory(g)
			if err != nil {
				return err
			}
			source, closeSource, err := openSource(ctx, g)
			if err != nil {
				return err
			}
			defer closeSource()

			rec, err := screeningservice.New(source, directory).Lookup(ctx, id.EntityID(args[0]))
			if err != nil {
				return err
			}
			printRecords(cmd.OutOrStdout(), directory, []screeningmodels.Record{rec})
			return nil
		},
	}
}

func printRecords(out io.Writer, directory *country.Directory, records []screeningmodels.Record) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ENTITY\tNAME\tNATIONALITY\tBORN")
	for _, r := range records {
		names := make([]string, 0, len(r.Nationality))
		for _, code := range r.Nationality {
			names = append(names, directory.Name(code))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.EntityID, r.Caption, strings.Join(names, ", "), r.BirthDate)
	}
	_ = tw.Flush()
}
