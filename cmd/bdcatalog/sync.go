package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bitdust-io/devel-sub003/internal/catalog"
	"github.com/bitdust-io/devel-sub003/internal/service"
)

func newLoadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Merge every index file and report the outcome per alias",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := service.NewCatalogService(a.cfg, nil)
			if err != nil {
				return err
			}
			defer svc.Close()

			results, loadErr := svc.Load(cmd.Context())
			printResults(cmd, results)
			return loadErr
		},
	}
}

func printResults(cmd *cobra.Command, results []catalog.AliasResult) {
	tw := newTable(cmd.OutOrStdout())
	fmt.Fprintln(tw, "OWNER\tALIAS\tSTATUS\tREV\tITEMS\tCHANGED\tDELETED\tERROR")
	for _, r := range results {
		errText := ""
		if r.Err != nil {
			errText = r.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d->%d\t%d\t%d\t%d\t%s\n", r.Owner, r.Alias, r.Status,
			r.OldRevision, r.NewRevision, r.Processed, r.Modified, len(r.Deleted), errText)
	}
	tw.Flush()
}

func newSaveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Recalculate sizes and rewrite every index file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCatalog(cmd.Context(), true, func(c *catalog.Catalog) error {
				fmt.Fprintf(cmd.OutOrStdout(), "saving %d namespace(s)\n", len(c.Namespaces()))
				return nil
			})
		},
	}
}

func newHistoryCmd(a *app) *cobra.Command {
	var owner, alias string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent merges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := service.NewCatalogService(a.cfg, nil)
			if err != nil {
				return err
			}
			defer svc.Close()

			records, err := svc.History(owner, alias, limit)
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "TIME\tOWNER\tALIAS\tSTATUS\tREV\tITEMS\tCHANGED\tSOURCE")
			for _, r := range records {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d->%d\t%d\t%d\t%s\n",
					r.AppliedAt.Local().Format("2006-01-02 15:04:05"), r.Owner, r.Alias, r.Status,
					r.OldRevision, r.NewRevision, r.Processed, r.Modified, r.Source)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&owner, "of", "", "only merges of this owner")
	cmd.Flags().StringVarP(&alias, "alias", "a", "", "only this alias, with --of")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of records")
	return cmd
}
