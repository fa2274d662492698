package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bitdust-io/devel-sub003/internal/catalog"
	"github.com/bitdust-io/devel-sub003/internal/core/codec"
	"github.com/bitdust-io/devel-sub003/internal/domain"
	"github.com/bitdust-io/devel-sub003/internal/events"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func newLsCmd(a *app) *cobra.Command {
	var owner, alias string
	var recursive bool

	cmd := &cobra.Command{
		Use:   "ls [path]",
		Short: "List a catalog directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := a.owner(owner)
			if err != nil {
				return err
			}
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return a.withCatalog(cmd.Context(), false, func(c *catalog.Catalog) error {
				childs, err := c.ListChilds(o, alias, path, recursive)
				if err != nil {
					return err
				}
				tw := newTable(cmd.OutOrStdout())
				fmt.Fprintln(tw, "TYPE\tID\tSIZE\tVERSIONS\tSTORED\tLATEST\tPATH")
				for _, ch := range childs {
					size, latest := "-", "-"
					if ch.Item != nil && ch.Item.Size >= 0 {
						size = events.FormatBytes(ch.Item.Size)
					}
					if !ch.Latest.IsZero() {
						latest = ch.Latest.Format("2006-01-02 15:04:05")
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n", ch.Type, ch.PathID, size,
						len(ch.Versions), events.FormatBytes(ch.TotalSize), latest, ch.Path)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&owner, "of", "", "list the catalog of another owner")
	cmd.Flags().StringVarP(&alias, "alias", "a", "master", "key alias of the namespace")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "list the whole subtree")
	return cmd
}

func newAddCmd(a *app) *cobra.Command {
	var keyID string
	var asDir, virtual bool

	cmd := &cobra.Command{
		Use:   "add <path>...",
		Short: "Add files or directory trees to the catalog",
		Long: "Add files or directory trees below the source root to the catalog. With --virtual\n" +
			"the entries are created without looking at the source root.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := a.owner("")
			if err != nil {
				return err
			}
			if !virtual && a.cfg.SourceRoot == "" {
				return fmt.Errorf("%w: source_root is required unless --virtual is set", domain.ErrConfigInvalid)
			}
			return a.withCatalog(cmd.Context(), true, func(c *catalog.Catalog) error {
				for _, p := range args {
					var id string
					var count int
					var err error
					switch {
					case virtual && asDir:
						id, _, err = c.AddDir(o, p, keyID, "")
					case virtual:
						id, _, err = c.AddFile(o, p, keyID)
						count = 1
					default:
						id, count, err = c.AddLocalPath(cmd.Context(), o, p, keyID, true)
					}
					if err != nil {
						return fmt.Errorf("%s: %w", p, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d file(s)\n", id, p, count)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&keyID, "key", "k", "", "key id, <alias>$<owner>; selects the namespace")
	cmd.Flags().BoolVar(&virtual, "virtual", false, "do not read the source root")
	cmd.Flags().BoolVarP(&asDir, "dir", "d", false, "with --virtual, add a directory")
	return cmd
}

func newRmCmd(a *app) *cobra.Command {
	var alias string
	var byID bool

	cmd := &cobra.Command{
		Use:   "rm <path|path id>...",
		Short: "Remove entries and their subtrees from the catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := a.owner("")
			if err != nil {
				return err
			}
			return a.withCatalog(cmd.Context(), true, func(c *catalog.Catalog) error {
				for _, arg := range args {
					var id string
					var ok bool
					if byID {
						id, ok = c.DeleteByID(o, alias, arg)
					} else {
						id, ok = c.DeleteByPath(o, alias, arg)
					}
					if !ok {
						return fmt.Errorf("%s: %w", arg, domain.ErrNotFound)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "removed %s (%s)\n", arg, id)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&alias, "alias", "a", "master", "key alias of the namespace")
	cmd.Flags().BoolVar(&byID, "id", false, "arguments are path ids")
	return cmd
}

func newRmBackupCmd(a *app) *cobra.Command {
	var keepLocal bool

	cmd := &cobra.Command{
		Use:   "rm-backup <backup id>...",
		Short: "Forget versions of files, and remove their local fragments",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCatalog(cmd.Context(), true, func(c *catalog.Catalog) error {
				for _, id := range args {
					if err := c.DeleteBackupID(id); err != nil {
						return fmt.Errorf("%s: %w", id, err)
					}
					if keepLocal {
						fmt.Fprintf(cmd.OutOrStdout(), "forgot %s\n", id)
						continue
					}
					files, bytes, err := c.DeleteLocalBackup(cmd.Context(), id)
					if err != nil {
						return fmt.Errorf("%s: %w", id, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "forgot %s, removed %d fragment(s), %s\n",
						id, files, events.FormatBytes(bytes))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&keepLocal, "keep-local", false, "keep the local fragments")
	return cmd
}

func newScanCmd(a *app) *cobra.Command {
	var alias string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Measure files and local versions of a namespace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := a.owner("")
			if err != nil {
				return err
			}
			return a.withCatalog(cmd.Context(), true, func(c *catalog.Catalog) error {
				res, err := c.Scan(cmd.Context(), o, alias)
				if err != nil {
					return err
				}
				c.CalculateNamespace(o, alias)
				fmt.Fprintf(cmd.OutOrStdout(), "%d item(s), files %s, backups %s\n",
					res.Items, events.FormatBytes(res.SizeFiles), events.FormatBytes(res.SizeBackups))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&alias, "alias", "a", "master", "key alias of the namespace")
	return cmd
}

func newIDsCmd(a *app) *cobra.Command {
	var owner, alias string
	var full, reverse bool

	cmd := &cobra.Command{
		Use:   "ids",
		Short: "List backup ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := a.owner(owner)
			if err != nil {
				return err
			}
			return a.withCatalog(cmd.Context(), false, func(c *catalog.Catalog) error {
				out := cmd.OutOrStdout()
				if !full {
					for _, id := range c.ListAllBackupIDs(o) {
						fmt.Fprintln(out, id)
					}
					return nil
				}
				tw := newTable(out)
				fmt.Fprintln(tw, "BACKUP ID\tBLOCKS\tSIZE\tPATH")
				for _, e := range c.ListAllBackupIDsFull(o, alias, reverse) {
					fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", e.BackupID, e.Info.MaxBlock+1,
						events.FormatBytes(e.Info.Size), e.Path)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&owner, "of", "", "list the backups of another owner")
	cmd.Flags().StringVarP(&alias, "alias", "a", "master", "key alias, with --full")
	cmd.Flags().BoolVar(&full, "full", false, "show sizes and paths of one namespace")
	cmd.Flags().BoolVar(&reverse, "reverse", false, "newest versions first, with --full")
	return cmd
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the aggregates of every namespace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCatalog(cmd.Context(), false, func(c *catalog.Catalog) error {
				c.Calculate()
				tw := newTable(cmd.OutOrStdout())
				fmt.Fprintln(tw, "KEY ID\tREV\tFILES\tDIRS\tSIZE\tBACKUPS")
				for _, k := range c.Namespaces() {
					st := c.Stats(k.Owner, k.Alias)
					fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t%s\n", codec.MakeKeyID(k.Alias, k.Owner),
						c.Revision(k.Owner, k.Alias), st.Files, st.Dirs,
						events.FormatBytes(st.SizeFiles), events.FormatBytes(st.SizeBackups))
				}
				if pending := c.Pending(); len(pending) > 0 {
					fmt.Fprintf(tw, "pending:\t%s\n", strings.Join(pending, ", "))
				}
				return tw.Flush()
			})
		},
	}
}

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify that both index views of every namespace agree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCatalog(cmd.Context(), false, func(c *catalog.Catalog) error {
				if err := c.Check(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d namespace(s) ok\n", len(c.Namespaces()))
				return nil
			})
		},
	}
}
