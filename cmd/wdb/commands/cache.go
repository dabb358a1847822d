package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/wdb/internal/binary"
	"github.com/ZebulonRouseFrantzich/wdb/internal/service"
)

func (c *CLI) newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and prune cached drivers",
	}
	cmd.PersistentFlags().StringP("target", "t", "", "Cache root (default: configured cache dir)")

	cmd.AddCommand(c.newCacheListCmd())
	cmd.AddCommand(c.newCacheClearCmd())
	return cmd
}

func (c *CLI) newCacheListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached drivers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			target, _ := cmd.Flags().GetString("target")
			familyFlag, _ := cmd.Flags().GetString("family")

			req := service.CacheListRequest{Root: target}
			if familyFlag != "" {
				family, err := binary.ParseFamily(familyFlag)
				if err != nil {
					return err
				}
				req.Family = family
			}

			a, err := c.application(cmd)
			if err != nil {
				return err
			}
			res, err := a.ListCache(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(res.Entries) == 0 {
				_, _ = fmt.Fprintf(out, "No cached drivers in %s\n", res.Root)
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "FAMILY\tVERSION\tPLATFORM\tSIZE\tCACHED\tPATH")
			for _, e := range res.Entries {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					e.Key.Family, e.Key.Version, e.Key.Platform,
					humanize.Bytes(uint64(e.Size)), humanize.Time(e.CreatedAt), e.Path)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().String("family", "", "Only list this family")
	return cmd
}

func (c *CLI) newCacheClearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear <family> <version>",
		Short: "Remove one cached driver",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, _ := cmd.Flags().GetString("target")
			archFlag, _ := cmd.Flags().GetString("arch")

			family, err := binary.ParseFamily(args[0])
			if err != nil {
				return err
			}
			arch, err := parseArch(archFlag)
			if err != nil {
				return err
			}

			a, err := c.application(cmd)
			if err != nil {
				return err
			}
			err = a.ClearCache(cmd.Context(), service.CacheClearRequest{
				Root:    target,
				Family:  family,
				Version: args[1],
				Arch:    arch,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s %s\n", family, args[1])
			return nil
		},
	}
	cmd.Flags().String("arch", "", "Artifact word width: 32 or 64 (default: detected)")
	return cmd
}
