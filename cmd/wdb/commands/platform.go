package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) newPlatformCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "platform",
		Short: "Show the detected platform",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.application(cmd)
			if err != nil {
				return err
			}
			info, err := a.Platform(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "os:       %s\n", info.OS)
			_, _ = fmt.Fprintf(out, "arch:     %s\n", info.Arch)
			_, _ = fmt.Fprintf(out, "bits:     %d\n", info.Bits)
			_, _ = fmt.Fprintf(out, "key:      %s\n", info.Key())
			if info.Platform != "" {
				_, _ = fmt.Fprintf(out, "distro:   %s %s (%s)\n", info.Platform, info.Version, info.Family)
			}
			return nil
		},
	}
}
