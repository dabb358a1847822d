package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/wdb/internal/manifest"
	"github.com/ZebulonRouseFrantzich/wdb/internal/registry"
	"github.com/ZebulonRouseFrantzich/wdb/internal/service"
)

// defaultManifest is read when --file is not given.
const defaultManifest = "drivers.lua"

func (c *CLI) newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Set up every driver declared in a manifest",
		Long: `Set up every driver declared in a Lua manifest, several at a time.

Example drivers.lua:

  drivers = {
    "chrome",
    "firefox@0.33.0",
    platform.is_windows and { family = "ie", arch = 32 } or nil,
  }`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			file, _ := cmd.Flags().GetString("file")
			parallel, _ := cmd.Flags().GetInt("parallel")
			failFast, _ := cmd.Flags().GetBool("fail-fast")
			verbose, _ := cmd.Flags().GetBool("verbose")

			if parallel < 0 {
				return fmt.Errorf("invalid --parallel %d: must not be negative", parallel)
			}
			sh, err := exportShell(cmd)
			if err != nil {
				return err
			}

			a, err := c.application(cmd)
			if err != nil {
				return err
			}

			res, syncErr := a.Sync(cmd.Context(), service.SyncRequest{
				ManifestPath: file,
				Parallel:     parallel,
				FailFast:     failFast,
			})
			if res == nil {
				if syncErr != nil {
					return errors.New(manifest.FormatError(syncErr, verbose))
				}
				return nil
			}

			if len(res.Warnings) > 0 {
				_, _ = fmt.Fprint(cmd.ErrOrStderr(), manifest.FormatSensitiveDataWarning(res.Warnings))
			}

			out := cmd.OutOrStdout()
			props := make(map[string]string, len(res.Outcomes))
			for _, o := range res.Outcomes {
				if o.Err != nil {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", o.Driver, o.Err)
					continue
				}
				if verbose {
					printDetails(out, o.Result)
				}
				if sh != "" {
					printInfo(out, o.Result.Info, sh)
					continue
				}
				props[o.Result.Info.Property] = o.Result.Info.Path
			}
			for _, line := range registry.Lines(props) {
				_, _ = fmt.Fprintln(out, line)
			}

			if syncErr != nil {
				return fmt.Errorf("%d of %d drivers failed", res.Failed(), len(res.Outcomes))
			}
			return nil
		},
	}

	cmd.Flags().StringP("file", "f", defaultManifest, "Manifest file")
	cmd.Flags().IntP("parallel", "p", 0, "Concurrent setups (default: number of CPUs)")
	cmd.Flags().Bool("fail-fast", false, "Stop at the first failed driver")
	addExportFlags(cmd)
	cmd.Flags().BoolP("verbose", "v", false, "Also print how each driver was obtained")

	return cmd
}
