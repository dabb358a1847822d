package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/wdb/internal/binary"
	"github.com/ZebulonRouseFrantzich/wdb/internal/platform"
)

func (c *CLI) newSetupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup <family>",
		Short: "Make a driver available and print its path",
		Long: `Resolve, download and cache the driver for a browser family.

Families: ` + familyNames() + `

Without --version the installed browser is probed and a compatible driver
is chosen; when no browser is found the latest release is used.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			family, err := binary.ParseFamily(args[0])
			if err != nil {
				return err
			}

			version, _ := cmd.Flags().GetString("version")
			archFlag, _ := cmd.Flags().GetString("arch")
			target, _ := cmd.Flags().GetString("target")
			proxy, _ := cmd.Flags().GetString("proxy")
			checksum, _ := cmd.Flags().GetString("checksum")
			keyring, _ := cmd.Flags().GetString("keyring")
			strict, _ := cmd.Flags().GetBool("strict")
			noAuto, _ := cmd.Flags().GetBool("no-auto")
			clearCache, _ := cmd.Flags().GetBool("clear")
			verbose, _ := cmd.Flags().GetBool("verbose")

			arch, err := parseArch(archFlag)
			if err != nil {
				return err
			}
			sh, err := exportShell(cmd)
			if err != nil {
				return err
			}

			req := binary.NewRequest(family).
				Version(version).
				Arch(arch).
				TargetPath(target).
				Proxy(proxy).
				Checksum(checksum).
				Keyring(keyring)
			if strict {
				req = req.StrictDownload()
			}
			if noAuto {
				req = req.DisableAutoCheck()
			}
			if clearCache {
				req = req.ClearBinaryCache()
			}

			a, err := c.application(cmd)
			if err != nil {
				return err
			}
			res, err := a.Setup(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if verbose {
				printDetails(out, res)
			}
			printInfo(out, res.Info, sh)
			return nil
		},
	}

	cmd.Flags().String("version", "", "Driver version to install instead of resolving one")
	cmd.Flags().String("arch", "", "Artifact word width: 32 or 64 (default: detected)")
	cmd.Flags().StringP("target", "t", "", "Cache root for this driver (default: configured cache dir)")
	cmd.Flags().String("proxy", "", "Proxy URL for this download (http, https or socks5)")
	cmd.Flags().String("checksum", "", "Expected SHA256 of the downloaded artifact")
	cmd.Flags().String("keyring", "", "OpenPGP keyring used to verify the artifact signature")
	cmd.Flags().Bool("strict", false, "Download even when the driver is cached")
	cmd.Flags().Bool("no-auto", false, "Do not probe the installed browser")
	cmd.Flags().Bool("clear", false, "Remove the cached driver before setting it up")
	addExportFlags(cmd)
	cmd.Flags().BoolP("verbose", "v", false, "Also print how the driver was obtained")

	return cmd
}

// parseArch accepts the word widths users commonly type.
func parseArch(s string) (platform.Bits, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return 0, nil
	case "32", "x86", "i386", "386", "32bit":
		return platform.Bits32, nil
	case "64", "x64", "amd64", "x86_64", "64bit":
		return platform.Bits64, nil
	default:
		return 0, fmt.Errorf("invalid arch %q: must be 32 or 64", s)
	}
}

func familyNames() string {
	families := binary.Families()
	names := make([]string, len(families))
	for i, f := range families {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}
