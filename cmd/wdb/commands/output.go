package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/wdb/internal/binary"
	"github.com/ZebulonRouseFrantzich/wdb/internal/registry"
	"github.com/ZebulonRouseFrantzich/wdb/internal/shell"
)

// printInfo writes the published property as "property=path", or as an
// environment assignment for sh when sh is set.
func printInfo(w io.Writer, info binary.BinaryInfo, sh shell.ShellType) {
	if sh != "" {
		_, _ = fmt.Fprintln(w, shell.ExportLine(sh, registry.EnvName(info.Property), info.Path))
		return
	}
	_, _ = fmt.Fprintln(w, info.String())
}

// exportShell returns the shell to render assignments for, or "" when
// --export was not given.
func exportShell(cmd *cobra.Command) (shell.ShellType, error) {
	export, _ := cmd.Flags().GetBool("export")
	if !export {
		return "", nil
	}
	name, _ := cmd.Flags().GetString("shell")
	if name != "" {
		return shell.ParseShell(name)
	}
	detected, err := shell.DetectShell()
	if err != nil {
		return "", err
	}
	return detected.Shell, nil
}

func addExportFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("export", "e", false, "Print environment assignments instead of property=path")
	cmd.Flags().String("shell", "", "Shell syntax for --export: bash, zsh, fish or powershell (default: detected)")
}

// printDetails writes how a driver was obtained.
func printDetails(w io.Writer, res *binary.SetupResult) {
	origin := "downloaded"
	if res.CacheHit {
		origin = "cached"
	}
	line := fmt.Sprintf("# %s %s (%s, %s, %s)", res.Info.Property, res.Resolved.Version,
		res.Resolved.Source, res.Platform, origin)
	if res.Resolved.BrowserVersion != "" {
		line += " browser " + res.Resolved.BrowserVersion
	}
	_, _ = fmt.Fprintln(w, line)
}
