package shell

import (
	"fmt"
	"strings"
)

// ExportLine renders an assignment of value to the environment variable
// name in the syntax of shell. Unknown shells get POSIX syntax.
func ExportLine(shell ShellType, name, value string) string {
	switch shell {
	case ShellFish:
		return fmt.Sprintf("set -gx %s %s", name, quoteSingle(strings.ReplaceAll(value, `\`, `\\`), `\'`))
	case ShellPowerShell:
		return fmt.Sprintf("$env:%s = %s", name, quoteSingle(value, "''"))
	default:
		return fmt.Sprintf("export %s=%s", name, quoteSingle(value, `'\''`))
	}
}

// quoteSingle wraps s in single quotes, replacing embedded single quotes
// with escape.
func quoteSingle(s, escape string) string {
	return "'" + strings.ReplaceAll(s, "'", escape) + "'"
}
