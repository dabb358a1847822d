package shell

import "testing"

func TestExportLine(t *testing.T) {
	tests := []struct {
		name  string
		shell ShellType
		value string
		want  string
	}{
		{"bash", ShellBash, "/cache/chromedriver", "export WEBDRIVER_CHROME_DRIVER='/cache/chromedriver'"},
		{"zsh", ShellZsh, "/cache/chromedriver", "export WEBDRIVER_CHROME_DRIVER='/cache/chromedriver'"},
		{"unknown uses posix", ShellUnknown, "/cache/chromedriver", "export WEBDRIVER_CHROME_DRIVER='/cache/chromedriver'"},
		{"posix quote", ShellBash, "/it's/driver", `export WEBDRIVER_CHROME_DRIVER='/it'\''s/driver'`},
		{"fish", ShellFish, "/cache/chromedriver", "set -gx WEBDRIVER_CHROME_DRIVER '/cache/chromedriver'"},
		{"fish quote and backslash", ShellFish, `C:\it's`, `set -gx WEBDRIVER_CHROME_DRIVER 'C:\\it\'s'`},
		{"powershell", ShellPowerShell, `C:\wdb\chromedriver.exe`, `$env:WEBDRIVER_CHROME_DRIVER = 'C:\wdb\chromedriver.exe'`},
		{"powershell quote", ShellPowerShell, `C:\it's`, `$env:WEBDRIVER_CHROME_DRIVER = 'C:\it''s'`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExportLine(tt.shell, "WEBDRIVER_CHROME_DRIVER", tt.value); got != tt.want {
				t.Errorf("ExportLine() = %s, want %s", got, tt.want)
			}
		})
	}
}
