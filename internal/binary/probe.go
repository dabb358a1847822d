package binary

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/ZebulonRouseFrantzich/wdb/internal/platform"
)

// ErrBrowserNotFound is returned by a BrowserProbe when the browser is not
// installed. The resolver treats it as "use the latest release".
var ErrBrowserNotFound = errors.New("browser not installed")

// BrowserProbe reports the version of the browser a family drives.
type BrowserProbe interface {
	BrowserVersion(ctx context.Context, family Family, os platform.OsType) (string, error)
}

// probeCommand is one way of asking the system for a browser version.
type probeCommand struct {
	name string
	args []string
}

// browserCommands lists candidate commands per family and OS, tried in
// order until one produces a version.
var browserCommands = map[Family]map[platform.OsType][]probeCommand{
	FamilyChrome: {
		platform.OsLinux: {
			{"google-chrome", []string{"--version"}},
			{"google-chrome-stable", []string{"--version"}},
			{"chromium", []string{"--version"}},
			{"chromium-browser", []string{"--version"}},
		},
		platform.OsMac: {
			{"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome", []string{"--version"}},
		},
		platform.OsWin: {
			{"reg", []string{"query", `HKEY_CURRENT_USER\Software\Google\Chrome\BLBeacon`, "/v", "version"}},
		},
	},
	FamilyFirefox: {
		platform.OsLinux: {{"firefox", []string{"--version"}}},
		platform.OsMac: {
			{"/Applications/Firefox.app/Contents/MacOS/firefox", []string{"--version"}},
		},
		platform.OsWin: {
			{"reg", []string{"query", `HKEY_LOCAL_MACHINE\SOFTWARE\Mozilla\Mozilla Firefox`, "/v", "CurrentVersion"}},
		},
	},
	FamilyEdge: {
		platform.OsLinux: {
			{"microsoft-edge", []string{"--version"}},
			{"microsoft-edge-stable", []string{"--version"}},
		},
		platform.OsMac: {
			{"/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge", []string{"--version"}},
		},
		platform.OsWin: {
			{"reg", []string{"query", `HKEY_CURRENT_USER\Software\Microsoft\Edge\BLBeacon`, "/v", "version"}},
		},
	},
	FamilyOpera: {
		platform.OsLinux: {{"opera", []string{"--version"}}},
		platform.OsMac: {
			{"/Applications/Opera.app/Contents/MacOS/Opera", []string{"--version"}},
		},
	},
	FamilyIE: {
		platform.OsWin: {
			{"reg", []string{"query", `HKEY_LOCAL_MACHINE\SOFTWARE\Microsoft\Internet Explorer`, "/v", "svcVersion"}},
		},
	},
}

var versionPattern = regexp.MustCompile(`\d+(\.\d+)+`)

// ExecProbe runs the installed browser (or a registry query on Windows)
// and parses the first dotted version from its output.
type ExecProbe struct {
	// Timeout bounds a single command. Zero means 10 seconds.
	Timeout time.Duration

	lookPath func(string) (string, error)
	output   func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewExecProbe creates a probe backed by os/exec.
func NewExecProbe() *ExecProbe {
	return &ExecProbe{
		lookPath: exec.LookPath,
		output: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		},
	}
}

// BrowserVersion implements BrowserProbe.
func (p *ExecProbe) BrowserVersion(ctx context.Context, family Family, os platform.OsType) (string, error) {
	commands := browserCommands[family][os]
	if len(commands) == 0 {
		return "", ErrBrowserNotFound
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var failures []string
	for _, c := range commands {
		if _, err := p.lookPath(c.name); err != nil {
			continue
		}

		cmdCtx, cancel := context.WithTimeout(ctx, timeout)
		out, err := p.output(cmdCtx, c.name, c.args...)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			failures = append(failures, fmt.Sprintf("%s: %v", c.name, err))
			continue
		}

		if v := versionPattern.FindString(string(out)); v != "" {
			return v, nil
		}
	}

	if len(failures) > 0 {
		return "", fmt.Errorf("probe %s browser: %s", family, strings.Join(failures, "; "))
	}
	return "", ErrBrowserNotFound
}
