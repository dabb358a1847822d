package shell

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
)

// DetectShell detects the user's shell using multiple methods
func DetectShell() (*DetectionResult, error) {
	return detect(os.Getenv, parentProcessName)
}

func detect(getenv func(string) string, parentName func() (string, error)) (*DetectionResult, error) {
	// Method 1: Try $SHELL environment variable (most reliable)
	if shell := getenv("SHELL"); shell != "" {
		shellType := parseShellFromPath(shell)
		if shellType.IsValid() {
			return &DetectionResult{
				Shell:      shellType,
				Method:     "$SHELL environment variable",
				ShellPath:  shell,
				Confidence: "high",
			}, nil
		}
	}

	// Method 2: Try parent process (fallback)
	if name, err := parentName(); err == nil {
		if shellType := parseShellFromPath(name); shellType.IsValid() {
			return &DetectionResult{
				Shell:      shellType,
				Method:     "parent process",
				ShellPath:  name,
				Confidence: "medium",
			}, nil
		}
	}

	return &DetectionResult{
		Shell:      ShellUnknown,
		Method:     "detection failed",
		Confidence: "none",
	}, nil
}

// parseShellFromPath extracts the shell type from a shell binary path
// Examples:
//   - /bin/bash -> bash
//   - /usr/local/bin/fish -> fish
//   - C:\Program Files\PowerShell\7\pwsh.exe -> powershell
func parseShellFromPath(shellPath string) ShellType {
	baseName := strings.ToLower(filepath.Base(strings.ReplaceAll(shellPath, `\`, "/")))
	baseName = strings.TrimSuffix(baseName, ".exe")
	baseName = strings.TrimPrefix(baseName, "-") // login shells

	switch baseName {
	case "bash":
		return ShellBash
	case "zsh":
		return ShellZsh
	case "fish":
		return ShellFish
	case "pwsh", "powershell":
		return ShellPowerShell
	default:
		return ShellUnknown
	}
}

// parentProcessName returns the executable name of the parent process.
func parentProcessName() (string, error) {
	p, err := process.NewProcess(int32(os.Getppid()))
	if err != nil {
		return "", err
	}
	return p.Name()
}

// ParseShell maps a user supplied shell name onto a ShellType.
func ParseShell(name string) (ShellType, error) {
	shellType := parseShellFromPath(strings.TrimSpace(name))
	if !shellType.IsValid() {
		return ShellUnknown, &UnsupportedShellError{Shell: name}
	}
	return shellType, nil
}

// GetSupportedShells returns a list of supported shells
func GetSupportedShells() []ShellType {
	return []ShellType{ShellBash, ShellZsh, ShellFish, ShellPowerShell}
}
