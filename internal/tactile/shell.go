package tactile

import "strings"

// Shell is an interpreter invocation prefix: Binary Args... <script>.
type Shell struct {
	Binary string
	Args   []string
}

// ShellFor is the single platform-detection point for shell actions. tag is
// the fence language as written by the model; it selects between the native
// shells of one platform, never across platforms.
func ShellFor(goos, tag string) Shell {
	tag = strings.ToLower(tag)
	if goos == "windows" {
		switch tag {
		case "powershell", "ps1", "pwsh":
			return Shell{Binary: "powershell", Args: []string{"-NoProfile", "-NonInteractive", "-Command"}}
		}
		return Shell{Binary: "cmd", Args: []string{"/C"}}
	}

	switch tag {
	case "bash":
		return Shell{Binary: "bash", Args: []string{"-c"}}
	case "zsh":
		return Shell{Binary: "zsh", Args: []string{"-c"}}
	case "pwsh", "powershell", "ps1":
		return Shell{Binary: "pwsh", Args: []string{"-NoProfile", "-NonInteractive", "-Command"}}
	}
	return Shell{Binary: "sh", Args: []string{"-c"}}
}

// DefaultPython returns the interpreter name used when none is configured.
func DefaultPython(goos string) string {
	if goos == "windows" {
		return "python"
	}
	return "python3"
}
