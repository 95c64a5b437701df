// Package detector picks the log format and the task renderer from the
// terminal and CI environment.
package detector

import (
	"os"

	"golang.org/x/term"
)

// LogFormat is the rendering format for log records.
type LogFormat int

const (
	// FormatAuto defers to environment detection.
	FormatAuto LogFormat = iota
	// FormatPretty renders colored single-line records.
	FormatPretty
	// FormatJSON renders one JSON object per record.
	FormatJSON
)

// String returns the flag spelling of the format.
func (f LogFormat) String() string {
	switch f {
	case FormatPretty:
		return "pretty"
	case FormatJSON:
		return "json"
	default:
		return "auto"
	}
}

// DetectEnvironment returns the recommended format.
// JSON is chosen only when stderr is not a terminal and a CI environment variable is set.
func DetectEnvironment() LogFormat {
	return detect(term.IsTerminal(int(os.Stderr.Fd())), os.Getenv("CI"))
}

func detect(isTTY bool, ci string) LogFormat {
	isCI := ci == "true" || ci == "1"
	if !isTTY && isCI {
		return FormatJSON
	}
	return FormatPretty
}

// ResolveFormat applies the user's --log-format flag to the detected format.
// userFlag should be one of "auto", "pretty", "text", "json" or empty.
func ResolveFormat(autoDetected LogFormat, userFlag string) LogFormat {
	switch userFlag {
	case "pretty", "text":
		return FormatPretty
	case "json":
		return FormatJSON
	default:
		return autoDetected
	}
}

// ValidFormat reports whether userFlag names a known format.
func ValidFormat(userFlag string) bool {
	switch userFlag {
	case "", "auto", "pretty", "text", "json":
		return true
	default:
		return false
	}
}

// OutputMode selects how task progress is rendered.
type OutputMode int

const (
	// ModeAuto defers to environment detection.
	ModeAuto OutputMode = iota
	// ModeTUI renders an interactive task list with per-task log panes.
	ModeTUI
	// ModeLinear prints one line per task event.
	ModeLinear
)

// DetectOutputMode returns the recommended renderer. The TUI needs stdout
// to be a terminal and is never chosen in CI.
func DetectOutputMode() OutputMode {
	return detectMode(term.IsTerminal(int(os.Stdout.Fd())), os.Getenv("CI"))
}

func detectMode(isTTY bool, ci string) OutputMode {
	if !isTTY || ci == "true" || ci == "1" {
		return ModeLinear
	}
	return ModeTUI
}

// ResolveMode applies the user's --output-mode flag to the detected mode.
// userFlag should be one of "auto", "tui", "linear", "ci" or empty.
func ResolveMode(autoDetected OutputMode, userFlag string) OutputMode {
	switch userFlag {
	case "tui":
		return ModeTUI
	case "linear", "ci":
		return ModeLinear
	default:
		return autoDetected
	}
}

// ValidMode reports whether userFlag names a known output mode.
func ValidMode(userFlag string) bool {
	switch userFlag {
	case "", "auto", "tui", "linear", "ci":
		return true
	default:
		return false
	}
}
