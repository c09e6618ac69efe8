package util

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/thushan/striker/internal/core/constants"
)

/*
   references:
   - https://no-color.org/
   - https://force-color.org/
*/

// IsTerminal reports whether w is backed by a terminal. Writers without a file
// descriptor (buffers, pipes wrapped in other writers) never are.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// ShouldUseColors determines if coloured output should be written to w
func ShouldUseColors(w io.Writer) bool {
	if noColor := os.Getenv("NO_COLOR"); noColor != "" {
		return false
	}

	if forceColor := os.Getenv("FORCE_COLOR"); forceColor != "" {
		// FORCE_COLOR=0 disables, levels 1-3 and words like "yes" enable
		enabled, _ := ParseBool(forceColor, DefaultTo(true))
		return enabled
	}

	if strikerColors := os.Getenv(constants.ForceColorsEnv); strikerColors != "" {
		enabled, _ := ParseBool(strikerColors, DefaultTo(false))
		return enabled
	}

	return IsTerminal(w)
}
