package version

import (
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/thushan/striker/theme"
)

var (
	Name        = "striker"
	Authors     = "Thushan Fernando"
	Description = "Workspace, command and virtualenv helpers for build tooling"
	Version     = "v0.0.1"
	Commit      = "none"
	Date        = "nowish"
	User        = "local"
)

const (
	GithubHomeText  = "github.com/thushan/striker"
	GithubHomeUri   = "https://github.com/thushan/striker"
	GithubLatestUri = "https://github.com/thushan/striker/releases/latest"
)

// PrintVersionInfo writes the banner to w, with build details when extendedInfo is set
func PrintVersionInfo(extendedInfo bool, w io.Writer) {
	githubUri := theme.Hyperlink(GithubHomeUri, GithubHomeText)
	latestUri := theme.Hyperlink(GithubLatestUri, Version)

	var b strings.Builder

	b.WriteString(theme.ColourSplash(`
╔──────────────────────────────────────────────╗
│   ┌─┐┌┬┐┬─┐┬┬┌─┌─┐┬─┐                       │
│   └─┐ │ ├┬┘│├┴┐├┤ ├┬┘                       │
│   └─┘ ┴ ┴└─┴┴ ┴└─┘┴└─                       │` + "\n"))

	b.WriteString(theme.ColourSplash("│   "))
	b.WriteString(theme.StyleUrl(githubUri))
	b.WriteString(" ")
	b.WriteString(theme.ColourVersion(latestUri))
	b.WriteString(strings.Repeat(" ", max(1, 16-len(Version))))
	b.WriteString(theme.ColourSplash("│\n"))
	b.WriteString(theme.ColourSplash("╚──────────────────────────────────────────────╝"))
	b.WriteString("\n")

	if extendedInfo {
		b.WriteString(fmt.Sprintf(" Commit: %s\n", Commit))
		b.WriteString(fmt.Sprintf("  Built: %s\n", Date))
		b.WriteString(fmt.Sprintf("  Using: %s\n", User))
		b.WriteString(fmt.Sprintf("     Go: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH))
	}

	_, _ = io.WriteString(w, b.String())
}
