package version

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrintVersionInfo(t *testing.T) {
	var out bytes.Buffer
	PrintVersionInfo(false, &out)

	assert.Contains(t, out.String(), Version)
	assert.Contains(t, out.String(), GithubHomeText)
	assert.NotContains(t, out.String(), "Commit:")
}

func TestPrintVersionInfo_Extended(t *testing.T) {
	var out bytes.Buffer
	PrintVersionInfo(true, &out)

	assert.Contains(t, out.String(), "Commit: "+Commit)
	assert.Contains(t, out.String(), "Built: "+Date)
	assert.Contains(t, out.String(), "Go: ")
}
