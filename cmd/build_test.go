package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunBuildRequiresOneFile(t *testing.T) {
	err := runBuild(buildCmd, []string{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one file")

	err = runBuild(buildCmd, []string{"a.ts", "b.ts"})
	assert.Error(t, err)
}

func TestRunBuildRejectsUnknownExtension(t *testing.T) {
	err := runBuild(buildCmd, []string{"agent.py"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), ".ts or .js")
}

func TestCommandsRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	assert.True(t, names["serve"])
	assert.True(t, names["build"])
}
