package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "none.yaml"), "--log-level", "error"))
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestRunCommand(t *testing.T) {
	out := execute(t, "run", "--name", "Ann", "--city", "Oslo")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], `"type":"Visitor"`)
	assert.Contains(t, lines[1], `"type":"Consolation"`)
	assert.Contains(t, lines[2], `"response":"Sorry about the snowy weather in Oslo, Ann."`)
}

func TestGraphCommand(t *testing.T) {
	out := execute(t, "graph")
	assert.True(t, strings.HasPrefix(out, "graph TD\n"))
	assert.Contains(t, out, `d_weather -.-> d_mood`)
}

func TestVersionCommand(t *testing.T) {
	assert.Equal(t, "weft version 0.1.0\n", execute(t, "version"))
}
