package describe

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/roster/pkg/roster/types"
)

func TestParseSuggestion(t *testing.T) {
	sug, err := parseSuggestion(`{"description": "JSON processor", "example": "jq '.name'"}`)
	require.NoError(t, err)
	assert.Equal(t, "JSON processor", sug.Description)
	assert.Equal(t, "jq '.name'", sug.Example)
}

func TestParseSuggestion_WrappedInProse(t *testing.T) {
	raw := "Sure! Here is the JSON you asked for:\n{\"description\": \"a tool\", \"example\": \"tool run\"}\nHope that helps."

	sug, err := parseSuggestion(raw)
	require.NoError(t, err)
	assert.Equal(t, "a tool", sug.Description)
	assert.Equal(t, "tool run", sug.Example)
}

func TestParseSuggestion_NoJSON(t *testing.T) {
	_, err := parseSuggestion("I cannot help with that.")
	assert.Error(t, err)
}

func TestParseSuggestion_MalformedJSON(t *testing.T) {
	_, err := parseSuggestion(`{"description": "unterminated`)
	assert.Error(t, err)
}

func TestBuildPrompt(t *testing.T) {
	cand := types.Candidate{Name: "ripgrep", Type: types.TypeBrew}

	prompt := buildPrompt(cand)
	assert.Contains(t, prompt, "Tool: ripgrep")
	assert.Contains(t, prompt, "command-line tool installable via Homebrew")
	assert.Contains(t, prompt, "Current description: None")
	assert.True(t, strings.Contains(prompt, `"description"`), "prompt must request JSON shape")
}

func TestBuildPrompt_ExistingDescription(t *testing.T) {
	cand := types.Candidate{Name: "alfred", Type: types.TypeCask, Description: "launcher app"}

	prompt := buildPrompt(cand)
	assert.Contains(t, prompt, "Current description: launcher app")
	assert.Contains(t, prompt, "macOS desktop application installable via Homebrew Cask")
}
