// Package describe generates descriptions and usage examples for catalog
// candidates. Providers are probed for availability at first use; a chain
// tries them in priority order with a static table as the usual last
// resort, so regeneration works offline.
package describe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jamesainslie/roster/pkg/roster/types"
)

// probeTimeout caps availability checks. Probes answer a yes/no question
// and must never stall a cycle.
const probeTimeout = 5 * time.Second

// Suggestion is a provider's proposed description and usage example.
type Suggestion struct {
	Description string `json:"description"`
	Example     string `json:"example"`
}

// Provider generates suggestions for candidates.
type Provider interface {
	// Name identifies the provider in config and logs.
	Name() string

	// Available reports whether the provider can serve requests right now.
	Available(ctx context.Context) bool

	// Describe proposes a description and example for the candidate.
	Describe(ctx context.Context, cand types.Candidate) (Suggestion, error)
}

// typeContext phrases each package type for prompts, matching how the
// catalog's consumers think about them.
var typeContext = map[types.PackageType]string{
	types.TypeBrew: "command-line tool installable via Homebrew",
	types.TypeCask: "macOS desktop application installable via Homebrew Cask",
	types.TypeMAS:  "Mac App Store application",
	types.TypeTap:  "Homebrew tap (additional package repository)",
}

// buildPrompt renders the model prompt for a candidate.
func buildPrompt(cand types.Candidate) string {
	context, ok := typeContext[cand.Type]
	if !ok {
		context = "software tool"
	}

	existing := cand.Description
	if existing == "" {
		existing = "None"
	}

	return fmt.Sprintf(`You are helping document Homebrew packages for developers.

Tool: %s
Type: %s
Current description: %s

Please provide:
1. A concise, helpful description (1-2 sentences) that explains what this tool does
2. A practical usage example command

Requirements:
- Be specific and practical
- Focus on what developers actually use this tool for
- Keep descriptions under 100 words
- For command-line tools, provide realistic command examples
- For applications, mention key use cases

Format your response as JSON:
{
  "description": "Your description here",
  "example": "Your example command or usage here"
}

Only respond with valid JSON, no additional text.`, cand.Name, context, existing)
}

// parseSuggestion extracts a suggestion from a model response. Models often
// wrap the JSON in prose, so a failed direct parse retries on the outermost
// brace-delimited slice.
func parseSuggestion(raw string) (Suggestion, error) {
	raw = strings.TrimSpace(raw)

	var sug Suggestion
	if err := json.Unmarshal([]byte(raw), &sug); err == nil {
		return sug, nil
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(raw[start:end+1]), &sug); err == nil {
			return sug, nil
		}
	}

	return Suggestion{}, errors.New("response contains no suggestion JSON")
}
