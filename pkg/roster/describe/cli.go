package describe

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/jamesainslie/roster/pkg/roster/types"
)

// CLI generates suggestions by shelling out to a model CLI. The prompt is
// appended to the configured argument list as the final argument.
type CLI struct {
	name    string
	binary  string
	args    []string
	timeout time.Duration
}

// NewCLI returns a provider that invokes the given binary.
func NewCLI(name, binary string, timeout time.Duration, args ...string) *CLI {
	return &CLI{name: name, binary: binary, args: args, timeout: timeout}
}

// NewClaudeCLI returns a provider using the claude CLI.
func NewClaudeCLI(timeout time.Duration) *CLI {
	return NewCLI("claude", "claude", timeout, "chat", "--message")
}

// NewGeminiCLI returns a provider using the gemini CLI.
func NewGeminiCLI(timeout time.Duration) *CLI {
	return NewCLI("gemini", "gemini", timeout, "generate", "--prompt")
}

// Name implements Provider.
func (c *CLI) Name() string { return c.name }

// Available implements Provider. The binary must resolve on PATH and
// answer a version probe.
func (c *CLI) Available(ctx context.Context) bool {
	if _, err := exec.LookPath(c.binary); err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	return exec.CommandContext(ctx, c.binary, "--version").Run() == nil
}

// Describe implements Provider by running the CLI with the prompt and
// parsing its stdout.
func (c *CLI) Describe(ctx context.Context, cand types.Candidate) (Suggestion, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	args := make([]string, 0, len(c.args)+1)
	args = append(args, c.args...)
	args = append(args, buildPrompt(cand))

	out, err := exec.CommandContext(ctx, c.binary, args...).Output()
	if err != nil {
		return Suggestion{}, fmt.Errorf("running %s: %w", c.name, err)
	}

	sug, err := parseSuggestion(string(out))
	if err != nil {
		return Suggestion{}, fmt.Errorf("%s response for %s: %w", c.name, cand.Name, err)
	}
	return sug, nil
}
