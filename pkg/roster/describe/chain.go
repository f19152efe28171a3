package describe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jamesainslie/roster/pkg/roster/config"
	"github.com/jamesainslie/roster/pkg/roster/logging"
	"github.com/jamesainslie/roster/pkg/roster/types"
)

// ErrUnknownProvider is returned when config names a provider that does
// not exist.
var ErrUnknownProvider = errors.New("describe: unknown provider")

// Chain tries providers in priority order. Availability probes run once
// per provider and are cached for the chain's lifetime; a provider that
// fails a call falls through to the next one, so a static tail means
// describing never errors outright.
type Chain struct {
	providers []Provider
	rateLimit time.Duration
	log       *logging.Logger

	mu       sync.Mutex
	probed   map[string]bool
	lastCall time.Time
}

// NewChain builds a chain over the given providers. rateLimit spaces out
// model calls; zero disables spacing.
func NewChain(providers []Provider, rateLimit time.Duration) *Chain {
	return &Chain{
		providers: providers,
		rateLimit: rateLimit,
		log:       logging.Get("describe"),
		probed:    make(map[string]bool),
	}
}

// FromConfig assembles the chain named by describe.providers.
func FromConfig(cfg *config.Config) (*Chain, error) {
	dc := cfg.Describe

	var providers []Provider
	for _, name := range dc.Providers {
		switch name {
		case "ollama":
			providers = append(providers, NewOllama(dc.OllamaURL, dc.Model, dc.Timeout))
		case "claude":
			providers = append(providers, NewClaudeCLI(dc.Timeout))
		case "gemini":
			providers = append(providers, NewGeminiCLI(dc.Timeout))
		case "cli":
			if dc.CLIBinary == "" {
				return nil, fmt.Errorf("%w: cli requires describe.cli_binary", ErrUnknownProvider)
			}
			providers = append(providers, NewCLI("cli", dc.CLIBinary, dc.Timeout))
		case "static":
			providers = append(providers, NewStatic())
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
		}
	}

	return NewChain(providers, dc.RateLimit), nil
}

// Names lists the configured providers in priority order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return names
}

// Describe fills the candidate's empty description and example fields.
// Fields the producer already populated are left alone. It satisfies the
// cycle's describer contract.
func (c *Chain) Describe(ctx context.Context, cand types.Candidate) (types.Candidate, error) {
	if cand.Description != "" && cand.Example != "" {
		return cand, nil
	}

	var lastErr error
	for _, p := range c.providers {
		if !c.available(ctx, p) {
			continue
		}

		if p.Name() != "static" {
			if err := c.throttle(ctx); err != nil {
				return cand, err
			}
		}

		sug, err := p.Describe(ctx, cand)
		if err != nil {
			lastErr = err
			c.log.Warn("provider failed", "provider", p.Name(), "name", cand.Name, "error", err)
			continue
		}

		if cand.Description == "" {
			cand.Description = sug.Description
		}
		if cand.Example == "" {
			cand.Example = sug.Example
		}
		return cand, nil
	}

	if lastErr != nil {
		return cand, fmt.Errorf("all providers failed: %w", lastErr)
	}
	return cand, errors.New("no provider available")
}

// available returns the provider's probe result, cached after first use.
func (c *Chain) available(ctx context.Context, p Provider) bool {
	c.mu.Lock()
	if ok, probed := c.probed[p.Name()]; probed {
		c.mu.Unlock()
		return ok
	}
	c.mu.Unlock()

	ok := p.Available(ctx)

	c.mu.Lock()
	c.probed[p.Name()] = ok
	c.mu.Unlock()

	if !ok {
		c.log.Debug("provider unavailable", "provider", p.Name())
	}
	return ok
}

// throttle reserves the next model-call slot and sleeps until it opens.
func (c *Chain) throttle(ctx context.Context) error {
	if c.rateLimit <= 0 {
		return nil
	}

	c.mu.Lock()
	now := time.Now()
	next := c.lastCall.Add(c.rateLimit)
	if next.Before(now) {
		next = now
	}
	c.lastCall = next
	c.mu.Unlock()

	wait := time.Until(next)
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
