package describe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jamesainslie/roster/pkg/roster/types"
)

// Ollama generates suggestions through a local Ollama server.
type Ollama struct {
	url     string
	model   string
	timeout time.Duration
	client  *http.Client
}

// NewOllama returns a provider against the given Ollama base URL.
func NewOllama(url, model string, timeout time.Duration) *Ollama {
	return &Ollama{
		url:     strings.TrimRight(url, "/"),
		model:   model,
		timeout: timeout,
		client:  &http.Client{},
	}
}

// Name implements Provider.
func (o *Ollama) Name() string { return "ollama" }

// Available implements Provider by probing the tags endpoint.
func (o *Ollama) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.url+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Describe implements Provider via the non-streaming generate endpoint.
func (o *Ollama) Describe(ctx context.Context, cand types.Candidate) (Suggestion, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	payload := generateRequest{
		Model:  o.model,
		Prompt: buildPrompt(cand),
		Stream: false,
		Options: generateOptions{
			Temperature: 0.3,
			TopP:        0.9,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Suggestion{}, fmt.Errorf("encoding generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return Suggestion{}, fmt.Errorf("building generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return Suggestion{}, fmt.Errorf("calling ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Suggestion{}, fmt.Errorf("ollama returned %s", resp.Status)
	}

	var gr generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return Suggestion{}, fmt.Errorf("decoding generate response: %w", err)
	}

	sug, err := parseSuggestion(gr.Response)
	if err != nil {
		return Suggestion{}, fmt.Errorf("ollama response for %s: %w", cand.Name, err)
	}
	return sug, nil
}
