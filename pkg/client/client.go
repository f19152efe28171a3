// Package client provides a client for the rosterd HTTP API. The CLI
// uses it in server mode: the badger backend admits a single process, so
// while rosterd holds the store every read and edit routes through here.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jamesainslie/roster/pkg/daemon"
	"github.com/jamesainslie/roster/pkg/roster/config"
	"github.com/jamesainslie/roster/pkg/roster/types"
)

// ErrNotFound indicates the daemon has no record for the requested name.
var ErrNotFound = errors.New("client: record not found")

// ErrDaemonUnavailable indicates the daemon could not be reached at all.
var ErrDaemonUnavailable = errors.New("client: daemon unavailable")

// ErrCycleInProgress indicates a regeneration request lost to a cycle
// another process is already running.
var ErrCycleInProgress = errors.New("client: update already in progress")

// defaultTimeout bounds ordinary API calls. Regenerate gets a longer
// bound because a forced cycle may call out to a description provider
// per record.
const (
	defaultTimeout    = 10 * time.Second
	regenerateTimeout = 5 * time.Minute
)

// Client talks to a rosterd instance over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	slow    *http.Client // for regenerate, which may describe every record
}

// New creates a client for the given base URL ("http://127.0.0.1:8765").
// A scheme-less value is assumed to be http.
func New(baseURL string) *Client {
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		slow:    &http.Client{Timeout: regenerateTimeout},
	}
}

// FromConfig creates a client for the daemon address in the configuration.
func FromConfig(cfg *config.Config) *Client {
	return New(cfg.ServerAddr())
}

// BaseURL returns the address this client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// apiError mirrors the daemon's error envelope.
type apiError struct {
	Error string `json:"error"`
}

// do issues a request and decodes the JSON response into out (when
// non-nil). Non-2xx responses become errors carrying the daemon's
// message; connection failures map to ErrDaemonUnavailable.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	return c.doWith(ctx, c.http, method, path, body, out)
}

func (c *Client) doWith(ctx context.Context, httpc *http.Client, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDaemonUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.asError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// asError turns a failing response into a typed error where the status
// code has a defined meaning.
func (c *Client) asError(resp *http.Response) error {
	var ae apiError
	_ = json.NewDecoder(resp.Body).Decode(&ae)
	msg := ae.Error
	if msg == "" {
		msg = resp.Status
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrCycleInProgress, msg)
	default:
		return fmt.Errorf("daemon returned %d: %s", resp.StatusCode, msg)
	}
}

// Health is the daemon's liveness report.
type Health struct {
	Status  string `json:"status"`
	Backend string `json:"backend"`
	Records int    `json:"records"`
}

// Health checks that the daemon is up and returns its store summary.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	err := c.do(ctx, http.MethodGet, "/api/health", nil, &h)
	return h, err
}

// Ping reports whether the daemon answers its health endpoint.
func (c *Client) Ping(ctx context.Context) bool {
	_, err := c.Health(ctx)
	return err == nil
}

// listResponse mirrors the daemon's record-list envelope.
type listResponse struct {
	Tools []types.Record `json:"tools"`
	Total int            `json:"total"`
}

// List returns every record in the catalog.
func (c *Client) List(ctx context.Context) ([]types.Record, error) {
	var lr listResponse
	if err := c.do(ctx, http.MethodGet, "/api/tools", nil, &lr); err != nil {
		return nil, err
	}
	return lr.Tools, nil
}

// SearchOptions narrow a Search call. Zero values are omitted from the
// query, so the daemon's defaults apply.
type SearchOptions struct {
	Query  string
	Types  []types.PackageType
	Edited *bool
	Limit  int
}

// Search returns the records matching the given options plus the total
// match count before the limit was applied.
func (c *Client) Search(ctx context.Context, opts SearchOptions) ([]types.Record, int, error) {
	q := url.Values{}
	if opts.Query != "" {
		q.Set("q", opts.Query)
	}
	for _, typ := range opts.Types {
		q.Add("type", string(typ))
	}
	if opts.Edited != nil {
		q.Set("edited", strconv.FormatBool(*opts.Edited))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}

	path := "/api/tools/search"
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}

	var lr listResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &lr); err != nil {
		return nil, 0, err
	}
	return lr.Tools, lr.Total, nil
}

// Recent returns user-edited records, most recently edited first.
func (c *Client) Recent(ctx context.Context, limit int) ([]types.Record, error) {
	path := "/api/tools/recent"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	var lr listResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &lr); err != nil {
		return nil, err
	}
	return lr.Tools, nil
}

// Get returns one record by name. Returns ErrNotFound when the daemon
// has no record with that name.
func (c *Client) Get(ctx context.Context, name string) (types.Record, error) {
	var rec types.Record
	err := c.do(ctx, http.MethodGet, "/api/tools/"+url.PathEscape(name), nil, &rec)
	return rec, err
}

// TypeCounts returns the number of records per package type.
func (c *Client) TypeCounts(ctx context.Context) (map[string]int, error) {
	var out struct {
		Types map[string]int `json:"types"`
		Total int            `json:"total"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/tools/types", nil, &out); err != nil {
		return nil, err
	}
	return out.Types, nil
}

// editBody is the PATCH payload. Nil fields are omitted so the daemon
// leaves them untouched.
type editBody struct {
	Description *string `json:"description,omitempty"`
	Example     *string `json:"example,omitempty"`
}

// Edit applies a user edit to the named record and returns the updated
// record. At least one field must be non-nil.
func (c *Client) Edit(ctx context.Context, name string, description, example *string) (types.Record, error) {
	var rec types.Record
	err := c.do(ctx, http.MethodPatch, "/api/tools/"+url.PathEscape(name),
		editBody{Description: description, Example: example}, &rec)
	return rec, err
}

// BatchEdit is one item of a batch update request.
type BatchEdit struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Example     *string `json:"example,omitempty"`
}

// BatchResult reports one batch item's outcome.
type BatchResult struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// BatchUpdate applies several edits in one request. Per-item failures do
// not fail the call; inspect the returned results.
func (c *Client) BatchUpdate(ctx context.Context, edits []BatchEdit) ([]BatchResult, error) {
	var out struct {
		Results []BatchResult `json:"results"`
		Applied int           `json:"applied"`
		Failed  int           `json:"failed"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/tools/batch-update", edits, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// CycleReport mirrors the daemon's cycle result.
type CycleReport struct {
	Status       string   `json:"status"`
	Forced       bool     `json:"forced"`
	DryRun       bool     `json:"dry_run"`
	Changed      []string `json:"changed"`
	WouldUpdate  bool     `json:"would_update"`
	Merged       int      `json:"merged"`
	RecordErrors []string `json:"record_errors"`
	SnapshotPath string   `json:"snapshot_path"`
	DurationMS   int64    `json:"duration_ms"`
	Error        string   `json:"error,omitempty"`
}

// Regenerate asks the daemon to run one update cycle and returns its
// report. Lock contention with another process maps to ErrCycleInProgress.
func (c *Client) Regenerate(ctx context.Context, force, dryRun bool) (CycleReport, error) {
	q := url.Values{}
	if force {
		q.Set("force", "true")
	}
	if dryRun {
		q.Set("dry_run", "true")
	}
	path := "/api/regenerate"
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}

	var report CycleReport
	err := c.doWith(ctx, c.slow, http.MethodPost, path, nil, &report)
	return report, err
}

// Status returns the daemon's runtime status.
func (c *Client) Status(ctx context.Context) (daemon.Status, error) {
	var st daemon.Status
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &st)
	return st, err
}

// LogLine is one buffered daemon log entry.
type LogLine struct {
	Time      time.Time `json:"time"`
	Level     string    `json:"level"`
	Component string    `json:"component"`
	Message   string    `json:"message"`
}

// Logs returns the daemon's most recent buffered log lines.
func (c *Client) Logs(ctx context.Context, n int) ([]LogLine, error) {
	path := "/api/logs"
	if n > 0 {
		path += "?n=" + strconv.Itoa(n)
	}

	var out struct {
		Lines []LogLine `json:"lines"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Lines, nil
}
