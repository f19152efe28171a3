package daemon_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/roster/pkg/daemon"
	"github.com/jamesainslie/roster/pkg/roster/config"
	"github.com/jamesainslie/roster/pkg/roster/store"
	"github.com/jamesainslie/roster/pkg/roster/types"
)

// testConfig builds a config whose every path lives under a temp dir,
// with the file store backend, the static describer, and watching off.
func testConfig(t *testing.T, brewfile string) *config.Config {
	t.Helper()
	dir := t.TempDir()

	brewPath := filepath.Join(dir, "Brewfile.Brew")
	require.NoError(t, os.WriteFile(brewPath, []byte(brewfile), 0o644))

	return &config.Config{
		Store: config.StoreConfig{
			Backend: config.BackendFile,
			Path:    filepath.Join(dir, "records.json"),
		},
		Manifests: config.ManifestConfig{Dir: dir, Brew: brewPath},
		Snapshot:  config.SnapshotConfig{Path: filepath.Join(dir, "tools.json")},
		Update: config.UpdateConfig{
			StatePath:  filepath.Join(dir, "update_state.json"),
			LockPath:   filepath.Join(dir, "update.lock"),
			StaleAfter: time.Minute,
		},
		Journal:  config.JournalConfig{Enabled: false},
		Describe: config.DescribeConfig{Providers: []string{"static"}},
		Server:   config.ServerConfig{Host: "127.0.0.1", Port: 0},
		Watch:    config.WatchConfig{Enabled: false},
	}
}

// newTestServer starts a Service over its API handler without binding
// the configured port.
func newTestServer(t *testing.T, cfg *config.Config) (*daemon.Service, *httptest.Server) {
	t.Helper()

	svc, err := daemon.New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	srv := httptest.NewServer(svc.Handler())
	t.Cleanup(srv.Close)
	return svc, srv
}

func getJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func doJSON(t *testing.T, method, url string, body, out interface{}) int {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// regenerate runs one forced cycle through the API.
func regenerate(t *testing.T, base string) {
	t.Helper()
	var res map[string]interface{}
	code := doJSON(t, http.MethodPost, base+"/api/regenerate?force=true", nil, &res)
	require.Equal(t, http.StatusOK, code, "regenerate failed: %v", res)
}

func TestHealthEndpoint(t *testing.T) {
	_, srv := newTestServer(t, testConfig(t, `brew "jq"`))

	var health struct {
		Status  string `json:"status"`
		Backend string `json:"backend"`
		Records int    `json:"records"`
	}
	code := getJSON(t, srv.URL+"/api/health", &health)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, config.BackendFile, health.Backend)
	assert.Equal(t, 0, health.Records)
}

func TestRegenerateThenList(t *testing.T) {
	_, srv := newTestServer(t, testConfig(t, "brew \"jq\"\nbrew \"ripgrep\"\n"))

	var res struct {
		Status string `json:"status"`
		Merged int    `json:"merged"`
	}
	code := doJSON(t, http.MethodPost, srv.URL+"/api/regenerate?force=true", nil, &res)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", res.Status)
	assert.Equal(t, 2, res.Merged)

	var list struct {
		Tools []types.Record `json:"tools"`
		Total int            `json:"total"`
	}
	code = getJSON(t, srv.URL+"/api/tools", &list)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, 2, list.Total)
	assert.Equal(t, "jq", list.Tools[0].Name)
	assert.NotEmpty(t, list.Tools[0].Description, "static provider fills descriptions")
	assert.False(t, list.Tools[0].UserEdited)
}

func TestRegenerateNoChangeSecondTime(t *testing.T) {
	_, srv := newTestServer(t, testConfig(t, `brew "jq"`))
	regenerate(t, srv.URL)

	var res struct {
		Status string `json:"status"`
	}
	code := doJSON(t, http.MethodPost, srv.URL+"/api/regenerate", nil, &res)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "no-change", res.Status)
}

func TestRegenerateBadFlag(t *testing.T) {
	_, srv := newTestServer(t, testConfig(t, `brew "jq"`))

	var res map[string]interface{}
	code := doJSON(t, http.MethodPost, srv.URL+"/api/regenerate?force=maybe", nil, &res)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestGetTool(t *testing.T) {
	_, srv := newTestServer(t, testConfig(t, `brew "jq"`))
	regenerate(t, srv.URL)

	var rec types.Record
	code := getJSON(t, srv.URL+"/api/tools/jq", &rec)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "jq", rec.Name)
	assert.Equal(t, types.TypeBrew, rec.Type)
}

func TestGetToolNotFound(t *testing.T) {
	_, srv := newTestServer(t, testConfig(t, `brew "jq"`))

	var apiErr struct {
		Error string `json:"error"`
	}
	code := getJSON(t, srv.URL+"/api/tools/ghost", &apiErr)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Contains(t, apiErr.Error, "ghost")
}

func TestPatchTool(t *testing.T) {
	_, srv := newTestServer(t, testConfig(t, `brew "jq"`))
	regenerate(t, srv.URL)

	var rec types.Record
	code := doJSON(t, http.MethodPatch, srv.URL+"/api/tools/jq",
		map[string]string{"description": "custom"}, &rec)

	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "custom", rec.Description)
	assert.True(t, rec.UserEdited)
	require.NotNil(t, rec.LastEdited)
}

func TestPatchToolNotFound(t *testing.T) {
	_, srv := newTestServer(t, testConfig(t, `brew "jq"`))

	code := doJSON(t, http.MethodPatch, srv.URL+"/api/tools/ghost",
		map[string]string{"description": "x"}, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestPatchToolEmptyEdit(t *testing.T) {
	_, srv := newTestServer(t, testConfig(t, `brew "jq"`))
	regenerate(t, srv.URL)

	code := doJSON(t, http.MethodPatch, srv.URL+"/api/tools/jq",
		map[string]string{}, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestPatchToolUnknownField(t *testing.T) {
	_, srv := newTestServer(t, testConfig(t, `brew "jq"`))
	regenerate(t, srv.URL)

	code := doJSON(t, http.MethodPatch, srv.URL+"/api/tools/jq",
		map[string]string{"name": "renamed"}, nil)
	assert.Equal(t, http.StatusBadRequest, code, "renames are not edits")
}

func TestBatchUpdateMixedOutcome(t *testing.T) {
	_, srv := newTestServer(t, testConfig(t, `brew "jq"`))
	regenerate(t, srv.URL)

	var out struct {
		Results []struct {
			Name  string `json:"name"`
			OK    bool   `json:"ok"`
			Error string `json:"error"`
		} `json:"results"`
		Applied int `json:"applied"`
		Failed  int `json:"failed"`
	}
	code := doJSON(t, http.MethodPost, srv.URL+"/api/tools/batch-update",
		[]map[string]string{
			{"name": "jq", "description": "patched"},
			{"name": "ghost", "description": "whatever"},
		}, &out)

	assert.Equal(t, http.StatusMultiStatus, code)
	require.Len(t, out.Results, 2)
	assert.True(t, out.Results[0].OK)
	assert.False(t, out.Results[1].OK)
	assert.Equal(t, 1, out.Applied)
	assert.Equal(t, 1, out.Failed)
}

func TestBatchUpdateEmpty(t *testing.T) {
	_, srv := newTestServer(t, testConfig(t, `brew "jq"`))

	code := doJSON(t, http.MethodPost, srv.URL+"/api/tools/batch-update",
		[]map[string]string{}, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestSearch(t *testing.T) {
	_, srv := newTestServer(t, testConfig(t, "brew \"jq\"\nbrew \"ripgrep\"\n"))
	regenerate(t, srv.URL)

	var list struct {
		Tools []types.Record `json:"tools"`
		Total int            `json:"total"`
	}
	code := getJSON(t, srv.URL+"/api/tools/search?q=ripgrep", &list)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "ripgrep", list.Tools[0].Name)
}

func TestSearchTypeFilter(t *testing.T) {
	_, srv := newTestServer(t, testConfig(t, `brew "jq"`))
	regenerate(t, srv.URL)

	var list struct {
		Tools []types.Record `json:"tools"`
		Total int            `json:"total"`
	}
	code := getJSON(t, srv.URL+"/api/tools/search?type=cask", &list)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, list.Total)
}

func TestSearchBadLimit(t *testing.T) {
	_, srv := newTestServer(t, testConfig(t, `brew "jq"`))

	var apiErr map[string]interface{}
	code := getJSON(t, srv.URL+"/api/tools/search?limit=zero", &apiErr)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestSearchLimitApplied(t *testing.T) {
	var manifest bytes.Buffer
	for i := 0; i < 5; i++ {
		fmt.Fprintf(&manifest, "brew \"tool-%d\"\n", i)
	}
	_, srv := newTestServer(t, testConfig(t, manifest.String()))
	regenerate(t, srv.URL)

	var list struct {
		Tools []types.Record `json:"tools"`
		Total int            `json:"total"`
	}
	code := getJSON(t, srv.URL+"/api/tools/search?limit=2", &list)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, list.Tools, 2)
	assert.Equal(t, 5, list.Total, "total counts matches before the limit")
}

func TestRecent(t *testing.T) {
	_, srv := newTestServer(t, testConfig(t, "brew \"jq\"\nbrew \"ripgrep\"\n"))
	regenerate(t, srv.URL)

	code := doJSON(t, http.MethodPatch, srv.URL+"/api/tools/ripgrep",
		map[string]string{"example": "rg pattern"}, nil)
	require.Equal(t, http.StatusOK, code)

	var list struct {
		Tools []types.Record `json:"tools"`
		Total int            `json:"total"`
	}
	code = getJSON(t, srv.URL+"/api/tools/recent", &list)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, 1, list.Total, "only edited records are recent")
	assert.Equal(t, "ripgrep", list.Tools[0].Name)
}

func TestTypesEndpoint(t *testing.T) {
	_, srv := newTestServer(t, testConfig(t, "brew \"jq\"\nbrew \"fd\"\n"))
	regenerate(t, srv.URL)

	var out struct {
		Types map[string]int `json:"types"`
		Total int            `json:"total"`
	}
	code := getJSON(t, srv.URL+"/api/tools/types", &out)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 2, out.Types["brew"])
	assert.Equal(t, 2, out.Total)
}

func TestConfigEndpoint(t *testing.T) {
	cfg := testConfig(t, `brew "jq"`)
	_, srv := newTestServer(t, cfg)

	var out struct {
		Store struct {
			Backend string `json:"backend"`
			Path    string `json:"path"`
		} `json:"store"`
		Watch struct {
			Enabled bool `json:"enabled"`
		} `json:"watch"`
	}
	code := getJSON(t, srv.URL+"/api/config", &out)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, config.BackendFile, out.Store.Backend)
	assert.Equal(t, cfg.StorePath(), out.Store.Path)
	assert.False(t, out.Watch.Enabled)
}

func TestStatusEndpoint(t *testing.T) {
	_, srv := newTestServer(t, testConfig(t, `brew "jq"`))
	regenerate(t, srv.URL)

	var st daemon.Status
	code := getJSON(t, srv.URL+"/api/status", &st)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, st.Running)
	assert.Equal(t, 1, st.Records)
	require.NotNil(t, st.LastCycle)
	assert.Equal(t, "success", st.LastCycle.Status)
}

func TestLogsEndpoint(t *testing.T) {
	_, srv := newTestServer(t, testConfig(t, `brew "jq"`))

	var out struct {
		Lines []interface{} `json:"lines"`
	}
	code := getJSON(t, srv.URL+"/api/logs", &out)
	// No buffer configured in tests: empty list, never null.
	require.Equal(t, http.StatusOK, code)
	assert.NotNil(t, out.Lines)
}

func TestEventsStreamDeliversRecordUpdate(t *testing.T) {
	svc, srv := newTestServer(t, testConfig(t, `brew "jq"`))
	regenerate(t, srv.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + srv.URL[len("http"):] + "/api/events"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	desc := "edited"
	_, err = svc.ApplyEdit(ctx, "jq", store.EditFields{Description: &desc})
	require.NoError(t, err)

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var event struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(data, &event))
	assert.Equal(t, "record_updated", event.Type)
	assert.Equal(t, "jq", event.Name)
	assert.NotEmpty(t, event.ID)
}
