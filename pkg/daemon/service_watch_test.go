package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/roster/pkg/roster/config"
	"github.com/jamesainslie/roster/pkg/roster/cycle"
	"github.com/jamesainslie/roster/pkg/roster/store"
)

// newWatchService builds a Service with the manifest watcher enabled,
// bypassing New so the test reaches the unexported change callback.
func newWatchService(t *testing.T) (*Service, string) {
	t.Helper()
	dir := t.TempDir()

	brewPath := filepath.Join(dir, "Brewfile.Brew")
	require.NoError(t, os.WriteFile(brewPath, []byte("brew \"jq\"\n"), 0o644))

	cfg := &config.Config{
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
		Describe: config.DescribeConfig{Providers: []string{"static"}},
		Watch:    config.WatchConfig{Enabled: true, Debounce: 10 * time.Millisecond},
	}

	st, err := store.Open(cfg)
	require.NoError(t, err)

	svc, err := build(cfg, st)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	return svc, brewPath
}

func TestBuildWiresWatcher(t *testing.T) {
	svc, brewPath := newWatchService(t)

	require.NotNil(t, svc.watcher)
	assert.Contains(t, svc.watcher.Tracked(), brewPath)

	st, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, st.WatchEnabled)
	assert.Contains(t, st.WatchedPaths, brewPath)
}

// A manifest change callback runs a full cycle: the fingerprint differs
// from the empty baseline, so records land in the store.
func TestOnManifestChangeRunsCycle(t *testing.T) {
	svc, brewPath := newWatchService(t)

	svc.onManifestChange([]string{brewPath})

	res, at := svc.lastCycle()
	require.NotNil(t, res)
	assert.Equal(t, cycle.StatusSuccess, res.Status)
	assert.Equal(t, 1, res.Merged)
	assert.False(t, at.IsZero())

	count, err := svc.store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

// A second callback with no underlying edit is a no-change cycle; the
// baseline from the first run holds.
func TestOnManifestChangeNoChange(t *testing.T) {
	svc, brewPath := newWatchService(t)

	svc.onManifestChange([]string{brewPath})
	svc.onManifestChange([]string{brewPath})

	res, _ := svc.lastCycle()
	require.NotNil(t, res)
	assert.Equal(t, cycle.StatusNoChange, res.Status)
}

// Editing the manifest between callbacks regenerates with the new
// contents, while records for removed entries stay in the catalog.
func TestOnManifestChangePicksUpEdits(t *testing.T) {
	svc, brewPath := newWatchService(t)

	svc.onManifestChange([]string{brewPath})

	require.NoError(t, os.WriteFile(brewPath, []byte("brew \"ripgrep\"\n"), 0o644))
	svc.onManifestChange([]string{brewPath})

	res, _ := svc.lastCycle()
	require.NotNil(t, res)
	assert.Equal(t, cycle.StatusSuccess, res.Status)

	// jq is gone from the manifest but its record survives.
	count, err := svc.store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
