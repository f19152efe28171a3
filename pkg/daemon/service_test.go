package daemon_test

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/roster/pkg/daemon"
	"github.com/jamesainslie/roster/pkg/roster/config"
	"github.com/jamesainslie/roster/pkg/roster/cycle"
	"github.com/jamesainslie/roster/pkg/roster/journal"
	"github.com/jamesainslie/roster/pkg/roster/store"
	"github.com/jamesainslie/roster/pkg/roster/types"
)

func TestNewFailsWithoutManifests(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		Store: config.StoreConfig{
			Backend: config.BackendFile,
			Path:    filepath.Join(dir, "records.json"),
		},
		Manifests: config.ManifestConfig{Dir: dir},
		Describe:  config.DescribeConfig{Providers: []string{"static"}},
	}

	_, err := daemon.New(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no manifest")
}

func TestRunCycleMergesCandidates(t *testing.T) {
	svc, _ := newTestServer(t, testConfig(t, "brew \"jq\"\nbrew \"fd\"\n"))

	res, err := svc.RunCycle(context.Background(), cycle.Options{Force: true})
	require.NoError(t, err)
	assert.Equal(t, cycle.StatusSuccess, res.Status)
	assert.Equal(t, 2, res.Merged)
	assert.True(t, res.Forced)
}

func TestRunCycleDryRunWritesNothing(t *testing.T) {
	cfg := testConfig(t, `brew "jq"`)
	svc, _ := newTestServer(t, cfg)

	res, err := svc.RunCycle(context.Background(), cycle.Options{Force: true, DryRun: true})
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.True(t, res.WouldUpdate)

	count, err := countRecords(t, svc)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// A later real cycle still sees the change: dry runs never advance
	// the hash baseline.
	res, err = svc.RunCycle(context.Background(), cycle.Options{})
	require.NoError(t, err)
	assert.Equal(t, cycle.StatusSuccess, res.Status)
}

func countRecords(t *testing.T, svc *daemon.Service) (int, error) {
	t.Helper()
	st, err := svc.Status(context.Background())
	return st.Records, err
}

// Concurrent in-process triggers queue on the sync guard instead of
// colliding on the update lock.
func TestRunCycleSerializesInProcessCallers(t *testing.T) {
	svc, _ := newTestServer(t, testConfig(t, `brew "jq"`))

	const callers = 8
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.RunCycle(context.Background(), cycle.Options{Force: true})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "caller %d", i)
		assert.False(t, errors.Is(err, cycle.ErrLockHeld), "caller %d hit the lock", i)
	}
}

func TestRunCycleWritesJournal(t *testing.T) {
	cfg := testConfig(t, `brew "jq"`)
	jdir := filepath.Join(t.TempDir(), "journal")
	cfg.Journal = config.JournalConfig{Enabled: true, Path: jdir, RetentionDays: 30}

	svc, _ := newTestServer(t, cfg)

	_, err := svc.RunCycle(context.Background(), cycle.Options{Force: true})
	require.NoError(t, err)

	jnl, err := journal.New(jdir)
	require.NoError(t, err)
	entries, err := jnl.List(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, string(cycle.StatusSuccess), entries[0].Status)
	assert.Equal(t, 1, entries[0].Merged)
}

func TestApplyEditUnknownRecord(t *testing.T) {
	svc, _ := newTestServer(t, testConfig(t, `brew "jq"`))

	desc := "nope"
	_, err := svc.ApplyEdit(context.Background(), "ghost", store.EditFields{Description: &desc})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestApplyEditSurvivesCycle(t *testing.T) {
	svc, srv := newTestServer(t, testConfig(t, `brew "jq"`))
	regenerate(t, srv.URL)

	desc := "my jq notes"
	rec, err := svc.ApplyEdit(context.Background(), "jq", store.EditFields{Description: &desc})
	require.NoError(t, err)
	require.True(t, rec.UserEdited)

	_, err = svc.RunCycle(context.Background(), cycle.Options{Force: true})
	require.NoError(t, err)

	var got types.Record
	code := getJSON(t, srv.URL+"/api/tools/jq", &got)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "my jq notes", got.Description)
	assert.True(t, got.UserEdited)
}

func TestStatusReflectsCycles(t *testing.T) {
	svc, _ := newTestServer(t, testConfig(t, `brew "jq"`))

	st, err := svc.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Running)
	assert.Nil(t, st.LastCycle, "no cycle has run yet")
	assert.Equal(t, 0, st.Records)
	assert.False(t, st.WatchEnabled)

	start := time.Now()
	_, err = svc.RunCycle(context.Background(), cycle.Options{Force: true})
	require.NoError(t, err)

	st, err = svc.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, st.Records)
	require.NotNil(t, st.LastCycle)
	assert.Equal(t, string(cycle.StatusSuccess), st.LastCycle.Status)
	assert.Equal(t, 1, st.LastCycle.Merged)
	assert.WithinDuration(t, start, st.LastCycle.StartedAt, 10*time.Second)
}
