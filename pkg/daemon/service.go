// Package daemon implements the rosterd process: a long-lived owner of
// the record store that runs update cycles, watches manifests for edits,
// and serves the HTTP API the CLI talks to in server mode.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jamesainslie/roster/pkg/daemon/broadcaster"
	"github.com/jamesainslie/roster/pkg/daemon/watcher"
	"github.com/jamesainslie/roster/pkg/roster/config"
	"github.com/jamesainslie/roster/pkg/roster/cycle"
	"github.com/jamesainslie/roster/pkg/roster/describe"
	"github.com/jamesainslie/roster/pkg/roster/journal"
	"github.com/jamesainslie/roster/pkg/roster/logging"
	"github.com/jamesainslie/roster/pkg/roster/manifest"
	"github.com/jamesainslie/roster/pkg/roster/snapshot"
	"github.com/jamesainslie/roster/pkg/roster/store"
	"github.com/jamesainslie/roster/pkg/roster/types"
)

// shutdownTimeout bounds how long in-flight requests may run after the
// daemon is told to stop.
const shutdownTimeout = 5 * time.Second

// Service owns the daemon's collaborators for its whole lifetime. The
// record store stays open across cycles because the badger backend
// admits a single process; CLI mutations arrive through the HTTP API
// while rosterd holds it.
type Service struct {
	cfg         *config.Config
	store       store.Store
	runner      *cycle.Runner
	journal     *journal.Journal // nil when journaling is disabled
	watcher     *watcher.Watcher // nil when watching is disabled
	broadcaster *broadcaster.Broadcaster
	server      *http.Server
	log         *logging.Logger
	startTime   time.Time

	// syncMu serializes cycles triggered inside this process, watch
	// events and API calls alike. The update lock still guards against
	// other processes.
	syncMu sync.Mutex

	lastMu     sync.RWMutex
	lastResult *cycle.Result
	lastAt     time.Time
}

// New wires a Service from configuration. The record store is opened
// here and stays open until Close.
func New(cfg *config.Config) (*Service, error) {
	st, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	svc, err := build(cfg, st)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return svc, nil
}

func build(cfg *config.Config, st store.Store) (*Service, error) {
	sources, err := manifest.Resolve(cfg)
	if err != nil {
		return nil, err
	}
	producer := manifest.NewProducer(sources)

	chain, err := describe.FromConfig(cfg)
	if err != nil {
		return nil, err
	}

	runner := cycle.NewRunner(cycle.RunnerConfig{
		Store:     st,
		Producer:  producer,
		Describer: chain,
		Exporter:  snapshot.NewExporter(st, cfg.SnapshotPath()),
		Lock:      cycle.NewLock(cfg.LockPath(), cfg.Update.StaleAfter),
		StatePath: cfg.StatePath(),
	})

	svc := &Service{
		cfg:         cfg,
		store:       st,
		runner:      runner,
		broadcaster: broadcaster.New(),
		log:         logging.Get("daemon"),
		startTime:   time.Now(),
	}

	if cfg.Journal.Enabled {
		jnl, err := journal.New(cfg.JournalDir())
		if err != nil {
			return nil, err
		}
		if err := jnl.EnsureDir(); err != nil {
			return nil, err
		}
		svc.journal = jnl
	}

	if cfg.Watch.Enabled {
		w, err := watcher.New(producer.TrackedPaths(), cfg.Watch.Debounce)
		if err != nil {
			return nil, fmt.Errorf("starting manifest watcher: %w", err)
		}
		svc.watcher = w
	}

	svc.server = &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           svc.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return svc, nil
}

// Run serves the HTTP API and, when enabled, the manifest watch loop.
// It blocks until the context is cancelled or the listener fails, then
// drains in-flight work before returning.
func (s *Service) Run(ctx context.Context) error {
	s.log.Info("daemon starting",
		"addr", s.cfg.ServerAddr(),
		"backend", s.cfg.Store.Backend,
		"watch", s.watcher != nil)

	watchCtx, cancelWatch := context.WithCancel(context.Background())
	defer cancelWatch()

	var wg sync.WaitGroup
	if s.watcher != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.watcher.Run(watchCtx, s.onManifestChange)
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-errCh:
		runErr = err
	}

	s.log.Info("daemon stopping")

	// Closing the broadcaster ends every event stream; websocket
	// connections are hijacked, so Shutdown alone would wait on them
	// forever.
	s.broadcaster.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.log.Error("http shutdown", "error", err)
	}

	cancelWatch()
	wg.Wait()

	return runErr
}

// Handler exposes the API mux, mainly so tests can drive the daemon
// through httptest without binding a real port.
func (s *Service) Handler() http.Handler {
	return s.server.Handler
}

// Close releases the watcher, event subscribers, and the record store.
func (s *Service) Close() error {
	if s.watcher != nil {
		_ = s.watcher.Close()
	}
	s.broadcaster.Close()
	return s.store.Close()
}

// onManifestChange handles a debounced batch of manifest edits. The
// cycle re-fingerprints every tracked file, so the batch only informs
// the log line.
func (s *Service) onManifestChange(paths []string) {
	s.log.Info("manifest change detected", "paths", paths)
	if _, err := s.RunCycle(context.Background(), cycle.Options{}); err != nil {
		s.log.Error("watch-triggered cycle failed", "error", err)
	}
}

// RunCycle executes one update cycle under the in-process guard, so
// watch-triggered and API-triggered cycles queue rather than racing for
// the update lock and failing. Every terminal outcome lands in the
// journal and on the event stream.
func (s *Service) RunCycle(ctx context.Context, opts cycle.Options) (cycle.Result, error) {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	started := time.Now()
	s.broadcaster.Notify(broadcaster.Event{Type: broadcaster.EventCycleStarted})

	res, err := s.runner.Run(ctx, opts)

	s.lastMu.Lock()
	s.lastResult = &res
	s.lastAt = started
	s.lastMu.Unlock()

	if s.journal != nil {
		if _, jerr := s.journal.LogCycle(started, res); jerr != nil {
			s.log.Error("journaling cycle", "error", jerr)
		}
		if s.cfg.Journal.RetentionDays > 0 {
			_ = s.journal.Cleanup(s.cfg.Journal.RetentionDays)
		}
	}

	s.broadcaster.Notify(broadcaster.Event{
		Type:   broadcaster.EventCycleCompleted,
		Status: string(res.Status),
	})

	return res, err
}

// ApplyEdit applies a user edit through the store and notifies event
// subscribers.
func (s *Service) ApplyEdit(ctx context.Context, name string, fields store.EditFields) (types.Record, error) {
	rec, err := s.store.ApplyUserEdit(ctx, name, fields)
	if err != nil {
		return rec, err
	}

	s.broadcaster.Notify(broadcaster.Event{
		Type: broadcaster.EventRecordUpdated,
		Name: rec.Name,
	})
	return rec, nil
}

// lastCycle returns the most recent cycle outcome, nil before the first.
func (s *Service) lastCycle() (*cycle.Result, time.Time) {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()
	return s.lastResult, s.lastAt
}
