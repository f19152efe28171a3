package daemon

import (
	"context"
	"os"
	"runtime"
	"time"
)

// LastCycle summarizes the most recent cycle this daemon ran.
type LastCycle struct {
	Status     string    `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
	Merged     int       `json:"merged"`
	Error      string    `json:"error,omitempty"`
}

// Status is the daemon runtime report served by the status endpoint.
type Status struct {
	Running       bool       `json:"running"`
	PID           int        `json:"pid"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	MemoryBytes   int64      `json:"memory_bytes"`
	Backend       string     `json:"backend"`
	Records       int        `json:"records"`
	WatchEnabled  bool       `json:"watch_enabled"`
	WatchedPaths  []string   `json:"watched_paths,omitempty"`
	Subscribers   int        `json:"subscribers"`
	LastCycle     *LastCycle `json:"last_cycle,omitempty"`
}

// Status reports the daemon's runtime state. LastCycle stays nil until
// the first cycle completes.
func (s *Service) Status(ctx context.Context) (Status, error) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	count, err := s.store.Count(ctx)
	if err != nil {
		return Status{}, err
	}

	st := Status{
		Running:       true,
		PID:           os.Getpid(),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		MemoryBytes:   int64(mem.Alloc), //nolint:gosec // Alloc fits in int64
		Backend:       s.cfg.Store.Backend,
		Records:       count,
		WatchEnabled:  s.watcher != nil,
		Subscribers:   s.broadcaster.SubscriberCount(),
	}
	if s.watcher != nil {
		st.WatchedPaths = s.watcher.Tracked()
	}

	if res, at := s.lastCycle(); res != nil {
		lc := &LastCycle{
			Status:     string(res.Status),
			StartedAt:  at.UTC(),
			DurationMS: res.Duration.Milliseconds(),
			Merged:     res.Merged,
		}
		if res.Err != nil {
			lc.Error = res.Err.Error()
		}
		st.LastCycle = lc
	}

	return st, nil
}
