// Package cycle runs the change-detection cycle: take the update lock,
// fingerprint the tracked manifests, and regenerate the catalog only when
// their content actually changed. One Run is one pass through an explicit
// state machine; concurrency comes only from separate invocations, which
// the lock serializes across process boundaries.
package cycle

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jamesainslie/roster/pkg/roster/fingerprint"
	"github.com/jamesainslie/roster/pkg/roster/logging"
	"github.com/jamesainslie/roster/pkg/roster/snapshot"
	"github.com/jamesainslie/roster/pkg/roster/store"
	"github.com/jamesainslie/roster/pkg/roster/types"
)

// ErrSourceUnavailable indicates a tracked manifest vanished mid-cycle or
// the candidate producer failed outright. The hash baseline is not
// advanced, so the next cycle retries.
var ErrSourceUnavailable = errors.New("cycle: manifest source unavailable")

// Phase identifies where in the state machine a cycle currently is.
type Phase int32

// The cycle state machine. Every run walks
// Idle -> LockAcquire -> {FailedLock | Hashing} -> {NoChange | Regenerating}
// -> {Success | FailedGeneration} -> LockRelease -> Terminal.
const (
	PhaseIdle Phase = iota
	PhaseLockAcquire
	PhaseFailedLock
	PhaseHashing
	PhaseNoChange
	PhaseRegenerating
	PhaseSuccess
	PhaseFailedGeneration
	PhaseLockRelease
	PhaseTerminal
)

var phaseNames = map[Phase]string{
	PhaseIdle:             "idle",
	PhaseLockAcquire:      "lock_acquire",
	PhaseFailedLock:       "failed_lock",
	PhaseHashing:          "hashing",
	PhaseNoChange:         "no_change",
	PhaseRegenerating:     "regenerating",
	PhaseSuccess:          "success",
	PhaseFailedGeneration: "failed_generation",
	PhaseLockRelease:      "lock_release",
	PhaseTerminal:         "terminal",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "unknown"
}

// Status is the terminal outcome of one cycle.
type Status string

const (
	StatusSuccess           Status = "success"
	StatusNoChange          Status = "no-change"
	StatusFailed            Status = "failed"
	StatusSuccessWithErrors Status = "success-with-errors"
)

// RecordError is one candidate that could not be described or merged.
// Per-record failures are collected, never allowed to abort the batch.
type RecordError struct {
	Name string
	Type types.PackageType
	Err  error
}

func (e RecordError) String() string {
	return fmt.Sprintf("%s %s: %v", e.Type, e.Name, e.Err)
}

// Result is the terminal report of one cycle.
type Result struct {
	Status       Status
	Forced       bool
	DryRun       bool
	Changed      []fingerprint.Change
	WouldUpdate  bool // dry-run only: a real run would have regenerated
	Merged       int  // candidates merged into the store
	RecordErrors []RecordError
	SnapshotPath string
	Duration     time.Duration
	Err          error // set when Status is StatusFailed
}

// Producer supplies the candidate set and the manifest paths whose content
// gates regeneration.
type Producer interface {
	TrackedPaths() []string
	Produce(ctx context.Context) ([]types.Candidate, error)
}

// Describer enriches a candidate with a description and usage example.
// A nil Describer leaves candidates as parsed.
type Describer interface {
	Describe(ctx context.Context, cand types.Candidate) (types.Candidate, error)
}

// Options control one run.
type Options struct {
	// Force regenerates even when no tracked file changed.
	Force bool

	// DryRun reports what would happen without writing anything. The lock
	// is still taken and released so dry runs serialize with real runs.
	DryRun bool
}

// Runner executes update cycles against a fixed set of collaborators.
type Runner struct {
	store     store.Store
	producer  Producer
	describer Describer
	exporter  *snapshot.Exporter
	lock      *Lock
	statePath string
	log       *logging.Logger

	phase atomic.Int32
}

// RunnerConfig wires a Runner's collaborators. Describer is optional.
type RunnerConfig struct {
	Store     store.Store
	Producer  Producer
	Describer Describer
	Exporter  *snapshot.Exporter
	Lock      *Lock
	StatePath string
}

// NewRunner returns a runner over the given collaborators.
func NewRunner(rc RunnerConfig) *Runner {
	return &Runner{
		store:     rc.Store,
		producer:  rc.Producer,
		describer: rc.Describer,
		exporter:  rc.Exporter,
		lock:      rc.Lock,
		statePath: rc.StatePath,
		log:       logging.Get("cycle"),
	}
}

// Phase returns the runner's current position in the state machine.
func (r *Runner) Phase() Phase {
	return Phase(r.phase.Load())
}

func (r *Runner) setPhase(p Phase) {
	r.phase.Store(int32(p))
	r.log.Debug("phase transition", "phase", p.String())
}

// Run executes one cycle. The returned error is non-nil exactly when the
// result status is StatusFailed; the Result itself is always populated.
func (r *Runner) Run(ctx context.Context, opts Options) (Result, error) {
	start := time.Now()
	res := Result{Status: StatusFailed, Forced: opts.Force, DryRun: opts.DryRun}

	fail := func(err error) (Result, error) {
		res.Err = err
		res.Duration = time.Since(start)
		return res, err
	}

	r.setPhase(PhaseLockAcquire)
	if err := r.lock.Acquire(); err != nil {
		r.setPhase(PhaseFailedLock)
		r.log.Warn("update lock unavailable", "error", err)
		r.setPhase(PhaseTerminal)
		return fail(err)
	}
	defer func() {
		// The lock is released on every exit path past acquisition.
		r.setPhase(PhaseLockRelease)
		if err := r.lock.Release(); err != nil {
			r.log.Error("releasing update lock", "error", err)
		}
		r.setPhase(PhaseTerminal)
	}()

	r.setPhase(PhaseHashing)
	current, err := fingerprint.Snapshot(r.producer.TrackedPaths())
	if err != nil {
		return fail(fmt.Errorf("fingerprinting tracked files: %w", err))
	}

	state, err := LoadState(r.statePath)
	if err != nil {
		// A malformed state file must not wedge updates forever: start
		// from a zero baseline and regenerate.
		r.log.Warn("update state unreadable, starting from zero baseline", "error", err)
		state = &State{}
	}

	changed, changes := fingerprint.Diff(current, state.LastHashes)
	res.Changed = changes
	for _, ch := range changes {
		r.log.Info("tracked file changed", "path", ch.String(), "kind", ch.Kind.String())
	}

	regenerate := opts.Force || changed
	if opts.Force {
		r.log.Info("forced regeneration requested")
	}

	if opts.DryRun {
		// Short-circuit after the decision: nothing is written, and the
		// deferred release still runs so dry runs serialize with real ones.
		res.WouldUpdate = regenerate
		if regenerate {
			res.Status = StatusSuccess
		} else {
			res.Status = StatusNoChange
		}
		res.Duration = time.Since(start)
		return res, nil
	}

	if !regenerate {
		r.setPhase(PhaseNoChange)
		r.log.Info("no changes detected, skipping update")
		res.Status = StatusNoChange
		res.Duration = time.Since(start)
		return res, nil
	}

	r.setPhase(PhaseRegenerating)
	merged, recordErrors, err := r.regenerate(ctx)
	res.Merged = merged
	res.RecordErrors = recordErrors
	if err != nil {
		r.setPhase(PhaseFailedGeneration)
		state.RecordFailure(time.Now(), err)
		if serr := state.Save(r.statePath); serr != nil {
			r.log.Error("persisting failure state", "error", serr)
		}
		r.log.Error("update failed", "error", err)
		return fail(err)
	}

	r.setPhase(PhaseSuccess)
	state.RecordSuccess(time.Now(), current)
	if err := state.Save(r.statePath); err != nil {
		// The catalog was written but the baseline was not: the next
		// cycle redoes the work rather than trusting unpersisted state.
		return fail(fmt.Errorf("persisting update state: %w", err))
	}

	res.SnapshotPath = r.exporter.Path()
	res.Status = StatusSuccess
	if len(recordErrors) > 0 {
		res.Status = StatusSuccessWithErrors
	}
	res.Duration = time.Since(start)

	r.log.Info("update complete",
		"status", string(res.Status),
		"merged", merged,
		"record_errors", len(recordErrors),
		"took", res.Duration.Round(time.Millisecond))
	return res, nil
}

// regenerate produces candidates, describes and merges them one by one,
// and exports the snapshot. Per-candidate failures are collected; producer
// and exporter failures abort.
func (r *Runner) regenerate(ctx context.Context) (int, []RecordError, error) {
	cands, err := r.producer.Produce(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	r.log.Info("regenerating catalog", "candidates", len(cands))

	var recordErrors []RecordError
	merged := 0
	for _, cand := range cands {
		if r.describer != nil {
			enriched, derr := r.describer.Describe(ctx, cand)
			if derr != nil {
				// The bare candidate still merges; a description failure
				// must not cost us the record itself.
				recordErrors = append(recordErrors, RecordError{Name: cand.Name, Type: cand.Type, Err: derr})
			} else {
				cand = enriched
			}
		}

		if err := r.store.MergeUpsert(ctx, cand); err != nil {
			recordErrors = append(recordErrors, RecordError{Name: cand.Name, Type: cand.Type, Err: err})
			r.log.Warn("merge failed", "name", cand.Name, "type", string(cand.Type), "error", err)
			continue
		}
		merged++
	}

	if _, err := r.exporter.Export(ctx); err != nil {
		return merged, recordErrors, fmt.Errorf("exporting snapshot: %w", err)
	}

	return merged, recordErrors, nil
}
