package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pababhi7/device-checker/internal/config"
	"github.com/pababhi7/device-checker/internal/device"
	"github.com/pababhi7/device-checker/internal/logger"
	"github.com/pababhi7/device-checker/internal/notify"
	"github.com/pababhi7/device-checker/internal/source"
	"github.com/pababhi7/device-checker/internal/store"
	"github.com/pababhi7/device-checker/internal/telegram"
)

// State is the coordinator's position in the pipeline.
type State string

const (
	StateIdle       State = "idle"
	StateFetching   State = "fetching"
	StateDiffing    State = "diffing"
	StateNotifying  State = "notifying"
	StatePersisting State = "persisting"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// ErrAllSourcesFailed is returned when not a single source could be fetched.
// The state store is left untouched in that case.
var ErrAllSourcesFailed = errors.New("all sources failed")

// Fetcher retrieves all sources, joining every fetch before returning.
type Fetcher interface {
	FetchAll(ctx context.Context, sources []source.Source) []source.Result
}

// Committer commits the given files back to the repository after a persist.
type Committer interface {
	CommitFiles(paths ...string) error
}

// Result describes one completed (or failed) run.
type Result struct {
	RunID        string            `json:"run_id"`
	State        State             `json:"state"`
	FirstRun     bool              `json:"first_run"`
	Changes      []*device.Change  `json:"changes"`
	Tracked      map[string]int    `json:"tracked"`
	SourceErrors map[string]string `json:"source_errors,omitempty"`
	Started      time.Time         `json:"started"`
	Finished     time.Time         `json:"finished"`
}

// Runner sequences one pipeline run: fetch, diff, notify, persist. A run is
// strictly sequential and owns the state store between lock acquire and
// release; there are no coordinator-level retries.
type Runner struct {
	cfg       *config.Config
	store     *store.Store
	fetcher   Fetcher
	notifier  notify.Notifier
	committer Committer
	clock     func() time.Time
}

// New creates a Runner over the given collaborators.
func New(cfg *config.Config, st *store.Store, fetcher Fetcher, notifier notify.Notifier) *Runner {
	return &Runner{
		cfg:      cfg,
		store:    st,
		fetcher:  fetcher,
		notifier: notifier,
		clock:    time.Now,
	}
}

// SetCommitter enables committing state files after a successful persist.
func (r *Runner) SetCommitter(c Committer) { r.committer = c }

// Run executes one full pipeline pass. It returns a non-nil error only for
// unrecoverable failures (lock contention, all sources down, persist
// failure); notification failures and per-source failures are logged and
// absorbed.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	result := &Result{
		RunID:   uuid.NewString(),
		State:   StateIdle,
		Started: r.clock().UTC(),
		Tracked: make(map[string]int),
	}
	fields := logger.Fields{"run_id": result.RunID}

	if err := r.store.Acquire(ctx); err != nil {
		return r.fail(result, fmt.Errorf("acquiring state store: %w", err))
	}
	defer func() {
		if err := r.store.Release(); err != nil {
			logger.Error("releasing state lock failed", fields, err)
		}
	}()

	previous, existed, err := r.store.Load()
	if err != nil {
		return r.fail(result, err)
	}
	result.FirstRun = !existed
	logger.Info("run started", logger.Fields{
		"run_id":    result.RunID,
		"sources":   len(r.cfg.Sources),
		"first_run": result.FirstRun,
		"known":     len(previous.Devices),
	})

	// Fetching: all sources concurrently, joined before the diff.
	result.State = StateFetching
	fetchStart := r.clock()
	results := r.fetcher.FetchAll(ctx, r.cfg.Sources)
	logger.RecordTiming("stage.fetch", r.clock().Sub(fetchStart))

	observed := make([]*device.Device, 0)
	fetched := make(map[string]bool, len(results))
	failures := make([]string, 0)
	for _, res := range results {
		if !res.OK() {
			result.SourceErrors = appendSourceError(result.SourceErrors, res.Source.Name, res.Err)
			failures = append(failures, res.Source.Name)
			logger.Error("source failed", logger.Fields{
				"run_id": result.RunID,
				"source": res.Source.Name,
			}, res.Err)
			continue
		}
		fetched[res.Source.Name] = true
		observed = append(observed, res.Devices...)
		result.Tracked[res.Source.Name] = len(res.Devices)
		logger.Add("devices.fetched", int64(len(res.Devices)))
	}

	if len(fetched) == 0 {
		return r.fail(result, fmt.Errorf("%w: %s", ErrAllSourcesFailed, strings.Join(failures, ", ")))
	}

	// Diffing: pure comparison against the prior snapshot.
	result.State = StateDiffing
	now := r.clock().UTC()
	result.Changes = device.Diff(previous, observed, fetched, now)
	next := device.Advance(previous, observed, fetched, now)
	logger.Add("changes.detected", int64(len(result.Changes)))

	// Notifying: failures here are logged, never fatal, and never block the
	// persist that follows.
	result.State = StateNotifying
	r.notifyChanges(result, failures)

	// Persisting: exactly once, and only when something changed, so a quiet
	// rerun leaves the store byte-identical.
	result.State = StatePersisting
	if len(result.Changes) > 0 || result.FirstRun {
		// The first run establishes the baseline; its "new" changes are not
		// appended to the change log.
		if !result.FirstRun {
			if err := r.store.AppendChanges(result.Changes); err != nil {
				return r.fail(result, err)
			}
		}
		if err := r.store.Save(next); err != nil {
			return r.fail(result, err)
		}
		r.commitState(result)
	} else {
		logger.Debug("no changes, snapshot left untouched", fields)
	}

	result.State = StateDone
	result.Finished = r.clock().UTC()
	logger.Info("run completed", logger.Fields{
		"run_id":  result.RunID,
		"changes": len(result.Changes),
		"failed":  len(failures),
	})
	return result, nil
}

// notifyChanges delivers per-change messages and the run summary. On the
// first run it only announces activation unless configured otherwise.
func (r *Runner) notifyChanges(result *Result, failures []string) {
	fields := logger.Fields{"run_id": result.RunID}

	if result.FirstRun && !r.cfg.NotifyFirstRun {
		if err := r.notifier.Announce(telegram.FormatActivation(result.Tracked)); err != nil {
			logger.Error("activation announcement failed", fields, err)
		}
		return
	}

	if len(result.Changes) == 0 {
		return
	}

	if err := r.notifier.Notify(result.Changes); err != nil {
		logger.Error("notification delivery incomplete", fields, err)
		logger.Add("notify.failures", 1)
	}

	summary := telegram.Summary{
		CheckedAt: r.clock().UTC(),
		Tracked:   result.Tracked,
		Failed:    failures,
	}
	for _, c := range result.Changes {
		switch c.Type {
		case device.ChangeNew:
			summary.New++
		case device.ChangeStatus:
			summary.Changed++
		case device.ChangeRemoved:
			summary.Removed++
		}
	}
	if err := r.notifier.Announce(telegram.FormatSummary(summary)); err != nil {
		logger.Error("summary delivery failed", fields, err)
	}
}

// commitState commits the state files when a committer is configured. A
// commit failure is logged but does not fail the run; the files are already
// safely persisted on disk.
func (r *Runner) commitState(result *Result) {
	if r.committer == nil {
		return
	}
	paths := []string{r.store.StatePath()}
	if p := r.store.ChangeLogPath(); p != "" {
		paths = append(paths, p)
	}
	if err := r.committer.CommitFiles(paths...); err != nil {
		logger.Error("committing state failed", logger.Fields{"run_id": result.RunID}, err)
	}
}

func (r *Runner) fail(result *Result, err error) (*Result, error) {
	result.State = StateFailed
	result.Finished = r.clock().UTC()
	logger.Error("run failed", logger.Fields{"run_id": result.RunID}, err)
	return result, err
}

func appendSourceError(m map[string]string, name string, err error) map[string]string {
	if m == nil {
		m = make(map[string]string)
	}
	m[name] = err.Error()
	return m
}
