package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/pababhi7/device-checker/internal/device"
)

const (
	// DefaultLockTimeout bounds how long a run waits for a concurrent run to
	// release the state file before failing fast.
	DefaultLockTimeout = 30 * time.Second

	lockRetryInterval = 250 * time.Millisecond
)

// PersistError reports that the state could not be written. The previous
// file is guaranteed to be untouched when this is returned.
type PersistError struct {
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persisting %s: %v", e.Path, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// Store persists device snapshots and the change log as JSON files. One run
// owns the store between Acquire and Release; overlapping runs contend on an
// advisory lock next to the state file.
type Store struct {
	statePath     string
	changeLogPath string
	lock          *flock.Flock
	lockTimeout   time.Duration
}

// New creates a Store for the given state and change-log paths, creating
// parent directories as needed. An empty changeLogPath disables the log.
func New(statePath, changeLogPath string) (*Store, error) {
	if statePath == "" {
		return nil, fmt.Errorf("state path is required")
	}
	for _, p := range []string{statePath, changeLogPath} {
		if p == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	return &Store{
		statePath:     statePath,
		changeLogPath: changeLogPath,
		lock:          flock.New(statePath + ".lock"),
		lockTimeout:   DefaultLockTimeout,
	}, nil
}

// SetLockTimeout overrides the bounded wait for the advisory lock.
func (s *Store) SetLockTimeout(d time.Duration) {
	if d > 0 {
		s.lockTimeout = d
	}
}

// StatePath returns the path of the snapshot file.
func (s *Store) StatePath() string { return s.statePath }

// ChangeLogPath returns the path of the change log, or "" when disabled.
func (s *Store) ChangeLogPath() string { return s.changeLogPath }

// Acquire takes the advisory lock on the state file, waiting up to the lock
// timeout. A contended lock fails rather than interleaving with another run.
func (s *Store) Acquire(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	locked, err := s.lock.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return fmt.Errorf("acquiring state lock %s: %w", s.lock.Path(), err)
	}
	if !locked {
		return fmt.Errorf("state lock %s is held by another run", s.lock.Path())
	}
	return nil
}

// Release drops the advisory lock.
func (s *Store) Release() error {
	return s.lock.Unlock()
}

// Load reads the persisted snapshot. A missing file is not an error: it
// returns an empty snapshot and existed=false (the first-run case).
func (s *Store) Load() (snap *device.Snapshot, existed bool, err error) {
	data, err := os.ReadFile(s.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			return device.NewSnapshot(), false, nil
		}
		return nil, false, fmt.Errorf("reading snapshot: %w", err)
	}

	var snapshot device.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, false, fmt.Errorf("parsing snapshot %s: %w", s.statePath, err)
	}
	if snapshot.Devices == nil {
		snapshot.Devices = make(map[string]*device.Device)
	}

	return &snapshot, true, nil
}

// Save persists the snapshot atomically: the JSON is written to a temp file
// in the same directory and renamed over the old one, so a failure partway
// through leaves the previous snapshot intact.
func (s *Store) Save(snapshot *device.Snapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return &PersistError{Path: s.statePath, Err: fmt.Errorf("encoding snapshot: %w", err)}
	}
	data = append(data, '\n')

	if err := writeAtomic(s.statePath, data); err != nil {
		return &PersistError{Path: s.statePath, Err: err}
	}
	return nil
}

// AppendChanges appends the run's changes to the change log file. The log is
// a JSON array so it stays diffable when committed alongside the snapshot.
func (s *Store) AppendChanges(changes []*device.Change) error {
	if s.changeLogPath == "" || len(changes) == 0 {
		return nil
	}

	log := make([]*device.Change, 0, len(changes))
	if data, err := os.ReadFile(s.changeLogPath); err == nil {
		if err := json.Unmarshal(data, &log); err != nil {
			return &PersistError{Path: s.changeLogPath, Err: fmt.Errorf("parsing change log: %w", err)}
		}
	} else if !os.IsNotExist(err) {
		return &PersistError{Path: s.changeLogPath, Err: err}
	}

	log = append(log, changes...)

	data, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return &PersistError{Path: s.changeLogPath, Err: fmt.Errorf("encoding change log: %w", err)}
	}
	data = append(data, '\n')

	if err := writeAtomic(s.changeLogPath, data); err != nil {
		return &PersistError{Path: s.changeLogPath, Err: err}
	}
	return nil
}

// writeAtomic writes data to path via a temp file and rename.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
