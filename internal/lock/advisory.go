// Package lock provides MySQL advisory locking so only one subsetter run
// can write into a given destination database at a time.
package lock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrLockTimeout is returned when lock acquisition times out because
// another instance is holding the lock.
var ErrLockTimeout = errors.New("lock acquisition timed out")

// Timeout values for AcquireLock, in seconds. MySQL treats a negative
// value as an infinite wait.
const (
	TimeoutImmediate = 0
	TimeoutShort     = 1
	TimeoutMedium    = 10
	TimeoutLong      = 60
	TimeoutInfinite  = -1
)

// AdvisoryLock wraps a MySQL named lock acquired via GET_LOCK(), released
// via RELEASE_LOCK() or automatically when the connection closes.
type AdvisoryLock struct {
	db       *sql.DB
	lockName string
	held     bool
}

// NewAdvisoryLock creates a lock with the given name; it is not acquired
// until AcquireLock is called.
func NewAdvisoryLock(db *sql.DB, lockName string) *AdvisoryLock {
	return &AdvisoryLock{db: db, lockName: lockName}
}

// AcquireLock attempts to acquire the lock, waiting up to timeoutSeconds.
// It reports false (not an error) on timeout; GET_LOCK returning NULL
// (an internal MySQL error, e.g. out of memory) is reported as an error.
func (a *AdvisoryLock) AcquireLock(ctx context.Context, timeoutSeconds int) (bool, error) {
	if a.held {
		return true, nil
	}

	var result sql.NullInt64
	err := a.db.QueryRowContext(ctx, "SELECT GET_LOCK(?, ?)", a.lockName, timeoutSeconds).Scan(&result)
	if err != nil {
		return false, fmt.Errorf("lock: GET_LOCK %q: %w", a.lockName, err)
	}
	if !result.Valid {
		return false, fmt.Errorf("lock: GET_LOCK %q returned NULL", a.lockName)
	}

	switch result.Int64 {
	case 1:
		a.held = true
		return true, nil
	case 0:
		return false, nil
	default:
		return false, fmt.Errorf("lock: unexpected GET_LOCK return value %d", result.Int64)
	}
}

// ReleaseLock releases the lock. It reports false if this instance was not
// the holder; a NULL result (the lock name never existed) is an error.
func (a *AdvisoryLock) ReleaseLock(ctx context.Context) (bool, error) {
	if !a.held {
		return false, nil
	}

	var result sql.NullInt64
	err := a.db.QueryRowContext(ctx, "SELECT RELEASE_LOCK(?)", a.lockName).Scan(&result)
	if err != nil {
		return false, fmt.Errorf("lock: RELEASE_LOCK %q: %w", a.lockName, err)
	}
	a.held = false
	if !result.Valid {
		return false, fmt.Errorf("lock: RELEASE_LOCK %q returned NULL", a.lockName)
	}
	return result.Int64 == 1, nil
}

// IsHeld reports whether this instance currently holds the lock.
func (a *AdvisoryLock) IsHeld() bool { return a.held }

// LockName returns the lock's name.
func (a *AdvisoryLock) LockName() string { return a.lockName }

// TryAcquire attempts to acquire the lock without waiting.
func (a *AdvisoryLock) TryAcquire(ctx context.Context) (bool, error) {
	return a.AcquireLock(ctx, TimeoutImmediate)
}

// AcquireOrFail acquires the lock with TimeoutShort, returning
// ErrLockTimeout if another instance already holds it.
func (a *AdvisoryLock) AcquireOrFail(ctx context.Context) error {
	acquired, err := a.AcquireLock(ctx, TimeoutShort)
	if err != nil {
		return err
	}
	if !acquired {
		return fmt.Errorf("%w: lock %q is held by another instance", ErrLockTimeout, a.lockName)
	}
	return nil
}

// GenerateJobLockName derives a namespaced lock name for a subsetter run
// targeting the given destination, sanitizing it to the character set
// MySQL lock names tolerate without quoting concerns.
func GenerateJobLockName(jobName string) string {
	sanitized := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			return r
		}
		return '_'
	}, jobName)
	return fmt.Sprintf("subsetter:job:%s", sanitized)
}

// NewJobLock creates an advisory lock for a named subsetter run using
// GenerateJobLockName.
func NewJobLock(db *sql.DB, jobName string) *AdvisoryLock {
	return NewAdvisoryLock(db, GenerateJobLockName(jobName))
}

// IsJobRunning reports whether a run with the given name currently holds
// its lock, by attempting (and immediately releasing) a non-blocking
// acquire. Not atomic: the state can change the instant this returns.
func IsJobRunning(ctx context.Context, db *sql.DB, jobName string) (bool, error) {
	lk := NewJobLock(db, jobName)

	acquired, err := lk.TryAcquire(ctx)
	if err != nil {
		return false, fmt.Errorf("lock: check %q: %w", jobName, err)
	}
	if !acquired {
		return true, nil
	}
	_, _ = lk.ReleaseLock(ctx)
	return false, nil
}

// WithLock acquires the lock with the given timeout, runs fn, and releases
// the lock afterward (on a fresh background context, so a canceled ctx
// doesn't also block the release) even if fn panics.
func (a *AdvisoryLock) WithLock(ctx context.Context, timeoutSeconds int, fn func() error) error {
	acquired, err := a.AcquireLock(ctx, timeoutSeconds)
	if err != nil {
		return fmt.Errorf("lock: acquire %q: %w", a.lockName, err)
	}
	if !acquired {
		return fmt.Errorf("%w: lock %q is held by another instance", ErrLockTimeout, a.lockName)
	}

	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, _ = a.ReleaseLock(releaseCtx)
	}()

	return fn()
}

// WithJobLock is WithLock for a named subsetter run: it derives the lock
// from jobName and uses TimeoutShort.
func WithJobLock(ctx context.Context, db *sql.DB, jobName string, fn func() error) error {
	return NewJobLock(db, jobName).WithLock(ctx, TimeoutShort, fn)
}
