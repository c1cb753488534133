// Package lock implements a cross-process mutual-exclusion lock based on
// exclusive file creation.
//
// The lock-file lives next to the target file (<target>.lock) so that every
// process, regardless of its working directory, resolves to the same lock.
// Existence of the lock-file is the only signal: acquisition creates it with
// O_EXCL, release deletes it. This works across process boundaries on every
// OS at the cost of a polling wait instead of a blocking one.
package lock

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/starford/munin/internal/apperr"
)

// Suffix is appended to the target path to form the lock-file path.
const Suffix = ".lock"

// Package defaults. Both are explicit options on New so deployments can tune
// them per journal.
const (
	DefaultTimeout = 10 * time.Second
	DefaultRetry   = 50 * time.Millisecond
)

// TimeoutError is returned when the lock could not be acquired within the
// configured timeout. It matches apperr.ErrLockTimeout via errors.Is.
type TimeoutError struct {
	Target  string
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("lock: timed out after %s waiting for %s", e.Elapsed, e.Target)
}

func (e *TimeoutError) Unwrap() error { return apperr.ErrLockTimeout }

// FileLock guards a target file via a companion lock-file.
//
// A FileLock is a per-critical-section handle, not a shared singleton: create
// one, Acquire, do the work, Release. It is not safe for concurrent use by
// multiple goroutines; concurrent writers each construct their own handle.
type FileLock struct {
	target  string // canonical target path
	path    string // target + Suffix
	timeout time.Duration
	retry   time.Duration
	held    bool
}

// Option configures a FileLock.
type Option func(*FileLock)

// WithTimeout sets how long Acquire polls before failing.
func WithTimeout(d time.Duration) Option {
	return func(l *FileLock) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithRetry sets the delay between acquisition attempts.
func WithRetry(d time.Duration) Option {
	return func(l *FileLock) {
		if d > 0 {
			l.retry = d
		}
	}
}

// New creates a lock handle for the given target file. The target is
// canonicalized so that lock identity is by absolute path, not by the
// spelling the caller used.
func New(target string, opts ...Option) (*FileLock, error) {
	abs, err := filepath.Abs(target)
	if err != nil {
		return nil, fmt.Errorf("lock: resolve target %s: %w", target, err)
	}
	l := &FileLock{
		target:  abs,
		path:    abs + Suffix,
		timeout: DefaultTimeout,
		retry:   DefaultRetry,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Target returns the canonical path of the guarded file.
func (l *FileLock) Target() string { return l.target }

// Path returns the lock-file path.
func (l *FileLock) Path() string { return l.path }

// Held reports whether this handle currently holds the lock.
func (l *FileLock) Held() bool { return l.held }

// Acquire creates the lock-file exclusively, retrying every retry interval
// until the timeout elapses. Create errors other than "already exists"
// propagate immediately; retrying a permissions or I/O error would only mask
// a real problem. Calling Acquire on a handle that already holds the lock is
// a no-op.
func (l *FileLock) Acquire() error {
	if l.held {
		return nil
	}
	start := time.Now()
	deadline := start.Add(l.timeout)
	for {
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			// Zero-byte marker; content is never inspected.
			if cerr := f.Close(); cerr != nil {
				_ = os.Remove(l.path)
				return fmt.Errorf("lock: close %s: %w", l.path, cerr)
			}
			l.held = true
			// Safety net only: a held handle that becomes unreachable
			// still deletes its lock-file. Release is the primary path.
			runtime.SetFinalizer(l, func(l *FileLock) { _ = l.Release() })
			return nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("lock: create %s: %w", l.path, err)
		}
		if time.Now().After(deadline) {
			return &TimeoutError{Target: l.target, Elapsed: time.Since(start)}
		}
		time.Sleep(l.retry)
	}
}

// Release deletes the lock-file and clears held state. It is a no-op when
// the lock is not held and tolerates a lock-file that was removed externally.
func (l *FileLock) Release() error {
	if !l.held {
		return nil
	}
	l.held = false
	runtime.SetFinalizer(l, nil)
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("lock: release %s: %w", l.path, err)
	}
	return nil
}

// With acquires the lock, runs fn, and releases on every exit path,
// including a panic inside fn.
func (l *FileLock) With(fn func() error) error {
	if err := l.Acquire(); err != nil {
		return err
	}
	defer l.Release() //nolint:errcheck // release tolerates a missing lock-file
	return fn()
}
