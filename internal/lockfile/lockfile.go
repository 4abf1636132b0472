// Package lockfile keeps a single MissionLink watcher per state directory.
//
// The lock is an flock on a file in the state directory, so the kernel
// releases it when the process exits, gracefully or not.
package lockfile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// LockFileName is the name of the lock file created in the state directory
const LockFileName = "missionlink.lock"

// Lock represents an active directory lock
type Lock struct {
	file     *os.File
	path     string
	acquired bool
}

// Holder describes the process recorded in a lock file.
type Holder struct {
	PID     int
	Role    string
	Started string
}

// AcquireLock takes the exclusive lock on stateDir for role (e.g. "watch").
// If another process holds it, a *LockError describing that process is returned.
func AcquireLock(stateDir, role string) (*Lock, error) {
	lockPath := filepath.Join(stateDir, LockFileName)

	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", stateDir, err)
	}

	// O_TRUNC would wipe the holder's info before we know we own the lock.
	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file %s: %w", lockPath, err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		file.Close()
		holder := readHolder(lockPath)
		slog.Warn("lockfile.AcquireLock: state directory is busy", "lock_path", lockPath, "holder_pid", holder.PID, "holder_role", holder.Role)
		return nil, &LockError{LockPath: lockPath, Holder: holder, Cause: err}
	}

	info := fmt.Sprintf("pid=%d\nrole=%s\nstarted=%s\n", os.Getpid(), role, time.Now().UTC().Format(time.RFC3339))
	if err := writeInfo(file, info); err != nil {
		syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		file.Close()
		return nil, fmt.Errorf("failed to write lock information to %s: %w", lockPath, err)
	}

	slog.Debug("lockfile.AcquireLock: acquired", "lock_path", lockPath, "role", role, "pid", os.Getpid())
	return &Lock{file: file, path: lockPath, acquired: true}, nil
}

func writeInfo(f *os.File, info string) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.WriteAt([]byte(info), 0); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		slog.Debug("lockfile.writeInfo: sync failed", "error", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release releases the lock and removes the lock file. Safe to call twice.
func (l *Lock) Release() error {
	if !l.acquired || l.file == nil {
		return nil
	}

	// Remove while still holding the lock so a waiter never sees our stale info.
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		slog.Warn("Lock.Release: failed to remove lock file", "error", err, "lock_path", l.path)
	}
	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		slog.Warn("Lock.Release: failed to release flock", "error", err, "lock_path", l.path)
	}
	err := l.file.Close()

	l.acquired = false
	l.file = nil
	slog.Debug("Lock.Release: released", "lock_path", l.path)
	return err
}

// LockError is returned when another process holds the state directory.
type LockError struct {
	LockPath string
	Holder   Holder
	Cause    error
}

func (e *LockError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "another MissionLink process is already using this state directory (lock file: %s)", e.LockPath)
	if e.Holder.PID > 0 {
		state := "not running, stale lock"
		if isProcessRunning(e.Holder.PID) {
			state = "running"
		}
		fmt.Fprintf(&b, "\nholder: pid %d (%s)", e.Holder.PID, state)
		if e.Holder.Role != "" {
			fmt.Fprintf(&b, ", %s", e.Holder.Role)
		}
		if e.Holder.Started != "" {
			fmt.Fprintf(&b, ", since %s", e.Holder.Started)
		}
	}
	fmt.Fprintf(&b, "\nstop the other process or use a different --state-dir; remove %s only if it is stale", e.LockPath)
	return b.String()
}

func (e *LockError) Unwrap() error {
	return e.Cause
}

// readHolder parses the key=value lines of a lock file. Missing or
// unreadable files yield a zero Holder.
func readHolder(lockPath string) Holder {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return Holder{}
	}
	return parseHolder(string(data))
}

func parseHolder(content string) Holder {
	var h Holder
	for _, line := range strings.Split(content, "\n") {
		k, v, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		switch k {
		case "pid":
			if pid, err := strconv.Atoi(v); err == nil && pid > 0 {
				h.PID = pid
			}
		case "role":
			h.Role = v
		case "started":
			h.Started = v
		}
	}
	return h
}

// isProcessRunning sends signal 0, which checks existence without delivering anything.
func isProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
