// Package lock keeps two migrations from running against the same target at
// once. The lock is a file holding the owner's PID; a file left behind by a
// dead process is taken over.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/mesa4core/lmlmigrate/internal/config"
)

const DefaultPath = "~/.lmlmigrate/lmlmigrate.lock"

// ErrHeld is matched by the error Acquire returns when a live process owns
// the lock.
var ErrHeld = errors.New("lock held")

// HeldError names the process holding the lock.
type HeldError struct {
	PID int
}

func (e *HeldError) Error() string {
	return fmt.Sprintf("another lmlmigrate instance is running (PID %d); only one migration can run at a time", e.PID)
}

func (e *HeldError) Is(target error) bool { return target == ErrHeld }

// Lock is an acquired lock file.
type Lock struct {
	path string
}

// Acquire takes the lock at path, or the default location when empty.
func Acquire(path string) (*Lock, error) {
	path = resolve(path)

	held, pid, err := IsHeld(path)
	if err != nil {
		return nil, err
	}
	if held && pid != os.Getpid() {
		return nil, &HeldError{PID: pid}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		return nil, fmt.Errorf("writing lock file: %w", err)
	}
	return &Lock{path: path}, nil
}

// Path is the lock file location.
func (l *Lock) Path() string { return l.path }

// Release removes the lock file. Releasing twice is harmless.
func (l *Lock) Release() error {
	err := os.Remove(l.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// IsHeld checks if the lock is currently held by a running process. The
// PID is returned even when the process is gone.
func IsHeld(path string) (bool, int, error) {
	data, err := os.ReadFile(resolve(path))
	if err != nil {
		if os.IsNotExist(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return false, 0, nil
	}
	return isProcessRunning(pid), pid, nil
}

func resolve(path string) string {
	if path == "" {
		return config.ExpandHome(DefaultPath)
	}
	return path
}

func isProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
