//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/mesos-packager/internal/logger"
)

// LockFilename marks that a pipeline is running against an output directory.
const LockFilename = ".mesos-packager.lock"

// lockFileMode is the permission of the lock file.
const lockFileMode os.FileMode = 0o644

// ErrAlreadyRunning indicates another packager process holds the run lock.
var ErrAlreadyRunning = errors.New("another packaging run is in progress")

// RunLock is an exclusive marker file holding the owner's process id.
type RunLock struct {
	path string
}

// AcquireRunLock creates the lock in dir. A lock left by a process that is no
// longer running (or is no longer a packager) is treated as stale and replaced.
func AcquireRunLock(ctx context.Context, dir string) (*RunLock, error) {
	path := filepath.Join(dir, LockFilename)

	logger.Debug(ctx, "Checking for the presence of a run lock")

	contents, err := os.ReadFile(filepath.Clean(path))

	switch {
	case err == nil:
		pid, parseErr := strconv.Atoi(strings.TrimSpace(string(contents)))
		if parseErr == nil && isPackagerProcess(pid) {
			return nil, fmt.Errorf("%w: pid %d holds %s", ErrAlreadyRunning, pid, path)
		}

		logger.InfoKV(ctx, "Removing stale run lock", "path", path)

		if err = os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale run lock: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read run lock: %w", err)
	}

	if err = os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	file, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_EXCL|os.O_WRONLY, lockFileMode)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: %s appeared concurrently", ErrAlreadyRunning, path)
		}

		return nil, fmt.Errorf("create run lock: %w", err)
	}

	_, err = file.WriteString(strconv.Itoa(os.Getpid()))
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		_ = os.Remove(path)

		return nil, fmt.Errorf("write run lock: %w", err)
	}

	return &RunLock{path: path}, nil
}

// Path returns the lock file location.
func (l *RunLock) Path() string {
	return l.path
}

// Release removes the lock file.
func (l *RunLock) Release() error {
	if l == nil {
		return nil
	}

	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("release run lock: %w", err)
	}

	return nil
}

// isPackagerProcess reports whether pid is alive and runs the same executable as this process.
func isPackagerProcess(pid int) bool {
	if pid <= 0 {
		return false
	}

	process, err := ps.FindProcess(pid)
	if err != nil || process == nil {
		return false
	}

	self, err := ps.FindProcess(os.Getpid())
	if err != nil || self == nil {
		// Cannot tell; keep the lock rather than risk two runs.
		return true
	}

	return process.Executable() == self.Executable()
}
