package supervisor

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"
)

// RunOrphanSweep scans <dir>/feeds/*/pid left behind by an unclean
// shutdown, sends SIGKILL to each resolvable process group, and
// removes the pid file. Per-entry failures are aggregated rather than
// aborting the sweep: a bad entry never
// prevents cleanup of the rest.
func RunOrphanSweep(dir string, log *zap.Logger) (failed, total int, err error) {
	entries, globErr := filepath.Glob(filepath.Join(dir, "feeds", "*", "pid"))
	if globErr != nil {
		return 0, 0, fmt.Errorf("orphan sweep: glob: %w", globErr)
	}

	for _, pidPath := range entries {
		total++
		if sweepErr := sweepOne(pidPath); sweepErr != nil {
			failed++
			log.Warn("orphan sweep entry failed", zap.String("path", pidPath), zap.Error(sweepErr))
		}
	}

	if failed > 0 {
		return failed, total, fmt.Errorf("orphan sweep: %d/%d entries failed", failed, total)
	}
	return failed, total, nil
}

func sweepOne(pidPath string) error {
	raw, err := os.ReadFile(pidPath)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return fmt.Errorf("parse pid: %w", err)
	}
	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil && err != syscall.ESRCH {
		return fmt.Errorf("kill -%d: %w", pid, err)
	}
	if err := os.Remove(pidPath); err != nil {
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}

// WriteDaemonPIDFile implements the pre-flight "refuse to start if pid
// or socket already exist" pre-flight check.
func WriteDaemonPIDFile(dir string) error {
	pidPath := filepath.Join(dir, "pid")
	sockPath := filepath.Join(dir, "socket")
	if _, err := os.Stat(pidPath); err == nil {
		return fmt.Errorf("daemon already running: %s exists", pidPath)
	}
	if _, err := os.Stat(sockPath); err == nil {
		return fmt.Errorf("daemon already running: %s exists", sockPath)
	}
	return os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

// RemoveDaemonPIDFile removes the daemon's own pid file at clean exit.
func RemoveDaemonPIDFile(dir string) error {
	return os.Remove(filepath.Join(dir, "pid"))
}
