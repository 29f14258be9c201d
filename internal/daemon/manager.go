package daemon

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"firestige.xyz/bytescope/internal/command"
	"firestige.xyz/bytescope/internal/core"
)

// ReadPIDFile returns the pid recorded in path.
func ReadPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, core.ErrDaemonNotRunning
		}
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("malformed PID file %s", path)
	}
	return pid, nil
}

// processAlive probes pid with signal 0.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// StopByPIDFile sends SIGTERM to the daemon recorded in pidFile and waits up
// to timeout for it to exit.
func StopByPIDFile(pidFile string, timeout time.Duration) error {
	pid, err := ReadPIDFile(pidFile)
	if err != nil {
		return err
	}
	if !processAlive(pid) {
		os.Remove(pidFile)
		return core.ErrDaemonNotRunning
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to signal pid %d: %w", pid, err)
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("daemon (pid %d) did not exit within %v", pid, timeout)
}

// SpawnBackground re-executes the current binary with args in a new session,
// appending its output to logPath, and waits for the control socket.
func SpawnBackground(args []string, logPath, socketPath string, wait time.Duration) (int, error) {
	if command.SocketAlive(socketPath) {
		return 0, fmt.Errorf("daemon already running on %s", socketPath)
	}

	execPath, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("failed to locate executable: %w", err)
	}

	cmd := exec.Command(execPath, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if logPath != "" {
		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return 0, fmt.Errorf("failed to open %s: %w", logPath, err)
		}
		defer logFile.Close()
		cmd.Stdout = logFile
		cmd.Stderr = logFile
	}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start daemon: %w", err)
	}
	pid := cmd.Process.Pid
	cmd.Process.Release()

	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		if command.SocketAlive(socketPath) {
			return pid, nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return pid, fmt.Errorf("daemon started (pid %d) but socket %s not ready", pid, socketPath)
}
