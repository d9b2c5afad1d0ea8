//go:build linux

// Package feed owns one spawned shell pipeline: its process group, its
// appended stderr log, its on-disk pid file, and the background router
// that forwards stdout lines into the Supervisor's mailbox. Grounded
// on a process-manager package's process-spawning code — the same
// race-free pipe setup and Setpgid process-group isolation (Pdeathsig
// is not set here), generalized
// from a single long-lived managed command into the spec's per-feed
// Input/FeedExit routing contract. Stop's signal (SIGKILL, no grace
// period) follows the spec's reaping contract rather than that
// package's own SIGTERM-then-grace-then-SIGKILL escalation.
package feed

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Config describes one feed's static configuration, resolved from
// internal/config.Feed plus the feed's position and working directory.
type Config struct {
	Pos     int
	Name    string
	Dir     string // <workdir>/feeds/NN-<name>
	Shell   string // default /bin/bash
	Command string
	TTL     time.Duration // 0 means no expiry
}

// ExitEvent is delivered to the supervisor mailbox when the feed's
// child process has been reaped, whether solicited (Stop) or not.
type ExitEvent struct {
	Pos int
	Err error // nil on exit status 0
}

// InputEvent is delivered to the supervisor mailbox for each stdout
// line the feed produces.
type InputEvent struct {
	Pos  int
	Data string
}

// Feed is a live, spawned pipeline.
type Feed struct {
	cfg Config
	log *zap.Logger

	cmd     *exec.Cmd
	pid     int
	logFile *os.File

	inputs chan<- InputEvent
	exits  chan<- ExitEvent

	done      chan struct{}
	closeOnce sync.Once
}

// Start creates the feed directory, opens the append-mode log file,
// spawns `<shell> -c <command>` with the child placed in its own
// process group (setpgid(0,0) at exec), writes the pid file, and
// launches the background stdout router. inputs and exits are the
// supervisor's mailbox channels; the feed only ever sends on them,
// a weak back-reference rather than ownership.
func Start(cfg Config, log *zap.Logger, inputs chan<- InputEvent, exits chan<- ExitEvent) (*Feed, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("feed %s: mkdir: %w", cfg.Name, err)
	}

	logFile, err := os.OpenFile(filepath.Join(cfg.Dir, "log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("feed %s: open log: %w", cfg.Name, err)
	}

	shell := cfg.Shell
	if shell == "" {
		shell = "/bin/bash"
	}

	cmd := exec.Command(shell, "-c", cfg.Command)
	cmd.Dir = cfg.Dir
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("feed %s: stdout pipe: %w", cfg.Name, err)
	}

	if err := cmd.Start(); err != nil {
		logFile.Close()
		return nil, fmt.Errorf("feed %s: spawn: %w", cfg.Name, err)
	}

	pid := cmd.Process.Pid
	if err := os.WriteFile(filepath.Join(cfg.Dir, "pid"), []byte(strconv.Itoa(pid)), 0o644); err != nil {
		log.Named("feed").Warn("failed to write pid file", zap.String("feed", cfg.Name), zap.Error(err))
	}

	f := &Feed{
		cfg:     cfg,
		log:     log.Named("feed").With(zap.String("feed", cfg.Name), zap.Int("pos", cfg.Pos), zap.Int("pid", pid)),
		cmd:     cmd,
		pid:     pid,
		logFile: logFile,
		inputs:  inputs,
		exits:   exits,
		done:    make(chan struct{}),
	}
	f.log.Info("feed started")

	go f.route(stdout)
	return f, nil
}

// PID is the feed's OS process id (equal to its process group id).
func (f *Feed) PID() int { return f.pid }

// route drains stdout line-by-line, forwarding each as an InputEvent,
// and reaps the child once stdout hits EOF, sending the terminal
// ExitEvent last so it is ordered after every Input it produced.
func (f *Feed) route(stdout io.Reader) {
	sc := bufio.NewScanner(stdout)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r\n")
		f.inputs <- InputEvent{Pos: f.cfg.Pos, Data: line}
	}
	if err := sc.Err(); err != nil {
		f.log.Warn("stdout scanner failure", zap.Error(err))
	}

	err := f.cmd.Wait()
	var eerr *exec.ExitError
	if err != nil && !errors.As(err, &eerr) {
		f.log.Error("wait failed", zap.Error(err))
	}
	f.logFile.Close()
	close(f.done)
	f.exits <- ExitEvent{Pos: f.cfg.Pos, Err: normalizeExitErr(err)}
}

func normalizeExitErr(err error) error {
	var eerr *exec.ExitError
	if errors.As(err, &eerr) && eerr.ExitCode() == 0 {
		return nil
	}
	return err
}

// Stop is an idempotent request to terminate the feed: SIGKILL the
// process group, wait for the child to be reaped, then await the
// router task's completion. Only after all three complete is the pid
// file removed. It returns once the router has reaped the child; the
// router sends the feed's ExitEvent after that point, so the event may
// still be pending when Stop returns.
func (f *Feed) Stop(ctx context.Context) {
	f.closeOnce.Do(func() {
		if err := syscall.Kill(-f.pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
			f.log.Warn("sigkill failed", zap.Error(err))
		} else {
			f.log.Info("sigkill sent to process group")
		}

		<-f.done

		if err := os.Remove(filepath.Join(f.cfg.Dir, "pid")); err != nil && !os.IsNotExist(err) {
			f.log.Warn("failed to remove pid file", zap.Error(err))
		}
	})
}
