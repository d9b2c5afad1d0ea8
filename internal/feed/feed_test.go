//go:build linux

package feed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func testChans() (chan InputEvent, chan ExitEvent) {
	return make(chan InputEvent, 16), make(chan ExitEvent, 4)
}

func TestStartRoutesStdoutLines(t *testing.T) {
	dir := t.TempDir()
	inputs, exits := testChans()

	f, err := Start(Config{
		Pos:     0,
		Name:    "echoer",
		Dir:     filepath.Join(dir, "feeds", "00-echoer"),
		Command: "echo one; echo two",
	}, zap.NewNop(), inputs, exits)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if f.PID() <= 0 {
		t.Fatalf("PID() = %d, want > 0", f.PID())
	}

	var got []string
	for i := 0; i < 2; i++ {
		select {
		case in := <-inputs:
			got = append(got, in.Data)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for input %d", i)
		}
	}
	if got[0] != "one" || got[1] != "two" {
		t.Fatalf("routed lines = %v, want [one two]", got)
	}

	select {
	case ex := <-exits:
		if ex.Err != nil {
			t.Fatalf("unsolicited exit err = %v, want nil", ex.Err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for exit event")
	}
}

func TestStopKillsProcessGroupAndRemovesPIDFile(t *testing.T) {
	dir := t.TempDir()
	feedDir := filepath.Join(dir, "feeds", "00-sleeper")
	inputs, exits := testChans()

	f, err := Start(Config{
		Pos:     0,
		Name:    "sleeper",
		Dir:     feedDir,
		Command: "sleep 60",
	}, zap.NewNop(), inputs, exits)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	pidPath := filepath.Join(feedDir, "pid")
	if _, err := os.Stat(pidPath); err != nil {
		t.Fatalf("expected pid file to exist before Stop: %v", err)
	}

	done := make(chan struct{})
	go func() {
		f.Stop(context.Background())
		close(done)
	}()

	select {
	case <-exits:
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for exit event after Stop")
	}
	<-done

	if _, err := os.Stat(pidPath); err == nil {
		t.Fatalf("expected pid file to be removed after Stop")
	}

	// Stop must be idempotent: a second call returns immediately
	// without blocking or panicking.
	stoppedAgain := make(chan struct{})
	go func() {
		f.Stop(context.Background())
		close(stoppedAgain)
	}()
	select {
	case <-stoppedAgain:
	case <-time.After(1 * time.Second):
		t.Fatalf("second Stop call did not return promptly")
	}
}
