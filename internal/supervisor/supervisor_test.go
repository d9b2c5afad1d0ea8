package supervisor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/edirooss/barsupervisord/internal/config"
	"github.com/edirooss/barsupervisord/internal/feed"
)

func testSupervisor(t *testing.T) (*Supervisor, context.Context, context.CancelFunc) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.OutputInterval = 0.01
	s, err := New(dir, cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	return s, ctx, cancel
}

func TestOnOffWithNoFeeds(t *testing.T) {
	s, _, cancel := testSupervisor(t)
	defer cancel()

	rctx, rcancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer rcancel()

	if err := s.SendOn(rctx); err != nil {
		t.Fatalf("SendOn: %v", err)
	}
	st, err := s.SendStatus(rctx)
	if err != nil {
		t.Fatalf("SendStatus: %v", err)
	}
	if !st.On {
		t.Fatalf("expected On status after SendOn")
	}

	if err := s.SendOff(rctx); err != nil {
		t.Fatalf("SendOff: %v", err)
	}
	st, err = s.SendStatus(rctx)
	if err != nil {
		t.Fatalf("SendStatus after Off: %v", err)
	}
	if st.On {
		t.Fatalf("expected Off status after SendOff")
	}
}

func TestOnIdempotent(t *testing.T) {
	s, _, cancel := testSupervisor(t)
	defer cancel()
	rctx, rcancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer rcancel()

	if err := s.SendOn(rctx); err != nil {
		t.Fatalf("first SendOn: %v", err)
	}
	if err := s.SendOn(rctx); err != nil {
		t.Fatalf("second SendOn (idempotent) should not error: %v", err)
	}
}

func TestReloadFromOffRunsInlineWithoutDeadlock(t *testing.T) {
	s, _, cancel := testSupervisor(t)
	defer cancel()

	rctx, rcancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer rcancel()

	if err := s.SendReload(rctx); err != nil {
		t.Fatalf("SendReload from Off: %v", err)
	}
	st, err := s.SendStatus(rctx)
	if err != nil {
		t.Fatalf("SendStatus: %v", err)
	}
	if !st.On {
		t.Fatalf("expected On status after Reload")
	}
}

func TestReloadFromOnDrainsThenComesBackOn(t *testing.T) {
	s, _, cancel := testSupervisor(t)
	defer cancel()

	rctx, rcancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer rcancel()

	if err := s.SendOn(rctx); err != nil {
		t.Fatalf("SendOn: %v", err)
	}
	if err := s.SendReload(rctx); err != nil {
		t.Fatalf("SendReload from On: %v", err)
	}
	st, err := s.SendStatus(rctx)
	if err != nil {
		t.Fatalf("SendStatus: %v", err)
	}
	if !st.On {
		t.Fatalf("expected On status after Reload completes")
	}
}

func TestOffQuiescenceDropsInputInOffState(t *testing.T) {
	s, _, cancel := testSupervisor(t)
	defer cancel()

	s.inputs <- feed.InputEvent{Pos: 0, Data: "hello"}
	time.Sleep(20 * time.Millisecond)

	rctx, rcancel := context.WithTimeout(context.Background(), time.Second)
	defer rcancel()
	st, err := s.SendStatus(rctx)
	if err != nil {
		t.Fatalf("SendStatus: %v", err)
	}
	if st.On {
		t.Fatalf("expected Off state to persist when Input arrives while Off")
	}
}

func TestCountLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log")
	if err := os.WriteFile(path, []byte("a\nb\nc\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	n, err := countLines(path)
	if err != nil {
		t.Fatalf("countLines: %v", err)
	}
	if n != 3 {
		t.Fatalf("countLines = %d, want 3", n)
	}
}
