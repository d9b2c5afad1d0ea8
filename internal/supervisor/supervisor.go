// Package supervisor implements the single-threaded mailbox actor that
// is the core of the daemon: one goroutine selecting over its mailbox,
// owning the Bar Buffer, the feed vector, and the timer wheel,
// enforcing the Off -> On -> Offing -> Off state machine. The mailbox
// is three bounded channels, not an unbounded queue: external RPCs
// arrive on an unbuffered command channel, feed stdout lines on a
// channel buffered to 64, and feed exits on one buffered to 8; a
// sender blocks while its channel is full. Timer fires come from the
// timer wheel in the same select. No locks are used anywhere in this
// package. Handlers that span multiple
// transitions (Reload) run their continuation as a direct function
// call from within the same goroutine rather than re-entering the
// mailbox, since the actor draining s.cmds cannot also be the one
// blocked sending to it.
package supervisor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/edirooss/barsupervisord/internal/bar"
	"github.com/edirooss/barsupervisord/internal/config"
	"github.com/edirooss/barsupervisord/internal/feed"
	"github.com/edirooss/barsupervisord/internal/procenum"
	"github.com/edirooss/barsupervisord/internal/sink"
)

type state int

const (
	stateOff state = iota
	stateOn
	stateOffing
)

// Supervisor is the actor. Construct with New and run with Run on a
// dedicated goroutine; interact with it only via its public Send*
// methods, which enqueue a message and block for its reply.
type Supervisor struct {
	log  *zap.Logger
	dir  string // working directory, contains feeds/, conf.toml, pid, socket
	cfg  *config.Config
	enum *procenum.Enumerator

	cmds   chan any
	inputs chan feed.InputEvent
	exits  chan feed.ExitEvent

	st         state
	bar        *bar.Buffer
	feeds      []*feed.Feed // feeds[i] == nil means slot i has no live feed
	lastOutput []*time.Time
	wheel      *timerWheel
	outputSink sink.Sink

	// offReplies holds every caller currently waiting on the Offing
	// state's deferred completion signal (plain Off is idempotent, so
	// more than one caller can pile onto the same drain), hanging
	// per-state data off the state variant rather than a flat
	// supervisor record.
	offReplies []chan error

	// reloadReply is non-nil while a Reload is waiting for the Offing
	// drain it triggered to finish, so finishOffing can run the
	// reconfigure-then-On continuation in the same goroutine instead of
	// Reload re-entering its own mailbox.
	reloadReply chan error
}

// New constructs a Supervisor over cfg rooted at dir. It does not spawn
// any feeds; call SendOn to start (the CLI's `server --on` flag does so
// at startup).
func New(dir string, cfg *config.Config, log *zap.Logger) (*Supervisor, error) {
	kind, err := cfg.Sink.Kind()
	if err != nil {
		return nil, err
	}
	snk, err := sink.New(kind, cfg.Sink.File, log)
	if err != nil {
		return nil, err
	}

	expireRune := []rune(cfg.ExpiryCharacter)[0]
	s := &Supervisor{
		log:        log.Named("supervisor"),
		dir:        dir,
		cfg:        cfg,
		enum:       procenum.New(),
		cmds:       make(chan any),
		inputs:     make(chan feed.InputEvent, 64),
		exits:      make(chan feed.ExitEvent, 8),
		st:         stateOff,
		bar:        bar.New(len(cfg.Feeds), cfg.PadLeft, cfg.Sep, cfg.PadRight, ' ', expireRune),
		wheel:      newTimerWheel(),
		outputSink: snk,
	}
	return s, nil
}

// Run drains the mailbox until ctx is cancelled. On cancellation it
// performs a clean Off (mirroring SIGINT/SIGTERM handling at the CLI
// layer) before returning.
func (s *Supervisor) Run(ctx context.Context) {
	for {
		var fireCh <-chan time.Time
		var timer *time.Timer
		if _, when, ok := s.wheel.next(); ok {
			d := time.Until(when)
			if d < 0 {
				d = 0
			}
			timer = time.NewTimer(d)
			fireCh = timer.C
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			s.shutdownSync()
			return

		case m := <-s.cmds:
			if timer != nil {
				timer.Stop()
			}
			s.handleCmd(m)

		case in := <-s.inputs:
			if timer != nil {
				timer.Stop()
			}
			s.handleInput(in)

		case ex := <-s.exits:
			if timer != nil {
				timer.Stop()
			}
			s.handleFeedExit(ex)

		case <-fireCh:
			key, ok := s.wheel.pop()
			if !ok {
				panic("supervisor: timer fired with empty wheel")
			}
			s.handleTimerFire(key)
		}
	}
}

// shutdownSync runs a synchronous best-effort Off when Run's context is
// cancelled, since there is no caller left to deliver a reply to.
func (s *Supervisor) shutdownSync() {
	if s.st == stateOff {
		return
	}
	s.beginOffing(nil)
	done := make(chan struct{})
	go func() {
		for s.st != stateOff {
			select {
			case ex := <-s.exits:
				s.handleFeedExit(ex)
			case in := <-s.inputs:
				s.handleInput(in)
			case <-time.After(5 * time.Second):
				close(done)
				return
			}
		}
		close(done)
	}()
	<-done
}

// --- public request API ----------------------------------------------------

func (s *Supervisor) SendOn(ctx context.Context) error {
	msg := OnMsg{newRequest[error]()}
	return s.send(ctx, msg, msg.reply)
}

func (s *Supervisor) SendOff(ctx context.Context) error {
	msg := OffMsg{newRequest[error]()}
	return s.send(ctx, msg, msg.reply)
}

func (s *Supervisor) SendReload(ctx context.Context) error {
	msg := ReloadMsg{newRequest[error]()}
	return s.send(ctx, msg, msg.reply)
}

func (s *Supervisor) SendStatus(ctx context.Context) (Status, error) {
	msg := StatusMsg{newRequest[Status]()}
	var zero Status
	select {
	case s.cmds <- msg:
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	select {
	case st := <-msg.reply:
		return st, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (s *Supervisor) send(ctx context.Context, msg any, reply chan error) error {
	select {
	case s.cmds <- msg:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// --- command handlers --------------------------------------------------

func (s *Supervisor) handleCmd(m any) {
	switch msg := m.(type) {
	case OnMsg:
		msg.reply <- s.handleOn()
	case OffMsg:
		s.handleOff(msg.reply)
	case ReloadMsg:
		s.handleReload(msg.reply)
	case StatusMsg:
		msg.reply <- s.handleStatus()
	default:
		s.log.Error("unknown mailbox message type", zap.String("type", fmt.Sprintf("%T", m)))
	}
}

func (s *Supervisor) handleOn() error {
	switch s.st {
	case stateOn:
		return nil // idempotent
	case stateOffing:
		return fmt.Errorf("supervisor: still shutting down")
	}

	n := len(s.cfg.Feeds)
	s.feeds = make([]*feed.Feed, n)
	s.lastOutput = make([]*time.Time, n)

	for i, fc := range s.cfg.Feeds {
		dir := filepath.Join(s.dir, "feeds", fmt.Sprintf("%02d-%s", i, fc.Name))
		fcfg := feed.Config{
			Pos:     i,
			Name:    fc.Name,
			Dir:     dir,
			Shell:   fc.Shell,
			Command: fc.Command,
		}
		if fc.TTLSecs > 0 {
			fcfg.TTL = time.Duration(fc.TTLSecs * float64(time.Second))
		}
		fd, err := feed.Start(fcfg, s.log, s.inputs, s.exits)
		if err != nil {
			// No rollback of already-started feeds
			// category 2 (observed behavior of the original).
			s.st = stateOn
			return fmt.Errorf("supervisor: starting feed %q: %w", fc.Name, err)
		}
		s.feeds[i] = fd
	}

	s.st = stateOn
	s.ensureOutputScheduled()
	return nil
}

func (s *Supervisor) handleOff(reply chan error) {
	switch s.st {
	case stateOff:
		reply <- nil
		return
	case stateOffing:
		s.offReplies = append(s.offReplies, reply)
		return
	}
	s.beginOffing(reply)
}

// beginOffing transitions On -> Offing, signalling every live feed to
// stop. reply may be nil (used by shutdownSync and by Reload, neither
// of which has a direct caller to answer from here).
func (s *Supervisor) beginOffing(reply chan error) {
	s.st = stateOffing
	if reply != nil {
		s.offReplies = append(s.offReplies, reply)
	}

	live := false
	for _, f := range s.feeds {
		if f == nil {
			continue
		}
		live = true
		go f.Stop(context.Background())
	}
	if !live {
		s.finishOffing(nil)
	}
}

// finishOffing completes the Off->Offing->Off drain: it answers every
// caller piled onto a plain Off (if any), then — if a Reload triggered
// this drain — runs the reconfigure-then-On continuation in this same
// goroutine, since Reload cannot re-enter its own mailbox to await Off
// and On as separate round trips.
func (s *Supervisor) finishOffing(err error) {
	for k := range s.wheel.entries {
		s.wheel.remove(k)
	}
	_ = s.outputSink.Close()
	s.bar.ClearAll()
	s.st = stateOff
	for _, r := range s.offReplies {
		r <- err
	}
	s.offReplies = nil
	s.publishIfDirty()

	if s.reloadReply != nil {
		reply := s.reloadReply
		s.reloadReply = nil
		reply <- s.reconfigureAndOn()
	}
}

// handleReload implements Reload as Off (deferred if feeds are live)
// then reconfigure then On, answered with a single reply. When already
// Off, there is nothing to drain, so reconfigure/On run immediately;
// when Offing (a concurrent Off or Reload is already draining), Reload
// is rejected rather than queued behind it.
func (s *Supervisor) handleReload(reply chan error) {
	switch s.st {
	case stateOffing:
		reply <- fmt.Errorf("supervisor: still shutting down")
		return
	case stateOff:
		reply <- s.reconfigureAndOn()
		return
	}
	s.reloadReply = reply
	s.beginOffing(nil)
}

func (s *Supervisor) reconfigureAndOn() error {
	cfg, err := config.LoadOrInit(filepath.Join(s.dir, "conf.toml"))
	if err != nil {
		return err
	}
	kind, err := cfg.Sink.Kind()
	if err != nil {
		return err
	}
	snk, err := sink.New(kind, cfg.Sink.File, s.log)
	if err != nil {
		return err
	}
	s.cfg = cfg
	s.outputSink = snk
	expireRune := []rune(cfg.ExpiryCharacter)[0]
	s.bar = bar.New(len(cfg.Feeds), cfg.PadLeft, cfg.Sep, cfg.PadRight, ' ', expireRune)
	return s.handleOn()
}

func (s *Supervisor) handleStatus() Status {
	st := Status{On: s.st != stateOff}
	if s.st == stateOff {
		return st
	}

	snap, err := s.enum.Snapshot(context.Background())
	if err != nil {
		s.log.Warn("process enumeration failed during status", zap.Error(err))
	}

	now := time.Now()
	for i, fd := range s.feeds {
		if fd == nil {
			continue
		}
		fc := s.cfg.Feeds[i]
		dir := filepath.Join(s.dir, "feeds", fmt.Sprintf("%02d-%s", i, fc.Name))
		fs := FeedStatus{
			Pos:  i + 1,
			Name: fc.Name,
			Dir:  dir,
			PID:  fd.PID(),
		}
		if s.lastOutput[i] != nil {
			age := now.Sub(*s.lastOutput[i]).Seconds()
			fs.LastOutputAgeSec = &age
		}
		if info, err := os.Stat(filepath.Join(dir, "log")); err == nil {
			fs.LogSizeBytes = info.Size()
			if info.Size() > 0 {
				age := now.Sub(info.ModTime()).Seconds()
				fs.LogAgeSec = &age
				if lines, err := countLines(filepath.Join(dir, "log")); err == nil {
					fs.LogLineCount = lines
				}
			}
		}
		if snap != nil {
			if state, ok := snap.States[fd.PID()]; ok {
				fs.ProcState = &state
			}
			for _, d := range snap.Descendants[fd.PID()] {
				fs.Descendants = append(fs.Descendants, DescendantStatus{PID: d, State: snap.States[d]})
			}
		}
		st.Feeds = append(st.Feeds, fs)
	}
	return st
}

func countLines(path string) (int64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return int64(strings.Count(string(b), "\n")), nil
}

// --- mailbox-event handlers -----------------------------------------------

func (s *Supervisor) handleInput(in feed.InputEvent) {
	if s.st == stateOff {
		s.log.Warn("dropping Input in Off state", zap.Int("pos", in.Pos))
		return
	}
	s.bar.Set(in.Pos, in.Data)
	now := time.Now()
	if in.Pos < len(s.lastOutput) {
		s.lastOutput[in.Pos] = &now
	}
	if in.Pos < len(s.cfg.Feeds) {
		if ttl := s.cfg.Feeds[in.Pos].TTLSecs; ttl > 0 {
			s.wheel.push(timerKey{kind: kindExpiry, pos: in.Pos}, now.Add(time.Duration(ttl*float64(time.Second))))
		}
	}
	s.ensureOutputScheduled()
}

func (s *Supervisor) handleFeedExit(ex feed.ExitEvent) {
	if ex.Err != nil {
		s.log.Warn("feed exited with error", zap.Int("pos", ex.Pos), zap.Error(ex.Err))
	} else {
		s.log.Info("feed exited", zap.Int("pos", ex.Pos))
	}

	if ex.Pos < len(s.feeds) {
		// Unsolicited exit: the child is already dead, but Stop still owns
		// removing the pid file (and is a no-op past closeOnce on the
		// solicited path), so run it here too rather than leaking the file.
		if fd := s.feeds[ex.Pos]; fd != nil {
			fd.Stop(context.Background())
		}
		s.feeds[ex.Pos] = nil
	}
	s.wheel.remove(timerKey{kind: kindExpiry, pos: ex.Pos})
	if ex.Pos < s.bar.Len() {
		s.bar.Expire(ex.Pos)
	}
	s.ensureOutputScheduled()
	s.publishIfDirty()

	if s.st == stateOffing && !s.anyFeedLive() {
		s.finishOffing(nil)
	}
}

func (s *Supervisor) anyFeedLive() bool {
	for _, f := range s.feeds {
		if f != nil {
			return true
		}
	}
	return false
}

func (s *Supervisor) handleTimerFire(key timerKey) {
	switch key.kind {
	case kindExpiry:
		if s.st == stateOff {
			return
		}
		if key.pos < s.bar.Len() {
			s.bar.Expire(key.pos)
		}
		s.ensureOutputScheduled()
	case kindOutput:
		s.publishIfDirty()
	}
}

// ensureOutputScheduled arms a single one-shot output timer iff none is
// currently armed, rate-limiting publishes to one per output_interval
// regardless of message volume.
func (s *Supervisor) ensureOutputScheduled() {
	key := timerKey{kind: kindOutput}
	if s.wheel.has(key) {
		return
	}
	s.wheel.push(key, time.Now().Add(time.Duration(s.cfg.OutputInterval*float64(time.Second))))
}

func (s *Supervisor) publishIfDirty() {
	composed, ok := s.bar.ShowIfDirty()
	if !ok {
		return
	}
	if err := s.outputSink.Publish(composed); err != nil {
		s.log.Error("sink publish failed", zap.Error(err))
	}
}
