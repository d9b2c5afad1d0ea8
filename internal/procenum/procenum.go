// Package procenum wraps the platform's ps(1) utility to enumerate
// every process on the system, and derives the group/children/
// descendant maps the Supervisor needs for Status reporting. It is
// intentionally a thin boundary over the
// real ps binary (kept as a boundary contract, not a job for
// a library replacement like gopsutil).
package procenum

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"
)

// Proc is one row of `ps -eo pid,ppid,pgrp,state`.
type Proc struct {
	PID   int
	PPID  int
	PGID  int
	State string
}

// Snapshot is a point-in-time enumeration plus its derived indices.
type Snapshot struct {
	Procs       []Proc
	Groups      map[int][]int    // pgid -> pids
	Children    map[int][]int    // ppid -> pids
	Descendants map[int][]int    // pid -> transitive descendant pids
	States      map[int]string   // pid -> state code
}

// Enumerator runs and coalesces concurrent ps(1) snapshots.
type Enumerator struct {
	sg singleflight.Group
}

// New returns a ready Enumerator.
func New() *Enumerator { return &Enumerator{} }

// Snapshot runs `ps -eo pid,ppid,pgrp,state` and parses the result.
// Concurrent callers within the same instant are coalesced onto one
// underlying ps invocation, mirroring a
// singleflight-backed refresh-coalescing idiom in
// internal/service/channel_summary.go.
func (e *Enumerator) Snapshot(ctx context.Context) (*Snapshot, error) {
	v, err, _ := e.sg.Do("ps", func() (any, error) {
		return runPS(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

func runPS(ctx context.Context) (*Snapshot, error) {
	cmd := exec.CommandContext(ctx, "ps", "-eo", "pid,ppid,pgrp,state")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("procenum: ps: %w: %s", err, stderr.String())
	}
	return parse(&stdout)
}

func parse(r *bytes.Buffer) (*Snapshot, error) {
	sc := bufio.NewScanner(r)
	first := true
	var procs []Proc
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if first {
			// header row, e.g. "  PID  PPID  PGRP S"
			first = false
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 4 {
			return nil, fmt.Errorf("procenum: unparseable ps row %q", line)
		}
		pid, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("procenum: bad pid in %q: %w", line, err)
		}
		ppid, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("procenum: bad ppid in %q: %w", line, err)
		}
		pgid, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("procenum: bad pgrp in %q: %w", line, err)
		}
		state := fields[3]
		if !validState(state) {
			return nil, fmt.Errorf("procenum: illegal state code %q in %q", state, line)
		}
		procs = append(procs, Proc{PID: pid, PPID: ppid, PGID: pgid, State: state})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("procenum: scan: %w", err)
	}
	return derive(procs), nil
}

// validState accepts the single-letter POSIX state codes ps -eo state
// emits, optionally followed by modifier characters (e.g. "Ss", "R+").
func validState(s string) bool {
	if s == "" {
		return false
	}
	switch s[0] {
	case 'R', 'S', 'D', 'Z', 'T', 'I', 'W', 'X':
		return true
	default:
		return false
	}
}

func derive(procs []Proc) *Snapshot {
	groups := make(map[int][]int)
	children := make(map[int][]int)
	states := make(map[int]string)

	for _, p := range procs {
		groups[p.PGID] = append(groups[p.PGID], p.PID)
		children[p.PPID] = append(children[p.PPID], p.PID)
		states[p.PID] = p.State
	}

	descendants := make(map[int][]int, len(procs))
	for _, p := range procs {
		descendants[p.PID] = collectDescendants(p.PID, children)
	}

	return &Snapshot{
		Procs:       procs,
		Groups:      groups,
		Children:    children,
		Descendants: descendants,
		States:      states,
	}
}

func collectDescendants(pid int, children map[int][]int) []int {
	var out []int
	seen := map[int]bool{pid: true}
	queue := append([]int(nil), children[pid]...)
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
		queue = append(queue, children[c]...)
	}
	return out
}
