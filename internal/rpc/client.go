package rpc

import (
	"context"
	"fmt"
	"net"
	"net/rpc"
	"time"

	"github.com/edirooss/barsupervisord/internal/supervisor"
)

// Client dials the daemon's control socket per call. net/rpc's
// ServeConn/NewClient shape is stateless per connection, so each
// method opens its own short-lived connection bounded by the deadline,
// matching the bogen85-config rpc-triplet client's one-call-per-dial
// pattern.
type Client struct {
	sockPath string
	deadline time.Duration
}

// NewClient returns a Client targeting the UNIX socket at sockPath,
// with deadline applied to every call (default 5s).
func NewClient(sockPath string, deadline time.Duration) *Client {
	if deadline <= 0 {
		deadline = 5 * time.Second
	}
	return &Client{sockPath: sockPath, deadline: deadline}
}

func (c *Client) dial(ctx context.Context) (*rpc.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, c.deadline)
	defer cancel()
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.sockPath)
	if err != nil {
		return nil, err
	}
	return rpc.NewClient(conn), nil
}

func (c *Client) call(ctx context.Context, method string, args, reply any) error {
	cl, err := c.dial(ctx)
	if err != nil {
		return fmt.Errorf("daemon down: %w", err)
	}
	defer cl.Close()

	done := make(chan error, 1)
	go func() { done <- cl.Call("Control."+method, args, reply) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.deadline):
		return fmt.Errorf("rpc: %s: deadline exceeded", method)
	}
}

// On invokes Control.On.
func (c *Client) On(ctx context.Context) error {
	return c.call(ctx, "On", Empty{}, &Empty{})
}

// Off invokes Control.Off.
func (c *Client) Off(ctx context.Context) error {
	return c.call(ctx, "Off", Empty{}, &Empty{})
}

// Reload invokes Control.Reload.
func (c *Client) Reload(ctx context.Context) error {
	return c.call(ctx, "Reload", Empty{}, &Empty{})
}

// DaemonStatus is the client-observed status: Down is synthesized
// locally when the daemon cannot be reached at all, matching spec.md
// §6's "daemon absent" variant.
type DaemonStatus struct {
	Down   bool
	Status supervisor.Status
}

// Status invokes Control.Status, synthesizing Down when the socket
// cannot be dialed at all (the daemon is simply not running); any
// other failure — a malformed reply, an RPC-level error from a running
// daemon — is surfaced as a real error rather than papered over as Down.
func (c *Client) Status(ctx context.Context) (DaemonStatus, error) {
	cl, err := c.dial(ctx)
	if err != nil {
		return DaemonStatus{Down: true}, nil
	}
	defer cl.Close()

	var reply StatusReply
	done := make(chan error, 1)
	go func() { done <- cl.Call("Control.Status", Empty{}, &reply) }()

	select {
	case err := <-done:
		if err != nil {
			return DaemonStatus{}, err
		}
		return DaemonStatus{Status: reply.Status}, nil
	case <-ctx.Done():
		return DaemonStatus{}, ctx.Err()
	case <-time.After(c.deadline):
		return DaemonStatus{}, fmt.Errorf("rpc: Status: deadline exceeded")
	}
}
