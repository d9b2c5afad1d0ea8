package rpc

import (
	"context"
	"fmt"
	"net"
	"net/rpc"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edirooss/barsupervisord/internal/supervisor"
)

// Server exposes the four control methods over a UNIX socket,
// serving net/rpc's gob codec on each accepted connection. backlog
// caps the number of connections served concurrently (0 means
// unlimited), wired to the CLI's `server --backlog N` flag.
type Server struct {
	sock *net.UnixListener
	gate *admissionGate
	log  *zap.Logger
}

// Listen binds the UNIX socket at path, removing any stale socket file
// first (the daemon's own pre-flight pid/socket check in
// supervisor.WriteDaemonPIDFile already refuses to start if a live
// daemon's artifacts are present, so reaching here means any leftover
// socket file is indeed stale).
func Listen(path string, backlog int, log *zap.Logger) (*Server, error) {
	_ = os.Remove(path)
	addr, err := net.ResolveUnixAddr("unix", path)
	if err != nil {
		return nil, fmt.Errorf("rpc: resolve %s: %w", path, err)
	}
	ln, err := net.ListenUnix("unix", addr)
	if err != nil {
		return nil, fmt.Errorf("rpc: listen %s: %w", path, err)
	}
	if backlog <= 0 {
		backlog = 1 << 20 // effectively unbounded
	}
	return &Server{sock: ln, gate: newAdmissionGate(backlog), log: log.Named("rpc")}, nil
}

// Serve accepts connections until ctx is cancelled, registering a
// fresh *methods handle (bound to sup) per net/rpc server so each
// connection's correlation id can be attached to its own logger.
func (s *Server) Serve(ctx context.Context, sup *supervisor.Supervisor) error {
	go func() {
		<-ctx.Done()
		_ = s.sock.Close()
	}()

	for {
		conn, err := s.sock.AcceptUnix()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return fmt.Errorf("rpc: accept: %w", err)
			}
		}

		s.gate.acquire(conn)
		connID := uuid.New().String()
		connLog := s.log.With(zap.String("conn_id", connID))
		connLog.Info("rpc connection accepted")

		go func() {
			defer func() {
				conn.Close()
				s.gate.release(conn)
				connLog.Info("rpc connection closed")
			}()

			srv := rpc.NewServer()
			methods := &methods{sup: sup, log: connLog}
			if err := srv.RegisterName("Control", methods); err != nil {
				connLog.Error("register rpc methods", zap.Error(err))
				return
			}
			srv.ServeConn(conn)
		}()
	}
}

// Close shuts down the listener.
func (s *Server) Close() error { return s.sock.Close() }

// methods is the net/rpc receiver exposing Control.On/Off/Status/Reload.
// net/rpc itself has no first-class per-call deadline, so the
// client-supplied deadline (the CLI's --timeout flag) is enforced by
// bounding the dial+call on the client side (see Client.call).
type methods struct {
	sup *supervisor.Supervisor
	log *zap.Logger
}

func (m *methods) On(_ Empty, _ *Empty) error {
	return m.sup.SendOn(context.Background())
}

func (m *methods) Off(_ Empty, _ *Empty) error {
	return m.sup.SendOff(context.Background())
}

func (m *methods) Reload(_ Empty, _ *Empty) error {
	return m.sup.SendReload(context.Background())
}

func (m *methods) Status(_ Empty, reply *StatusReply) error {
	st, err := m.sup.SendStatus(context.Background())
	if err != nil {
		return err
	}
	reply.Status = st
	return nil
}
