// Package rpc implements the control protocol: four methods (On, Off,
// Status, Reload) exposed as length-framed, gob-encoded net/rpc calls
// over a UNIX domain socket. Grounded on bogen85-config's
// dot.go/rpc-triplet example (stdlib net/rpc server/client over a raw
// net.Conn), adapted from TCP+jsonrpc with map[string]any payloads to a
// UNIX socket with gob and typed request/reply structs matching
// supervisor.Status/FeedStatus shapes. See DESIGN.md for why this is
// the one ambient concern built on the standard library rather than a
// pack dependency (grpc would require hand-authored .pb.go files).
package rpc

import "github.com/edirooss/barsupervisord/internal/supervisor"

// Empty is the argument/reply type for methods that carry no payload.
type Empty struct{}

// StatusReply carries a full status snapshot. Down is never sent over
// the wire; a client synthesizes it locally when the connection itself
// fails.
type StatusReply struct {
	Status supervisor.Status
}
