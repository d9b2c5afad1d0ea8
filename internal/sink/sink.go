// Package sink implements the bar string's publish targets. Only
// stdout, stderr, and file are concretely implemented; the X11
// root-window sink is modeled at the interface boundary only, since
// no available library grounds a concrete Xlib/cgo binding.
package sink

import (
	"fmt"
	"os"

	"go.uber.org/zap"
)

// Sink publishes a composed bar string. Publish errors are logged by
// the caller (the Supervisor) and never fatal.
type Sink interface {
	Publish(s string) error
	Close() error
}

// Stdout publishes one line per call, trailing newline, to os.Stdout.
type Stdout struct{}

func (Stdout) Publish(s string) error { _, err := fmt.Fprintln(os.Stdout, s); return err }
func (Stdout) Close() error           { return nil }

// Stderr publishes one line per call, trailing newline, to os.Stderr.
type Stderr struct{}

func (Stderr) Publish(s string) error { _, err := fmt.Fprintln(os.Stderr, s); return err }
func (Stderr) Close() error           { return nil }

// File overwrites path atomically (truncating write) on every publish.
type File struct {
	Path string
}

func (f File) Publish(s string) error {
	return os.WriteFile(f.Path, []byte(s), 0o644)
}
func (File) Close() error { return nil }

// X11Root is the placeholder for the X11 root-window sink. It has no
// Publish method and is never constructed: NewX11Root always returns an
// error, so a configuration selecting x11_root fails when the sink is
// built, and nothing is ever written to the root window's name. This
// build has no cgo/Xlib binding.
type X11Root struct {
	log *zap.Logger
}

// NewX11Root always returns an error; no display is opened and no
// XStoreName call is made.
func NewX11Root(log *zap.Logger) (Sink, error) {
	return nil, fmt.Errorf("sink: x11_root requires a platform-specific Xlib binding not available in this build")
}

// New constructs the sink selected by kind ("stdout", "stderr", "file",
// "x11_root"); filePath is used only when kind == "file".
func New(kind, filePath string, log *zap.Logger) (Sink, error) {
	switch kind {
	case "stdout":
		return Stdout{}, nil
	case "stderr":
		return Stderr{}, nil
	case "file":
		return File{Path: filePath}, nil
	case "x11_root":
		return NewX11Root(log)
	default:
		return nil, fmt.Errorf("sink: unknown kind %q", kind)
	}
}
