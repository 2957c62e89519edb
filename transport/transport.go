// Package transport provides concrete byte-stream sinks/sources for the
// Modbus engine: an in-memory harness for tests, a serial port backend,
// and a TCP-carried-RTU backend. Each satisfies engine.Transport (and,
// for buffered-stream backends, engine.FrameArmer); the engine treats
// every one of them as an opaque source of bytes.
package transport

import "errors"

// ErrClosed is returned by Write once a transport has been closed.
var ErrClosed = errors.New("modbus: transport is closed")
