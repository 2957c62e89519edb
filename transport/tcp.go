package transport

import (
	"context"
	"io"
	"log/slog"
	"net"
)

// TCP is a buffered-stream transport that carries RTU-framed (CRC'd)
// Modbus bytes over a TCP socket, the "TCP-buffered-RTU" case §4.5 calls
// out explicitly — a common pattern for serial-to-Ethernet gateways.
// True Modbus TCP/MBAP encapsulation is an external transport concern
// and is not implemented here; see DESIGN.md.
type TCP struct {
	*bufferedTransport
	conn net.Conn
}

// TCPOption configures a TCP transport at construction time.
type TCPOption func(*TCP)

// WithTCPLogger overrides the transport's structured logger.
func WithTCPLogger(logger *slog.Logger) TCPOption {
	return func(t *TCP) { t.logger = logger }
}

// DialTCP connects to address and starts the read pump. Callers must
// call Close when done.
func DialTCP(ctx context.Context, address string, opts ...TCPOption) (*TCP, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}
	return newTCPFromConn(conn, opts...), nil
}

func newTCPFromConn(conn net.Conn, opts ...TCPOption) *TCP {
	t := &TCP{conn: conn}
	t.bufferedTransport = newBufferedTransport(conn, nil)
	for _, o := range opts {
		o(t)
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	go t.readPump()
	return t
}

func (t *TCP) readPump() {
	buf := make([]byte, readChunkSize)
	for {
		n, err := t.conn.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			t.feed(chunk)
		}
		if err != nil {
			if err != io.EOF {
				t.logger.Warn("modbus: tcp read error, closing transport", "error", err)
			}
			t.markClosed()
			return
		}
	}
}

// Close closes the underlying TCP connection.
func (t *TCP) Close() error {
	t.markClosed()
	return t.conn.Close()
}
