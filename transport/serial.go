package transport

import (
	"io"
	"log/slog"
	"time"

	serial "github.com/tarm/serial"
)

// Serial is a buffered-stream transport backed by a real serial port,
// grounded on the teacher's SerialClient but restructured around the
// engine's event-driven Frames()/ArmFrame() contract instead of a
// blocking per-call read loop.
type Serial struct {
	*bufferedTransport
	port io.ReadWriteCloser
}

// SerialOption configures a Serial transport at construction time.
type SerialOption func(*Serial)

// WithSerialLogger overrides the transport's structured logger.
func WithSerialLogger(logger *slog.Logger) SerialOption {
	return func(s *Serial) { s.logger = logger }
}

// readChunkSize is the per-Read buffer size for the serial read pump;
// a full RTU frame fits comfortably inside one read on most UART
// drivers, but the reassembler tolerates arbitrary chunking regardless.
const readChunkSize = 256

// OpenSerial opens the named serial port at the given baud rate and
// starts its read pump. Callers must call Close when done.
func OpenSerial(name string, baud int, readTimeout time.Duration, opts ...SerialOption) (*Serial, error) {
	cfg := &serial.Config{Name: name, Baud: baud, ReadTimeout: readTimeout}
	port, err := serial.OpenPort(cfg)
	if err != nil {
		return nil, err
	}
	return newSerialFromPort(port, opts...), nil
}

func newSerialFromPort(port io.ReadWriteCloser, opts ...SerialOption) *Serial {
	s := &Serial{port: port}
	s.bufferedTransport = newBufferedTransport(port, nil)
	for _, o := range opts {
		o(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	go s.readPump()
	return s
}

func (s *Serial) readPump() {
	buf := make([]byte, readChunkSize)
	for {
		n, err := s.port.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			s.feed(chunk)
		}
		if err != nil {
			if err != io.EOF {
				s.logger.Warn("modbus: serial read error, closing transport", "error", err)
			}
			s.markClosed()
			return
		}
	}
}

// Close closes the underlying serial port.
func (s *Serial) Close() error {
	s.markClosed()
	return s.port.Close()
}
