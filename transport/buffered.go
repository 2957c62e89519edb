package transport

import (
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/dkvol/gomodbus-transact/reassembly"
)

// bufferedTransport shares the reassembler-driven plumbing common to
// every buffered byte-stream backend (serial, TCP-carried-RTU): a write
// sink, a background read pump feeding a reassembler, and the resulting
// Frames()/Closed() channels the engine consumes.
type bufferedTransport struct {
	writer io.Writer
	logger *slog.Logger

	open atomic.Bool

	reasmMu sync.Mutex
	reasm   *reassembly.Reassembler

	frames    chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newBufferedTransport(writer io.Writer, logger *slog.Logger) *bufferedTransport {
	if logger == nil {
		logger = slog.Default()
	}
	b := &bufferedTransport{
		writer: writer,
		logger: logger,
		reasm:  reassembly.New(),
		frames: make(chan []byte, 1),
		closed: make(chan struct{}),
	}
	b.open.Store(true)
	return b
}

func (b *bufferedTransport) IsOpen() bool { return b.open.Load() }

func (b *bufferedTransport) Write(data []byte) error {
	if !b.open.Load() {
		return ErrClosed
	}
	_, err := b.writer.Write(data)
	return err
}

func (b *bufferedTransport) Frames() <-chan []byte   { return b.frames }
func (b *bufferedTransport) Closed() <-chan struct{} { return b.closed }

func (b *bufferedTransport) ArmFrame(unitID, functionCode uint8, expectedLength int) {
	b.reasmMu.Lock()
	defer b.reasmMu.Unlock()
	b.reasm.Arm(unitID, functionCode, expectedLength)
}

func (b *bufferedTransport) DisarmFrame() {
	b.reasmMu.Lock()
	defer b.reasmMu.Unlock()
	b.reasm.Disarm()
}

// feed is called by the concrete transport's read pump with each chunk
// read off the wire. A located frame is handed to the engine over
// Frames(); feed never blocks indefinitely since Frames() is buffered
// and the engine only ever has one transaction outstanding at a time.
func (b *bufferedTransport) feed(chunk []byte) {
	b.reasmMu.Lock()
	frame, ok := b.reasm.Feed(chunk)
	b.reasmMu.Unlock()
	if !ok {
		return
	}
	b.frames <- frame
}

func (b *bufferedTransport) markClosed() {
	b.open.Store(false)
	b.closeOnce.Do(func() { close(b.closed) })
}
