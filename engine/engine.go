// Package engine implements the transport-neutral Modbus transaction
// state machine: a single outstanding request at a time, a timeout that
// races the inbound data event, and validation (address, function,
// length, CRC, exception) of whatever the transport hands back.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dkvol/gomodbus-transact/packet"
)

const defaultTimeout = 1 * time.Second

// SubmitRequest is everything the engine needs to drive one transaction.
// Callers (client.go's per-function-code methods) build Frame using the
// packet package's encoders and BuildFrame before calling Submit.
type SubmitRequest struct {
	UnitID       uint8
	FunctionCode uint8
	Frame        []byte

	// AllowBroadcast is true only for the write-family function codes
	// (FC5, FC6, FC15, FC16) that tolerate unit id 0 producing no
	// response at all. Every other function code rejects broadcast.
	AllowBroadcast bool

	// ExpectedLength is the full RTU frame length a valid response must
	// have, or packet.LengthUnknown for FC43 (handled specially, see
	// deviceid.go) and for the Enron FC3/FC4/FC6 requests.
	// Ignored when UnitID is the broadcast address and AllowBroadcast is
	// true: such requests never expect a response.
	ExpectedLength int
	Decode         decodeFunc

	// EnronDataAddress/IsEnron let the engine pick the register width at
	// decode time from its own Enron configuration, per §3's transaction
	// fingerprint.
	EnronDataAddress uint16
	IsEnron          bool

	// DeviceIDCategory is set only for FC43 submissions; it drives the
	// continuation loop in deviceid.go.
	IsDeviceID       bool
	DeviceIDCategory uint8
}

// Engine owns the single-outstanding-transaction slot for one transport.
// All transaction state is only ever touched from the loop goroutine
// started by New; public methods communicate with it over channels so
// no locks are needed for transaction bookkeeping (per-engine config
// knobs below use a small mutex since they may legitimately be read or
// written from other goroutines at any time).
type Engine struct {
	transport Transport
	logger    *slog.Logger

	cfgMu   sync.RWMutex
	unitID  uint8
	timeout time.Duration
	debug   bool
	enron   packet.EnronConfig

	cmdCh  chan func(*Engine)
	stopCh chan struct{}
	closed chan struct{}
	once   sync.Once

	writeID int
	readID  int
	current *transaction
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithUnitID sets the default unit id used by client-level convenience
// methods that don't specify one explicitly.
func WithUnitID(id uint8) Option { return func(e *Engine) { e.unitID = id } }

// WithTimeout sets the per-transaction response timeout.
func WithTimeout(d time.Duration) Option { return func(e *Engine) { e.timeout = d } }

// WithDebug enables capturing request bytes and response chunks on
// every transaction's result.
func WithDebug(enabled bool) Option { return func(e *Engine) { e.debug = enabled } }

// WithEnronConfig installs the register-width bands for Enron-variant
// function codes.
func WithEnronConfig(cfg packet.EnronConfig) Option { return func(e *Engine) { e.enron = cfg } }

// WithLogger overrides the engine's structured logger. Defaults to
// slog.Default().
func WithLogger(logger *slog.Logger) Option { return func(e *Engine) { e.logger = logger } }

// New creates an Engine bound to transport and starts its command loop.
// Callers must call Close when done to release the loop goroutine.
func New(transport Transport, opts ...Option) *Engine {
	e := &Engine{
		transport: transport,
		logger:    slog.Default(),
		unitID:    1,
		timeout:   defaultTimeout,
		cmdCh:     make(chan func(*Engine)),
		stopCh:    make(chan struct{}),
		closed:    make(chan struct{}),
		writeID:   0,
		readID:    0,
	}
	for _, o := range opts {
		o(e)
	}
	go e.loop()
	return e
}

func (e *Engine) loop() {
	defer close(e.closed)
	frames := e.transport.Frames()
	transportClosed := e.transport.Closed()
	for {
		select {
		case cmd := <-e.cmdCh:
			cmd(e)
		case frame, ok := <-frames:
			if !ok {
				frames = nil
				continue
			}
			e.handleReceive(frame)
		case <-transportClosed:
			e.abortCurrent(&TransportError{Err: errors.New("transport closed")})
			return
		case <-e.stopCh:
			return
		}
	}
}

// Close stops the engine's loop goroutine. It does not close the
// transport; callers own the transport's lifecycle.
func (e *Engine) Close() error {
	e.once.Do(func() { close(e.stopCh) })
	<-e.closed
	return nil
}

func (e *Engine) abortCurrent(err error) {
	if e.current == nil {
		return
	}
	tx := e.current
	e.current = nil
	tx.fire(nil, err)
}

// UnitID returns the engine's default unit id.
func (e *Engine) UnitID() uint8 {
	e.cfgMu.RLock()
	defer e.cfgMu.RUnlock()
	return e.unitID
}

// SetUnitID changes the engine's default unit id.
func (e *Engine) SetUnitID(id uint8) {
	e.cfgMu.Lock()
	defer e.cfgMu.Unlock()
	e.unitID = id
}

// Timeout returns the engine's per-transaction response timeout.
func (e *Engine) Timeout() time.Duration {
	e.cfgMu.RLock()
	defer e.cfgMu.RUnlock()
	return e.timeout
}

// SetTimeout changes the engine's per-transaction response timeout.
// Takes effect on the next submission; it does not rearm an
// already-outstanding transaction's timer.
func (e *Engine) SetTimeout(d time.Duration) {
	e.cfgMu.Lock()
	defer e.cfgMu.Unlock()
	e.timeout = d
}

// IsDebugEnabled reports whether transactions capture request/response
// debug chunks.
func (e *Engine) IsDebugEnabled() bool {
	e.cfgMu.RLock()
	defer e.cfgMu.RUnlock()
	return e.debug
}

// SetDebug toggles debug capture for future transactions.
func (e *Engine) SetDebug(enabled bool) {
	e.cfgMu.Lock()
	defer e.cfgMu.Unlock()
	e.debug = enabled
}

// IsOpen reports whether the underlying transport currently accepts
// writes.
func (e *Engine) IsOpen() bool { return e.transport.IsOpen() }

// EnronConfig returns the register-width bands installed via
// WithEnronConfig (or the zero value, meaning every address is 16-bit,
// if none was set).
func (e *Engine) EnronConfig() packet.EnronConfig {
	e.cfgMu.RLock()
	defer e.cfgMu.RUnlock()
	return e.enron
}

type submitResult struct {
	value interface{}
	err   error
}

// Submit drives the submission procedure of §4.4: validates broadcast
// use, arms the slot, writes the frame, and blocks until exactly one of
// a decoded result, a validation error, a Modbus exception, or a timeout
// arrives. ctx cancellation only unblocks the caller; it does not cancel
// the in-flight transaction, which still completes or times out on the
// loop goroutine.
func (e *Engine) Submit(ctx context.Context, req SubmitRequest) (interface{}, error) {
	if !e.transport.IsOpen() {
		return nil, ErrPortNotOpen
	}
	if req.UnitID == packet.BroadcastUnitID && !req.AllowBroadcast {
		return nil, ErrBroadcastNotAllowed
	}

	done := make(chan submitResult, 1)
	cmd := func(e *Engine) { e.startTransaction(req, done) }

	select {
	case e.cmdCh <- cmd:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-e.stopCh:
		return nil, ErrPortNotOpen
	}

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *Engine) startTransaction(req SubmitRequest, done chan submitResult) {
	e.writeID++
	id := e.writeID
	e.readID = id

	e.cfgMu.RLock()
	debug := e.debug
	timeout := e.timeout
	e.cfgMu.RUnlock()

	tx := &transaction{
		writeID:          id,
		readID:           id,
		unitID:           req.UnitID,
		functionCode:     req.FunctionCode,
		expectedLength:   req.ExpectedLength,
		decode:           req.Decode,
		enronDataAddress: req.EnronDataAddress,
		isEnron:          req.IsEnron,
		debug:            debug,
	}
	if debug {
		tx.requestBytes = append([]byte(nil), req.Frame...)
	}
	tx.callback = func(value interface{}, err error) {
		done <- submitResult{value: value, err: err}
	}
	if req.IsDeviceID {
		tx.deviceID = &deviceIDAccumulator{
			category: req.DeviceIDCategory,
			objects:  make(map[uint8]string),
		}
	}

	broadcastNoResponse := req.UnitID == packet.BroadcastUnitID && req.AllowBroadcast
	e.current = tx

	if armer, ok := e.transport.(FrameArmer); ok && !broadcastNoResponse {
		armer.ArmFrame(req.UnitID, req.FunctionCode, req.ExpectedLength)
	}

	if err := e.transport.Write(req.Frame); err != nil {
		e.current = nil
		e.disarmTransport()
		tx.fire(nil, &TransportError{Err: err})
		return
	}

	if broadcastNoResponse {
		e.current = nil
		tx.fire(&packet.WriteMultipleResult{Address: 0, Count: 0}, nil)
		return
	}

	e.armTimeout(tx, timeout)
}

func (e *Engine) disarmTransport() {
	if armer, ok := e.transport.(FrameArmer); ok {
		armer.DisarmFrame()
	}
}

func (e *Engine) armTimeout(tx *transaction, timeout time.Duration) {
	id := tx.readID
	timer := time.AfterFunc(timeout, func() {
		select {
		case e.cmdCh <- func(eng *Engine) { eng.handleTimeout(id) }:
		case <-e.stopCh:
		}
	})
	tx.cancelTimer = func() { timer.Stop() }
}

func (e *Engine) handleTimeout(id int) {
	tx := e.current
	if tx == nil || tx.readID != id || tx.timeoutFired {
		return
	}
	tx.timeoutFired = true
	e.current = nil
	tx.fire(nil, &TimeoutError{RequestBytes: tx.requestBytes, ResponseChunks: tx.responseChunks})
}

// handleReceive implements the receive procedure of §4.4 for a
// candidate complete frame handed up by the transport (directly for
// framed transports, or via a reassembler for buffered ones).
func (e *Engine) handleReceive(frame []byte) {
	tx := e.current
	if tx == nil {
		e.logger.Debug("modbus: dropping frame with no outstanding transaction", "bytes", len(frame))
		return
	}

	tx.recordChunk(frame)
	if tx.cancelTimer != nil {
		tx.cancelTimer()
	}
	if tx.timeoutFired {
		return
	}

	unitID, functionCode, data, err := packet.SplitFrame(frame)
	if err != nil {
		var mismatch *packet.CRCMismatch
		if errors.As(err, &mismatch) {
			e.completeCurrent(tx, nil, &CRCError{Expected: mismatch.Expected, Got: mismatch.Got})
			return
		}
		e.completeCurrent(tx, nil, err)
		return
	}

	if packet.IsException(tx.functionCode, functionCode) {
		if len(data) < 1 {
			e.completeCurrent(tx, nil, errors.New("modbus: exception response missing exception code"))
			return
		}
		e.completeCurrent(tx, nil, &packet.ModbusException{UnitID: unitID, FunctionCode: tx.functionCode, Code: data[0]})
		return
	}

	if unitID != tx.unitID {
		e.completeCurrent(tx, nil, &UnexpectedAddressError{Expected: tx.unitID, Got: unitID})
		return
	}
	if functionCode != tx.functionCode {
		e.completeCurrent(tx, nil, &UnexpectedFunctionError{Expected: tx.functionCode, Got: functionCode})
		return
	}
	if tx.expectedLength != packet.LengthUnknown && len(frame) != tx.expectedLength {
		e.completeCurrent(tx, nil, &LengthError{Expected: tx.expectedLength, Got: len(frame)})
		return
	}

	if tx.deviceID != nil {
		e.handleDeviceIDChunk(tx, data)
		return
	}

	width := 2
	if tx.isEnron {
		width = e.enron.RegisterWidth(tx.enronDataAddress)
	}
	result, err := tx.decode(data, width, tx.debugInfo())
	e.completeCurrent(tx, result, err)
}

func (e *Engine) completeCurrent(tx *transaction, result interface{}, err error) {
	if e.current != tx {
		return
	}
	e.current = nil
	tx.fire(result, err)
}
