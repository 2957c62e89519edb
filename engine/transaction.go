package engine

import "github.com/dkvol/gomodbus-transact/packet"

// ResultCallback receives the outcome of a submitted transaction exactly
// once: either a non-nil result, or a non-nil error, never both.
type ResultCallback func(result interface{}, err error)

// decodeFunc parses a complete response PDU (address and function code
// already stripped, CRC already validated) into a typed result.
// registerWidth is 2, or the Enron width of the data address when the
// submission is marked IsEnron; the plain FC3/FC4 decoders pass it to
// DecodeReadRegistersResponse, while the Enron decoders take the width
// from the Enron configuration instead. debug is attached to the
// result's Debug field when the owning engine has debug mode enabled.
type decodeFunc func(data []byte, registerWidth int, debug *packet.Debug) (interface{}, error)

// transaction is the engine's single in-flight request fingerprint. At
// most one of these is live per Engine at a time; see Engine.current.
type transaction struct {
	writeID int
	readID  int

	unitID           uint8
	functionCode     uint8
	expectedLength   int // byte length of the full RTU frame, or packet.LengthUnknown
	decode           decodeFunc
	callback         ResultCallback
	enronDataAddress uint16
	isEnron          bool

	debug          bool
	requestBytes   []byte
	responseChunks [][]byte

	timeoutFired bool
	cancelTimer  func()

	// deviceID accumulates merged FC43 continuation results; nil for
	// every other function code.
	deviceID *deviceIDAccumulator
}

func (t *transaction) recordChunk(chunk []byte) {
	if !t.debug {
		return
	}
	buf := make([]byte, len(chunk))
	copy(buf, chunk)
	t.responseChunks = append(t.responseChunks, buf)
}

func (t *transaction) debugInfo() *packet.Debug {
	if !t.debug {
		return nil
	}
	return &packet.Debug{RequestBytes: t.requestBytes, ResponseChunks: t.responseChunks}
}

// fire invokes the callback at most once; subsequent calls on the same
// transaction (e.g. a late fragment after timeout) must be prevented by
// the caller checking timeoutFired / slot identity first.
func (t *transaction) fire(result interface{}, err error) {
	if t.callback != nil {
		t.callback(result, err)
	}
}
