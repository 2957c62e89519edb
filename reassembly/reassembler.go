// Package reassembly locates complete Modbus RTU answers inside a
// free-flowing byte stream that carries no inherent framing: buffered
// serial and TCP-as-RTU transports hand it arbitrary chunk boundaries
// and it emits exactly one candidate frame at a time, discarding leading
// garbage along the way.
package reassembly

import "github.com/dkvol/gomodbus-transact/packet"

// MaxBufferLen bounds the reassembly buffer: a full Modbus RTU frame
// never exceeds this, so anything older is almost certainly garbage from
// a prior, already-abandoned transaction.
const MaxBufferLen = 256

// minScanLength is the smallest number of bytes a header scan needs to
// even look at unit id and function code with room for a trailing CRC
// (unit + function + 1 data/exception byte + 2 CRC bytes).
const minScanLength = 5

// exceptionFrameLength is the fixed length of a one-byte exception
// response frame (unit + function + code + CRC16).
const exceptionFrameLength = 5

// Reassembler holds the rolling byte buffer and the remembered
// fingerprint of the single outstanding transaction it is scanning for.
// It is not safe for concurrent use; callers (the engine's transport
// adapters) must only drive it from one goroutine at a time.
type Reassembler struct {
	buf []byte

	unitID         uint8
	functionCode   uint8
	expectedLength int // bytes, or packet.LengthUnknown
	armed          bool
}

// New creates an empty Reassembler.
func New() *Reassembler { return &Reassembler{} }

// Arm records the fingerprint of a freshly submitted transaction: the
// reassembler will only look for frames matching this unit id and
// function code until the next Arm call.
func (r *Reassembler) Arm(unitID, functionCode uint8, expectedLength int) {
	r.unitID = unitID
	r.functionCode = functionCode
	r.expectedLength = expectedLength
	r.armed = true
}

// Disarm clears the remembered fingerprint; bytes fed while disarmed
// accumulate but never match (used when no transaction is outstanding).
func (r *Reassembler) Disarm() { r.armed = false }

// Feed appends an inbound chunk and scans for exactly one complete
// frame, per §4.5. A single outstanding transaction means only one
// answer can ever be pending, so Feed never needs to report more than
// one; any further bytes left in the buffer (a stray frame ahead of the
// real answer, or the start of the next transaction's reply arriving
// early) wait for the next Feed call.
func (r *Reassembler) Feed(chunk []byte) ([]byte, bool) {
	r.buf = append(r.buf, chunk...)
	if len(r.buf) > MaxBufferLen {
		r.buf = r.buf[len(r.buf)-MaxBufferLen:]
	}
	if !r.armed {
		return nil, false
	}
	frame := r.scanOnce()
	return frame, frame != nil
}

// scanOnce performs one pass of §4.5's header scan. On a match it
// removes the consumed bytes (including any leading garbage) from the
// buffer and returns a copy of the frame; otherwise it leaves the
// buffer untouched and returns nil.
func (r *Reassembler) scanOnce() []byte {
	// Two separately-named guards, kept distinct per the open question
	// about the original's conflated `||`: neither alone is sufficient
	// reasoning to proceed, so either one holding means "wait".
	tooShortToScanAtAll := len(r.buf) < minScanLength
	tooShortForExpectedOrException := r.expectedLength != packet.LengthUnknown &&
		len(r.buf) < r.expectedLength && len(r.buf) < exceptionFrameLength
	if tooShortToScanAtAll || tooShortForExpectedOrException {
		return nil
	}

	for i := 0; i+minScanLength <= len(r.buf); i++ {
		u := r.buf[i]
		f := r.buf[i+1]
		if u != r.unitID {
			continue
		}
		switch {
		case f == r.functionCode:
			if end, ok := r.matchFunctionFrame(i); ok {
				return r.consumeThrough(i, end)
			}
			return nil // header matched, not enough bytes yet: wait
		case f == (r.functionCode | packet.ExceptionBit):
			if i+exceptionFrameLength <= len(r.buf) {
				return r.consumeThrough(i, i+exceptionFrameLength)
			}
			return nil
		case f == (0x7F & r.functionCode):
			// Partial-header sentinel: preserved as-is per the open
			// question, a heuristic bail-out rather than a documented
			// protocol signal.
			return nil
		}
	}
	return nil
}

// matchFunctionFrame computes the end offset of the candidate frame
// starting at i, assuming buf[i+1] already matches the remembered
// function code. ok is false when the frame isn't fully buffered yet.
func (r *Reassembler) matchFunctionFrame(i int) (end int, ok bool) {
	switch r.functionCode {
	case packet.FCReadDeviceIdentification:
		return r.matchDeviceIDFrame(i)
	case packet.FCReadFileRecord:
		if i+3 > len(r.buf) {
			return 0, false
		}
		total := 5 + int(r.buf[i+2]) + 2
		if i+total > len(r.buf) {
			return 0, false
		}
		return i + total, true
	default:
		if r.expectedLength == packet.LengthUnknown {
			return 0, false
		}
		if i+r.expectedLength > len(r.buf) {
			return 0, false
		}
		return i + r.expectedLength, true
	}
}

// matchDeviceIDFrame walks the FC43 object TLV chain to find where the
// response (and its trailing CRC) ends.
func (r *Reassembler) matchDeviceIDFrame(i int) (end int, ok bool) {
	if i+8 > len(r.buf) {
		return 0, false
	}
	numObjects := int(r.buf[i+7])
	offset := i + 8
	for n := 0; n < numObjects; n++ {
		if offset+2 > len(r.buf) {
			return 0, false
		}
		objectLen := int(r.buf[offset+1])
		offset += 2 + objectLen
	}
	if offset+2 > len(r.buf) {
		return 0, false
	}
	return offset + 2, true
}

// consumeThrough extracts buf[start:end] as the emitted frame and drops
// everything up to and including it, so any leading garbage bytes before
// start are discarded along with the consumed frame itself.
func (r *Reassembler) consumeThrough(start, end int) []byte {
	out := make([]byte, end-start)
	copy(out, r.buf[start:end])
	r.buf = append([]byte(nil), r.buf[end:]...)
	return out
}
