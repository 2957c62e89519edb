package engine

import "github.com/dkvol/gomodbus-transact/packet"

// deviceIDAccumulator merges the object maps of successive FC43
// responses within a single logical Read Device Identification
// transaction. It is deliberately not recursive: each continuation step
// is driven by the next inbound frame event on the engine's loop, so
// stack depth never grows no matter how many rounds a device demands.
type deviceIDAccumulator struct {
	category        uint8
	objects         map[uint8]string
	conformityLevel uint8
}

// handleDeviceIDChunk processes one FC43 response PDU already known to
// belong to the outstanding tx. It either re-arms the transaction with a
// follow-up request (more objects to come) or completes it with the
// merged result.
func (e *Engine) handleDeviceIDChunk(tx *transaction, data []byte) {
	chunk, err := packet.DecodeReadDeviceIdentificationResponse(data)
	if err != nil {
		e.completeCurrent(tx, nil, err)
		return
	}

	acc := tx.deviceID
	acc.conformityLevel = chunk.ConformityLevel
	for id, value := range chunk.Objects {
		acc.objects[id] = value
	}

	// Guard against malformed devices that set moreFollows forever: stop
	// as soon as a round returns no objects at all, per §4.6.
	if !chunk.MoreFollows || len(chunk.Objects) == 0 {
		result := &packet.ReadDeviceIdResult{
			Objects:         acc.objects,
			ConformityLevel: acc.conformityLevel,
			Debug:           tx.debugInfo(),
		}
		e.completeCurrent(tx, result, nil)
		return
	}

	nextFrame := packet.BuildFrame(tx.unitID, tx.functionCode,
		packet.EncodeReadDeviceIdentificationRequest(acc.category, chunk.NextObjectID))

	if armer, ok := e.transport.(FrameArmer); ok {
		armer.ArmFrame(tx.unitID, tx.functionCode, packet.LengthUnknown)
	}

	if err := e.transport.Write(nextFrame); err != nil {
		e.completeCurrent(tx, nil, &TransportError{Err: err})
		return
	}
	if tx.debug {
		tx.requestBytes = append(tx.requestBytes, nextFrame...)
	}

	e.cfgMu.RLock()
	timeout := e.timeout
	e.cfgMu.RUnlock()
	e.armTimeout(tx, timeout)
}
