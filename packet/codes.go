package packet

// Function codes supported by the engine. Values match the Modbus
// Application Protocol function code field (the first PDU byte).
const (
	FCReadCoils                = uint8(1)
	FCReadDiscreteInputs       = uint8(2)
	FCReadHoldingRegisters     = uint8(3)
	FCReadInputRegisters       = uint8(4)
	FCWriteSingleCoil          = uint8(5)
	FCWriteSingleRegister      = uint8(6)
	FCReadExceptionStatus      = uint8(7)
	FCWriteMultipleCoils       = uint8(15)
	FCWriteMultipleRegisters   = uint8(16)
	FCReadFileRecord           = uint8(20)
	FCReadDeviceIdentification = uint8(43)
	FCReadCompressed           = uint8(65)

	// ExceptionBit is set on the function code byte of an exception response.
	ExceptionBit = uint8(0x80)

	// meiReadDeviceIdentification is the MODBUS Encapsulated Interface type
	// byte that precedes the device-id sub-request inside a FC43 PDU.
	meiReadDeviceIdentification = uint8(0x0E)
)

// BroadcastUnitID is the Modbus broadcast address. A request sent to it
// receives no response.
const BroadcastUnitID = uint8(0)

// RequiresResponse reports whether a request for the given function code
// still expects a reply when addressed to the broadcast unit id. Per
// spec.md §4.2, write-family function codes accept broadcast silently
// (no response is ever sent); every read-family function code (and FC20/
// FC43/FC65, which are reads in spirit) must be rejected before any bytes
// are written.
func RequiresResponse(functionCode uint8) bool {
	switch functionCode {
	case FCWriteSingleCoil, FCWriteSingleRegister, FCWriteMultipleCoils, FCWriteMultipleRegisters:
		return false
	default:
		return true
	}
}

// IsException reports whether a received function code byte marks an
// exception response for the given expected function code.
func IsException(expected uint8, received uint8) bool {
	return received == (expected | ExceptionBit)
}

// LengthUnknown marks a transaction whose response length cannot be
// predicted ahead of time. FC43 (Read Device Identification) uses it,
// since the number and size of the returned objects is entirely
// device-controlled, and so do the Enron FC3/FC4/FC6 requests that
// client.go submits.
const LengthUnknown = -1
