package packet

import "fmt"

// Exception codes carried by a Modbus exception response (function code
// byte with the high bit set). Values and messages per the MODBUS
// Application Protocol Specification V1.1b, table in section 7.
const (
	ExIllegalFunction        = uint8(1)
	ExIllegalDataAddress     = uint8(2)
	ExIllegalDataValue       = uint8(3)
	ExSlaveDeviceFailure     = uint8(4)
	ExAcknowledge            = uint8(5)
	ExSlaveDeviceBusy        = uint8(6)
	ExNegativeAcknowledge    = uint8(7)
	ExMemoryParityError      = uint8(8)
	ExGatewayPathUnavailable = uint8(10)
	ExGatewayTargetFailed    = uint8(11)
)

var exceptionMessages = map[uint8]string{
	ExIllegalFunction:        "Illegal function",
	ExIllegalDataAddress:     "Illegal data address (register not supported by device)",
	ExIllegalDataValue:       "Illegal data value",
	ExSlaveDeviceFailure:     "Slave device failure",
	ExAcknowledge:            "Acknowledge",
	ExSlaveDeviceBusy:        "Slave device busy",
	ExNegativeAcknowledge:    "Negative acknowledge",
	ExMemoryParityError:      "Memory parity error",
	ExGatewayPathUnavailable: "Gateway path unavailable",
	ExGatewayTargetFailed:    "Gateway target device failed to respond",
}

// ModbusException is a well-formed Modbus exception response: a one-byte
// exception code plus the human-readable message from the fixed table.
type ModbusException struct {
	UnitID       uint8
	FunctionCode uint8
	Code         uint8
}

// Error implements the error interface.
func (e *ModbusException) Error() string {
	msg, ok := exceptionMessages[e.Code]
	if !ok {
		msg = fmt.Sprintf("unknown exception code %d", e.Code)
	}
	return msg
}

// Message returns the human-readable message for the exception code,
// without the unit/function context Error() would otherwise not add
// anyway (kept for callers that want just the table lookup).
func (e *ModbusException) Message() string {
	return e.Error()
}
