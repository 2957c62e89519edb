package packet

import (
	"encoding/binary"
	"errors"
)

// MaxRegistersPerWrite is the largest quantity FC16 can write: the byte
// count field is one byte, so 246/2 = 123 registers.
const MaxRegistersPerWrite = 123

// EncodeWriteMultipleRegistersRequest builds the FC16 request PDU data
// from a sequence of 16-bit register values.
func EncodeWriteMultipleRegistersRequest(startAddress uint16, values []uint16) ([]byte, error) {
	raw := make([]byte, len(values)*2)
	for i, v := range values {
		binary.BigEndian.PutUint16(raw[i*2:i*2+2], v)
	}
	return EncodeWriteMultipleRegistersRequestRaw(startAddress, raw)
}

// EncodeWriteMultipleRegistersRequestRaw builds the FC16 request PDU data
// from a prebuilt big-endian byte buffer, emitted verbatim. The register
// quantity is derived as len(raw)/2.
func EncodeWriteMultipleRegistersRequestRaw(startAddress uint16, raw []byte) ([]byte, error) {
	if len(raw) == 0 || len(raw)%2 != 0 {
		return nil, errors.New("register data must be a non-empty, even-length byte buffer")
	}
	quantity := len(raw) / 2
	if quantity > MaxRegistersPerWrite {
		return nil, errors.New("registers count is out of range (1-123)")
	}
	data := make([]byte, 5+len(raw))
	binary.BigEndian.PutUint16(data[0:2], startAddress)
	binary.BigEndian.PutUint16(data[2:4], uint16(quantity))
	data[4] = uint8(len(raw))
	copy(data[5:], raw)
	return data, nil
}

// ExpectedWriteMultipleRegistersResponseLength is the full RTU response
// frame length for a (non-broadcast) FC16 write.
const ExpectedWriteMultipleRegistersResponseLength = 8

// DecodeWriteMultipleRegistersResponse parses a FC16 response PDU:
// address followed by the written register count.
func DecodeWriteMultipleRegistersResponse(data []byte) (*WriteMultipleResult, error) {
	if len(data) != 4 {
		return nil, errors.New("write multiple registers response has unexpected length")
	}
	return &WriteMultipleResult{
		Address: binary.BigEndian.Uint16(data[0:2]),
		Count:   binary.BigEndian.Uint16(data[2:4]),
	}, nil
}
