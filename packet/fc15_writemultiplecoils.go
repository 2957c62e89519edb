package packet

import (
	"encoding/binary"
	"errors"
)

// MaxCoilsPerWrite is the largest quantity FC15 can write: the byte count
// field is one byte, so 246*8 = 1968 (leaving room for address/quantity/
// byte-count bytes within the 253-byte PDU limit).
const MaxCoilsPerWrite = 1968

// EncodeWriteMultipleCoilsRequest builds the FC15 request PDU data:
// address, quantity, byte count, then the packed coil bitmap.
//
// Example frame: `11 0F 04 10 00 03 01 05 8E 1F`
func EncodeWriteMultipleCoilsRequest(startAddress uint16, coils []bool) ([]byte, error) {
	count := len(coils)
	if count == 0 || count > MaxCoilsPerWrite {
		return nil, errors.New("coils count is out of range (1-1968)")
	}
	packed := PackCoils(coils)
	data := make([]byte, 5+len(packed))
	binary.BigEndian.PutUint16(data[0:2], startAddress)
	binary.BigEndian.PutUint16(data[2:4], uint16(count))
	data[4] = uint8(len(packed))
	copy(data[5:], packed)
	return data, nil
}

// ExpectedWriteMultipleCoilsResponseLength is the full RTU response frame
// length for a (non-broadcast) FC15 write.
const ExpectedWriteMultipleCoilsResponseLength = 8

// DecodeWriteMultipleCoilsResponse parses a FC15 response PDU: address
// followed by the written coil count.
func DecodeWriteMultipleCoilsResponse(data []byte) (*WriteMultipleResult, error) {
	if len(data) != 4 {
		return nil, errors.New("write multiple coils response has unexpected length")
	}
	return &WriteMultipleResult{
		Address: binary.BigEndian.Uint16(data[0:2]),
		Count:   binary.BigEndian.Uint16(data[2:4]),
	}, nil
}
