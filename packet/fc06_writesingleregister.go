package packet

import (
	"encoding/binary"
	"errors"
)

// EncodeWriteSingleRegisterRequest builds the FC6 request PDU data: a
// 16-bit address followed by a 16-bit value.
func EncodeWriteSingleRegisterRequest(address uint16, value uint16) []byte {
	data := make([]byte, 4)
	binary.BigEndian.PutUint16(data[0:2], address)
	binary.BigEndian.PutUint16(data[2:4], value)
	return data
}

// ExpectedWriteSingleRegisterResponseLength is the full RTU response
// frame length for a (non-broadcast, non-Enron) FC6 write.
const ExpectedWriteSingleRegisterResponseLength = 8

// DecodeWriteSingleRegisterResponse parses a FC6 response PDU, which
// echoes the request: address, then the 16-bit value.
func DecodeWriteSingleRegisterResponse(data []byte) (*WriteRegisterResult, error) {
	if len(data) != 4 {
		return nil, errors.New("write single register response has unexpected length")
	}
	address := binary.BigEndian.Uint16(data[0:2])
	value := binary.BigEndian.Uint16(data[2:4])
	return &WriteRegisterResult{Address: address, Value: uint32(value)}, nil
}
